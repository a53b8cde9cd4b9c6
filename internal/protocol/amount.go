package protocol

import (
	"fmt"
	"strings"
)

// UnitsPerToken is the number of smallest units ("shannon") in one whole
// SHM token. All balances, premiums, and payouts are int64 shannon;
// floating point never touches money.
const UnitsPerToken int64 = 1_000_000

// FormatTokens renders a shannon amount as whole SHM tokens, trimming
// trailing zeros: 5_000000 → "5", 2_500000 → "2.5".
func FormatTokens(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	whole := amount / UnitsPerToken
	frac := amount % UnitsPerToken
	if frac == 0 {
		return fmt.Sprintf("%s%d", sign, whole)
	}
	s := strings.TrimRight(fmt.Sprintf("%06d", frac), "0")
	return fmt.Sprintf("%s%d.%s", sign, whole, s)
}

// Tokens converts a whole-token count to shannon.
func Tokens(n int64) int64 { return n * UnitsPerToken }
