package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/parashield/parashield/internal/protocol"
	"github.com/parashield/parashield/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL   string
	adminSecret string
	cfgFile     string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "shield",
	Short: "ParaShield parametric insurance CLI",
	Long: `shield is the command-line interface for the ParaShield protocol.

It lets gig workers buy accident coverage, file claims with evidence,
and lets operators fund the treasury and resolve pending claims.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.shield")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8080"
		}
		if adminSecret == "" {
			adminSecret = viper.GetString("admin_secret")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.shield/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "ParaShield server URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&adminSecret, "admin-secret", "", "shared admin secret for privileged commands")

	rootCmd.AddCommand(coverageCmd)
	rootCmd.AddCommand(claimCmd)
	rootCmd.AddCommand(treasuryCmd)
	rootCmd.AddCommand(reputationCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(webhookCmd)
	rootCmd.AddCommand(versionCmd)
}

// newClient builds an SDK client from the resolved global flags.
func newClient() (*client.Client, error) {
	opts := []client.Option{}
	if adminSecret != "" {
		opts = append(opts, client.WithAdminSecret(adminSecret))
	}
	return client.New(serverURL, opts...)
}

// parseSHM converts a decimal SHM amount like "5" or "2.5" into shannon.
func parseSHM(s string) (int64, error) {
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid SHM amount %q", s)
	}
	amount := n * protocol.UnitsPerToken
	if frac != "" {
		if len(frac) > 6 {
			return 0, fmt.Errorf("SHM amount %q has more than 6 decimal places", s)
		}
		f, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid SHM amount %q", s)
		}
		for i := len(frac); i < 6; i++ {
			f *= 10
		}
		amount += f
	}
	return amount, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ── coverage ─────────────────────────────────────────────────────────────────

var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Buy and inspect accident coverage",
}

var buyAmount string

var coverageBuyCmd = &cobra.Command{
	Use:   "buy <account>",
	Short: "Buy a coverage policy for an account",
	Long: `buy purchases one coverage window for the account.

Without --amount the CLI first asks the server for the account's
discounted premium and pays exactly that:

  shield coverage buy rider-42
  shield coverage buy rider-42 --amount 4.5`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		account := args[0]
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx := context.Background()

		var pay int64
		if buyAmount != "" {
			pay, err = parseSHM(buyAmount)
			if err != nil {
				return err
			}
		} else {
			quote, err := c.PremiumFor(ctx, account)
			if err != nil {
				return fmt.Errorf("fetch premium quote: %w", err)
			}
			pay = quote.DiscountedPremium
		}

		p, err := c.BuyCoverage(ctx, account, pay)
		if err != nil {
			return err
		}

		fmt.Printf("✓ Coverage purchased\n\n")
		fmt.Printf("  Account:  %s\n", p.Account)
		fmt.Printf("  Premium:  %s SHM\n", protocol.FormatTokens(p.PremiumPaid))
		fmt.Printf("  Coverage: %s SHM\n", protocol.FormatTokens(p.CoverageAmount))
		fmt.Printf("  Expires:  %s\n", p.ExpiresAt.Local().Format(time.RFC1123))
		return nil
	},
}

var coverageCheckCmd = &cobra.Command{
	Use:   "check <account>",
	Short: "Check whether an account holds active coverage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		cov, err := c.CheckCoverage(context.Background(), args[0])
		if err != nil {
			return err
		}
		if !cov.Active {
			fmt.Println("No active coverage")
			return nil
		}
		remaining := time.Duration(cov.TimeRemainingSec) * time.Second
		fmt.Printf("Active: %s SHM covered, %s remaining\n",
			protocol.FormatTokens(cov.CoverageAmount), remaining.Round(time.Second))
		return nil
	},
}

var coveragePolicyCmd = &cobra.Command{
	Use:   "policy <account>",
	Short: "Print the full stored policy record as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		p, err := c.PolicyDetails(context.Background(), args[0])
		if err != nil {
			return err
		}
		return printJSON(p)
	},
}

var coverageWithdrawCmd = &cobra.Command{
	Use:   "withdraw-premiums",
	Short: "Sweep the accumulated premium pool to the admin (requires --admin-secret)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		drained, err := c.WithdrawPremiums(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("✓ Withdrew %s SHM from the premium pool\n", protocol.FormatTokens(drained))
		return nil
	},
}

func init() {
	coverageBuyCmd.Flags().StringVar(&buyAmount, "amount", "", "Premium to pay in SHM (default: the account's quoted premium)")

	coverageCmd.AddCommand(coverageBuyCmd)
	coverageCmd.AddCommand(coverageCheckCmd)
	coverageCmd.AddCommand(coveragePolicyCmd)
	coverageCmd.AddCommand(coverageWithdrawCmd)
}

// ── claim ─────────────────────────────────────────────────────────────────────

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "File and resolve accident claims",
}

var (
	filePhoto       string
	fileLatitude    string
	fileLongitude   string
	fileTimestamp   int64
	fileReport      string
	fileDescription string
	fileNotes       string
)

var claimFileCmd = &cobra.Command{
	Use:   "file <account>",
	Short: "File an accident claim with evidence",
	Long: `file submits the evidence bundle and opens a pending claim.

  shield claim file rider-42 \
    --photo QmX7b5jxn6Vd... \
    --lat 13.0827 --long 80.2707 \
    --timestamp 1756400000 \
    --description "Hit by a car while delivering on MG Road"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		ts := fileTimestamp
		if ts == 0 {
			ts = time.Now().Unix()
		}
		cl, err := c.FileClaim(context.Background(), args[0], fileNotes, client.Evidence{
			PhotoRef:          filePhoto,
			GPSLatitude:       fileLatitude,
			GPSLongitude:      fileLongitude,
			AccidentTimestamp: ts,
			PoliceReportID:    fileReport,
			Description:       fileDescription,
		})
		if err != nil {
			return err
		}

		fmt.Printf("✓ Claim filed\n\n")
		fmt.Printf("  ID:     %s\n", cl.ID)
		fmt.Printf("  Status: %s\n", cl.Status)
		fmt.Printf("  Amount: %s SHM\n", protocol.FormatTokens(cl.RequestedAmount))
		return nil
	},
}

var claimStatusCmd = &cobra.Command{
	Use:   "status <account>",
	Short: "Show the claim status for an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		cl, err := c.ClaimStatus(context.Background(), args[0])
		if err != nil {
			return err
		}
		if cl.Status == "none" {
			fmt.Println("No claim on record")
			return nil
		}
		fmt.Printf("Status:  %s\n", cl.Status)
		fmt.Printf("Amount:  %s SHM\n", protocol.FormatTokens(cl.RequestedAmount))
		fmt.Printf("Filed:   %s\n", cl.FiledAt.Local().Format(time.RFC1123))
		if cl.ProcessedAt != nil {
			fmt.Printf("Settled: %s\n", cl.ProcessedAt.Local().Format(time.RFC1123))
		}
		if cl.Resolution != "" {
			fmt.Printf("Reason:  %s\n", cl.Resolution)
		}
		return nil
	},
}

var claimEvidenceCmd = &cobra.Command{
	Use:   "evidence <account>",
	Short: "Print the stored evidence bundle as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ev, err := c.ClaimEvidence(context.Background(), args[0])
		if err != nil {
			return err
		}
		return printJSON(ev)
	},
}

var claimApproveCmd = &cobra.Command{
	Use:   "approve <account>",
	Short: "Approve a pending claim and pay out (requires --admin-secret)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		cl, err := c.ApproveClaim(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("✓ Claim approved, %s SHM paid to %s\n",
			protocol.FormatTokens(cl.RequestedAmount), cl.Account)
		return nil
	},
}

var rejectReason string

var claimRejectCmd = &cobra.Command{
	Use:   "reject <account>",
	Short: "Reject a pending claim (requires --admin-secret)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		cl, err := c.RejectClaim(context.Background(), args[0], rejectReason)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Claim rejected: %s\n", cl.Resolution)
		return nil
	},
}

func init() {
	claimFileCmd.Flags().StringVar(&filePhoto, "photo", "", "IPFS reference of the accident photo")
	claimFileCmd.Flags().StringVar(&fileLatitude, "lat", "", "GPS latitude at the accident site")
	claimFileCmd.Flags().StringVar(&fileLongitude, "long", "", "GPS longitude at the accident site")
	claimFileCmd.Flags().Int64Var(&fileTimestamp, "timestamp", 0, "Accident unix timestamp (default: now)")
	claimFileCmd.Flags().StringVar(&fileReport, "report", "", "Police report ID (optional)")
	claimFileCmd.Flags().StringVar(&fileDescription, "description", "", "What happened (minimum 10 characters)")
	claimFileCmd.Flags().StringVar(&fileNotes, "notes", "", "Free-form notes for the reviewer")
	_ = claimFileCmd.MarkFlagRequired("photo")
	_ = claimFileCmd.MarkFlagRequired("lat")
	_ = claimFileCmd.MarkFlagRequired("long")
	_ = claimFileCmd.MarkFlagRequired("description")

	claimRejectCmd.Flags().StringVar(&rejectReason, "reason", "", "Why the claim is rejected")
	_ = claimRejectCmd.MarkFlagRequired("reason")

	claimCmd.AddCommand(claimFileCmd)
	claimCmd.AddCommand(claimStatusCmd)
	claimCmd.AddCommand(claimEvidenceCmd)
	claimCmd.AddCommand(claimApproveCmd)
	claimCmd.AddCommand(claimRejectCmd)
	claimCmd.AddCommand(claimRiskCmd)
}

var claimRiskCmd = &cobra.Command{
	Use:   "risk <account>",
	Short: "Show the advisory fraud analysis of a claim (requires --admin-secret)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		report, err := c.ClaimRisk(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Risk score: %d/100 (%s)\n", report.Score, report.Severity)
		if report.Flagged {
			fmt.Println("⚠ Flagged for manual scrutiny")
		}
		for _, f := range report.Findings {
			fmt.Printf("  - [%s] %s\n", f.Rule, f.Description)
		}
		return nil
	},
}

// ── treasury ─────────────────────────────────────────────────────────────────

var treasuryCmd = &cobra.Command{
	Use:   "treasury",
	Short: "Inspect and operate the payout treasury",
}

var treasuryBalanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the treasury balance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		balance, err := c.TreasuryBalance(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("%s SHM\n", protocol.FormatTokens(balance))
		return nil
	},
}

var (
	fundAccount string
	fundAmount  string
)

var treasuryFundCmd = &cobra.Command{
	Use:   "fund",
	Short: "Top up the payout treasury",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseSHM(fundAmount)
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		balance, err := c.FundTreasury(context.Background(), fundAccount, amount)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Treasury funded, new balance %s SHM\n", protocol.FormatTokens(balance))
		return nil
	},
}

var transfersLimit int

var treasuryTransfersCmd = &cobra.Command{
	Use:   "transfers",
	Short: "List recent outbound treasury transfers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		transfers, err := c.TreasuryTransfers(context.Background(), transfersLimit)
		if err != nil {
			return err
		}
		if len(transfers) == 0 {
			fmt.Println("No transfers")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tRECIPIENT\tAMOUNT (SHM)\tMEMO")
		for _, tr := range transfers {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				tr.CreatedAt.Local().Format(time.RFC3339), tr.Recipient,
				protocol.FormatTokens(tr.Amount), tr.Memo)
		}
		return w.Flush()
	},
}

var treasurySweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Emergency-withdraw the entire treasury (requires --admin-secret)",
	Long: `sweep drains the full treasury balance to the admin.

Pending claims are left without solvency backing until the pool is
refunded. This is the circuit breaker, not a routine operation.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		swept, err := c.EmergencyWithdraw(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("✓ Swept %s SHM from the treasury\n", protocol.FormatTokens(swept))
		return nil
	},
}

func init() {
	treasuryFundCmd.Flags().StringVar(&fundAccount, "account", "", "Funding account recorded with the credit")
	treasuryFundCmd.Flags().StringVar(&fundAmount, "amount", "", "Amount to credit in SHM")
	_ = treasuryFundCmd.MarkFlagRequired("amount")

	treasuryTransfersCmd.Flags().IntVar(&transfersLimit, "limit", 0, "Maximum transfers to list (0 = server default)")

	treasuryCmd.AddCommand(treasuryBalanceCmd)
	treasuryCmd.AddCommand(treasuryFundCmd)
	treasuryCmd.AddCommand(treasuryTransfersCmd)
	treasuryCmd.AddCommand(treasurySweepCmd)
}

// ── reputation ───────────────────────────────────────────────────────────────

var reputationCmd = &cobra.Command{
	Use:   "reputation",
	Short: "Inspect and credit rider reputation",
}

var reputationShowCmd = &cobra.Command{
	Use:   "show <account>",
	Short: "Show an account's reputation and premium quote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx := context.Background()

		r, err := c.ReputationOf(ctx, args[0])
		if err != nil {
			return err
		}
		q, err := c.PremiumFor(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Score:     %d\n", r.Score)
		fmt.Printf("Safe days: %d\n", r.SafeDays)
		fmt.Printf("Claims:    %d\n", r.Claims)
		if q.DiscountPercent >= 0 {
			fmt.Printf("Discount:  %d%%\n", q.DiscountPercent)
		} else {
			fmt.Printf("Surcharge: %d%%\n", -q.DiscountPercent)
		}
		fmt.Printf("Premium:   %s SHM\n", protocol.FormatTokens(q.DiscountedPremium))
		return nil
	},
}

var reputationSafeDayCmd = &cobra.Command{
	Use:   "safe-day <account>",
	Short: "Credit one claim-free coverage day (requires --admin-secret)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		r, err := c.AddSafeDay(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("✓ Safe day credited, score is now %d\n", r.Score)
		return nil
	},
}

func init() {
	reputationCmd.AddCommand(reputationShowCmd)
	reputationCmd.AddCommand(reputationSafeDayCmd)
}

// ── audit ────────────────────────────────────────────────────────────────────

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the privileged-operation audit chain",
}

var auditLimit int

var auditShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List recent audit entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		entries, root, err := c.AuditLog(context.Background(), auditLimit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "IDX\tWHEN\tACTION\tSUBJECT\tACTOR")
		for _, e := range entries {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
				e.Index, e.Timestamp.Local().Format(time.RFC3339),
				e.Action, e.Subject, e.Actor)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("chain tip: %s\n", root)
		return nil
	},
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the audit chain's hash integrity (requires --admin-secret)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		valid, root, err := c.VerifyAuditChain(context.Background())
		if err != nil {
			return err
		}
		if !valid {
			return fmt.Errorf("audit chain verification FAILED")
		}
		fmt.Printf("✓ Audit chain intact, tip %s\n", root)
		return nil
	},
}

func init() {
	auditShowCmd.Flags().IntVar(&auditLimit, "limit", 0, "Maximum entries to list (0 = server default)")

	auditCmd.AddCommand(auditShowCmd)
	auditCmd.AddCommand(auditVerifyCmd)
}

// ── webhook ──────────────────────────────────────────────────────────────────

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Manage event webhook subscriptions (requires --admin-secret)",
}

var webhookEvents []string

var webhookAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Register a webhook endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		sub, err := c.Subscribe(context.Background(), args[0], webhookEvents)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Subscribed %s (id %s)\n", sub.URL, sub.ID)
		fmt.Printf("signing secret (shown once): %s\n", sub.Secret)
		return nil
	},
}

var webhookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List webhook subscriptions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		subs, err := c.Webhooks(context.Background())
		if err != nil {
			return err
		}
		if len(subs) == 0 {
			fmt.Println("No subscriptions")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tURL\tEVENTS\tACTIVE")
		for _, s := range subs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%v\n",
				s.ID, s.URL, strings.Join(s.Events, ","), s.Active)
		}
		return w.Flush()
	},
}

var webhookRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Delete a webhook subscription",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Unsubscribe(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Println("✓ Subscription removed")
		return nil
	},
}

func init() {
	webhookAddCmd.Flags().StringSliceVar(&webhookEvents, "events", []string{"*"},
		`Event types to deliver (e.g. claim.approved,treasury.funded; "*" matches all)`)

	webhookCmd.AddCommand(webhookAddCmd)
	webhookCmd.AddCommand(webhookListCmd)
	webhookCmd.AddCommand(webhookRemoveCmd)
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the shield CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("shield %s (ParaShield protocol)\n", version)
	},
}
