// Package client provides the ParaShield Go SDK for buying coverage,
// filing claims, and operating the treasury over the HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIError is a structured error returned by the ParaShield server.
// Message carries the protocol error text verbatim, e.g.
// "No valid coverage found. Buy coverage first!".
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("parashield: HTTP %d: %s", e.StatusCode, e.Message)
}

// Policy is a stored coverage record.
type Policy struct {
	Account        string    `json:"account"`
	CoverageAmount int64     `json:"coverage_amount"`
	PremiumPaid    int64     `json:"premium_paid"`
	PurchasedAt    time.Time `json:"purchased_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	HasClaimed     bool      `json:"has_claimed"`
}

// Coverage is the active/amount/remaining projection of a policy.
type Coverage struct {
	Active           bool  `json:"active"`
	CoverageAmount   int64 `json:"coverage_amount"`
	TimeRemainingSec int64 `json:"time_remaining"`
}

// Evidence is the accident proof bundle attached to a claim.
type Evidence struct {
	PhotoRef          string `json:"photo_ref"`
	GPSLatitude       string `json:"gps_latitude"`
	GPSLongitude      string `json:"gps_longitude"`
	AccidentTimestamp int64  `json:"accident_timestamp"`
	PoliceReportID    string `json:"police_report_id,omitempty"`
	Description       string `json:"description"`
}

// Claim is a stored claim record. Status is one of "none", "pending",
// "approved", "rejected".
type Claim struct {
	ID              string     `json:"id"`
	Account         string     `json:"account"`
	Status          string     `json:"status"`
	RequestedAmount int64      `json:"requested_amount"`
	FiledAt         time.Time  `json:"filed_at"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	Notes           string     `json:"notes"`
	Resolution      string     `json:"resolution,omitempty"`
	Evidence        Evidence   `json:"evidence"`
}

// Reputation is a stored reputation record.
type Reputation struct {
	Account         string    `json:"account"`
	Score           int       `json:"score"`
	SafeDays        int       `json:"safe_days"`
	Claims          int       `json:"claims"`
	UpdatedAt       time.Time `json:"updated_at"`
	DiscountPercent int       `json:"discount_percent"`
}

// PremiumQuote is the base premium with an account's discount applied.
type PremiumQuote struct {
	BasePremium       int64 `json:"base_premium"`
	DiscountPercent   int   `json:"discount_percent"`
	DiscountedPremium int64 `json:"discounted_premium"`
}

// Transfer is one outbound treasury movement.
type Transfer struct {
	ID        string    `json:"id"`
	Recipient string    `json:"recipient"`
	Amount    int64     `json:"amount"`
	Memo      string    `json:"memo"`
	CreatedAt time.Time `json:"created_at"`
}

// Client is the ParaShield SDK entry point. Safe for concurrent use.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	adminSecret string
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient supplies a custom *http.Client (e.g. with tracing or
// a proxy). The default client has a 10 s timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithAdminSecret attaches the shared admin secret to every request.
// Required for approve/reject, safe-day credits, premium withdrawal,
// and emergency treasury withdrawal.
func WithAdminSecret(secret string) Option {
	return func(c *Client) { c.adminSecret = secret }
}

// WithTimeout sets the HTTP timeout on the default client. Apply it
// before WithHTTPClient has replaced the client, or not at all.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if c.httpClient != nil {
			c.httpClient.Timeout = d
		}
	}
}

// New creates a Client for the server at baseURL,
// e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("baseURL is required")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		return nil, errors.New("http client must not be nil")
	}
	return c, nil
}

// MustNew is like New but panics on error. Intended for package-level
// initialization where the base URL is a compile-time constant.
func MustNew(baseURL string, opts ...Option) *Client {
	c, err := New(baseURL, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// do executes a JSON request against the API and decodes the response
// into out (skipped when out is nil). Non-2xx responses are returned as
// *APIError carrying the server's error message.
func (c *Client) do(ctx context.Context, method, path string, reqBody, out any) error {
	var bodyReader io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.adminSecret != "" {
		req.Header.Set("X-Admin-Secret", c.adminSecret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB limit
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var payload struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(respBytes))
		if json.Unmarshal(respBytes, &payload) == nil && payload.Error != "" {
			msg = payload.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out != nil && len(respBytes) > 0 {
		if err := json.Unmarshal(respBytes, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// BuyCoverage purchases a policy for account, paying paidAmount shannon.
// The server requires paidAmount to equal the account's discounted
// premium exactly.
func (c *Client) BuyCoverage(ctx context.Context, account string, paidAmount int64) (*Policy, error) {
	body := map[string]any{"account": account, "paid_amount": paidAmount}
	var p Policy
	if err := c.do(ctx, http.MethodPost, "/api/v1/coverage", body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CheckCoverage reports whether account currently holds active coverage,
// the covered amount, and the seconds remaining.
func (c *Client) CheckCoverage(ctx context.Context, account string) (*Coverage, error) {
	var cov Coverage
	if err := c.do(ctx, http.MethodGet, "/api/v1/coverage/"+account, nil, &cov); err != nil {
		return nil, err
	}
	return &cov, nil
}

// PolicyDetails returns the full stored policy record for account.
func (c *Client) PolicyDetails(ctx context.Context, account string) (*Policy, error) {
	var p Policy
	if err := c.do(ctx, http.MethodGet, "/api/v1/coverage/"+account+"/policy", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// WithdrawPremiums sweeps the accumulated premium pool to the admin.
// Requires WithAdminSecret. Returns the amount withdrawn in shannon.
func (c *Client) WithdrawPremiums(ctx context.Context) (int64, error) {
	var out struct {
		Withdrawn int64 `json:"withdrawn"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/coverage/premiums/withdraw", nil, &out); err != nil {
		return 0, err
	}
	return out.Withdrawn, nil
}

// FileClaim submits accident evidence for account and opens a pending
// claim for the covered amount.
func (c *Client) FileClaim(ctx context.Context, account, notes string, ev Evidence) (*Claim, error) {
	body := map[string]any{"account": account, "notes": notes, "evidence": ev}
	var cl Claim
	if err := c.do(ctx, http.MethodPost, "/api/v1/claims", body, &cl); err != nil {
		return nil, err
	}
	return &cl, nil
}

// ClaimStatus returns the stored claim for account, or a zero record
// with status "none" when the account has never filed.
func (c *Client) ClaimStatus(ctx context.Context, account string) (*Claim, error) {
	var cl Claim
	if err := c.do(ctx, http.MethodGet, "/api/v1/claims/"+account, nil, &cl); err != nil {
		return nil, err
	}
	return &cl, nil
}

// ClaimEvidence returns the evidence bundle stored with account's claim.
func (c *Client) ClaimEvidence(ctx context.Context, account string) (*Evidence, error) {
	var ev Evidence
	if err := c.do(ctx, http.MethodGet, "/api/v1/claims/"+account+"/evidence", nil, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// ApproveClaim resolves account's pending claim in the claimant's
// favor, paying out from the treasury. Requires WithAdminSecret.
func (c *Client) ApproveClaim(ctx context.Context, account string) (*Claim, error) {
	var cl Claim
	if err := c.do(ctx, http.MethodPost, "/api/v1/claims/"+account+"/approve", nil, &cl); err != nil {
		return nil, err
	}
	return &cl, nil
}

// RejectClaim resolves account's pending claim against the claimant.
// No funds move and coverage stays intact. Requires WithAdminSecret.
func (c *Client) RejectClaim(ctx context.Context, account, reason string) (*Claim, error) {
	body := map[string]any{"reason": reason}
	var cl Claim
	if err := c.do(ctx, http.MethodPost, "/api/v1/claims/"+account+"/reject", body, &cl); err != nil {
		return nil, err
	}
	return &cl, nil
}

// TreasuryBalance returns the payout pool balance in shannon.
func (c *Client) TreasuryBalance(ctx context.Context) (int64, error) {
	var out struct {
		Balance int64 `json:"balance"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/treasury", nil, &out); err != nil {
		return 0, err
	}
	return out.Balance, nil
}

// FundTreasury credits amount shannon to the payout pool on behalf of
// account and returns the new balance. Callable by any party.
func (c *Client) FundTreasury(ctx context.Context, account string, amount int64) (int64, error) {
	body := map[string]any{"account": account, "amount": amount}
	var out struct {
		Balance int64 `json:"balance"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/treasury/fund", body, &out); err != nil {
		return 0, err
	}
	return out.Balance, nil
}

// TreasuryTransfers returns the most recent outbound treasury movements,
// newest first. limit <= 0 uses the server default.
func (c *Client) TreasuryTransfers(ctx context.Context, limit int) ([]Transfer, error) {
	path := "/api/v1/treasury/transfers"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	var out struct {
		Transfers []Transfer `json:"transfers"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Transfers, nil
}

// EmergencyWithdraw sweeps the entire treasury to the admin. Requires
// WithAdminSecret. Returns the amount withdrawn in shannon.
func (c *Client) EmergencyWithdraw(ctx context.Context) (int64, error) {
	var out struct {
		Withdrawn int64 `json:"withdrawn"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/treasury/emergency-withdraw", nil, &out); err != nil {
		return 0, err
	}
	return out.Withdrawn, nil
}

// ReputationOf returns the reputation record for account. Accounts that
// have never been written report the baseline score.
func (c *Client) ReputationOf(ctx context.Context, account string) (*Reputation, error) {
	var r Reputation
	if err := c.do(ctx, http.MethodGet, "/api/v1/reputation/"+account, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// PremiumFor returns the base premium with account's discount applied.
func (c *Client) PremiumFor(ctx context.Context, account string) (*PremiumQuote, error) {
	var q PremiumQuote
	if err := c.do(ctx, http.MethodGet, "/api/v1/reputation/"+account+"/premium", nil, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// AddSafeDay credits account with one claim-free coverage day.
// Requires WithAdminSecret.
func (c *Client) AddSafeDay(ctx context.Context, account string) (*Reputation, error) {
	var r Reputation
	if err := c.do(ctx, http.MethodPost, "/api/v1/reputation/"+account+"/safe-day", nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// RiskFinding is a single rule match in a claim risk report.
type RiskFinding struct {
	Rule        string  `json:"rule"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// RiskReport is the advisory fraud analysis of a claim.
type RiskReport struct {
	Score    int           `json:"score"`
	Severity string        `json:"severity"`
	Findings []RiskFinding `json:"findings"`
	Flagged  bool          `json:"flagged"`
}

// ClaimRisk returns the advisory risk analysis of account's current
// claim. Requires WithAdminSecret.
func (c *Client) ClaimRisk(ctx context.Context, account string) (*RiskReport, error) {
	var report RiskReport
	if err := c.do(ctx, http.MethodGet, "/api/v1/claims/"+account+"/risk", nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// AuditEntry is one record on the audit chain.
type AuditEntry struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	Subject   string    `json:"subject"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	DataHash  string    `json:"data_hash"`
	PrevHash  string    `json:"prev_hash"`
	Hash      string    `json:"hash"`
}

// AuditLog returns the most recent audit entries (newest first) and the
// chain tip hash. limit <= 0 uses the server default.
func (c *Client) AuditLog(ctx context.Context, limit int) ([]AuditEntry, string, error) {
	path := "/api/v1/audit"
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	var resp struct {
		Entries []AuditEntry `json:"entries"`
		Root    string       `json:"root"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, "", err
	}
	return resp.Entries, resp.Root, nil
}

// VerifyAuditChain walks the server's audit chain and reports whether it
// is intact. Requires WithAdminSecret.
func (c *Client) VerifyAuditChain(ctx context.Context) (bool, string, error) {
	var resp struct {
		Valid bool   `json:"valid"`
		Root  string `json:"root"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/audit/verify", nil, &resp); err != nil {
		return false, "", err
	}
	return resp.Valid, resp.Root, nil
}

// WebhookSubscription is a registered event delivery endpoint. Secret is
// only set on the response to Subscribe; it is never readable later.
type WebhookSubscription struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	Secret    string    `json:"secret,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Subscribe registers a webhook for the given event types ("*" matches
// everything). Requires WithAdminSecret. Store the returned Secret; the
// server signs deliveries with it and will not reveal it again.
func (c *Client) Subscribe(ctx context.Context, url string, eventTypes []string) (*WebhookSubscription, error) {
	req := map[string]any{"url": url, "events": eventTypes}
	var sub WebhookSubscription
	if err := c.do(ctx, http.MethodPost, "/api/v1/webhooks", req, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// Webhooks lists registered subscriptions. Requires WithAdminSecret.
func (c *Client) Webhooks(ctx context.Context) ([]WebhookSubscription, error) {
	var resp struct {
		Subscriptions []WebhookSubscription `json:"subscriptions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/webhooks", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Subscriptions, nil
}

// Unsubscribe removes a webhook subscription. Requires WithAdminSecret.
func (c *Client) Unsubscribe(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/webhooks/"+id, nil, nil)
}
