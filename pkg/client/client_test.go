package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/parashield/parashield/pkg/client"
)

// ── Stub server ─────────────────────────────────────────────────────────

func stubShieldServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/coverage", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Account    string `json:"account"`
			PaidAmount int64  `json:"paid_amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"bad json"}`, http.StatusBadRequest)
			return
		}
		if req.PaidAmount != 5_000_000 {
			http.Error(w, `{"error":"Must send exactly 5 SHM for coverage"}`, http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"account":         req.Account,
			"coverage_amount": 15_000_000,
			"premium_paid":    req.PaidAmount,
			"purchased_at":    time.Now().UTC(),
			"expires_at":      time.Now().UTC().Add(24 * time.Hour),
			"has_claimed":     false,
		})
	})

	mux.HandleFunc("/api/v1/coverage/rider-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"active":          true,
			"coverage_amount": 15_000_000,
			"time_remaining":  86_000,
		})
	})

	mux.HandleFunc("/api/v1/claims", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Account  string          `json:"account"`
			Evidence client.Evidence `json:"evidence"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"bad json"}`, http.StatusBadRequest)
			return
		}
		if req.Evidence.PhotoRef == "" {
			http.Error(w, `{"error":"Accident photo required - upload photo to IPFS"}`, http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"account":          req.Account,
			"status":           "pending",
			"requested_amount": 15_000_000,
			"evidence":         req.Evidence,
		})
	})

	mux.HandleFunc("/api/v1/claims/rider-1/approve", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Admin-Secret") != "hunter2" {
			http.Error(w, `{"error":"admin access required"}`, http.StatusForbidden)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"account": "rider-1",
			"status":  "approved",
		})
	})

	mux.HandleFunc("/api/v1/treasury", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"balance": 40_000_000})
	})

	mux.HandleFunc("/api/v1/treasury/fund", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Amount int64 `json:"amount"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]any{"balance": 40_000_000 + req.Amount})
	})

	mux.HandleFunc("/api/v1/reputation/rider-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"account":          "rider-1",
			"score":            125,
			"safe_days":        5,
			"claims":           0,
			"discount_percent": 10,
		})
	})

	mux.HandleFunc("/api/v1/reputation/rider-1/premium", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"base_premium":       5_000_000,
			"discount_percent":   10,
			"discounted_premium": 4_500_000,
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// ── Tests ───────────────────────────────────────────────────────────────

func TestBuyCoverage(t *testing.T) {
	srv := stubShieldServer(t)
	c, err := client.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	p, err := c.BuyCoverage(context.Background(), "rider-1", 5_000_000)
	if err != nil {
		t.Fatalf("BuyCoverage: %v", err)
	}
	if p.Account != "rider-1" {
		t.Errorf("account = %q, want rider-1", p.Account)
	}
	if p.CoverageAmount != 15_000_000 {
		t.Errorf("coverage = %d, want 15000000", p.CoverageAmount)
	}
}

func TestBuyCoverageWrongPremium(t *testing.T) {
	srv := stubShieldServer(t)
	c := client.MustNew(srv.URL)

	_, err := c.BuyCoverage(context.Background(), "rider-1", 1)
	if err == nil {
		t.Fatal("expected error for wrong premium")
	}
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T, want *client.APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", apiErr.StatusCode)
	}
	if apiErr.Message != "Must send exactly 5 SHM for coverage" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestCheckCoverage(t *testing.T) {
	srv := stubShieldServer(t)
	c := client.MustNew(srv.URL)

	cov, err := c.CheckCoverage(context.Background(), "rider-1")
	if err != nil {
		t.Fatalf("CheckCoverage: %v", err)
	}
	if !cov.Active {
		t.Error("expected active coverage")
	}
	if cov.TimeRemainingSec != 86_000 {
		t.Errorf("time_remaining = %d, want 86000", cov.TimeRemainingSec)
	}
}

func TestFileClaimMissingPhoto(t *testing.T) {
	srv := stubShieldServer(t)
	c := client.MustNew(srv.URL)

	_, err := c.FileClaim(context.Background(), "rider-1", "", client.Evidence{
		Description: "rear-ended at a junction",
	})
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T, want *client.APIError", err)
	}
	if apiErr.Message != "Accident photo required - upload photo to IPFS" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestApproveClaimRequiresSecret(t *testing.T) {
	srv := stubShieldServer(t)

	// Without the secret the server refuses.
	noAuth := client.MustNew(srv.URL)
	if _, err := noAuth.ApproveClaim(context.Background(), "rider-1"); err == nil {
		t.Fatal("expected error without admin secret")
	}

	// With the secret it goes through.
	admin := client.MustNew(srv.URL, client.WithAdminSecret("hunter2"))
	cl, err := admin.ApproveClaim(context.Background(), "rider-1")
	if err != nil {
		t.Fatalf("ApproveClaim: %v", err)
	}
	if cl.Status != "approved" {
		t.Errorf("status = %q, want approved", cl.Status)
	}
}

func TestTreasuryBalanceAndFund(t *testing.T) {
	srv := stubShieldServer(t)
	c := client.MustNew(srv.URL)

	balance, err := c.TreasuryBalance(context.Background())
	if err != nil {
		t.Fatalf("TreasuryBalance: %v", err)
	}
	if balance != 40_000_000 {
		t.Errorf("balance = %d, want 40000000", balance)
	}

	newBalance, err := c.FundTreasury(context.Background(), "sponsor", 10_000_000)
	if err != nil {
		t.Fatalf("FundTreasury: %v", err)
	}
	if newBalance != 50_000_000 {
		t.Errorf("balance after fund = %d, want 50000000", newBalance)
	}
}

func TestReputationAndQuote(t *testing.T) {
	srv := stubShieldServer(t)
	c := client.MustNew(srv.URL)

	r, err := c.ReputationOf(context.Background(), "rider-1")
	if err != nil {
		t.Fatalf("ReputationOf: %v", err)
	}
	if r.Score != 125 || r.DiscountPercent != 10 {
		t.Errorf("record = %+v, want score 125 discount 10", r)
	}

	q, err := c.PremiumFor(context.Background(), "rider-1")
	if err != nil {
		t.Fatalf("PremiumFor: %v", err)
	}
	if q.DiscountedPremium != 4_500_000 {
		t.Errorf("discounted premium = %d, want 4500000", q.DiscountedPremium)
	}
}

func TestNewRejectsEmptyBaseURL(t *testing.T) {
	if _, err := client.New(""); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}

func TestClaimRisk(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/claims/rider-1/risk", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Admin-Secret") != "hunter2" {
			http.Error(w, `{"error":"admin credential required"}`, http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"score":    40,
			"severity": "medium",
			"findings": []map[string]any{{"rule": "gps_coordinates", "description": "GPS latitude is malformed or out of range", "confidence": 0.8}},
			"flagged":  false,
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := client.MustNew(srv.URL, client.WithAdminSecret("hunter2"))
	report, err := c.ClaimRisk(context.Background(), "rider-1")
	if err != nil {
		t.Fatalf("ClaimRisk: %v", err)
	}
	if report.Score != 40 || report.Severity != "medium" {
		t.Errorf("report = %+v", report)
	}
	if len(report.Findings) != 1 || report.Findings[0].Rule != "gps_coordinates" {
		t.Errorf("findings = %+v", report.Findings)
	}
}

func TestAuditLogAndVerify(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/audit", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"entries": []map[string]any{{"index": 1, "action": "claims.approve", "subject": "rider-1", "actor": "admin"}},
			"root":    "abc123",
		})
	})
	mux.HandleFunc("/api/v1/audit/verify", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"valid": true, "root": "abc123"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := client.MustNew(srv.URL, client.WithAdminSecret("hunter2"))
	entries, root, err := c.AuditLog(context.Background(), 10)
	if err != nil {
		t.Fatalf("AuditLog: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != "claims.approve" || root != "abc123" {
		t.Errorf("entries = %+v, root = %q", entries, root)
	}

	valid, root, err := c.VerifyAuditChain(context.Background())
	if err != nil {
		t.Fatalf("VerifyAuditChain: %v", err)
	}
	if !valid || root != "abc123" {
		t.Errorf("valid = %v, root = %q", valid, root)
	}
}

func TestWebhookSubscribe(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/webhooks", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var req struct {
				URL    string   `json:"url"`
				Events []string `json:"events"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]any{
				"id":     "3f1a0b2c-0000-0000-0000-000000000000",
				"url":    req.URL,
				"events": req.Events,
				"secret": "deadbeef",
			})
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{
				"subscriptions": []map[string]any{{"id": "3f1a0b2c-0000-0000-0000-000000000000", "url": "https://example.com/hook", "active": true}},
			})
		}
	})
	mux.HandleFunc("/api/v1/webhooks/3f1a0b2c-0000-0000-0000-000000000000", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := client.MustNew(srv.URL, client.WithAdminSecret("hunter2"))
	sub, err := c.Subscribe(context.Background(), "https://example.com/hook", []string{"claim.approved"})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if sub.Secret != "deadbeef" {
		t.Errorf("secret = %q, want deadbeef", sub.Secret)
	}

	subs, err := c.Webhooks(context.Background())
	if err != nil {
		t.Fatalf("Webhooks: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("got %d subscriptions, want 1", len(subs))
	}

	if err := c.Unsubscribe(context.Background(), sub.ID); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
}
