package fraud

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/parashield/parashield/internal/claims"
	"github.com/parashield/parashield/internal/reputation"
)

var testCfg = RuleConfig{
	ClaimWindow:       24 * time.Hour,
	MinDescriptionLen: 10,
}

func cleanClaim(filedAt time.Time) *claims.Claim {
	return &claims.Claim{
		ID:              uuid.New(),
		Account:         "rider-1",
		Status:          claims.StatusPending,
		RequestedAmount: 15_000_000,
		FiledAt:         filedAt,
		Evidence: claims.Evidence{
			PhotoRef:          "QmX7b5jxn6VdAccidentPhoto",
			GPSLatitude:       "13.0827",
			GPSLongitude:      "80.2707",
			AccidentTimestamp: filedAt.Add(-2 * time.Hour).Unix(),
			PoliceReportID:    "FIR-2026-0042",
			Description:       "Hit by a car while delivering on MG Road",
		},
	}
}

func baseline() *reputation.Record {
	return &reputation.Record{Account: "rider-1", Score: reputation.BaselineScore}
}

func findRule(t *testing.T, report *Report, rule string) Finding {
	t.Helper()
	for _, f := range report.Findings {
		if f.Rule == rule {
			return f
		}
	}
	t.Fatalf("rule %q did not fire; findings: %+v", rule, report.Findings)
	return Finding{}
}

func TestCleanClaimScoresZero(t *testing.T) {
	s := NewRuleBasedScorer(testCfg)
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	report, err := s.Score(context.Background(), cleanClaim(now), baseline())
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if report.Score != 0 {
		t.Errorf("score = %d, want 0; findings: %+v", report.Score, report.Findings)
	}
	if report.Severity != "none" {
		t.Errorf("severity = %q, want none", report.Severity)
	}
	if report.Flagged {
		t.Error("clean claim flagged")
	}
	if report.Findings == nil {
		t.Error("findings must be an empty slice, not nil")
	}
}

func TestLateFiling(t *testing.T) {
	s := NewRuleBasedScorer(testCfg)
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	c := cleanClaim(now)
	c.Evidence.AccidentTimestamp = now.Add(-23*time.Hour - 30*time.Minute).Unix()

	report, err := s.Score(context.Background(), c, baseline())
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	f := findRule(t, report, "late_filing")
	if f.Confidence != 0.5 {
		t.Errorf("confidence = %v, want 0.5", f.Confidence)
	}
}

func TestMalformedGPS(t *testing.T) {
	s := NewRuleBasedScorer(testCfg)
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	c := cleanClaim(now)
	c.Evidence.GPSLatitude = "not-a-number"
	c.Evidence.GPSLongitude = "512.9"

	report, err := s.Score(context.Background(), c, baseline())
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	count := 0
	for _, f := range report.Findings {
		if f.Rule == "gps_coordinates" {
			count++
		}
	}
	if count != 2 {
		t.Errorf("gps_coordinates findings = %d, want 2", count)
	}
	// 2 × 0.8 × 25 = 40
	if report.Score != 40 {
		t.Errorf("score = %d, want 40", report.Score)
	}
	if report.Severity != "medium" {
		t.Errorf("severity = %q, want medium", report.Severity)
	}
}

func TestMissingPoliceReport(t *testing.T) {
	s := NewRuleBasedScorer(testCfg)
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	c := cleanClaim(now)
	c.Evidence.PoliceReportID = ""

	report, err := s.Score(context.Background(), c, baseline())
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	findRule(t, report, "missing_police_report")
	if report.Severity != "none" {
		t.Errorf("severity = %q, want none for a single soft finding", report.Severity)
	}
}

func TestRepeatClaimantWeighting(t *testing.T) {
	s := NewRuleBasedScorer(testCfg)
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	// Two prior claims but score held at baseline: soft weighting.
	h := &reputation.Record{Account: "rider-1", Score: 100, Claims: 2}
	report, err := s.Score(context.Background(), cleanClaim(now), h)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if f := findRule(t, report, "repeat_claimant"); f.Confidence != 0.4 {
		t.Errorf("confidence = %v, want 0.4 at baseline score", f.Confidence)
	}

	// Score sunk below baseline: hard weighting.
	h = &reputation.Record{Account: "rider-1", Score: 60, Claims: 2}
	report, err = s.Score(context.Background(), cleanClaim(now), h)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if f := findRule(t, report, "repeat_claimant"); f.Confidence != 0.7 {
		t.Errorf("confidence = %v, want 0.7 below baseline", f.Confidence)
	}
}

func TestEverythingWrongFlags(t *testing.T) {
	s := NewRuleBasedScorer(testCfg)
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	c := cleanClaim(now)
	c.Evidence.AccidentTimestamp = now.Add(-23*time.Hour - 59*time.Minute).Unix()
	c.Evidence.Description = "Bike crash."
	c.Evidence.GPSLatitude = "91.5"
	c.Evidence.GPSLongitude = "bogus"
	c.Evidence.PoliceReportID = ""
	h := &reputation.Record{Account: "rider-1", Score: 40, Claims: 3}

	report, err := s.Score(context.Background(), c, h)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if !report.Flagged {
		t.Errorf("score = %d, want flagged", report.Score)
	}
	if report.Severity != "high" && report.Severity != "critical" {
		t.Errorf("severity = %q, want high or critical", report.Severity)
	}
}
