package fraud

import (
	"context"
	"strconv"
	"time"

	"github.com/parashield/parashield/internal/claims"
	"github.com/parashield/parashield/internal/reputation"
)

// ruleFunc inspects a claim and the claimant's history and returns zero
// or more Findings if its rule matches.
type ruleFunc func(claim *claims.Claim, history *reputation.Record, cfg RuleConfig) []Finding

// RuleConfig carries the protocol parameters the rules compare against.
type RuleConfig struct {
	// ClaimWindow is the maximum accident age at filing time.
	ClaimWindow time.Duration
	// MinDescriptionLen is the evidence minimum; descriptions barely
	// above it score as terse.
	MinDescriptionLen int
}

// RuleBasedScorer is the default Scorer implementation. It runs a fixed
// set of rules against the claim and accumulates a score.
type RuleBasedScorer struct {
	rules []ruleFunc
	cfg   RuleConfig
}

// NewRuleBasedScorer returns a RuleBasedScorer loaded with the default
// rule set.
func NewRuleBasedScorer(cfg RuleConfig) *RuleBasedScorer {
	s := &RuleBasedScorer{cfg: cfg}
	s.rules = []ruleFunc{
		ruleLateFiling,
		ruleTerseDescription,
		ruleGPSCoordinates,
		ruleMissingPoliceReport,
		ruleRepeatClaimant,
	}
	return s
}

// Score implements Scorer.
func (s *RuleBasedScorer) Score(_ context.Context, claim *claims.Claim, history *reputation.Record) (*Report, error) {
	var findings []Finding
	for _, r := range s.rules {
		findings = append(findings, r(claim, history, s.cfg)...)
	}

	total := 0
	for _, f := range findings {
		total += int(f.Confidence * 25)
	}
	if total > 100 {
		total = 100
	}

	if findings == nil {
		findings = []Finding{}
	}

	return &Report{
		Score:    total,
		Severity: severityLabel(total),
		Findings: findings,
		Flagged:  total >= 65,
	}, nil
}

// ruleLateFiling flags claims filed in the last hour of the claim
// window. Waiting until the window nearly closes is a common pattern in
// fabricated accident reports.
func ruleLateFiling(claim *claims.Claim, _ *reputation.Record, cfg RuleConfig) []Finding {
	accident := time.Unix(claim.Evidence.AccidentTimestamp, 0).UTC()
	age := claim.FiledAt.Sub(accident)
	if age > cfg.ClaimWindow-time.Hour && age <= cfg.ClaimWindow {
		return []Finding{{
			Rule:        "late_filing",
			Description: "Claim filed in the final hour of the filing window",
			Confidence:  0.5,
		}}
	}
	return nil
}

// ruleTerseDescription flags descriptions at or barely above the
// protocol minimum length.
func ruleTerseDescription(claim *claims.Claim, _ *reputation.Record, cfg RuleConfig) []Finding {
	if len(claim.Evidence.Description) <= cfg.MinDescriptionLen+5 {
		return []Finding{{
			Rule:        "terse_description",
			Description: "Accident description is at or near the minimum length",
			Confidence:  0.5,
		}}
	}
	return nil
}

// ruleGPSCoordinates flags coordinates that do not parse as floats or
// fall outside the valid latitude/longitude ranges.
func ruleGPSCoordinates(claim *claims.Claim, _ *reputation.Record, _ RuleConfig) []Finding {
	var findings []Finding

	lat, err := strconv.ParseFloat(claim.Evidence.GPSLatitude, 64)
	if err != nil || lat < -90 || lat > 90 {
		findings = append(findings, Finding{
			Rule:        "gps_coordinates",
			Description: "GPS latitude is malformed or out of range",
			Confidence:  0.8,
		})
	}
	long, err := strconv.ParseFloat(claim.Evidence.GPSLongitude, 64)
	if err != nil || long < -180 || long > 180 {
		findings = append(findings, Finding{
			Rule:        "gps_coordinates",
			Description: "GPS longitude is malformed or out of range",
			Confidence:  0.8,
		})
	}
	return findings
}

// ruleMissingPoliceReport flags claims without a police report ID. The
// report is optional at filing time but its absence lowers confidence.
func ruleMissingPoliceReport(claim *claims.Claim, _ *reputation.Record, _ RuleConfig) []Finding {
	if claim.Evidence.PoliceReportID == "" {
		return []Finding{{
			Rule:        "missing_police_report",
			Description: "No police report ID supplied with the claim",
			Confidence:  0.3,
		}}
	}
	return nil
}

// ruleRepeatClaimant flags accounts with prior claim history, weighted
// by how far their score has fallen below the baseline.
func ruleRepeatClaimant(_ *claims.Claim, history *reputation.Record, _ RuleConfig) []Finding {
	if history == nil || history.Claims < 2 {
		return nil
	}
	confidence := 0.4
	if history.Score < reputation.BaselineScore {
		confidence = 0.7
	}
	return []Finding{{
		Rule:        "repeat_claimant",
		Description: "Account has filed " + strconv.Itoa(history.Claims) + " prior claims",
		Confidence:  confidence,
	}}
}
