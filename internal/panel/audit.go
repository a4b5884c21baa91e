package panel

import (
	"math"

	"github.com/troy3977-blip/mcr-ai-insights/internal/model"
)

// AuditConfig holds the audit filter thresholds.
type AuditConfig struct {
	// MinPremium is the micro-issuer floor: records with earned premium at
	// or below it are dropped.
	MinPremium float64
	// MCRCap drops records whose raw claims/premium ratio exceeds it.
	MCRCap float64
}

// auditCheck is one named validity check. A record is dropped by the first
// check it fails, but reported counts are computed per check against the
// full pre-filter set so interacting checks are not double-blamed.
type auditCheck struct {
	name string
	fail func(model.CanonicalRecord, AuditConfig) bool
	bump func(*model.AuditReport)
}

var auditChecks = []auditCheck{
	{
		name: "nan_year",
		fail: func(r model.CanonicalRecord, _ AuditConfig) bool {
			return r.Year <= 0
		},
		bump: func(rep *model.AuditReport) { rep.NaNYear++ },
	},
	{
		name: "nan_premium",
		fail: func(r model.CanonicalRecord, _ AuditConfig) bool {
			return r.EarnedPremium == nil || math.IsNaN(*r.EarnedPremium) || math.IsInf(*r.EarnedPremium, 0)
		},
		bump: func(rep *model.AuditReport) { rep.NaNPremium++ },
	},
	{
		name: "negative_claims",
		fail: func(r model.CanonicalRecord, _ AuditConfig) bool {
			return r.IncurredClaims == nil || *r.IncurredClaims < 0
		},
		bump: func(rep *model.AuditReport) { rep.NegativeClaims++ },
	},
	{
		name: "premium_below_threshold",
		fail: func(r model.CanonicalRecord, cfg AuditConfig) bool {
			return r.EarnedPremium != nil && *r.EarnedPremium <= cfg.MinPremium
		},
		bump: func(rep *model.AuditReport) { rep.PremiumBelowThreshold++ },
	},
	{
		name: "mcr_extreme",
		fail: func(r model.CanonicalRecord, cfg AuditConfig) bool {
			if r.EarnedPremium == nil || r.IncurredClaims == nil || *r.EarnedPremium <= 0 {
				return false
			}
			return *r.IncurredClaims / *r.EarnedPremium > cfg.MCRCap
		},
		bump: func(rep *model.AuditReport) { rep.MCRExtreme++ },
	},
}

// Audit applies the validity checks in fixed order and returns the surviving
// records together with the drop counters. Every exclusion is attributable
// to exactly one named check; the per-check counts are independent, so they
// need not sum to the dropped total. Survivors are guaranteed to have a
// positive year, earned premium above the floor, and non-negative claims.
func Audit(records []model.CanonicalRecord, cfg AuditConfig) ([]model.CanonicalRecord, model.AuditReport) {
	report := model.AuditReport{InputRows: len(records)}

	// Independent counts over the pre-filter set.
	for _, r := range records {
		for _, c := range auditChecks {
			if c.fail(r, cfg) {
				c.bump(&report)
			}
		}
	}

	clean := make([]model.CanonicalRecord, 0, len(records))
	for _, r := range records {
		dropped := false
		for _, c := range auditChecks {
			if c.fail(r, cfg) {
				dropped = true
				break
			}
		}
		if !dropped {
			clean = append(clean, r)
		}
	}

	report.OutputRows = len(clean)
	report.Dropped = report.InputRows - report.OutputRows
	return clean, report
}
