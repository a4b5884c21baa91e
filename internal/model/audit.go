package model

import "go.uber.org/zap"

// AuditReport summarizes the deterministic validity checks applied to a
// panel. Per-check counts are computed independently against the pre-filter
// set, so interacting checks are not double-blamed and the counts need not
// sum to Dropped.
type AuditReport struct {
	InputRows int `json:"input_rows"`

	NaNYear               int `json:"nan_year"`
	NaNPremium            int `json:"nan_premium"`
	NegativeClaims        int `json:"negative_claims"`
	PremiumBelowThreshold int `json:"premium_below_threshold"`
	MCRExtreme            int `json:"mcr_extreme"`

	Dropped    int `json:"dropped"`
	OutputRows int `json:"output_rows"`
}

// Fields returns the report as structured logging fields.
func (r AuditReport) Fields() []zap.Field {
	return []zap.Field{
		zap.Int("input_rows", r.InputRows),
		zap.Int("nan_year", r.NaNYear),
		zap.Int("nan_premium", r.NaNPremium),
		zap.Int("negative_claims", r.NegativeClaims),
		zap.Int("premium_below_threshold", r.PremiumBelowThreshold),
		zap.Int("mcr_extreme", r.MCRExtreme),
		zap.Int("dropped", r.Dropped),
		zap.Int("output_rows", r.OutputRows),
	}
}
