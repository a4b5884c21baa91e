// Package model defines the record types flowing through the panel pipeline.
package model

import "fmt"

// Markets reported in the MLR public use files.
const (
	MarketIndividual = "Individual"
	MarketSmallGroup = "Small Group"
	MarketLargeGroup = "Large Group"
)

// CanonicalRecord is one issuer-state-market-year observation as produced by
// the row-code decoder and joiner, before auditing. EarnedPremium and
// IncurredClaims are nil when the source fact table carried no resolvable
// row for the code; the audit filter handles those, not the decoder.
type CanonicalRecord struct {
	IssuerID       string
	IssuerName     string
	State          string
	Market         string
	Year           int
	EarnedPremium  *float64
	IncurredClaims *float64
}

// Key returns the unique identity of the record.
func (r CanonicalRecord) Key() string {
	return fmt.Sprintf("%s|%s|%s|%d", r.IssuerID, r.State, r.Market, r.Year)
}

// GroupKey identifies the longitudinal issuer-state-market group, ignoring year.
func (r CanonicalRecord) GroupKey() string {
	return r.IssuerID + "|" + r.State + "|" + r.Market
}
