package panel

import (
	"math"
	"sort"

	"github.com/troy3977-blip/mcr-ai-insights/internal/model"
)

// FeatureConfig holds the baseline window for the pre-expansion median MCR.
type FeatureConfig struct {
	BaselineStart int
	BaselineEnd   int
}

// BuildFeatures computes the loss ratio and derived features over the
// audited set, then attaches inflation index values when a table is
// supplied. The inflation join is a left join by year: absent years leave
// the index columns nil rather than failing the build. Output is sorted by
// issuer, state, market, year, which also makes repeated runs byte-identical.
func BuildFeatures(clean []model.CanonicalRecord, infl *model.InflationTable, cfg FeatureConfig) []model.PanelRecord {
	recs := make([]model.PanelRecord, 0, len(clean))
	for _, r := range clean {
		prem := *r.EarnedPremium
		claims := *r.IncurredClaims
		recs = append(recs, model.PanelRecord{
			IssuerID:       r.IssuerID,
			IssuerName:     r.IssuerName,
			State:          r.State,
			Market:         r.Market,
			Year:           r.Year,
			EarnedPremium:  prem,
			IncurredClaims: claims,
			LogPremium:     math.Log(prem),
			MCR:            claims / prem,
		})
	}

	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.IssuerID != b.IssuerID {
			return a.IssuerID < b.IssuerID
		}
		if a.State != b.State {
			return a.State < b.State
		}
		if a.Market != b.Market {
			return a.Market < b.Market
		}
		return a.Year < b.Year
	})

	attachBaseline(recs, cfg)
	attachPremiumGrowth(recs)
	attachInflation(recs, infl)

	return recs
}

// attachBaseline computes the median MCR per issuer-state-market group over
// the baseline window and the per-row delta against it. Groups with no
// observation inside the window keep nil.
func attachBaseline(recs []model.PanelRecord, cfg FeatureConfig) {
	base := make(map[string][]float64)
	for _, r := range recs {
		if r.Year >= cfg.BaselineStart && r.Year <= cfg.BaselineEnd {
			base[r.GroupKey()] = append(base[r.GroupKey()], r.MCR)
		}
	}

	medians := make(map[string]float64, len(base))
	for k, vals := range base {
		medians[k] = median(vals)
	}

	for i := range recs {
		if m, ok := medians[recs[i].GroupKey()]; ok {
			recs[i].BaselineMCR = ptr(m)
			recs[i].MCRDelta = ptr(recs[i].MCR - m)
		}
	}
}

// attachPremiumGrowth computes premium growth against the previous
// observation of the same group in year order, plus two lags of it. The
// first observation of each group has no growth value.
func attachPremiumGrowth(recs []model.PanelRecord) {
	for i := range recs {
		if i == 0 || recs[i].GroupKey() != recs[i-1].GroupKey() {
			continue
		}
		prev := recs[i-1].EarnedPremium
		if prev != 0 {
			recs[i].PremiumYoY = ptr(recs[i].EarnedPremium/prev - 1)
		}
		recs[i].PremiumYoYLag1 = recs[i-1].PremiumYoY
		recs[i].PremiumYoYLag2 = recs[i-1].PremiumYoYLag1
	}
}

// attachInflation left-joins the inflation table by year and derives the
// hospital pricing gap where both sides are present.
func attachInflation(recs []model.PanelRecord, infl *model.InflationTable) {
	for i := range recs {
		y := infl.ByYear(recs[i].Year)
		if y == nil {
			continue
		}
		recs[i].CPIMedical = y.CPIMedical
		recs[i].CPIMedicalYoY = y.CPIMedicalYoY
		recs[i].CPIMedical3YrCum = y.CPIMedical3YrCum
		recs[i].PPIHospitals = y.PPIHospitals
		recs[i].PPIHospitalsYoY = y.PPIHospitalsYoY
		recs[i].PPIHospitals3YrCum = y.PPIHospitals3YrCum
		recs[i].PPIPhysician = y.PPIPhysician
		recs[i].PPIPhysicianYoY = y.PPIPhysicianYoY
		recs[i].PPIPhysician3YrCum = y.PPIPhysician3YrCum

		if y.PPIHospitalsYoY != nil && recs[i].PremiumYoYLag1 != nil {
			recs[i].PricingGapHosp = ptr(*y.PPIHospitalsYoY - *recs[i].PremiumYoYLag1)
		}
	}
}
