package panel

import (
	"fmt"

	"github.com/troy3977-blip/mcr-ai-insights/internal/model"
)

// ComputeWeights attaches the four premium-based weight columns: the global
// median-relative weight, the year-relative weight, and their capped
// variants. Dividing by the per-year median pins that year's median weight
// at 1.0, which keeps secular premium growth from letting later years
// dominate weighted statistics. A degenerate median (empty or non-positive)
// degrades the affected weight to 1.0 instead of failing.
func ComputeWeights(records []model.PanelRecord, wCap float64) ([]model.ModelRecord, error) {
	if wCap <= 0 {
		return nil, &InvalidConfigError{Name: "w_cap", Detail: fmt.Sprintf("must be > 0, got %g", wCap)}
	}

	premiums := make([]float64, len(records))
	byYear := make(map[int][]float64)
	for i, r := range records {
		premiums[i] = r.EarnedPremium
		byYear[r.Year] = append(byYear[r.Year], r.EarnedPremium)
	}

	globalMed, globalOK := safeMedian(premiums)

	yearMed := make(map[int]float64, len(byYear))
	yearOK := make(map[int]bool, len(byYear))
	for y, vals := range byYear {
		yearMed[y], yearOK[y] = safeMedian(vals)
	}

	out := make([]model.ModelRecord, len(records))
	for i, r := range records {
		w := 1.0
		if globalOK {
			w = r.EarnedPremium / globalMed
		}
		wy := 1.0
		if yearOK[r.Year] {
			wy = r.EarnedPremium / yearMed[r.Year]
		}

		out[i] = model.ModelRecord{
			PanelRecord:       r,
			PremiumWeight:     w,
			W:                 min(w, wCap),
			PremiumWeightYear: wy,
			WYear:             min(wy, wCap),
		}
	}
	return out, nil
}
