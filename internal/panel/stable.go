package panel

import (
	"fmt"

	"github.com/troy3977-blip/mcr-ai-insights/internal/model"
)

// SelectStable returns the rows of every issuer-state-market group observed
// in at least minYears distinct years. This is a row filter, not an
// aggregation: qualifying groups keep their full row set, which is what
// fixed-effects and panel-regression workloads need.
func SelectStable(records []model.ModelRecord, minYears int) ([]model.ModelRecord, error) {
	if minYears < 1 {
		return nil, &InvalidConfigError{Name: "min_years", Detail: fmt.Sprintf("must be >= 1, got %d", minYears)}
	}

	years := make(map[string]map[int]bool)
	for _, r := range records {
		k := r.GroupKey()
		if years[k] == nil {
			years[k] = make(map[int]bool)
		}
		years[k][r.Year] = true
	}

	out := make([]model.ModelRecord, 0, len(records))
	for _, r := range records {
		if len(years[r.GroupKey()]) >= minYears {
			out = append(out, r)
		}
	}
	return out, nil
}
