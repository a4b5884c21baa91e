package panel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/troy3977-blip/mcr-ai-insights/internal/model"
)

func panelRec(issuer string, year int, premium float64) model.PanelRecord {
	return model.PanelRecord{
		IssuerID:      issuer,
		State:         "CA",
		Market:        "Individual",
		Year:          year,
		EarnedPremium: premium,
	}
}

func TestComputeWeights_Global(t *testing.T) {
	weighted, err := ComputeWeights([]model.PanelRecord{
		panelRec("A", 2019, 1000),
		panelRec("B", 2019, 2000),
		panelRec("C", 2019, 4000),
	}, 10.0)
	require.NoError(t, err)
	require.Len(t, weighted, 3)

	// Global median is 2000.
	assert.InDelta(t, 0.5, weighted[0].PremiumWeight, 1e-12)
	assert.InDelta(t, 1.0, weighted[1].PremiumWeight, 1e-12)
	assert.InDelta(t, 2.0, weighted[2].PremiumWeight, 1e-12)
}

func TestComputeWeights_YearMedianIsOne(t *testing.T) {
	// Premiums grow tenfold between years; the year-relative weight
	// neutralizes that so each year's median weight sits at 1.0.
	records := []model.PanelRecord{
		panelRec("A", 2018, 100),
		panelRec("B", 2018, 200),
		panelRec("C", 2018, 400),
		panelRec("A", 2019, 1000),
		panelRec("B", 2019, 2000),
		panelRec("C", 2019, 4000),
	}

	weighted, err := ComputeWeights(records, 10.0)
	require.NoError(t, err)

	byYear := map[int][]float64{}
	for _, r := range weighted {
		byYear[r.Year] = append(byYear[r.Year], r.PremiumWeightYear)
	}
	for year, ws := range byYear {
		assert.InDelta(t, 1.0, median(ws), 0.01, "year %d", year)
	}
}

func TestComputeWeights_Capping(t *testing.T) {
	weighted, err := ComputeWeights([]model.PanelRecord{
		panelRec("A", 2019, 100),
		panelRec("B", 2019, 100),
		panelRec("C", 2019, 100000),
	}, 10.0)
	require.NoError(t, err)

	for _, r := range weighted {
		assert.LessOrEqual(t, r.W, 10.0)
		assert.LessOrEqual(t, r.WYear, 10.0)
		if r.PremiumWeight <= 10.0 {
			assert.Equal(t, r.PremiumWeight, r.W)
		}
	}
	// The outlier is capped, not dropped.
	assert.Equal(t, 10.0, weighted[2].W)
	assert.Greater(t, weighted[2].PremiumWeight, 10.0)
}

func TestComputeWeights_InvalidCap(t *testing.T) {
	for _, bad := range []float64{0, -1} {
		_, err := ComputeWeights([]model.PanelRecord{panelRec("A", 2019, 100)}, bad)
		var ice *InvalidConfigError
		require.ErrorAs(t, err, &ice)
		assert.Equal(t, "w_cap", ice.Name)
	}
}

func TestComputeWeights_EmptyPanel(t *testing.T) {
	weighted, err := ComputeWeights(nil, 10.0)
	require.NoError(t, err)
	assert.Empty(t, weighted)
}
