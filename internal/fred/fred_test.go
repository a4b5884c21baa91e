package fred

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/troy3977-blip/mcr-ai-insights/internal/config"
)

// stubFetcher serves canned JSON bodies keyed by series_id.
type stubFetcher struct {
	bodies map[string]string
}

func (s *stubFetcher) Download(_ context.Context, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	body, ok := s.bodies[u.Query().Get("series_id")]
	if !ok {
		return nil, fmt.Errorf("no stub for %s", rawURL)
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (s *stubFetcher) DownloadToFile(context.Context, string, string) (int64, error) {
	return 0, fmt.Errorf("not implemented")
}

func (s *stubFetcher) DownloadCached(context.Context, string, string) (bool, error) {
	return false, fmt.Errorf("not implemented")
}

func obsJSON(obs ...string) string {
	return `{"observations":[` + strings.Join(obs, ",") + `]}`
}

func obs(date, value string) string {
	return fmt.Sprintf(`{"date":%q,"value":%q}`, date, value)
}

// flatSeries emits monthly observations at a constant value per year.
func flatSeries(values map[int]float64) string {
	var parts []string
	years := []int{2016, 2017, 2018, 2019, 2020}
	for _, y := range years {
		v, ok := values[y]
		if !ok {
			continue
		}
		for m := 1; m <= 12; m++ {
			parts = append(parts, obs(fmt.Sprintf("%d-%02d-01", y, m), fmt.Sprintf("%g", v)))
		}
	}
	return obsJSON(parts...)
}

func testClient(bodies map[string]string) *Client {
	return NewClient(config.FREDConfig{
		BaseURL: "https://api.stlouisfed.org/fred/series/observations",
		APIKey:  "test-key",
	}, &stubFetcher{bodies: bodies})
}

func TestBuildInflation(t *testing.T) {
	bodies := map[string]string{
		"CPIMEDSL":  flatSeries(map[int]float64{2016: 100, 2017: 102, 2018: 104, 2019: 110, 2020: 113}),
		"PCU622622": flatSeries(map[int]float64{2016: 200, 2017: 204, 2018: 210, 2019: 220, 2020: 231}),
		"WPU511101": flatSeries(map[int]float64{2016: 300, 2017: 303, 2018: 309, 2019: 315, 2020: 330}),
	}

	table, err := testClient(bodies).BuildInflation(context.Background())
	require.NoError(t, err)
	require.Len(t, table.Years, 5)

	// Years come out sorted.
	for i := 1; i < len(table.Years); i++ {
		assert.Less(t, table.Years[i-1].Year, table.Years[i].Year)
	}

	y2016 := table.ByYear(2016)
	require.NotNil(t, y2016)
	require.NotNil(t, y2016.CPIMedical)
	assert.InDelta(t, 100.0, *y2016.CPIMedical, 1e-9)
	// No prior year: no change columns.
	assert.Nil(t, y2016.CPIMedicalYoY)
	assert.Nil(t, y2016.CPIMedical3YrCum)

	y2019 := table.ByYear(2019)
	require.NotNil(t, y2019)
	require.NotNil(t, y2019.CPIMedicalYoY)
	assert.InDelta(t, 110.0/104.0-1, *y2019.CPIMedicalYoY, 1e-9)
	require.NotNil(t, y2019.CPIMedical3YrCum)
	assert.InDelta(t, 110.0/100.0-1, *y2019.CPIMedical3YrCum, 1e-9)

	require.NotNil(t, y2019.PPIHospitalsYoY)
	assert.InDelta(t, 220.0/210.0-1, *y2019.PPIHospitalsYoY, 1e-9)
	require.NotNil(t, y2019.PPIPhysician)
	assert.InDelta(t, 315.0, *y2019.PPIPhysician, 1e-9)
}

func TestBuildInflation_AnnualMean(t *testing.T) {
	// Two observations in one year average, and "." gaps are skipped.
	series := obsJSON(
		obs("2019-01-01", "100"),
		obs("2019-02-01", "."),
		obs("2019-03-01", "110"),
	)
	bodies := map[string]string{
		"CPIMEDSL":  series,
		"PCU622622": series,
		"WPU511101": series,
	}

	table, err := testClient(bodies).BuildInflation(context.Background())
	require.NoError(t, err)

	y := table.ByYear(2019)
	require.NotNil(t, y)
	require.NotNil(t, y.CPIMedical)
	assert.InDelta(t, 105.0, *y.CPIMedical, 1e-9)
}

func TestBuildInflation_MissingKey(t *testing.T) {
	c := NewClient(config.FREDConfig{BaseURL: "https://example.test"}, &stubFetcher{})
	_, err := c.BuildInflation(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestBuildInflation_SeriesFailure(t *testing.T) {
	// One missing series fails the whole build; callers degrade to nil table.
	bodies := map[string]string{
		"CPIMEDSL": flatSeries(map[int]float64{2019: 100}),
	}
	_, err := testClient(bodies).BuildInflation(context.Background())
	require.Error(t, err)
}
