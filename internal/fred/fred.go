// Package fred builds the annual inflation table from Federal Reserve
// Economic Data series. The table is optional enrichment for the panel:
// callers treat a failed or skipped fetch as a nil table, not an error that
// stops the build.
package fred

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/troy3977-blip/mcr-ai-insights/internal/config"
	"github.com/troy3977-blip/mcr-ai-insights/internal/fetcher"
	"github.com/troy3977-blip/mcr-ai-insights/internal/model"
)

// Medical-cost index series tracked for the panel.
var targetSeries = []struct {
	name string
	id   string
}{
	{"cpi_medical", "CPIMEDSL"},    // CPI Medical Care
	{"ppi_hospitals", "PCU622622"}, // PPI Hospitals
	{"ppi_physician", "WPU511101"}, // PPI Physician Care
}

// Client fetches and annualizes FRED series.
type Client struct {
	cfg config.FREDConfig
	f   fetcher.Fetcher
}

// NewClient creates a FRED client.
func NewClient(cfg config.FREDConfig, f fetcher.Fetcher) *Client {
	return &Client{cfg: cfg, f: f}
}

type observationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// annualPoint is one annualized observation of a series.
type annualPoint struct {
	year   int
	value  float64
	yoy    *float64
	cum3Yr *float64
}

// BuildInflation fetches the target series and merges them into a by-year
// table: annual mean of the monthly index, year-over-year change, and
// cumulative change over three years.
func (c *Client) BuildInflation(ctx context.Context) (*model.InflationTable, error) {
	if c.cfg.APIKey == "" {
		return nil, eris.New("fred: missing API key")
	}
	log := zap.L().With(zap.String("component", "fred"))

	table := &model.InflationTable{}
	for _, s := range targetSeries {
		points, err := c.fetchAnnual(ctx, s.id)
		if err != nil {
			return nil, eris.Wrapf(err, "fred: series %s", s.id)
		}
		log.Info("series annualized", zap.String("series", s.id), zap.Int("years", len(points)))
		mergeSeries(table, s.name, points)
	}

	sort.Slice(table.Years, func(i, j int) bool { return table.Years[i].Year < table.Years[j].Year })
	return table, nil
}

// fetchAnnual downloads one series and reduces it to annual points.
func (c *Client) fetchAnnual(ctx context.Context, seriesID string) ([]annualPoint, error) {
	q := url.Values{}
	q.Set("series_id", seriesID)
	q.Set("api_key", c.cfg.APIKey)
	q.Set("file_type", "json")

	body, err := c.f.Download(ctx, c.cfg.BaseURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrap(err, "read body")
	}

	var resp observationsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, eris.Wrap(err, "decode observations")
	}

	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, obs := range resp.Observations {
		// FRED reports missing values as ".".
		if obs.Value == "." {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(obs.Value), 64)
		if err != nil {
			continue
		}
		year, ok := yearOfDate(obs.Date)
		if !ok {
			continue
		}
		sums[year] += v
		counts[year]++
	}

	years := make([]int, 0, len(sums))
	for y := range sums {
		years = append(years, y)
	}
	sort.Ints(years)

	points := make([]annualPoint, len(years))
	for i, y := range years {
		points[i] = annualPoint{year: y, value: sums[y] / float64(counts[y])}
		if i >= 1 && points[i-1].value != 0 {
			yoy := points[i].value/points[i-1].value - 1
			points[i].yoy = &yoy
		}
		if i >= 3 && points[i-3].value != 0 {
			cum := points[i].value/points[i-3].value - 1
			points[i].cum3Yr = &cum
		}
	}
	return points, nil
}

// yearOfDate parses the year of a FRED observation date (YYYY-MM-DD).
func yearOfDate(date string) (int, bool) {
	if len(date) < 4 {
		return 0, false
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0, false
	}
	return y, true
}

// mergeSeries outer-joins one series' annual points into the table by year.
func mergeSeries(table *model.InflationTable, name string, points []annualPoint) {
	for _, p := range points {
		entry := table.ByYear(p.year)
		if entry == nil {
			table.Years = append(table.Years, model.InflationYear{Year: p.year})
			entry = &table.Years[len(table.Years)-1]
		}
		v := p.value
		switch name {
		case "cpi_medical":
			entry.CPIMedical = &v
			entry.CPIMedicalYoY = p.yoy
			entry.CPIMedical3YrCum = p.cum3Yr
		case "ppi_hospitals":
			entry.PPIHospitals = &v
			entry.PPIHospitalsYoY = p.yoy
			entry.PPIHospitals3YrCum = p.cum3Yr
		case "ppi_physician":
			entry.PPIPhysician = &v
			entry.PPIPhysicianYoY = p.yoy
			entry.PPIPhysician3YrCum = p.cum3Yr
		default:
			panic(fmt.Sprintf("fred: unknown series name %q", name))
		}
	}
}
