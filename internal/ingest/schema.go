// Package ingest turns raw MLR public use file tables into canonical
// issuer-state-market-year records: schema normalization, row-code decoding,
// and the dimension join.
package ingest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/troy3977-blip/mcr-ai-insights/internal/model"
)

// Canonical field names resolved by the schema normalizer.
const (
	FieldSubmissionID = "submission_id"
	FieldRowCode      = "row_code"
	FieldIssuerID     = "issuer_id"
	FieldIssuerName   = "issuer_name"
	FieldState        = "state"
	FieldYear         = "year"
)

// SchemaMismatchError reports a required field with no resolvable source
// column for a reporting year. It aborts that year's processing.
type SchemaMismatchError struct {
	Year  int
	Field string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch: year %d: no source column for %q", e.Year, e.Field)
}

// aliases lists the known raw column names per canonical field, most
// specific first. Headers are snake-cased before matching, which absorbs
// case, whitespace, and punctuation drift between reporting years.
var aliases = map[string][]string{
	FieldSubmissionID: {"mr_submission_template_id"},
	FieldRowCode:      {"row_lookup_code", "lookup_code", "row_code"},
	FieldIssuerID:     {"hios_issuer_id", "issuer_id", "hiosissuerid", "issuerid"},
	FieldState:        {"business_state", "domiciliary_state", "state", "state_code"},
	FieldYear:         {"mlr_reporting_year", "reporting_year", "mlr_year", "report_year"},
	FieldIssuerName:   {"company_name", "issuer_name", "issuer_legal_name", "legal_entity_name", "dba_marketing_name"},
}

// layout pins a field to an exact source column for a range of reporting
// years. Lookups here win over alias matching; years with no entry fall back
// to the alias list.
type layout struct {
	from, to  int
	overrides map[string]string
}

var layouts = []layout{
	// 2017-2019 templates use the long-form header names.
	{from: 2017, to: 2019, overrides: map[string]string{
		FieldState:      "business_state",
		FieldIssuerName: "company_name",
	}},
	// 2020+ templates renamed the state column.
	{from: 2020, to: 9999, overrides: map[string]string{
		FieldState: "domiciliary_state",
	}},
}

var (
	nonWordRe    = regexp.MustCompile(`[^\w\s]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	underscoreRe = regexp.MustCompile(`__+`)
)

// snake normalizes a raw header cell for matching: trims, strips
// punctuation, collapses whitespace runs to single underscores, lowercases.
func snake(s string) string {
	s = strings.TrimSpace(s)
	s = nonWordRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, "_")
	s = underscoreRe.ReplaceAllString(s, "_")
	return strings.ToLower(s)
}

// snakeHeader normalizes every cell of a header row.
func snakeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, c := range header {
		out[i] = snake(c)
	}
	return out
}

// columnIndex builds a snake-cased column name -> index map.
func columnIndex(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, c := range header {
		if _, seen := m[snake(c)]; !seen {
			m[snake(c)] = i
		}
	}
	return m
}

// resolve finds the source column index for a canonical field: the per-year
// layout override first, then the alias list in order. ok is false when no
// candidate matches.
func resolve(year int, cols map[string]int, field string) (int, bool) {
	for _, l := range layouts {
		if year >= l.from && year <= l.to {
			if src, has := l.overrides[field]; has {
				if idx, ok := cols[src]; ok {
					return idx, true
				}
			}
			break
		}
	}
	for _, cand := range aliases[field] {
		if idx, ok := cols[cand]; ok {
			return idx, true
		}
	}
	return -1, false
}

// MarketColumn names a market and its value column in the fact table.
type MarketColumn struct {
	Market string
	Col    int
}

// FactLayout maps canonical fact-table fields to column indices.
type FactLayout struct {
	SubmissionID int
	RowCode      int
	Markets      []MarketColumn
}

// DimsLayout maps canonical dimension-table fields to column indices.
// IssuerName and Year are optional and -1 when the year's template lacks
// them; Year then comes from the archive filename.
type DimsLayout struct {
	SubmissionID int
	IssuerID     int
	State        int
	IssuerName   int
	Year         int
}

// ResolveFact normalizes a fact-table header for the given reporting year.
// Fails with SchemaMismatchError when the submission id, row code, or a
// required market value column cannot be resolved.
func ResolveFact(year int, header []string, includeLargeGroup bool) (FactLayout, error) {
	cols := columnIndex(header)

	var fl FactLayout
	var ok bool
	if fl.SubmissionID, ok = resolve(year, cols, FieldSubmissionID); !ok {
		return fl, &SchemaMismatchError{Year: year, Field: FieldSubmissionID}
	}
	if fl.RowCode, ok = resolve(year, cols, FieldRowCode); !ok {
		return fl, &SchemaMismatchError{Year: year, Field: FieldRowCode}
	}

	markets := []struct {
		name string
		key  string
	}{
		{model.MarketIndividual, "individual"},
		{model.MarketSmallGroup, "small_group"},
	}
	if includeLargeGroup {
		markets = append(markets, struct{ name, key string }{model.MarketLargeGroup, "large_group"})
	}

	for _, m := range markets {
		idx, ok := marketValueColumn(cols, m.key)
		if !ok {
			// Large Group is best-effort: some years never report it.
			if m.key == "large_group" {
				continue
			}
			return fl, &SchemaMismatchError{Year: year, Field: "cmm_" + m.key}
		}
		fl.Markets = append(fl.Markets, MarketColumn{Market: m.name, Col: idx})
	}

	return fl, nil
}

// marketValueColumn picks the value column for a market key, preferring the
// yearly total, then the calendar-year column, then the grand total, then
// any cmm_ column mentioning the key in the same suffix order.
func marketValueColumn(cols map[string]int, key string) (int, bool) {
	for _, exact := range []string{"cmm_" + key + "_yearly", "cmm_" + key + "_cy", "cmm_" + key + "_total"} {
		if idx, ok := cols[exact]; ok {
			return idx, true
		}
	}

	var yearly, cy, total, shortest string
	for name := range cols {
		if !strings.HasPrefix(name, "cmm_") || !strings.Contains(name, key) {
			continue
		}
		switch {
		case strings.HasSuffix(name, "_yearly") && (yearly == "" || name < yearly):
			yearly = name
		case strings.HasSuffix(name, "_cy") && (cy == "" || name < cy):
			cy = name
		case strings.HasSuffix(name, "_total") && (total == "" || name < total):
			total = name
		}
		if shortest == "" || len(name) < len(shortest) || (len(name) == len(shortest) && name < shortest) {
			shortest = name
		}
	}
	for _, cand := range []string{yearly, cy, total, shortest} {
		if cand != "" {
			return cols[cand], true
		}
	}
	return -1, false
}

// ResolveDims normalizes a dimension-table header for the given reporting
// year. Issuer name and year columns are optional.
func ResolveDims(year int, header []string) (DimsLayout, error) {
	cols := columnIndex(header)

	dl := DimsLayout{IssuerName: -1, Year: -1}
	var ok bool
	if dl.SubmissionID, ok = resolve(year, cols, FieldSubmissionID); !ok {
		return dl, &SchemaMismatchError{Year: year, Field: FieldSubmissionID}
	}
	if dl.IssuerID, ok = resolve(year, cols, FieldIssuerID); !ok {
		return dl, &SchemaMismatchError{Year: year, Field: FieldIssuerID}
	}
	if dl.State, ok = resolve(year, cols, FieldState); !ok {
		return dl, &SchemaMismatchError{Year: year, Field: FieldState}
	}
	if idx, ok := resolve(year, cols, FieldIssuerName); ok {
		dl.IssuerName = idx
	}
	if idx, ok := resolve(year, cols, FieldYear); ok {
		dl.Year = idx
	}

	return dl, nil
}
