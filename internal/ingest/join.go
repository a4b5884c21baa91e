package ingest

import "github.com/troy3977-blip/mcr-ai-insights/internal/model"

// RawHeaderRow is one dimension record: issuer identity for a reporting
// year. Market is present in some templates and empty otherwise; the join
// ignores it since issuer naming does not vary by market.
type RawHeaderRow struct {
	IssuerID   string
	IssuerName string
	Year       int
	Market     string
}

// Join attaches issuer display names onto the decoded records by
// (issuer_id, year). This is a soft join: records with no matching header
// row keep an empty name and are retained, because a naming gap must not
// drop substantive financial rows. State and market stay on the fact side,
// the finer-grained key.
func Join(records []model.CanonicalRecord, headers []RawHeaderRow) []model.CanonicalRecord {
	type key struct {
		issuerID string
		year     int
	}

	names := make(map[key]string, len(headers))
	for _, h := range headers {
		k := key{issuerID: h.IssuerID, year: h.Year}
		if _, seen := names[k]; !seen && h.IssuerName != "" {
			names[k] = h.IssuerName
		}
	}

	out := make([]model.CanonicalRecord, len(records))
	for i, r := range records {
		out[i] = r
		if name, ok := names[key{issuerID: r.IssuerID, year: r.Year}]; ok {
			out[i].IssuerName = name
		}
	}
	return out
}
