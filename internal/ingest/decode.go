package ingest

import (
	"github.com/rotisserie/eris"

	"github.com/troy3977-blip/mcr-ai-insights/internal/model"
)

// Row codes carrying the two quantities the panel needs. The claims total
// moved between template parts across years, so the decoder probes the
// candidates in order and uses the first code present in the year's file.
const PremiumRowCode = "TOTAL_DIRECT_PREMIUM_EARNED"

var ClaimsRowCodes = []string{
	"TOTAL_INCURRED_CLAIMS_PT2",
	"TOTAL_INCURRED_CLAIMS",
	"TOTAL_INCURRED_CLAIMS_PT1",
}

// RawFactRow is one coded line of a year's fact table, already resolved to
// the logical columns. Consumed entirely by Decode.
type RawFactRow struct {
	IssuerID string
	State    string
	Market   string
	Year     int
	RowCode  string
	Value    *float64
}

// Decode pivots coded fact rows into one CanonicalRecord per
// issuer-state-market-year key. Only the premium and claims codes are
// selected; unrecognized codes are ignored. When a key carries duplicate
// rows for the same code, the last occurrence in ingestion order wins,
// treated as a restatement of the earlier value. A key missing one of the
// two codes yields a nil field for the audit filter to catch, not an error
// here.
func Decode(rows []RawFactRow) ([]model.CanonicalRecord, error) {
	claimsCode, err := pickClaimsCode(rows)
	if err != nil {
		return nil, err
	}

	type slot struct {
		premium *float64
		claims  *float64
	}

	order := make([]string, 0, len(rows)/2)
	byKey := make(map[string]*slot)
	ident := make(map[string]model.CanonicalRecord)

	for _, row := range rows {
		if row.RowCode != PremiumRowCode && row.RowCode != claimsCode {
			continue
		}

		rec := model.CanonicalRecord{
			IssuerID: row.IssuerID,
			State:    row.State,
			Market:   row.Market,
			Year:     row.Year,
		}
		key := rec.Key()

		s, seen := byKey[key]
		if !seen {
			s = &slot{}
			byKey[key] = s
			ident[key] = rec
			order = append(order, key)
		}
		if row.RowCode == PremiumRowCode {
			s.premium = row.Value
		} else {
			s.claims = row.Value
		}
	}

	out := make([]model.CanonicalRecord, 0, len(order))
	for _, key := range order {
		rec := ident[key]
		rec.EarnedPremium = byKey[key].premium
		rec.IncurredClaims = byKey[key].claims
		out = append(out, rec)
	}
	return out, nil
}

// ClaimsCode reports which claims row code Decode will select for the rows.
func ClaimsCode(rows []RawFactRow) (string, error) {
	return pickClaimsCode(rows)
}

// pickClaimsCode returns the first claims row code present among the rows.
func pickClaimsCode(rows []RawFactRow) (string, error) {
	codes := make(map[string]bool, 64)
	for _, row := range rows {
		codes[row.RowCode] = true
	}
	for _, cand := range ClaimsRowCodes {
		if codes[cand] {
			return cand, nil
		}
	}
	return "", eris.Errorf("decode: no claims row code found, tried %v", ClaimsRowCodes)
}
