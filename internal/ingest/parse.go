package ingest

import (
	"strconv"
	"strings"
)

// parseFloat parses a numeric cell, returning nil for empty or unparseable
// values. CMS templates leave suppressed cells blank or starred.
func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" || s == "**" || s == "." {
		return nil
	}
	s = strings.ReplaceAll(s, ",", "")
	// Accounting-style negatives: (1234.56)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseIntOr parses a string as an integer, returning def if parsing fails
// or the string is empty.
func parseIntOr(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		// Year cells occasionally come through as "2018.0".
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			return def
		}
		return int(f)
	}
	return v
}

// trimQuotes removes surrounding double quotes from a CSV field.
func trimQuotes(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"`)
}

// cell returns record[idx] or empty when the row is short.
func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}
