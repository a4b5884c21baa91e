package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/troy3977-blip/mcr-ai-insights/internal/ingest"
)

func TestBuildFlags(t *testing.T) {
	for _, name := range []string{"start-year", "end-year", "include-large-group", "no-inflation", "diagnostics"} {
		assert.NotNil(t, buildCmd.Flags().Lookup(name), "flag %s not registered", name)
	}
}

func TestWriteYearDiagnostics(t *testing.T) {
	fv := func(v float64) *float64 { return &v }
	rows := []ingest.RawFactRow{
		{IssuerID: "12345", State: "CA", Market: "Individual", Year: 2019,
			RowCode: "TOTAL_DIRECT_PREMIUM_EARNED", Value: fv(1000)},
		{IssuerID: "12345", State: "CA", Market: "Individual", Year: 2019,
			RowCode: "TOTAL_INCURRED_CLAIMS_PT2", Value: fv(900)},
	}
	diag := ingest.YearDiagnostics{
		Archive:    "mlr_puf_2019.zip",
		FactMember: "Part1_2_Summary_Data_Premium_Claims.csv",
		DimsMember: "MR_Submission_Template_Header.csv",
		Markets:    []string{"Individual", "Small Group"},
	}

	var buf bytes.Buffer
	writeYearDiagnostics(&buf, diag, rows)

	out := buf.String()
	assert.Contains(t, out, "mlr_puf_2019.zip")
	assert.Contains(t, out, "Part1_2_Summary_Data_Premium_Claims.csv")
	assert.Contains(t, out, "MR_Submission_Template_Header.csv")
	assert.Contains(t, out, "TOTAL_INCURRED_CLAIMS_PT2")
	assert.Contains(t, out, "Individual, Small Group")
}

func TestWriteYearDiagnostics_NoClaimsCode(t *testing.T) {
	var buf bytes.Buffer
	writeYearDiagnostics(&buf, ingest.YearDiagnostics{Archive: "mlr_puf_2019.zip"}, nil)
	require.Contains(t, buf.String(), "none found")
}
