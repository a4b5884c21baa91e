package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/troy3977-blip/mcr-ai-insights/internal/artifact"
	"github.com/troy3977-blip/mcr-ai-insights/internal/fetcher"
	"github.com/troy3977-blip/mcr-ai-insights/internal/fred"
	"github.com/troy3977-blip/mcr-ai-insights/internal/ingest"
	"github.com/troy3977-blip/mcr-ai-insights/internal/model"
	"github.com/troy3977-blip/mcr-ai-insights/internal/panel"
	"github.com/troy3977-blip/mcr-ai-insights/internal/store"
)

// earliestReportingYear is the first year the public use files carry the
// Part 1/2 premium and claims template this pipeline understands.
const earliestReportingYear = 2017

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the base panel from CMS MLR public use files",
	Long: `Download the public use file archive for each reporting year (cached in the
raw directory), decode premium and claims row codes per issuer, state, and
market, audit out anomalous records, compute the loss ratio and derived
features, and write the base panel artifact.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "build"))

		startYear, _ := cmd.Flags().GetInt("start-year")
		endYear, _ := cmd.Flags().GetInt("end-year")
		includeLargeGroup, _ := cmd.Flags().GetBool("include-large-group")
		noInflation, _ := cmd.Flags().GetBool("no-inflation")
		diagnostics, _ := cmd.Flags().GetBool("diagnostics")

		if startYear < earliestReportingYear {
			return eris.Errorf("build: start-year %d predates the supported reporting range (%d+)", startYear, earliestReportingYear)
		}
		if startYear > endYear {
			return eris.Errorf("build: start-year %d is after end-year %d", startYear, endYear)
		}

		years := make([]int, 0, endYear-startYear+1)
		for y := startYear; y <= endYear; y++ {
			years = append(years, y)
		}

		for _, dir := range []string{cfg.Paths.RawDir, cfg.Paths.ProcessedDir} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return eris.Wrapf(err, "build: create dir %s", dir)
			}
		}

		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:  cfg.HTTP.UserAgent,
			Timeout:    time.Duration(cfg.HTTP.TimeoutSecs) * time.Second,
			MaxRetries: cfg.HTTP.MaxRetries,
		})

		zipPaths, err := ingest.DownloadZips(ctx, f, cfg.CMS.PageURL, cfg.Paths.RawDir, years)
		if err != nil {
			return eris.Wrap(err, "build: download archives")
		}

		var records []model.CanonicalRecord
		for _, zp := range zipPaths {
			factRows, headerRows, diag, err := ingest.LoadYear(ctx, zp, includeLargeGroup)
			if err != nil {
				return eris.Wrapf(err, "build: ingest %s", filepath.Base(zp))
			}
			if diagnostics {
				writeYearDiagnostics(cmd.OutOrStdout(), diag, factRows)
			}

			decoded, err := ingest.Decode(factRows)
			if err != nil {
				return eris.Wrapf(err, "build: decode %s", filepath.Base(zp))
			}
			records = append(records, ingest.Join(decoded, headerRows)...)
		}
		log.Info("records decoded", zap.Int("rows", len(records)))

		infl := fetchInflation(ctx, f, noInflation)

		clean, report := panel.Audit(records, panel.AuditConfig{
			MinPremium: cfg.Panel.MinPremium,
			MCRCap:     cfg.Panel.MCRCap,
		})
		log.Info("audit complete", report.Fields()...)

		if err := guardEmptyYears(clean, years); err != nil {
			return err
		}

		recs := panel.BuildFeatures(clean, infl, panel.FeatureConfig{
			BaselineStart: cfg.Panel.BaselineStart,
			BaselineEnd:   cfg.Panel.BaselineEnd,
		})

		outPath := filepath.Join(cfg.Paths.ProcessedDir, artifact.BasePanelName)
		if err := artifact.WriteBasePanel(outPath, recs); err != nil {
			return eris.Wrap(err, "build: write base panel")
		}

		if err := recordRun(ctx, store.Run{
			Kind:      store.RunKindBuild,
			StartYear: startYear,
			EndYear:   endYear,
			Rows:      len(recs),
			Artifacts: []string{outPath},
			Audit:     &report,
		}); err != nil {
			return err
		}

		fmt.Printf("Wrote %s (%d rows)\n", outPath, len(recs))
		return nil
	},
}

func init() {
	buildCmd.Flags().Int("start-year", earliestReportingYear, "first MLR reporting year")
	buildCmd.Flags().Int("end-year", time.Now().Year()-1, "last MLR reporting year")
	buildCmd.Flags().Bool("include-large-group", false, "include the Large Group market")
	buildCmd.Flags().Bool("no-inflation", false, "skip FRED inflation features")
	buildCmd.Flags().Bool("diagnostics", false, "print per-archive member selection, claims code, and market diagnostics")
	rootCmd.AddCommand(buildCmd)
}

// writeYearDiagnostics reports how one archive was ingested: the selected
// fact and dimension members, the claims row code the decoder will use, and
// the markets observed.
func writeYearDiagnostics(w io.Writer, d ingest.YearDiagnostics, rows []ingest.RawFactRow) {
	fmt.Fprintf(w, "%s:\n", d.Archive)
	fmt.Fprintf(w, "  fact member: %s\n", d.FactMember)
	fmt.Fprintf(w, "  dims member: %s\n", d.DimsMember)
	if code, err := ingest.ClaimsCode(rows); err == nil {
		fmt.Fprintf(w, "  claims code: %s\n", code)
	} else {
		fmt.Fprintf(w, "  claims code: none found\n")
	}
	fmt.Fprintf(w, "  markets:     %s\n", strings.Join(d.Markets, ", "))
}

// fetchInflation builds the inflation table unless skipped. A missing key or
// fetch failure degrades to a nil table with a warning; nil inflation leaves
// the index columns empty but never aborts the build.
func fetchInflation(ctx context.Context, f fetcher.Fetcher, skip bool) *model.InflationTable {
	log := zap.L().With(zap.String("command", "build"))
	if skip {
		log.Info("skipping inflation enrichment (--no-inflation)")
		return nil
	}
	infl, err := fred.NewClient(cfg.FRED, f).BuildInflation(ctx)
	if err != nil {
		log.Warn("inflation enrichment unavailable, continuing without index columns", zap.Error(err))
		return nil
	}
	log.Info("inflation table ready", zap.Int("years", len(infl.Years)))
	return infl
}

// guardEmptyYears fails the build when the audit filter leaves zero rows for
// a requested year.
func guardEmptyYears(clean []model.CanonicalRecord, years []int) error {
	counts := make(map[int]int, len(years))
	for _, r := range clean {
		counts[r.Year]++
	}
	for _, y := range years {
		if counts[y] == 0 {
			return eris.Errorf("build: audit filter left zero rows for reporting year %d", y)
		}
	}
	return nil
}

// recordRun persists a run in the provenance log.
func recordRun(ctx context.Context, run store.Run) error {
	s, err := openStore(ctx)
	if err != nil {
		return eris.Wrap(err, "open run log")
	}
	defer s.Close() //nolint:errcheck

	if err := s.RecordRun(ctx, run); err != nil {
		return eris.Wrap(err, "record run")
	}
	return nil
}
