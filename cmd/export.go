package main

import (
	"fmt"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/troy3977-blip/mcr-ai-insights/internal/artifact"
	"github.com/troy3977-blip/mcr-ai-insights/internal/model"
	"github.com/troy3977-blip/mcr-ai-insights/internal/panel"
	"github.com/troy3977-blip/mcr-ai-insights/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Create model-ready artifacts from the base panel",
	Long: `Read the base panel artifact, attach premium-based regression weights
(global and year-relative, capped), and write two artifacts: the model panel
and the stable subset of issuer-state-market groups observed in at least the
minimum number of distinct years.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "export"))

		minYears, _ := cmd.Flags().GetInt("min-years")
		wCap, _ := cmd.Flags().GetFloat64("w-cap")
		inputName, _ := cmd.Flags().GetString("input")

		inPath := filepath.Join(cfg.Paths.ProcessedDir, inputName)
		base, err := artifact.ReadBasePanel(inPath)
		if err != nil {
			return eris.Wrap(err, "export: read base panel")
		}
		log.Info("base panel loaded", zap.String("path", inPath), zap.Int("rows", len(base)))

		weighted, err := panel.ComputeWeights(base, wCap)
		if err != nil {
			return eris.Wrap(err, "export: compute weights")
		}

		stable, err := panel.SelectStable(weighted, minYears)
		if err != nil {
			return eris.Wrap(err, "export: select stable subset")
		}

		modelPath := filepath.Join(cfg.Paths.ProcessedDir, artifact.ModelPanelName)
		stablePath := filepath.Join(cfg.Paths.ProcessedDir, artifact.StablePanelName)
		if err := artifact.WriteModelPanel(modelPath, weighted); err != nil {
			return eris.Wrap(err, "export: write model panel")
		}
		if err := artifact.WriteModelPanel(stablePath, stable); err != nil {
			return eris.Wrap(err, "export: write stable panel")
		}

		startYear, endYear := yearSpan(weighted)
		if err := recordRun(ctx, store.Run{
			Kind:      store.RunKindExport,
			StartYear: startYear,
			EndYear:   endYear,
			Rows:      len(weighted),
			Artifacts: []string{modelPath, stablePath},
		}); err != nil {
			return err
		}

		fmt.Printf("Wrote %s (%d rows)\n", modelPath, len(weighted))
		fmt.Printf("Wrote %s (%d rows)\n", stablePath, len(stable))
		return nil
	},
}

func init() {
	exportCmd.Flags().Int("min-years", 3, "min distinct years per issuer/state/market for the stable panel")
	exportCmd.Flags().Float64("w-cap", 10.0, "cap for premium-based modeling weights")
	exportCmd.Flags().String("input", artifact.BasePanelName, "input artifact name in the processed directory")
	rootCmd.AddCommand(exportCmd)
}

// yearSpan returns the min and max reporting years present in the panel.
func yearSpan(records []model.ModelRecord) (int, int) {
	if len(records) == 0 {
		return 0, 0
	}
	lo, hi := records[0].Year, records[0].Year
	for _, r := range records[1:] {
		if r.Year < lo {
			lo = r.Year
		}
		if r.Year > hi {
			hi = r.Year
		}
	}
	return lo, hi
}
