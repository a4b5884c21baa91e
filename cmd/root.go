package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/troy3977-blip/mcr-ai-insights/internal/config"
	"github.com/troy3977-blip/mcr-ai-insights/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "mcr",
	Short: "Medical loss ratio panel builder",
	Long:  "Builds an issuer-state-market-year loss-ratio panel from CMS MLR public use files, with audited anomaly removal, optional FRED inflation enrichment, and premium-based model weights.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// openStore opens the run-log database and ensures its schema is current.
func openStore(ctx context.Context) (*store.SQLiteStore, error) {
	s, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
