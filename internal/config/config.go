// Package config loads application configuration and initializes logging.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Paths  PathsConfig  `yaml:"paths" mapstructure:"paths"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	CMS    CMSConfig    `yaml:"cms" mapstructure:"cms"`
	FRED   FREDConfig   `yaml:"fred" mapstructure:"fred"`
	Panel  PanelConfig  `yaml:"panel" mapstructure:"panel"`
	Export ExportConfig `yaml:"export" mapstructure:"export"`
	HTTP   HTTPConfig   `yaml:"http" mapstructure:"http"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// PathsConfig configures the local data directories.
type PathsConfig struct {
	RawDir       string `yaml:"raw_dir" mapstructure:"raw_dir"`
	ProcessedDir string `yaml:"processed_dir" mapstructure:"processed_dir"`
}

// StoreConfig configures the build-run log database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// CMSConfig configures the MLR public use file source.
type CMSConfig struct {
	PageURL string `yaml:"page_url" mapstructure:"page_url"`
}

// FREDConfig configures the FRED inflation series source.
type FREDConfig struct {
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// PanelConfig holds audit thresholds and the baseline window.
type PanelConfig struct {
	MinPremium    float64 `yaml:"min_premium" mapstructure:"min_premium"`
	MCRCap        float64 `yaml:"mcr_cap" mapstructure:"mcr_cap"`
	BaselineStart int     `yaml:"baseline_start" mapstructure:"baseline_start"`
	BaselineEnd   int     `yaml:"baseline_end" mapstructure:"baseline_end"`
}

// ExportConfig holds defaults for the export artifacts.
type ExportConfig struct {
	MinYears int     `yaml:"min_years" mapstructure:"min_years"`
	WCap     float64 `yaml:"w_cap" mapstructure:"w_cap"`
}

// HTTPConfig configures the download client.
type HTTPConfig struct {
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MCR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("paths.raw_dir", "data/raw")
	v.SetDefault("paths.processed_dir", "data/processed")
	v.SetDefault("store.path", "data/mcr.db")
	v.SetDefault("cms.page_url", "https://www.cms.gov/marketplace/resources/data/medical-loss-ratio-data-systems-resources")
	v.SetDefault("fred.base_url", "https://api.stlouisfed.org/fred/series/observations")
	v.SetDefault("fred.api_key", "")
	v.SetDefault("panel.min_premium", 1000.0)
	v.SetDefault("panel.mcr_cap", 5.0)
	v.SetDefault("panel.baseline_start", 2017)
	v.SetDefault("panel.baseline_end", 2019)
	v.SetDefault("export.min_years", 3)
	v.SetDefault("export.w_cap", 10.0)
	v.SetDefault("http.user_agent", "mcr-ai-insights/1.0")
	v.SetDefault("http.timeout_secs", 180)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
