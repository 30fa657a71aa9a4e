package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"calcols/internal/config"
	"calcols/internal/ics"
	appLog "calcols/internal/log"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "calcols",
	Short: "Lay out overlapping calendar entries side by side",
	Long: `calcols reads ICS calendars and assigns every entry of a day to a
column so that entries that overlap in time are drawn next to each other.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "Path to config file")
}

// loadConfig loads the config file and applies its log level. A default
// config that could not be written to disk is still used.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		if cfg == nil {
			return nil, err
		}
		appLog.Warn("using default config", "config_path", cfgFile, "reason", err.Error())
	}

	if lvl, ok := appLog.ParseLevel(cfg.LogLevel); ok {
		appLog.SetLevel(lvl)
	} else {
		appLog.Warn("unknown log level; keeping default", "log_level", cfg.LogLevel)
	}

	appLog.Debug("effective config",
		"config_path", cfgFile,
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"refresh", cfg.RefreshCron,
		"horizon_days", cfg.HorizonDays,
		"layout_mode", cfg.Layout.Mode,
		"ics_count", len(cfg.ICS),
	)
	return cfg, nil
}

func loadLocation(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", name, err)
	}
	return loc, nil
}

func sourcesFromConfig(cfg *config.Config) []ics.Source {
	sources := make([]ics.Source, 0, len(cfg.ICS))
	for _, c := range cfg.ICS {
		sources = append(sources, ics.Source{ID: c.SourceID(), URL: c.URL, Path: c.Path})
	}
	return sources
}
