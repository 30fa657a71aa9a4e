package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"calcols/internal/agenda"
	"calcols/internal/ics"
	appLog "calcols/internal/log"
	"calcols/internal/web"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the agenda and day layouts over HTTP",
	Long: `Keep the configured calendars in memory, refresh them on the configured
cron schedule and whenever a local calendar file changes, and serve
/api/events and /api/layout.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "HTTP listen address (overrides config if set)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveListen != "" {
		cfg.Listen = serveListen
	}
	loc, err := loadLocation(cfg.Timezone)
	if err != nil {
		return err
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appLog.Info("calcols starting",
		"version", version,
		"listen", cfg.Listen,
		"timezone", loc.String(),
		"ics_count", len(cfg.ICS),
	)

	a := agenda.New(ics.NewFetcher(cfg.CacheDir, nil), agenda.Options{
		Sources:      sourcesFromConfig(cfg),
		Location:     loc,
		HorizonDays:  cfg.HorizonDays,
		BackfillDays: cfg.BackfillDays,
	})
	if err := a.Refresh(ctx); err != nil {
		appLog.Error("initial refresh failed", err)
	}

	if _, err := a.Schedule(ctx, cfg.RefreshCron); err != nil {
		return err
	}
	go func() {
		if err := a.Watch(ctx, cfg.LocalPaths(), 500*time.Millisecond); err != nil {
			appLog.Error("calendar file watcher stopped", err)
		}
	}()

	err = web.NewServer(cfg, a).Serve(ctx)
	appLog.Info("calcols exiting")
	return err
}
