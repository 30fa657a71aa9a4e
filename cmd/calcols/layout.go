package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"calcols/internal/config"
	"calcols/internal/dayview"
	"calcols/internal/geometry"
	"calcols/internal/ics"
	appLog "calcols/internal/log"
	"calcols/internal/model"
)

var (
	layoutDate   string
	layoutMode   string
	layoutHeight float64
	layoutFiles  []string
)

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Print the column layout of one day",
	Long: `Fetch the configured calendars (or the files given with --file), expand
them for one day and print which column each entry goes in.`,
	Args: cobra.NoArgs,
	RunE: runLayout,
}

func init() {
	layoutCmd.Flags().StringVarP(&layoutDate, "date", "d", "", "Day to lay out as YYYY-MM-DD (default today)")
	layoutCmd.Flags().StringVarP(&layoutMode, "mode", "m", "", "Layout mode: time, day or visual (default from config)")
	layoutCmd.Flags().Float64Var(&layoutHeight, "height", 0, "Pixel height of the day in visual mode (default from config)")
	layoutCmd.Flags().StringSliceVarP(&layoutFiles, "file", "f", []string{}, "ICS file(s) to use instead of the configured sources")
	rootCmd.AddCommand(layoutCmd)
}

func runLayout(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loc, err := loadLocation(cfg.Timezone)
	if err != nil {
		return err
	}

	day := time.Now().In(loc)
	if layoutDate != "" {
		day, err = time.ParseInLocation(time.DateOnly, layoutDate, loc)
		if err != nil {
			return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", layoutDate)
		}
	}

	opts, err := layoutOptions(cfg, day)
	if err != nil {
		return err
	}

	sources := sourcesFromConfig(cfg)
	if len(layoutFiles) > 0 {
		sources = sources[:0]
		for _, f := range layoutFiles {
			sources = append(sources, ics.Source{ID: strings.TrimSuffix(filepath.Base(f), filepath.Ext(f)), Path: f})
		}
	}
	if len(sources) == 0 {
		return errors.New("no calendars: add ics sources to the config or pass --file")
	}

	occs, err := fetchDay(cmd.Context(), ics.NewFetcher(cfg.CacheDir, nil), sources, loc, day)
	if err != nil {
		return err
	}

	view, err := dayview.Build(occs, opts)
	if err != nil {
		return err
	}
	printLayout(cmd.OutOrStdout(), view)
	return nil
}

// layoutOptions merges the layout flags over the config.
func layoutOptions(cfg *config.Config, day time.Time) (dayview.Options, error) {
	modeName := cfg.Layout.Mode
	if layoutMode != "" {
		modeName = layoutMode
	}
	mode, err := dayview.ParseMode(modeName)
	if err != nil {
		return dayview.Options{}, err
	}
	policy, err := geometry.ParsePolicy(cfg.Layout.HeightPolicy)
	if err != nil {
		return dayview.Options{}, err
	}
	height := cfg.Layout.ViewHeight
	if layoutHeight != 0 {
		height = layoutHeight
	}
	return dayview.Options{
		Date:           day,
		Mode:           mode,
		IncludeAllDay:  cfg.Layout.IncludeAllDay,
		Height:         height,
		MinEntryHeight: cfg.Layout.MinEntryHeight,
		Policy:         policy,
	}, nil
}

// fetchDay fetches, parses and expands sources for the day containing day.
// Failing sources are logged and skipped unless all of them fail.
func fetchDay(ctx context.Context, fetcher *ics.Fetcher, sources []ics.Source, loc *time.Location, day time.Time) ([]model.Occurrence, error) {
	results, errs := fetcher.FetchAll(ctx, sources)
	for _, err := range errs {
		appLog.Error("layout: fetch failed", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("all calendars failed: %w", errors.Join(errs...))
	}

	var parsed []ics.ParsedEvent
	for _, res := range results {
		events, err := ics.ParseICS(res.Source, res.Body)
		if err != nil {
			appLog.Error("layout: parse failed", err, "source", res.Source)
			continue
		}
		parsed = append(parsed, events...)
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	expanded, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      start,
		RangeEnd:        start.AddDate(0, 0, 1),
	})
	if err != nil {
		return nil, err
	}
	return expanded.Occurrences, nil
}

func printLayout(w io.Writer, view dayview.View) {
	bold := color.New(color.Bold)
	_, _ = bold.Fprintf(w, "%s (%s mode)\n", view.Date.Format("Monday, 2006-01-02"), view.Mode)

	if len(view.AllDay) > 0 {
		names := make([]string, 0, len(view.AllDay))
		for _, o := range view.AllDay {
			names = append(names, o.Summary)
		}
		fmt.Fprintf(w, "All day: %s\n", strings.Join(names, ", "))
	}
	if len(view.Slots) == 0 {
		fmt.Fprintln(w, "No entries.")
		return
	}

	tbl := uitable.New()
	tbl.MaxColWidth = 40
	tbl.Separator = "  "
	tbl.AddRow("TIME", "COLUMN", "WIDTH", "SUMMARY", "CALENDAR")
	for _, s := range view.Slots {
		when := "all day"
		if !s.Occurrence.AllDay {
			when = s.Occurrence.Start.Format("15:04") + "-" + s.Occurrence.End.Format("15:04")
		}
		tbl.AddRow(
			when,
			fmt.Sprintf("%d/%d", s.Column+1, s.Columns),
			fmt.Sprintf("%.0f%%", s.Width*100),
			s.Occurrence.Summary,
			s.Occurrence.SourceID,
		)
	}
	fmt.Fprintln(w, tbl)
}
