// Package agenda keeps the expanded occurrences of all configured calendars
// in memory and refreshes them on a schedule or when local files change.
package agenda

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"calcols/internal/ics"
	appLog "calcols/internal/log"
	"calcols/internal/model"
)

// Fetcher is the subset of *ics.Fetcher the agenda needs.
type Fetcher interface {
	FetchAll(ctx context.Context, sources []ics.Source) ([]ics.FetchResult, []error)
}

// Options configures an Agenda.
type Options struct {
	Sources  []ics.Source
	Location *time.Location

	HorizonDays  int
	BackfillDays int

	MaxOccurrencesPerEvent int

	// Now is injectable for tests.
	Now func() time.Time
}

// Agenda is a concurrency-safe store of expanded occurrences.
type Agenda struct {
	fetcher Fetcher
	opts    Options

	// refreshMu serializes refreshes; mu guards the snapshot.
	refreshMu sync.Mutex

	mu          sync.RWMutex
	occurrences []model.Occurrence
	truncated   []string
	updatedAt   time.Time
	rangeStart  time.Time
	rangeEnd    time.Time
}

// New returns an empty Agenda. Call Refresh to populate it.
func New(fetcher Fetcher, opts Options) *Agenda {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = 14
	}
	if opts.BackfillDays < 0 {
		opts.BackfillDays = 0
	}
	return &Agenda{fetcher: fetcher, opts: opts}
}

// Refresh re-fetches, parses and expands all sources. Sources that fail are
// logged and skipped; the returned error joins their failures. The previous
// snapshot is replaced even on partial failure, but kept if every source
// failed.
func (a *Agenda) Refresh(ctx context.Context) error {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	started := a.opts.Now()
	now := started.In(a.opts.Location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.opts.Location)
	rangeStart := today.AddDate(0, 0, -a.opts.BackfillDays)
	rangeEnd := today.AddDate(0, 0, a.opts.HorizonDays+1)

	results, errs := a.fetcher.FetchAll(ctx, a.opts.Sources)

	var parsed []ics.ParsedEvent
	for _, res := range results {
		events, err := ics.ParseICS(res.Source, res.Body)
		if err != nil {
			errs = append(errs, err)
			appLog.Error("agenda: parse failed", err, "source", res.Source)
			continue
		}
		parsed = append(parsed, events...)
	}

	if len(a.opts.Sources) > 0 && len(results) == 0 {
		return fmt.Errorf("agenda: all sources failed: %w", errors.Join(errs...))
	}

	expanded, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		DisplayLocation:        a.opts.Location,
		RangeStart:             rangeStart,
		RangeEnd:               rangeEnd,
		MaxOccurrencesPerEvent: a.opts.MaxOccurrencesPerEvent,
	})
	if err != nil {
		return fmt.Errorf("agenda: %w", err)
	}

	a.mu.Lock()
	a.occurrences = expanded.Occurrences
	a.truncated = expanded.TruncatedEvents
	a.updatedAt = started
	a.rangeStart = rangeStart
	a.rangeEnd = rangeEnd
	a.mu.Unlock()

	appLog.Info("agenda refreshed",
		"sources", len(a.opts.Sources),
		"failed", len(errs),
		"occurrences", len(expanded.Occurrences),
		"range_start", rangeStart.Format(time.DateOnly),
		"range_end", rangeEnd.Format(time.DateOnly),
		"took", time.Since(started).Round(time.Millisecond),
	)
	return errors.Join(errs...)
}

// Snapshot is a consistent view of the agenda.
type Snapshot struct {
	Occurrences []model.Occurrence
	Truncated   []string
	UpdatedAt   time.Time
	RangeStart  time.Time
	RangeEnd    time.Time
}

// Snapshot returns the current occurrences. The slices are copies.
func (a *Agenda) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Snapshot{
		Occurrences: append([]model.Occurrence(nil), a.occurrences...),
		Truncated:   append([]string(nil), a.truncated...),
		UpdatedAt:   a.updatedAt,
		RangeStart:  a.rangeStart,
		RangeEnd:    a.rangeEnd,
	}
}

// Occurrences returns a copy of the current occurrences.
func (a *Agenda) Occurrences() []model.Occurrence {
	return a.Snapshot().Occurrences
}

// Schedule refreshes the agenda on a standard five-field cron spec until
// ctx is done.
func (a *Agenda) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if err := a.Refresh(ctx); err != nil {
			appLog.Error("agenda: scheduled refresh failed", err, "spec", spec)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("agenda: invalid refresh schedule %q: %w", spec, err)
	}
	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	appLog.Info("agenda refresh scheduled", "spec", spec)
	return c, nil
}

// Watch refreshes the agenda whenever one of paths is written, created or
// renamed over. Bursts of events within debounce trigger one refresh. It
// blocks until ctx is done.
func (a *Agenda) Watch(ctx context.Context, paths []string, debounce time.Duration) error {
	if len(paths) == 0 {
		<-ctx.Done()
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("agenda: %w", err)
	}
	defer w.Close()

	// Watch directories so editors that replace files atomically are seen.
	targets := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("agenda: %w", err)
		}
		targets[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("agenda: watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			abs, _ := filepath.Abs(ev.Name)
			if !targets[abs] || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			appLog.Debug("agenda: source changed", "path", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			appLog.Error("agenda: watcher error", err)

		case <-fire:
			fire = nil
			if err := a.Refresh(ctx); err != nil {
				appLog.Error("agenda: refresh after change failed", err)
			}
		}
	}
}
