package ics

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/teambition/rrule-go"

	appLog "calcols/internal/log"
	"calcols/internal/model"
)

const defaultMaxOccurrencesPerEvent = 5000

var ErrInvalidRange = errors.New("ics: range end is before range start")

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// DisplayLocation is the timezone all occurrences are converted to.
	// If nil, time.Local is used.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd bound the occurrences returned.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps expansion of a single recurring event.
	// If zero, defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// ExpandResult wraps the expanded occurrences and the UIDs that hit the
// per-event cap.
type ExpandResult struct {
	Occurrences     []model.Occurrence
	TruncatedEvents []string
}

// ExpandOccurrences expands events into concrete occurrences overlapping
// [RangeStart, RangeEnd]. It handles RRULE recurrence, EXDATE removal,
// RECURRENCE-ID overrides and all-day events. Occurrences are returned in
// the display timezone, ordered by start.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, ErrInvalidRange
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	// Group base events and overrides by source and UID; the same UID may
	// appear in two calendars.
	type groupKey struct{ source, uid string }
	var order []groupKey
	base := make(map[groupKey][]ParsedEvent)
	overrides := make(map[groupKey][]ParsedEvent)

	for _, ev := range events {
		k := groupKey{ev.Source.ID, ev.UID}
		if ev.IsOverride() {
			overrides[k] = append(overrides[k], ev)
			continue
		}
		if _, ok := base[k]; !ok {
			order = append(order, k)
		}
		base[k] = append(base[k], ev)
	}

	for _, k := range order {
		truncated := false
		for _, ev := range base[k] {
			occ, hitCap := expandEvent(ev, overrides[k], cfg)
			truncated = truncated || hitCap
			result.Occurrences = append(result.Occurrences, occ...)
		}
		if truncated {
			result.TruncatedEvents = append(result.TruncatedEvents, k.uid)
			appLog.Warn("expand: occurrences truncated",
				"source", k.source,
				"uid", k.uid,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
	}

	slices.SortStableFunc(result.Occurrences, func(a, b model.Occurrence) int {
		return a.Start.Compare(b.Start)
	})
	return result, nil
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.Occurrence, bool) {
	if ev.RawRRule == "" {
		return expandSingleEvent(ev, overrides, cfg), false
	}
	return expandRecurringEvent(ev, overrides, cfg)
}

func expandSingleEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []model.Occurrence {
	instance, start, end := ev, ev.Start, ev.End
	if o, ok := findOverride(overrides, ev.Start); ok {
		instance, start, end = o, o.Start, o.End
	}
	if !overlapsRange(start, end, cfg) {
		return nil
	}
	return []model.Occurrence{makeOccurrence(instance, ev.Start, start, end, cfg.DisplayLocation)}
}

func expandRecurringEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.Occurrence, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Widen the lower bound by the event duration so instances that started
	// before RangeStart but are still running are kept.
	dur := ev.End.Sub(ev.Start)
	rangeStart := cfg.RangeStart.Add(-dur).In(ev.Start.Location())
	rangeEnd := cfg.RangeEnd.In(ev.Start.Location())

	starts := set.Between(rangeStart, rangeEnd, true)
	hitCap := false
	if len(starts) > cfg.MaxOccurrencesPerEvent {
		starts = starts[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	out := make([]model.Occurrence, 0, len(starts))
	for _, occStart := range starts {
		occEnd := occStart.Add(dur)
		if ev.AllDay {
			// [date 00:00, next day 00:00) in the event's timezone.
			occStart = time.Date(occStart.Year(), occStart.Month(), occStart.Day(), 0, 0, 0, 0, occStart.Location())
			days := int(dur.Round(24*time.Hour) / (24 * time.Hour))
			occEnd = occStart.AddDate(0, 0, max(days, 1))
		}

		instance, start, end := ev, occStart, occEnd
		if o, ok := findOverride(overrides, occStart); ok {
			instance, start, end = o, o.Start, o.End
		}
		if !overlapsRange(start, end, cfg) {
			continue
		}
		out = append(out, makeOccurrence(instance, occStart, start, end, cfg.DisplayLocation))
	}

	return out, hitCap
}

// findOverride finds the override whose RECURRENCE-ID equals the instance
// start.
func findOverride(overrides []ParsedEvent, instanceStart time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(instanceStart) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

// makeOccurrence builds an occurrence in displayLoc. The instance key is
// derived from the original instance start so it survives an override
// moving the instance.
func makeOccurrence(ev ParsedEvent, instanceStart, start, end time.Time, displayLoc *time.Location) model.Occurrence {
	return model.Occurrence{
		SourceID:    ev.Source.ID,
		UID:         ev.UID,
		InstanceKey: fmt.Sprintf("%s@%s", ev.UID, instanceStart.UTC().Format(time.RFC3339)),
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		AllDay:      ev.AllDay,
		Start:       start.In(displayLoc),
		End:         end.In(displayLoc),
	}
}

// overlapsRange reports whether [start, end] touches the expansion range.
func overlapsRange(start, end time.Time, cfg ExpandConfig) bool {
	return !end.Before(cfg.RangeStart) && !start.After(cfg.RangeEnd)
}
