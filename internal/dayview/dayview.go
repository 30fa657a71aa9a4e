// Package dayview lays out the occurrences of a single calendar day.
package dayview

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"calcols/internal/geometry"
	"calcols/internal/layout"
	"calcols/internal/model"
)

var ErrUnknownMode = errors.New("dayview: unknown layout mode")

// Mode selects how overlap is measured.
type Mode string

const (
	// ModeTime compares logical start and end times.
	ModeTime Mode = "time"
	// ModeDay compares times with all-day entries stretched over the day.
	ModeDay Mode = "day"
	// ModeVisual compares the pixel extents entries are drawn at.
	ModeVisual Mode = "visual"
)

// ParseMode parses a mode name. An empty string means ModeDay.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeDay, nil
	case ModeTime, ModeDay, ModeVisual:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Options controls Build.
type Options struct {
	Date time.Time
	Mode Mode

	// IncludeAllDay lays out all-day occurrences next to timed ones instead
	// of only listing them.
	IncludeAllDay bool

	// Visual mode only.
	Height         float64
	MinEntryHeight float64
	Policy         geometry.HeightPolicy
}

// Slot is where one occurrence goes in the day grid.
type Slot struct {
	Occurrence model.Occurrence `json:"occurrence"`
	Column     int              `json:"column"`
	Columns    int              `json:"columns"`
	Offset     float64          `json:"offset"`
	Width      float64          `json:"width"`
	Top        float64          `json:"top,omitempty"`
	Bottom     float64          `json:"bottom,omitempty"`
}

// View is the layout of one day.
type View struct {
	Date   time.Time          `json:"date"`
	Mode   Mode               `json:"mode"`
	Slots  []Slot             `json:"slots"`
	AllDay []model.Occurrence `json:"all_day"`
}

// Build selects the occurrences touching opts.Date and lays them out.
func Build(occs []model.Occurrence, opts Options) (View, error) {
	mode := opts.Mode
	if mode == "" {
		mode = ModeDay
	}
	dayStart, dayEnd := layout.DayRange(opts.Date)
	view := View{
		Date:   dayStart,
		Mode:   mode,
		Slots:  []Slot{},
		AllDay: []model.Occurrence{},
	}

	var timed []model.Occurrence
	for _, o := range OnDay(occs, dayStart, dayEnd) {
		if o.AllDay {
			view.AllDay = append(view.AllDay, o)
			if !opts.IncludeAllDay {
				continue
			}
		}
		timed = append(timed, o)
	}

	switch mode {
	case ModeTime, ModeDay:
		r := layout.NewDayResolver(dayStart, layout.WithTieBreak(tieBreak))
		if mode == ModeTime {
			r = layout.NewTimeResolver(layout.WithTieBreak(tieBreak))
		}
		for _, p := range r.Resolve(timed) {
			view.Slots = append(view.Slots, Slot{
				Occurrence: p.Entry,
				Column:     p.Column,
				Columns:    p.Columns,
				Offset:     p.Offset(),
				Width:      p.Width(),
			})
		}

	case ModeVisual:
		g, err := geometry.New(dayStart, opts.Height, opts.MinEntryHeight, opts.Policy)
		if err != nil {
			return View{}, fmt.Errorf("dayview: %w", err)
		}
		r, err := g.Resolver(layout.WithTieBreak(layout.Visual(tieBreak)))
		if err != nil {
			return View{}, fmt.Errorf("dayview: %w", err)
		}
		for _, p := range r.Resolve(g.VisualEntries(timed)) {
			view.Slots = append(view.Slots, Slot{
				Occurrence: p.Entry.Occurrence,
				Column:     p.Column,
				Columns:    p.Columns,
				Offset:     p.Offset(),
				Width:      p.Width(),
				Top:        p.Entry.Top,
				Bottom:     p.Entry.Bottom,
			})
		}

	default:
		return View{}, fmt.Errorf("%w: %q", ErrUnknownMode, string(mode))
	}

	return view, nil
}

// OnDay returns the visible occurrences overlapping [dayStart, dayEnd].
// Timed occurrences ending exactly at dayStart belong to the previous day.
func OnDay(occs []model.Occurrence, dayStart, dayEnd time.Time) []model.Occurrence {
	out := make([]model.Occurrence, 0, len(occs))
	for _, o := range occs {
		if o.Hidden {
			continue
		}
		if o.Start.After(dayEnd) || (!o.End.After(dayStart) && !o.Start.Equal(dayStart)) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// tieBreak keeps long entries left of short ones that start together, and
// a dragged ghost after its peers.
func tieBreak(a, b model.Occurrence) int {
	if c := layout.DraggedLast(a, b); c != 0 {
		return c
	}
	return layout.LongestFirst(a, b)
}
