package layout

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"time"

	"calcols/internal/model"
)

// ErrEmptyBounds is returned when an axis range used for full-span
// normalization has no extent.
var ErrEmptyBounds = errors.New("layout: empty axis bounds")

// TimeResolver lays out occurrences on the wall-clock axis.
type TimeResolver = Resolver[model.Occurrence, time.Time, model.Key]

// VisualResolver lays out rendered entries on the pixel axis.
type VisualResolver = Resolver[VisualEntry, float64, model.Key]

// TimeBounds reads occurrences by their logical start and end as they are,
// all-day entries included.
type TimeBounds struct{}

func (TimeBounds) Span(o model.Occurrence) Span[time.Time] {
	return Span[time.Time]{Start: o.Start, End: o.End}
}

func (TimeBounds) Identity(o model.Occurrence) model.Key { return o.Key() }
func (TimeBounds) Visible(o model.Occurrence) bool       { return !o.Hidden }
func (TimeBounds) Compare(a, b time.Time) int            { return a.Compare(b) }

// DayBounds reads occurrences by time, stretching all-day entries over the
// day being laid out. An all-day entry that spans several days covers the
// viewed day, not the day it started on.
type DayBounds struct {
	start time.Time
	end   time.Time
}

// NewDayBounds returns an adapter that maps all-day entries to [start, end].
func NewDayBounds(start, end time.Time) (DayBounds, error) {
	if !end.After(start) {
		return DayBounds{}, fmt.Errorf("%w: start=%v end=%v", ErrEmptyBounds, start, end)
	}
	return DayBounds{start: start, end: end}, nil
}

func (d DayBounds) Span(o model.Occurrence) Span[time.Time] {
	if o.AllDay {
		return Span[time.Time]{Start: d.start, End: d.end}
	}
	return Span[time.Time]{Start: o.Start, End: o.End}
}

func (DayBounds) Identity(o model.Occurrence) model.Key { return o.Key() }
func (DayBounds) Visible(o model.Occurrence) bool       { return !o.Hidden }
func (DayBounds) Compare(a, b time.Time) int            { return a.Compare(b) }

// DayRange returns the first and last instant of t's calendar day in t's
// location.
func DayRange(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// VisualEntry is an occurrence with the vertical pixel extent a renderer
// will draw it at.
type VisualEntry struct {
	Occurrence model.Occurrence
	Top        float64
	Bottom     float64
}

// VisualBounds reads entries by rendered pixel extent. All-day entries are
// stretched over the whole view.
type VisualBounds struct {
	top    float64
	bottom float64
}

// NewVisualBounds returns an adapter for a view spanning [top, bottom].
func NewVisualBounds(top, bottom float64) (VisualBounds, error) {
	if math.IsNaN(top) || math.IsNaN(bottom) || bottom <= top {
		return VisualBounds{}, fmt.Errorf("%w: top=%v bottom=%v", ErrEmptyBounds, top, bottom)
	}
	return VisualBounds{top: top, bottom: bottom}, nil
}

func (v VisualBounds) Span(e VisualEntry) Span[float64] {
	if e.Occurrence.AllDay {
		return Span[float64]{Start: v.top, End: v.bottom}
	}
	return Span[float64]{Start: e.Top, End: e.Bottom}
}

func (VisualBounds) Identity(e VisualEntry) model.Key { return e.Occurrence.Key() }
func (VisualBounds) Visible(e VisualEntry) bool       { return !e.Occurrence.Hidden }
func (VisualBounds) Compare(a, b float64) int         { return cmp.Compare(a, b) }

// NewTimeResolver returns a resolver over logical time bounds.
func NewTimeResolver(opts ...Option[model.Occurrence]) *TimeResolver {
	return NewResolver[model.Occurrence, time.Time, model.Key](TimeBounds{}, opts...)
}

// NewDayResolver returns a resolver over time bounds with all-day entries
// stretched over the calendar day containing day.
func NewDayResolver(day time.Time, opts ...Option[model.Occurrence]) *TimeResolver {
	start, end := DayRange(day)
	return NewResolver[model.Occurrence, time.Time, model.Key](DayBounds{start: start, end: end}, opts...)
}

// NewVisualResolver returns a resolver over the pixel extents of a view
// spanning [top, bottom].
func NewVisualResolver(top, bottom float64, opts ...Option[VisualEntry]) (*VisualResolver, error) {
	vb, err := NewVisualBounds(top, bottom)
	if err != nil {
		return nil, err
	}
	return NewResolver[VisualEntry, float64, model.Key](vb, opts...), nil
}

// DraggedLast orders a dragged ghost after other occurrences with the same
// start, so it is drawn on top.
func DraggedLast(a, b model.Occurrence) int {
	switch {
	case a.Dragged == b.Dragged:
		return 0
	case a.Dragged:
		return 1
	default:
		return -1
	}
}

// LongestFirst orders longer occurrences before shorter ones.
func LongestFirst(a, b model.Occurrence) int {
	return cmp.Compare(b.Duration(), a.Duration())
}

// Visual lifts an occurrence comparator to visual entries.
func Visual(less func(a, b model.Occurrence) int) func(a, b VisualEntry) int {
	return func(a, b VisualEntry) int {
		return less(a.Occurrence, b.Occurrence)
	}
}
