// Package geometry maps occurrence times onto the vertical pixel axis of a
// day view.
package geometry

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"calcols/internal/layout"
	"calcols/internal/model"
)

var (
	ErrInvalidHeight = errors.New("geometry: view height must be positive")
	ErrUnknownPolicy = errors.New("geometry: unknown height policy")
)

// HeightPolicy decides how tall an entry is drawn.
type HeightPolicy int

const (
	// HeightByTime draws an entry exactly from its start to its end.
	HeightByTime HeightPolicy = iota
	// HeightPreferred draws an entry at least MinEntryHeight tall so its
	// title stays readable, even if that runs past its end time.
	HeightPreferred
)

func (p HeightPolicy) String() string {
	switch p {
	case HeightByTime:
		return "time"
	case HeightPreferred:
		return "preferred"
	default:
		return fmt.Sprintf("HeightPolicy(%d)", int(p))
	}
}

// ParsePolicy parses "time" or "preferred". An empty string means "time".
func ParsePolicy(s string) (HeightPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "time":
		return HeightByTime, nil
	case "preferred", "pref":
		return HeightPreferred, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Geometry describes a single-day view of Height pixels.
type Geometry struct {
	// Day is any instant on the displayed day; only its date and location matter.
	Day time.Time

	Height         float64
	MinEntryHeight float64
	Policy         HeightPolicy

	dayStart time.Time
	dayLen   time.Duration
}

// New returns the geometry of a view of the given height showing day.
func New(day time.Time, height, minEntryHeight float64, policy HeightPolicy) (Geometry, error) {
	if !(height > 0) || math.IsInf(height, 0) {
		return Geometry{}, fmt.Errorf("%w: %v", ErrInvalidHeight, height)
	}
	if minEntryHeight < 0 || math.IsNaN(minEntryHeight) {
		minEntryHeight = 0
	}
	if minEntryHeight > height {
		minEntryHeight = height
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return Geometry{
		Day:            day,
		Height:         height,
		MinEntryHeight: minEntryHeight,
		Policy:         policy,
		dayStart:       start,
		// Days are not always 24h long around DST switches.
		dayLen: start.AddDate(0, 0, 1).Sub(start),
	}, nil
}

// Y maps t to a pixel row, clamped to [0, Height].
func (g Geometry) Y(t time.Time) float64 {
	d := t.Sub(g.dayStart)
	if d <= 0 {
		return 0
	}
	if d >= g.dayLen {
		return g.Height
	}
	return g.Height * float64(d) / float64(g.dayLen)
}

// Extent returns the rows an occurrence is drawn between. All-day
// occurrences cover the whole view.
func (g Geometry) Extent(o model.Occurrence) (top, bottom float64) {
	if o.AllDay {
		return 0, g.Height
	}
	top, bottom = g.Y(o.Start), g.Y(o.End)
	if g.Policy != HeightPreferred || bottom-top >= g.MinEntryHeight {
		return top, bottom
	}
	bottom = top + g.MinEntryHeight
	if bottom > g.Height {
		bottom = g.Height
		top = bottom - g.MinEntryHeight
	}
	return top, bottom
}

// VisualEntries pairs each occurrence with its drawn extent.
func (g Geometry) VisualEntries(occs []model.Occurrence) []layout.VisualEntry {
	out := make([]layout.VisualEntry, 0, len(occs))
	for _, o := range occs {
		top, bottom := g.Extent(o)
		out = append(out, layout.VisualEntry{Occurrence: o, Top: top, Bottom: bottom})
	}
	return out
}

// Resolver returns a visual resolver spanning the whole view.
func (g Geometry) Resolver(opts ...layout.Option[layout.VisualEntry]) (*layout.VisualResolver, error) {
	return layout.NewVisualResolver(0, g.Height, opts...)
}
