package geometry

import (
	"errors"
	"testing"
	"time"

	"calcols/internal/model"
)

var day = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func TestNew_InvalidHeight(t *testing.T) {
	for _, h := range []float64{0, -10} {
		if _, err := New(day, h, 0, HeightByTime); !errors.Is(err, ErrInvalidHeight) {
			t.Fatalf("New(height=%v) err = %v, want ErrInvalidHeight", h, err)
		}
	}
}

func TestY(t *testing.T) {
	g, err := New(day.Add(13*time.Hour), 2400, 0, HeightByTime)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tests := []struct {
		t    time.Time
		want float64
	}{
		{at(0, 0), 0},
		{at(6, 0), 600},
		{at(12, 30), 1250},
		{at(24, 0), 2400},
		{at(-1, 0), 0},
		{at(30, 0), 2400},
	}
	for _, tt := range tests {
		if got := g.Y(tt.t); !near(got, tt.want) {
			t.Fatalf("Y(%v) = %v, want %v", tt.t, got, tt.want)
		}
	}
}

func TestExtent(t *testing.T) {
	short := model.Occurrence{Start: at(9, 0), End: at(9, 10)}
	late := model.Occurrence{Start: at(23, 55), End: at(24, 0)}
	full := model.Occurrence{AllDay: true, Start: day, End: day.AddDate(0, 0, 1)}

	tests := []struct {
		name        string
		policy      HeightPolicy
		occ         model.Occurrence
		top, bottom float64
	}{
		{"by time", HeightByTime, short, 900, 900 + 100.0/6},
		{"preferred grows", HeightPreferred, short, 900, 950},
		{"preferred shifted up at bottom", HeightPreferred, late, 2350, 2400},
		{"all day", HeightPreferred, full, 0, 2400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(day, 2400, 50, tt.policy)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			top, bottom := g.Extent(tt.occ)
			if !near(top, tt.top) || !near(bottom, tt.bottom) {
				t.Fatalf("Extent = [%v, %v], want [%v, %v]", top, bottom, tt.top, tt.bottom)
			}
		})
	}
}

func TestPreferredHeightCreatesOverlap(t *testing.T) {
	a := model.Occurrence{UID: "a", InstanceKey: "a", Start: at(9, 0), End: at(9, 10)}
	b := model.Occurrence{UID: "b", InstanceKey: "b", Start: at(9, 10), End: at(9, 20)}

	for _, tt := range []struct {
		policy  HeightPolicy
		columns int
	}{
		{HeightByTime, 1},
		{HeightPreferred, 2},
	} {
		g, err := New(day, 2400, 50, tt.policy)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		r, err := g.Resolver()
		if err != nil {
			t.Fatalf("Resolver: %v", err)
		}
		ps := r.Resolve(g.VisualEntries([]model.Occurrence{a, b}))
		if ps[1].Columns != tt.columns {
			t.Fatalf("%v: columns = %d, want %d", tt.policy, ps[1].Columns, tt.columns)
		}
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy(""); err != nil || p != HeightByTime {
		t.Fatalf("ParsePolicy(\"\") = %v, %v", p, err)
	}
	if p, err := ParsePolicy("Preferred"); err != nil || p != HeightPreferred {
		t.Fatalf("ParsePolicy(Preferred) = %v, %v", p, err)
	}
	if _, err := ParsePolicy("tall"); !errors.Is(err, ErrUnknownPolicy) {
		t.Fatalf("ParsePolicy(tall) err = %v", err)
	}
}

func near(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}
