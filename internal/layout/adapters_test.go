package layout

import (
	"errors"
	"math"
	"testing"
	"time"

	"calcols/internal/model"
)

var testDay = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func occ(uid string, fromHour, toHour int) model.Occurrence {
	return model.Occurrence{
		SourceID:    "test",
		UID:         uid,
		InstanceKey: uid,
		Summary:     uid,
		Start:       testDay.Add(time.Duration(fromHour) * time.Hour),
		End:         testDay.Add(time.Duration(toHour) * time.Hour),
	}
}

func allDay(uid string) model.Occurrence {
	return model.Occurrence{
		SourceID:    "test",
		UID:         uid,
		InstanceKey: uid,
		Summary:     uid,
		AllDay:      true,
		Start:       testDay,
		End:         testDay.AddDate(0, 0, 1),
	}
}

func TestDayRange(t *testing.T) {
	loc := time.FixedZone("KST", 9*3600)
	start, end := DayRange(time.Date(2025, 3, 14, 15, 30, 0, 0, loc))
	if want := time.Date(2025, 3, 14, 0, 0, 0, 0, loc); !start.Equal(want) {
		t.Fatalf("start = %v, want %v", start, want)
	}
	if want := time.Date(2025, 3, 14, 23, 59, 59, 999999999, loc); !end.Equal(want) {
		t.Fatalf("end = %v, want %v", end, want)
	}
}

func TestDayResolver_AllDayTakesOwnColumn(t *testing.T) {
	ps := NewDayResolver(testDay).Resolve([]model.Occurrence{occ("standup", 9, 10), allDay("holiday")})
	if len(ps) != 2 {
		t.Fatalf("len = %d, want 2", len(ps))
	}
	if ps[0].Entry.UID != "holiday" || ps[0].Column != 0 || ps[0].Columns != 2 {
		t.Fatalf("holiday placed %+v", ps[0])
	}
	if ps[1].Entry.UID != "standup" || ps[1].Column != 1 {
		t.Fatalf("standup placed %+v", ps[1])
	}
}

func TestDayResolver_MultiDayAllDayCoversViewedDay(t *testing.T) {
	conf := allDay("conference")
	conf.Start = testDay.AddDate(0, 0, -1)
	conf.End = testDay.AddDate(0, 0, 2)

	ps := NewDayResolver(testDay).Resolve([]model.Occurrence{occ("talk", 10, 11), conf})
	if len(ps) != 2 {
		t.Fatalf("len = %d, want 2", len(ps))
	}
	for _, p := range ps {
		if p.Columns != 2 {
			t.Fatalf("%s columns = %d, want 2", p.Entry.UID, p.Columns)
		}
	}
	if ps[0].Column == ps[1].Column {
		t.Fatalf("conference and talk share column %d", ps[0].Column)
	}
}

func TestNewDayBounds(t *testing.T) {
	start, end := DayRange(testDay)
	b, err := NewDayBounds(start, end)
	if err != nil {
		t.Fatalf("NewDayBounds: %v", err)
	}
	if sp := b.Span(allDay("holiday")); !sp.Start.Equal(start) || !sp.End.Equal(end) {
		t.Fatalf("all-day span = %v", sp)
	}
	if sp := b.Span(occ("standup", 9, 10)); !sp.Start.Equal(testDay.Add(9 * time.Hour)) {
		t.Fatalf("timed span = %v", sp)
	}
	if _, err := NewDayBounds(end, start); !errors.Is(err, ErrEmptyBounds) {
		t.Fatalf("inverted bounds err = %v, want ErrEmptyBounds", err)
	}
	if _, err := NewDayBounds(start, start); !errors.Is(err, ErrEmptyBounds) {
		t.Fatalf("empty bounds err = %v, want ErrEmptyBounds", err)
	}
}

func TestDayBounds_LateEntryStillCollides(t *testing.T) {
	// The normalized all-day span ends just before midnight.
	late := occ("late", 23, 24)
	ps := NewDayResolver(testDay).Resolve([]model.Occurrence{allDay("holiday"), late})
	for _, p := range ps {
		if p.Columns != 2 {
			t.Fatalf("%s columns = %d, want 2", p.Entry.UID, p.Columns)
		}
	}
}

func TestTimeResolver_DraggedGhost(t *testing.T) {
	orig := occ("review", 10, 11)
	ghost := orig.Ghost(orig.Start.Add(30 * time.Minute))
	other := occ("lunch", 10, 11)
	other.Start = other.Start.Add(30 * time.Minute)
	other.End = other.End.Add(30 * time.Minute)

	ps := NewTimeResolver(WithTieBreak(DraggedLast)).Resolve([]model.Occurrence{ghost, other, orig})
	if len(ps) != 3 {
		t.Fatalf("len = %d, want 3", len(ps))
	}
	// Sorted: orig(10:00), then other and ghost tie at 10:30 with the ghost last.
	if ps[0].Entry.Dragged || ps[1].Entry.UID != "lunch" || !ps[2].Entry.Dragged {
		t.Fatalf("unexpected order: %v, %v, %v", ps[0].Entry.UID, ps[1].Entry.UID, ps[2].Entry.UID)
	}
	if ps[2].Column != 0 {
		t.Fatalf("ghost column = %d, want 0 beside its original", ps[2].Column)
	}
	if ps[0].Columns != 2 {
		t.Fatalf("columns = %d, want 2", ps[0].Columns)
	}
}

func TestTimeResolver_SkipsHidden(t *testing.T) {
	hidden := occ("hidden", 9, 10)
	hidden.Hidden = true
	ps := NewTimeResolver().Resolve([]model.Occurrence{hidden, occ("a", 9, 10)})
	if len(ps) != 1 || ps[0].Columns != 1 {
		t.Fatalf("got %+v", ps)
	}
}

func TestNewVisualBounds_Invalid(t *testing.T) {
	tests := []struct {
		name        string
		top, bottom float64
	}{
		{"empty", 100, 100},
		{"inverted", 200, 100},
		{"nan", math.NaN(), 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewVisualBounds(tt.top, tt.bottom); !errors.Is(err, ErrEmptyBounds) {
				t.Fatalf("err = %v, want ErrEmptyBounds", err)
			}
			if _, err := NewVisualResolver(tt.top, tt.bottom); !errors.Is(err, ErrEmptyBounds) {
				t.Fatalf("resolver err = %v, want ErrEmptyBounds", err)
			}
		})
	}
}

func TestVisualResolver_UsesPixelExtent(t *testing.T) {
	// Two entries back to back in time, but the first is drawn taller than
	// its duration and runs into the second.
	a := VisualEntry{Occurrence: occ("a", 9, 10), Top: 90, Bottom: 130}
	b := VisualEntry{Occurrence: occ("b", 10, 11), Top: 100, Bottom: 110}

	r, err := NewVisualResolver(0, 240)
	if err != nil {
		t.Fatalf("NewVisualResolver: %v", err)
	}
	ps := r.Resolve([]VisualEntry{a, b})
	if ps[1].Column != 1 || ps[1].Columns != 2 {
		t.Fatalf("b placed %d/%d, want 1/2", ps[1].Column, ps[1].Columns)
	}

	byTime := NewTimeResolver().Resolve([]model.Occurrence{a.Occurrence, b.Occurrence})
	if byTime[1].Columns != 1 {
		t.Fatalf("time bounds columns = %d, want 1", byTime[1].Columns)
	}
}

func TestVisualResolver_AllDaySpansView(t *testing.T) {
	r, err := NewVisualResolver(0, 240, WithTieBreak(Visual(LongestFirst)))
	if err != nil {
		t.Fatalf("NewVisualResolver: %v", err)
	}
	ps := r.Resolve([]VisualEntry{
		{Occurrence: occ("late", 20, 21), Top: 200, Bottom: 210},
		{Occurrence: allDay("holiday")},
	})
	if ps[0].Entry.Occurrence.UID != "holiday" || ps[0].Columns != 2 {
		t.Fatalf("got %+v", ps)
	}
}

func TestLongestFirst(t *testing.T) {
	if LongestFirst(occ("long", 9, 12), occ("short", 9, 10)) >= 0 {
		t.Fatalf("long should sort before short")
	}
	if DraggedLast(model.Occurrence{}, model.Occurrence{}) != 0 {
		t.Fatalf("equal drag state should tie")
	}
}
