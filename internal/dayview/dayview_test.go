package dayview

import (
	"errors"
	"testing"
	"time"

	"calcols/internal/geometry"
	"calcols/internal/layout"
	"calcols/internal/model"
)

var day = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func timed(uid string, from, to time.Duration) model.Occurrence {
	return model.Occurrence{
		SourceID:    "cal",
		UID:         uid,
		InstanceKey: uid,
		Summary:     uid,
		Start:       day.Add(from),
		End:         day.Add(to),
	}
}

func fullDay(uid string, d time.Time) model.Occurrence {
	return model.Occurrence{
		SourceID:    "cal",
		UID:         uid,
		InstanceKey: uid,
		Summary:     uid,
		AllDay:      true,
		Start:       d,
		End:         d.AddDate(0, 0, 1),
	}
}

func sampleDay() []model.Occurrence {
	return []model.Occurrence{
		timed("yesterday", -3*time.Hour, 0),
		timed("standup", 9*time.Hour, 9*time.Hour+15*time.Minute),
		timed("review", 9*time.Hour, 10*time.Hour),
		timed("lunch", 12*time.Hour, 13*time.Hour),
		fullDay("holiday", day),
		fullDay("tomorrow", day.AddDate(0, 0, 1)),
		timed("tomorrow-meeting", 25*time.Hour, 26*time.Hour),
	}
}

func slotsByUID(v View) map[string]Slot {
	out := make(map[string]Slot, len(v.Slots))
	for _, s := range v.Slots {
		out[s.Occurrence.UID] = s
	}
	return out
}

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{
		"":       ModeDay,
		"time":   ModeTime,
		" Day ":  ModeDay,
		"VISUAL": ModeVisual,
	}
	for in, want := range tests {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseMode("month"); !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("ParseMode(month) err = %v", err)
	}
}

func TestOnDay(t *testing.T) {
	start, end := layout.DayRange(day)
	got := OnDay(sampleDay(), start, end)
	want := []string{"standup", "review", "lunch", "holiday"}
	if len(got) != len(want) {
		t.Fatalf("OnDay returned %d occurrences, want %d", len(got), len(want))
	}
	for i, o := range got {
		if o.UID != want[i] {
			t.Fatalf("OnDay[%d] = %s, want %s", i, o.UID, want[i])
		}
	}
}

func TestBuild_DayMode(t *testing.T) {
	v, err := Build(sampleDay(), Options{Date: day.Add(15 * time.Hour)})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if v.Mode != ModeDay || !v.Date.Equal(day) {
		t.Fatalf("view header = %v %v", v.Mode, v.Date)
	}
	if len(v.AllDay) != 1 || v.AllDay[0].UID != "holiday" {
		t.Fatalf("AllDay = %+v", v.AllDay)
	}
	if len(v.Slots) != 3 {
		t.Fatalf("len(Slots) = %d, want 3", len(v.Slots))
	}
	s := slotsByUID(v)
	// review and standup start together; the longer review goes left.
	if s["review"].Column != 0 || s["standup"].Column != 1 || s["standup"].Columns != 2 {
		t.Fatalf("review/standup = %+v / %+v", s["review"], s["standup"])
	}
	if s["standup"].Offset != 0.5 || s["standup"].Width != 0.5 {
		t.Fatalf("standup offset/width = %v/%v", s["standup"].Offset, s["standup"].Width)
	}
	if s["lunch"].Columns != 1 || s["lunch"].Width != 1 {
		t.Fatalf("lunch = %+v", s["lunch"])
	}
}

func TestBuild_IncludeAllDay(t *testing.T) {
	v, err := Build(sampleDay(), Options{Date: day, Mode: ModeDay, IncludeAllDay: true})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	s := slotsByUID(v)
	if len(s) != 4 {
		t.Fatalf("len(Slots) = %d, want 4", len(s))
	}
	if s["holiday"].Column != 0 || s["lunch"].Columns != 3 {
		t.Fatalf("holiday/lunch = %+v / %+v", s["holiday"], s["lunch"])
	}
}

func TestBuild_MultiDayAllDay(t *testing.T) {
	conf := fullDay("conference", day.AddDate(0, 0, -1))
	conf.End = day.AddDate(0, 0, 2)
	occs := []model.Occurrence{conf, timed("talk", 10*time.Hour, 11*time.Hour)}

	v, err := Build(occs, Options{Date: day, Mode: ModeDay, IncludeAllDay: true})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	s := slotsByUID(v)
	if len(s) != 2 {
		t.Fatalf("len(Slots) = %d, want 2", len(s))
	}
	if s["conference"].Column != 0 || s["conference"].Columns != 2 {
		t.Fatalf("conference = %+v", s["conference"])
	}
	if s["talk"].Column != 1 || s["talk"].Columns != 2 {
		t.Fatalf("talk = %+v", s["talk"])
	}
	if len(v.AllDay) != 1 || v.AllDay[0].UID != "conference" {
		t.Fatalf("AllDay = %+v", v.AllDay)
	}
}

func TestBuild_TimeMode(t *testing.T) {
	v, err := Build(sampleDay(), Options{Date: day, Mode: ModeTime})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(v.Slots) != 3 {
		t.Fatalf("len(Slots) = %d, want 3", len(v.Slots))
	}
}

func TestBuild_VisualMode(t *testing.T) {
	occs := []model.Occurrence{
		timed("a", 9*time.Hour, 9*time.Hour+10*time.Minute),
		timed("b", 9*time.Hour+10*time.Minute, 9*time.Hour+20*time.Minute),
	}
	v, err := Build(occs, Options{
		Date:           day,
		Mode:           ModeVisual,
		Height:         2400,
		MinEntryHeight: 50,
		Policy:         geometry.HeightPreferred,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	s := slotsByUID(v)
	if s["b"].Column != 1 || s["b"].Columns != 2 {
		t.Fatalf("b = %+v", s["b"])
	}
	if s["a"].Top != 900 || s["a"].Bottom != 950 {
		t.Fatalf("a extent = [%v, %v]", s["a"].Top, s["a"].Bottom)
	}
}

func TestBuild_Errors(t *testing.T) {
	if _, err := Build(nil, Options{Date: day, Mode: ModeVisual}); !errors.Is(err, geometry.ErrInvalidHeight) {
		t.Fatalf("visual without height err = %v", err)
	}
	if _, err := Build(nil, Options{Date: day, Mode: "week"}); !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("unknown mode err = %v", err)
	}
}

func TestBuild_EmptyDay(t *testing.T) {
	v, err := Build(nil, Options{Date: day})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if v.Slots == nil || v.AllDay == nil || len(v.Slots) != 0 {
		t.Fatalf("empty view = %+v", v)
	}
}
