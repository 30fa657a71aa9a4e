package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "calcols/internal/log"
)

// ParsedEvent is one VEVENT before recurrence expansion.
type ParsedEvent struct {
	Source Source
	UID    string
	Seq    int

	Summary, Description, Location string

	Start, End time.Time
	AllDay     bool

	RawRRule string
	ExDates  []time.Time
	// Recurrence is the RECURRENCE-ID of an event that overrides one
	// instance of a recurring event.
	Recurrence *time.Time
}

// IsOverride reports whether ev replaces a single instance of a recurring
// event.
func (ev ParsedEvent) IsOverride() bool {
	return ev.Recurrence != nil
}

// ParseICS reads every VEVENT of body. Events that cannot be read are
// logged and skipped. RRULE, EXDATE and RECURRENCE-ID are recorded as-is for
// ExpandOccurrences.
func ParseICS(src Source, body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("ics: empty body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ics: parse %s: %w", src, err)
	}

	var out []ParsedEvent
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(src, ve)
		if err != nil {
			appLog.Warn("ics vevent skipped", "source", src, "reason", err)
			continue
		}
		out = append(out, ev)
	}

	appLog.Debug("ics parsed", "source", src, "events", len(out))
	return out, nil
}

// text returns the value of prop on ve, or "".
func text(ve *ical.VEvent, prop ical.ComponentProperty) string {
	if p := ve.GetProperty(prop); p != nil {
		return p.Value
	}
	return ""
}

func parseVEvent(src Source, ve *ical.VEvent) (ParsedEvent, error) {
	uid := text(ve, ical.ComponentPropertyUniqueId)
	if uid == "" {
		return ParsedEvent{}, errors.New("missing UID")
	}
	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return ParsedEvent{}, fmt.Errorf("uid %s: missing DTSTART", uid)
	}
	start, err := ve.GetStartAt()
	if err != nil {
		return ParsedEvent{}, fmt.Errorf("uid %s: DTSTART: %w", uid, err)
	}

	ev := ParsedEvent{
		Source:      src,
		UID:         uid,
		Summary:     text(ve, ical.ComponentPropertySummary),
		Description: text(ve, ical.ComponentPropertyDescription),
		Location:    text(ve, ical.ComponentPropertyLocation),
		RawRRule:    text(ve, ical.ComponentPropertyRrule),
		AllDay:      isDateValue(dtStart),
		Start:       start,
		End:         start,
	}
	ev.Seq, _ = strconv.Atoi(strings.TrimSpace(text(ve, ical.ComponentPropertySequence)))

	// Without a usable DTEND an all-day event lasts one day and a timed one
	// is a point in time.
	switch end, err := ve.GetEndAt(); {
	case err == nil && !end.Before(start):
		ev.End = end
	case ev.AllDay:
		ev.End = start.AddDate(0, 0, 1)
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		loc := tzid(p)
		for _, v := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(v, loc); err == nil {
				ev.ExDates = append(ev.ExDates, t)
			}
		}
	}

	if p := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); p != nil {
		if t, err := parseICSTime(p.Value, tzid(p)); err == nil {
			ev.Recurrence = &t
		}
	}

	return ev, nil
}

// isDateValue reports whether a DTSTART holds a DATE rather than a DATE-TIME.
func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

func tzid(p *ical.IANAProperty) *time.Location {
	if tzs, ok := p.ICalParameters["TZID"]; ok && len(tzs) > 0 {
		if loc, err := time.LoadLocation(tzs[0]); err == nil {
			return loc
		}
	}
	return time.Local
}

// parseICSTime parses a DATE or DATE-TIME value as used by EXDATE and
// RECURRENCE-ID. Floating values are read in loc.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
