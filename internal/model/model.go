package model

import "time"

// Key identifies one logical occurrence. A dragged ghost and the original it
// was copied from share the same Key.
type Key struct {
	SourceID    string
	UID         string
	InstanceKey string
}

// Occurrence represents a single concrete instance of an event
// (after recurrence expansion and timezone normalization).
type Occurrence struct {
	SourceID string // calendar source ID
	UID      string // iCalendar UID

	// InstanceKey uniquely identifies a single occurrence of a recurring
	// event, typically derived from the local start time.
	InstanceKey string

	Summary     string
	Description string
	Location    string

	AllDay bool

	// Start / End are in the configured display timezone.
	Start time.Time
	End   time.Time

	// Hidden occurrences are kept in the store but skipped by layout.
	Hidden bool

	// Dragged marks a transient copy created while the user moves an entry.
	Dragged bool
}

// Key returns the identity of o.
func (o Occurrence) Key() Key {
	return Key{SourceID: o.SourceID, UID: o.UID, InstanceKey: o.InstanceKey}
}

// Duration returns End - Start.
func (o Occurrence) Duration() time.Duration {
	return o.End.Sub(o.Start)
}

// Ghost returns a dragged copy of o moved to start, keeping its duration
// and identity.
func (o Occurrence) Ghost(start time.Time) Occurrence {
	g := o
	g.Dragged = true
	g.Start = start
	g.End = start.Add(o.Duration())
	return g
}
