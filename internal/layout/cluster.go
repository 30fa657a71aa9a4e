package layout

// Cluster is a run of entries connected by overlap. It tracks the envelope
// of its members' spans and assigns them to columns on Resolve.
type Cluster[E any, P any, K comparable] struct {
	adapter  Adapter[E, P, K]
	members  []E
	envelope Span[P]
}

// NewCluster returns an empty cluster reading entries through adapter.
func NewCluster[E any, P any, K comparable](adapter Adapter[E, P, K]) *Cluster[E, P, K] {
	return &Cluster[E, P, K]{adapter: adapter}
}

// Intersects reports whether e overlaps the cluster's envelope. An empty
// cluster accepts anything.
//
// The test runs against the envelope rather than each member, so two
// entries may share a cluster through an intermediate entry without
// overlapping each other.
func (c *Cluster[E, P, K]) Intersects(e E) bool {
	if len(c.members) == 0 {
		return true
	}
	span := c.adapter.Span(e)
	cmp := c.adapter.Compare
	return cmp(span.Start, c.envelope.End) < 0 && cmp(span.End, c.envelope.Start) > 0
}

// Add appends e and grows the envelope to cover it.
func (c *Cluster[E, P, K]) Add(e E) {
	span := c.adapter.Span(e)
	if len(c.members) == 0 {
		c.envelope = span
	} else {
		cmp := c.adapter.Compare
		if cmp(span.Start, c.envelope.Start) < 0 {
			c.envelope.Start = span.Start
		}
		if cmp(span.End, c.envelope.End) > 0 {
			c.envelope.End = span.End
		}
	}
	c.members = append(c.members, e)
}

// Members returns the entries in insertion order.
func (c *Cluster[E, P, K]) Members() []E {
	return c.members
}

// Envelope returns the union of the members' spans.
func (c *Cluster[E, P, K]) Envelope() Span[P] {
	return c.envelope
}

// Resolve assigns every member to the first column with room for it,
// opening a new column when none has, and returns one Placement per member
// in insertion order.
func (c *Cluster[E, P, K]) Resolve() []Placement[E] {
	columns := []*Column[E, P, K]{NewColumn(c.adapter)}
	assigned := make([]int, len(c.members))

	for i, m := range c.members {
		idx := -1
		for j, col := range columns {
			if col.HasRoomFor(m) {
				idx = j
				break
			}
		}
		if idx < 0 {
			columns = append(columns, NewColumn(c.adapter))
			idx = len(columns) - 1
		}
		columns[idx].Add(m)
		assigned[i] = idx
	}

	out := make([]Placement[E], len(c.members))
	for i, m := range c.members {
		out[i] = Placement[E]{Entry: m, Column: assigned[i], Columns: len(columns)}
	}
	return out
}
