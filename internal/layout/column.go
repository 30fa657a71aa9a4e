package layout

// Column is a set of entries that share one horizontal slot. No two members
// with different identities intersect.
type Column[E any, P any, K comparable] struct {
	adapter Adapter[E, P, K]
	members []E
}

// NewColumn returns an empty column reading entries through adapter.
func NewColumn[E any, P any, K comparable](adapter Adapter[E, P, K]) *Column[E, P, K] {
	return &Column[E, P, K]{adapter: adapter}
}

// HasRoomFor reports whether e can be added without colliding with a member
// of a different identity.
func (c *Column[E, P, K]) HasRoomFor(e E) bool {
	if len(c.members) == 0 {
		return true
	}
	id := c.adapter.Identity(e)
	span := c.adapter.Span(e)
	for _, m := range c.members {
		if c.adapter.Identity(m) == id {
			continue
		}
		if Intersects(c.adapter.Compare, span, c.adapter.Span(m)) {
			return false
		}
	}
	return true
}

// Add appends e. Callers check HasRoomFor first.
func (c *Column[E, P, K]) Add(e E) {
	c.members = append(c.members, e)
}

// Members returns the entries in insertion order.
func (c *Column[E, P, K]) Members() []E {
	return c.members
}
