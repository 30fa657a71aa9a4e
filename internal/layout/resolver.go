package layout

import "slices"

// Resolver lays out entries read through an Adapter. It holds no state
// between calls and is safe for concurrent use.
type Resolver[E any, P any, K comparable] struct {
	adapter  Adapter[E, P, K]
	tieBreak func(a, b E) int
}

// Option configures a Resolver.
type Option[E any] func(*options[E])

type options[E any] struct {
	tieBreak func(a, b E) int
}

// WithTieBreak orders entries that share a start. The sort stays stable, so
// entries the comparator treats as equal keep their input order.
func WithTieBreak[E any](cmp func(a, b E) int) Option[E] {
	return func(o *options[E]) {
		o.tieBreak = cmp
	}
}

// NewResolver returns a Resolver reading entries through adapter.
func NewResolver[E any, P any, K comparable](adapter Adapter[E, P, K], opts ...Option[E]) *Resolver[E, P, K] {
	var o options[E]
	for _, opt := range opts {
		opt(&o)
	}
	return &Resolver[E, P, K]{adapter: adapter, tieBreak: o.tieBreak}
}

// Resolve is shorthand for NewResolver(adapter, opts...).Resolve(entries).
func Resolve[E any, P any, K comparable](adapter Adapter[E, P, K], entries []E, opts ...Option[E]) []Placement[E] {
	return NewResolver(adapter, opts...).Resolve(entries)
}

// Resolve returns one Placement per visible entry, grouped by cluster in
// start order. The input slice is not modified.
func (r *Resolver[E, P, K]) Resolve(entries []E) []Placement[E] {
	clusters := r.Clusters(entries)
	if len(clusters) == 0 {
		return nil
	}
	out := make([]Placement[E], 0, len(entries))
	for _, c := range clusters {
		out = append(out, c.Resolve()...)
	}
	return out
}

// Clusters drops invisible entries, sorts the rest by start and partitions
// them into clusters without assigning columns.
func (r *Resolver[E, P, K]) Clusters(entries []E) []*Cluster[E, P, K] {
	var (
		clusters []*Cluster[E, P, K]
		current  *Cluster[E, P, K]
	)
	for _, e := range r.sorted(entries) {
		if current == nil || !current.Intersects(e) {
			current = NewCluster(r.adapter)
			clusters = append(clusters, current)
		}
		current.Add(e)
	}
	return clusters
}

func (r *Resolver[E, P, K]) sorted(entries []E) []E {
	visible := make([]E, 0, len(entries))
	for _, e := range entries {
		if r.adapter.Visible(e) {
			visible = append(visible, e)
		}
	}
	slices.SortStableFunc(visible, func(a, b E) int {
		if c := r.adapter.Compare(r.adapter.Span(a).Start, r.adapter.Span(b).Start); c != 0 {
			return c
		}
		if r.tieBreak != nil {
			return r.tieBreak(a, b)
		}
		return 0
	})
	return visible
}
