// Package layout decides how calendar entries whose intervals overlap are
// laid out side by side.
//
// Entries are sorted by start, grouped into clusters of transitively
// overlapping entries, and each cluster is packed into the fewest columns
// a first-fit pass can find. The result is one Placement per visible entry:
// its column index and the column count of its cluster.
//
// The algorithm is written once and works on any axis through an Adapter:
// wall-clock time, time normalized for all-day entries, or rendered pixels.
package layout

// Span is an effective interval on some ordered axis.
type Span[P any] struct {
	Start P
	End   P
}

// Adapter tells the engine how to read an entry of type E: where it sits on
// an axis of points P and which logical entry (K) it stands for.
type Adapter[E any, P any, K comparable] interface {
	// Span returns the effective interval of e with any full-span
	// normalization already applied.
	Span(e E) Span[P]
	// Identity returns the logical identity of e. Entries with the same
	// identity never collide with each other.
	Identity(e E) K
	// Visible reports whether e takes part in layout at all.
	Visible(e E) bool
	// Compare orders two points on the axis.
	Compare(a, b P) int
}

// Intersects reports whether a and b collide.
//
// Intervals sharing an exact start or an exact end always collide, even when
// one of them has zero length. Otherwise they collide when they overlap with
// positive length, so back-to-back intervals do not.
func Intersects[P any](cmp func(a, b P) int, a, b Span[P]) bool {
	if cmp(a.Start, b.Start) == 0 || cmp(a.End, b.End) == 0 {
		return true
	}
	return cmp(a.Start, b.End) < 0 && cmp(a.End, b.Start) > 0
}
