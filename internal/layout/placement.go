package layout

// Placement assigns one entry to a column of its cluster.
type Placement[E any] struct {
	Entry   E
	Column  int // 0-based, < Columns
	Columns int // column count of the entry's cluster
}

// Offset returns the left edge of the entry as a fraction of the full width.
func (p Placement[E]) Offset() float64 {
	if p.Columns <= 0 {
		return 0
	}
	return float64(p.Column) / float64(p.Columns)
}

// Width returns the width of the entry as a fraction of the full width.
func (p Placement[E]) Width() float64 {
	if p.Columns <= 0 {
		return 1
	}
	return 1 / float64(p.Columns)
}
