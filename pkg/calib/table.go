package calib

// Column selects one of the two motor-position columns of a Table.
type Column int

const (
	// Upstream is the upstream bender motor column.
	Upstream Column = iota
	// Downstream is the downstream bender motor column.
	Downstream
)

func (c Column) String() string {
	switch c {
	case Upstream:
		return "upstream"
	case Downstream:
		return "downstream"
	default:
		return "unknown"
	}
}

// Table is a loaded calibration table. The three slices always have the same
// length. A Table must not be modified after loading.
type Table struct {
	Name       string
	Parameter  []float64
	Upstream   []float64
	Downstream []float64
}

// Len returns the number of calibration points.
func (t *Table) Len() int {
	return len(t.Parameter)
}

// Positions returns the motor-position column c.
func (t *Table) Positions(c Column) []float64 {
	if c == Downstream {
		return t.Downstream
	}
	return t.Upstream
}
