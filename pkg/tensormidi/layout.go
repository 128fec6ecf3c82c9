package tensormidi

import "fmt"

// ColumnKind is the primitive type stored in a column.
type ColumnKind uint8

const (
	Uint8 ColumnKind = iota + 1
	Uint32
	Uint64
	Float64
)

// Size returns the width of the kind in bytes.
func (k ColumnKind) Size() int {
	switch k {
	case Uint8:
		return 1
	case Uint32:
		return 4
	case Uint64, Float64:
		return 8
	}
	return 0
}

// NumpyType returns the little-endian numpy type string for the kind.
func (k ColumnKind) NumpyType() string {
	switch k {
	case Uint8:
		return "|u1"
	case Uint32:
		return "<u4"
	case Uint64:
		return "<u8"
	case Float64:
		return "<f8"
	}
	return ""
}

func (k ColumnKind) String() string {
	switch k {
	case Uint8:
		return "u8"
	case Uint32:
		return "u32"
	case Uint64:
		return "u64"
	case Float64:
		return "f64"
	}
	return fmt.Sprintf("ColumnKind(%d)", uint8(k))
}

// MarshalText encodes the kind by name.
func (k ColumnKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Column is one field of a fixed-width row.
type Column struct {
	Name   string     `json:"name"`
	Kind   ColumnKind `json:"kind"`
	Offset int        `json:"offset"`
}

// Layout describes a row: columns in order, packed without gaps, and the row
// padded to the widest column so rows stay aligned in an array.
type Layout struct {
	Columns []Column `json:"columns"`
	RowSize int      `json:"row_size"`
}

// Column names of event tables. Their order is part of the output contract.
const (
	ColDt       = "dt"
	ColDuration = "duration"
	ColProgram  = "program"
	ColTrack    = "track"
	ColType     = "type"
	ColChannel  = "channel"
	ColKey      = "key"
	ColValue    = "value"

	ColTick        = "tick"
	ColUsecPerBeat = "usec_per_beat"
	ColSecPerBeat  = "sec_per_beat"
)

// timeKind is the column kind used for dt and duration.
func timeKind(u TimeUnit) ColumnKind {
	switch u {
	case Microseconds:
		return Uint64
	case Seconds:
		return Float64
	default:
		return Uint32
	}
}

func newLayout(names []string, kinds []ColumnKind) Layout {
	var l Layout
	align := 1
	for i, name := range names {
		l.Columns = append(l.Columns, Column{Name: name, Kind: kinds[i], Offset: l.RowSize})
		l.RowSize += kinds[i].Size()
		align = max(align, kinds[i].Size())
	}
	if rem := l.RowSize % align; rem != 0 {
		l.RowSize += align - rem
	}
	return l
}

// EventLayout returns the row layout of event tables for a time unit, with
// or without the duration column.
func EventLayout(unit TimeUnit, durations bool) Layout {
	tk := timeKind(unit)
	names := []string{ColDt}
	kinds := []ColumnKind{tk}
	if durations {
		names = append(names, ColDuration)
		kinds = append(kinds, tk)
	}
	for _, n := range []string{ColProgram, ColTrack, ColType, ColChannel, ColKey, ColValue} {
		names = append(names, n)
		kinds = append(kinds, Uint8)
	}
	return newLayout(names, kinds)
}

// TempoLayout returns the row layout of the tempo table.
func TempoLayout(unit TimeUnit) Layout {
	tick := Uint64
	if unit == Ticks {
		tick = Uint32
	}
	if unit == Seconds {
		return newLayout([]string{ColTick, ColSecPerBeat}, []ColumnKind{tick, Float64})
	}
	return newLayout([]string{ColTick, ColUsecPerBeat}, []ColumnKind{tick, Uint32})
}

// Column returns the named column.
func (l Layout) Column(name string) (Column, bool) {
	for _, c := range l.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Has reports whether the layout contains the named column.
func (l Layout) Has(name string) bool {
	_, ok := l.Column(name)
	return ok
}
