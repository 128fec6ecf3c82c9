package tensormidi

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/wrongbad/tensormidi/pkg/smf"
)

// Number is the in-memory type of dt and duration: uint64 for ticks and
// microseconds, float64 for seconds.
type Number interface {
	~uint64 | ~float64
}

// Record is one decoded row.
type Record[T Number] struct {
	Dt       T
	Duration T
	Program  uint8
	Track    uint8
	Type     smf.EventType
	Channel  uint8
	Key      uint8
	Value    uint8
}

// Table is a flat little-endian buffer of Len rows laid out per Layout. Data
// can be handed to anything that understands the layout without further
// conversion.
type Table struct {
	Layout Layout
	Len    int
	Data   []byte
}

// Row returns the bytes of row i.
func (t *Table) Row(i int) []byte {
	n := t.Layout.RowSize
	return t.Data[i*n : (i+1)*n]
}

// Field returns the value of column c in row i as uint8, uint32, uint64 or
// float64 according to the column kind.
func (t *Table) Field(i int, c Column) any {
	b := t.Row(i)[c.Offset:]
	switch c.Kind {
	case Uint8:
		return b[0]
	case Uint32:
		return binary.LittleEndian.Uint32(b)
	case Uint64:
		return binary.LittleEndian.Uint64(b)
	case Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	}
	return nil
}

func newTable(layout Layout, n int) *Table {
	return &Table{Layout: layout, Len: n, Data: make([]byte, n*layout.RowSize)}
}

func putNumber[T Number](dst []byte, kind ColumnKind, v T) {
	switch kind {
	case Uint32:
		u := uint64(v)
		if u > math.MaxUint32 {
			u = math.MaxUint32
		}
		binary.LittleEndian.PutUint32(dst, uint32(u))
	case Uint64:
		binary.LittleEndian.PutUint64(dst, uint64(v))
	case Float64:
		binary.LittleEndian.PutUint64(dst, math.Float64bits(float64(v)))
	}
}

func getNumber[T Number](src []byte, kind ColumnKind) T {
	switch kind {
	case Uint32:
		return T(uint64(binary.LittleEndian.Uint32(src)))
	case Uint64:
		return T(binary.LittleEndian.Uint64(src))
	case Float64:
		return T(math.Float64frombits(binary.LittleEndian.Uint64(src)))
	}
	return 0
}

// packEvents writes records into a table with the given layout.
func packEvents[T Number](layout Layout, recs []Record[T]) *Table {
	t := newTable(layout, len(recs))
	for i, r := range recs {
		row := t.Row(i)
		for _, c := range layout.Columns {
			dst := row[c.Offset:]
			switch c.Name {
			case ColDt:
				putNumber(dst, c.Kind, r.Dt)
			case ColDuration:
				putNumber(dst, c.Kind, r.Duration)
			case ColProgram:
				dst[0] = r.Program
			case ColTrack:
				dst[0] = r.Track
			case ColType:
				dst[0] = uint8(r.Type)
			case ColChannel:
				dst[0] = r.Channel
			case ColKey:
				dst[0] = r.Key
			case ColValue:
				dst[0] = r.Value
			}
		}
	}
	return t
}

// Rows unpacks an event table. T must be float64 for tables in seconds and
// uint64 otherwise.
func Rows[T Number](t *Table) ([]Record[T], error) {
	dt, ok := t.Layout.Column(ColDt)
	if !ok {
		return nil, fmt.Errorf("table has no %q column", ColDt)
	}
	var zero T
	_, wantFloat := any(zero).(float64)
	if wantFloat != (dt.Kind == Float64) {
		return nil, fmt.Errorf("cannot read %s column as %T", dt.Kind, zero)
	}

	out := make([]Record[T], t.Len)
	for i := range out {
		row := t.Row(i)
		r := &out[i]
		for _, c := range t.Layout.Columns {
			src := row[c.Offset:]
			switch c.Name {
			case ColDt:
				r.Dt = getNumber[T](src, c.Kind)
			case ColDuration:
				r.Duration = getNumber[T](src, c.Kind)
			case ColProgram:
				r.Program = src[0]
			case ColTrack:
				r.Track = src[0]
			case ColType:
				r.Type = smf.EventType(src[0])
			case ColChannel:
				r.Channel = src[0]
			case ColKey:
				r.Key = src[0]
			case ColValue:
				r.Value = src[0]
			}
		}
	}
	return out, nil
}

// packTempos writes the tempo map as a table.
func packTempos(unit TimeUnit, entries []smf.Tempo) *Table {
	layout := TempoLayout(unit)
	t := newTable(layout, len(entries))
	for i, e := range entries {
		row := t.Row(i)
		for _, c := range layout.Columns {
			dst := row[c.Offset:]
			switch c.Name {
			case ColTick:
				putNumber(dst, c.Kind, e.Tick)
			case ColUsecPerBeat:
				binary.LittleEndian.PutUint32(dst, e.UsecPerBeat)
			case ColSecPerBeat:
				putNumber(dst, c.Kind, float64(e.UsecPerBeat)/1e6)
			}
		}
	}
	return t
}

// Tempos unpacks a tempo table.
func (t *Table) Tempos() ([]smf.Tempo, error) {
	tick, ok := t.Layout.Column(ColTick)
	if !ok {
		return nil, fmt.Errorf("table has no %q column", ColTick)
	}
	out := make([]smf.Tempo, t.Len)
	for i := range out {
		row := t.Row(i)
		out[i].Tick = getNumber[uint64](row[tick.Offset:], tick.Kind)
		if c, ok := t.Layout.Column(ColUsecPerBeat); ok {
			out[i].UsecPerBeat = binary.LittleEndian.Uint32(row[c.Offset:])
		} else if c, ok := t.Layout.Column(ColSecPerBeat); ok {
			sec := getNumber[float64](row[c.Offset:], c.Kind)
			out[i].UsecPerBeat = uint32(math.Round(sec * 1e6))
		}
	}
	return out, nil
}
