// Package tensormidi decodes Standard MIDI Files into fixed-width tables of
// events, ready to be reinterpreted as numeric arrays.
//
// A decode is a single synchronous call that owns all of its working state,
// so independent calls may run concurrently.
package tensormidi

import (
	"fmt"

	"github.com/wrongbad/tensormidi/pkg/smf"
)

// Result holds the tables produced by one decode.
type Result struct {
	// Tracks holds one table per MTrk chunk, or a single table when tracks
	// were merged.
	Tracks []*Table
	// Tempos is the tempo map as a table of (tick, tempo) rows.
	Tempos       *Table
	TicksPerBeat uint16
	Format       uint16
	Options      Options
}

// Decode parses an SMF buffer and returns its events as tables. It fails
// with a *smf.DecodeError when the file is malformed; no tables are
// returned in that case.
func Decode(data []byte, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	d := smf.NewDecoder(data)
	d.DefaultProgram = opts.DefaultProgram
	f, err := d.Decode()
	if err != nil {
		return nil, err
	}

	layout := EventLayout(opts.TimeUnit, opts.Durations)
	res := &Result{
		Tempos:       packTempos(opts.TimeUnit, f.Tempo.Entries()),
		TicksPerBeat: f.TicksPerBeat,
		Format:       f.Format,
		Options:      opts,
	}

	switch opts.TimeUnit {
	case Ticks:
		res.Tracks = pack(layout, build(f, opts,
			func(tick uint64) uint64 { return tick },
			func(from, to uint64) uint64 { return to - from }))
	case Microseconds:
		res.Tracks = pack(layout, build(f, opts, f.Tempo.TicksToMicroseconds, f.Tempo.SpanMicroseconds))
	case Seconds:
		res.Tracks = pack(layout, build(f, opts, f.Tempo.TicksToSeconds,
			func(from, to uint64) float64 { return f.Tempo.TicksToSeconds(to) - f.Tempo.TicksToSeconds(from) }))
	default:
		return nil, fmt.Errorf("invalid time unit %d", opts.TimeUnit)
	}
	return res, nil
}

func pack[T Number](layout Layout, streams [][]Record[T]) []*Table {
	out := make([]*Table, len(streams))
	for i, recs := range streams {
		out[i] = packEvents(layout, recs)
	}
	return out
}

// Events returns the total number of rows across all track tables.
func (r *Result) Events() int {
	n := 0
	for _, t := range r.Tracks {
		n += t.Len
	}
	return n
}
