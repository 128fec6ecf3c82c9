package tensormidi

import (
	"container/heap"

	"github.com/wrongbad/tensormidi/pkg/smf"
)

// timed is an event with its converted absolute time and, once paired, its
// duration in the same unit.
type timed[T Number] struct {
	smf.Event
	at       T
	duration T
}

// convert maps every event's tick through clock. clock must be
// non-decreasing so converted tracks stay ordered.
func convert[T Number](events []smf.Event, clock func(uint64) T) []timed[T] {
	out := make([]timed[T], len(events))
	for i, e := range events {
		out[i] = timed[T]{Event: e, at: clock(e.Tick)}
	}
	return out
}

type noteKey struct {
	track   int
	channel uint8
	key     uint8
}

// resolveDurations pairs each Note-Off with the oldest open Note-On of the
// same (track, channel, key) and stores span(on tick, off tick) on the Note-On.
// Note-Offs with nothing to close are dropped. Note-Ons still open at the end
// are kept with duration 0 or dropped, per policy.
func resolveDurations[T Number](events []timed[T], policy UnterminatedPolicy, span func(from, to uint64) T) []timed[T] {
	open := make(map[noteKey][]int)
	keep := make([]bool, len(events))

	for i := range events {
		e := &events[i]
		k := noteKey{e.Track, e.Channel, e.Key}
		switch e.Type {
		case smf.NoteOn:
			open[k] = append(open[k], i)
			keep[i] = true
		case smf.NoteOff:
			q := open[k]
			if len(q) == 0 {
				continue
			}
			on := &events[q[0]]
			on.duration = span(on.Tick, e.Tick)
			if len(q) == 1 {
				delete(open, k)
			} else {
				open[k] = q[1:]
			}
			keep[i] = true
		default:
			keep[i] = true
		}
	}

	if policy == UnterminatedDrop {
		for _, q := range open {
			for _, i := range q {
				keep[i] = false
			}
		}
	}

	out := events[:0]
	for i, e := range events {
		if keep[i] {
			out = append(out, e)
		}
	}
	return out
}

// filter drops events the options exclude from output.
func filter[T Number](events []timed[T], notesOnly, removeNoteOff bool) []timed[T] {
	if !notesOnly && !removeNoteOff {
		return events
	}
	out := events[:0]
	for _, e := range events {
		if notesOnly && !e.Type.IsNote() {
			continue
		}
		if removeNoteOff && e.Type == smf.NoteOff {
			continue
		}
		out = append(out, e)
	}
	return out
}

// cursor is the head of one track during a merge.
type cursor[T Number] struct {
	events []timed[T]
	pos    int
	track  int
}

type mergeHeap[T Number] []*cursor[T]

func (h mergeHeap[T]) Len() int { return len(h) }

func (h mergeHeap[T]) Less(i, j int) bool {
	a, b := h[i].events[h[i].pos].at, h[j].events[h[j].pos].at
	if a != b {
		return a < b
	}
	return h[i].track < h[j].track
}

func (h mergeHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap[T]) Push(x any) { *h = append(*h, x.(*cursor[T])) }

func (h *mergeHeap[T]) Pop() any {
	old := *h
	c := old[len(old)-1]
	*h = old[:len(old)-1]
	return c
}

// merge interleaves tracks by time. Ties go to the lower track index, and a
// track's own events never reorder since only its head is in the heap.
func merge[T Number](tracks [][]timed[T]) []timed[T] {
	n := 0
	h := make(mergeHeap[T], 0, len(tracks))
	for i, tr := range tracks {
		n += len(tr)
		if len(tr) > 0 {
			h = append(h, &cursor[T]{events: tr, track: i})
		}
	}
	heap.Init(&h)

	out := make([]timed[T], 0, n)
	for h.Len() > 0 {
		c := h[0]
		out = append(out, c.events[c.pos])
		c.pos++
		if c.pos == len(c.events) {
			heap.Pop(&h)
		} else {
			heap.Fix(&h, 0)
		}
	}
	return out
}

// records computes dt against the previous event of the same stream.
func records[T Number](events []timed[T]) []Record[T] {
	out := make([]Record[T], len(events))
	var prev T
	for i, e := range events {
		out[i] = Record[T]{
			Dt:       e.at - prev,
			Duration: e.duration,
			Program:  e.Program,
			Track:    uint8(e.Track),
			Type:     e.Type,
			Channel:  e.Channel,
			Key:      e.Key,
			Value:    e.Value,
		}
		prev = e.at
	}
	return out
}

// build runs conversion, pairing, filtering and merging over a decoded file
// and returns one record stream per output table. clock maps an absolute
// tick to output time; span measures a tick interval for durations.
func build[T Number](f *smf.File, opts Options, clock func(uint64) T, span func(from, to uint64) T) [][]Record[T] {
	tracks := make([][]timed[T], len(f.Tracks))
	for i, evs := range f.Tracks {
		tr := convert(evs, clock)
		if opts.Durations {
			tr = resolveDurations(tr, opts.Unterminated, span)
		}
		tracks[i] = filter(tr, opts.NotesOnly, opts.RemoveNoteOff())
	}

	if opts.MergeTracks {
		return [][]Record[T]{records(merge(tracks))}
	}
	out := make([][]Record[T], len(tracks))
	for i, tr := range tracks {
		out[i] = records(tr)
	}
	return out
}
