package smf

import (
	"math"
	"math/bits"
	"sort"
)

// DefaultUsecPerBeat is the tempo in effect before any Set-Tempo event (120 BPM).
const DefaultUsecPerBeat = 500000

// Tempo is one entry of the tempo map.
type Tempo struct {
	Tick        uint64
	UsecPerBeat uint32
}

// BPM returns the tempo in beats per minute.
func (t Tempo) BPM() float64 {
	if t.UsecPerBeat == 0 {
		return math.Inf(1)
	}
	return 60e6 / float64(t.UsecPerBeat)
}

// TempoBuilder collects Set-Tempo events from every track in decode order.
type TempoBuilder struct {
	entries []Tempo
}

// Add records a tempo change at tick.
func (b *TempoBuilder) Add(tick uint64, usecPerBeat uint32) {
	b.entries = append(b.entries, Tempo{Tick: tick, UsecPerBeat: usecPerBeat})
}

// Build sorts the collected entries by tick, keeps the last entry written for
// any tick, and makes sure the map starts at tick 0.
func (b *TempoBuilder) Build(ticksPerBeat uint16) *TempoMap {
	src := make([]Tempo, len(b.entries))
	copy(src, b.entries)
	sort.SliceStable(src, func(i, j int) bool { return src[i].Tick < src[j].Tick })

	entries := make([]Tempo, 0, len(src)+1)
	if len(src) == 0 || src[0].Tick > 0 {
		entries = append(entries, Tempo{Tick: 0, UsecPerBeat: DefaultUsecPerBeat})
	}
	for _, t := range src {
		if n := len(entries); n > 0 && entries[n-1].Tick == t.Tick {
			entries[n-1] = t
			continue
		}
		entries = append(entries, t)
	}

	m := &TempoMap{
		entries:      entries,
		ticksPerBeat: ticksPerBeat,
		usec:         make([]uint64, len(entries)),
		sec:          make([]float64, len(entries)),
	}
	for i := 1; i < len(entries); i++ {
		prev := entries[i-1]
		span := entries[i].Tick - prev.Tick
		m.usec[i] = satAdd(m.usec[i-1], m.scale(span, prev.UsecPerBeat))
		m.sec[i] = m.sec[i-1] + m.scaleSeconds(span, prev.UsecPerBeat)
	}
	return m
}

// TempoMap converts ticks to wall-clock time. Entries are sorted by tick and
// the first one is at tick 0. Time inside a segment is linear in ticks.
type TempoMap struct {
	entries      []Tempo
	ticksPerBeat uint16
	usec         []uint64  // elapsed microseconds at each entry
	sec          []float64 // elapsed seconds at each entry
}

// Entries returns a copy of the tempo table.
func (m *TempoMap) Entries() []Tempo {
	out := make([]Tempo, len(m.entries))
	copy(out, m.entries)
	return out
}

// Len returns the number of tempo entries.
func (m *TempoMap) Len() int { return len(m.entries) }

// At returns the tempo in effect at tick.
func (m *TempoMap) At(tick uint64) Tempo {
	return m.entries[m.segment(tick)]
}

// segment returns the index of the last entry with Tick <= tick.
func (m *TempoMap) segment(tick uint64) int {
	i := sort.Search(len(m.entries), func(i int) bool { return m.entries[i].Tick > tick })
	if i == 0 {
		return 0
	}
	return i - 1
}

// TicksToMicroseconds returns the elapsed microseconds from tick 0 to tick.
// Each completed segment contributes floor(span*usecPerBeat/ticksPerBeat);
// the active segment contributes the same for its remainder, so the result
// is continuous at every tempo change.
func (m *TempoMap) TicksToMicroseconds(tick uint64) uint64 {
	i := m.segment(tick)
	e := m.entries[i]
	return satAdd(m.usec[i], m.scale(tick-e.Tick, e.UsecPerBeat))
}

// SpanMicroseconds returns the microseconds elapsed between two ticks,
// scaling each tempo segment of [from, to) on its own. A span inside one
// segment is floor(ticks*usecPerBeat/ticksPerBeat) wherever it starts.
func (m *TempoMap) SpanMicroseconds(from, to uint64) uint64 {
	var total uint64
	for i := m.segment(from); from < to; i++ {
		end := to
		if i+1 < len(m.entries) && m.entries[i+1].Tick < to {
			end = m.entries[i+1].Tick
		}
		total = satAdd(total, m.scale(end-from, m.entries[i].UsecPerBeat))
		from = end
	}
	return total
}

// TicksToSeconds is TicksToMicroseconds in floating point seconds, without
// the per-segment truncation.
func (m *TempoMap) TicksToSeconds(tick uint64) float64 {
	i := m.segment(tick)
	e := m.entries[i]
	return m.sec[i] + m.scaleSeconds(tick-e.Tick, e.UsecPerBeat)
}

func (m *TempoMap) scale(ticks uint64, usecPerBeat uint32) uint64 {
	if m.ticksPerBeat == 0 {
		return 0
	}
	hi, lo := bits.Mul64(ticks, uint64(usecPerBeat))
	if hi >= uint64(m.ticksPerBeat) {
		return math.MaxUint64
	}
	q, _ := bits.Div64(hi, lo, uint64(m.ticksPerBeat))
	return q
}

func (m *TempoMap) scaleSeconds(ticks uint64, usecPerBeat uint32) float64 {
	if m.ticksPerBeat == 0 {
		return 0
	}
	return float64(ticks) * float64(usecPerBeat) / float64(m.ticksPerBeat) / 1e6
}

func satAdd(a, b uint64) uint64 {
	s, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return s
}
