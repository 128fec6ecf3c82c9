package tensormidi

import (
	"fmt"
	"strings"
)

// TimeUnit selects how event times are reported.
type TimeUnit uint8

const (
	// Ticks leaves times in the file's native resolution.
	Ticks TimeUnit = iota
	// Microseconds converts through the tempo map to integer microseconds.
	Microseconds
	// Seconds converts through the tempo map to floating point seconds.
	Seconds
)

func (u TimeUnit) String() string {
	switch u {
	case Ticks:
		return "ticks"
	case Microseconds:
		return "microseconds"
	case Seconds:
		return "seconds"
	default:
		return fmt.Sprintf("TimeUnit(%d)", uint8(u))
	}
}

// ParseTimeUnit accepts the names printed by String plus the short forms
// "tick", "us", "usec" and "s".
func ParseTimeUnit(s string) (TimeUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ticks", "tick":
		return Ticks, nil
	case "microseconds", "us", "usec":
		return Microseconds, nil
	case "seconds", "s", "sec":
		return Seconds, nil
	}
	return 0, fmt.Errorf("unknown time unit %q", s)
}

// NoteOffPolicy controls whether Note-Off records reach the output.
type NoteOffPolicy uint8

const (
	// NoteOffAuto removes Note-Offs when durations are computed and keeps
	// them otherwise.
	NoteOffAuto NoteOffPolicy = iota
	NoteOffKeep
	NoteOffRemove
)

// UnterminatedPolicy controls Note-Ons still open at the end of a track
// when durations are computed.
type UnterminatedPolicy uint8

const (
	// UnterminatedEmit keeps the Note-On with duration 0.
	UnterminatedEmit UnterminatedPolicy = iota
	// UnterminatedDrop discards the Note-On.
	UnterminatedDrop
)

// Options configures a decode. The zero value decodes every event of every
// track separately, in ticks, without durations.
type Options struct {
	MergeTracks    bool
	TimeUnit       TimeUnit
	NotesOnly      bool
	Durations      bool
	NoteOff        NoteOffPolicy
	Unterminated   UnterminatedPolicy
	DefaultProgram uint8
}

// DefaultOptions returns merged, note-only output in microseconds.
func DefaultOptions() Options {
	return Options{
		MergeTracks: true,
		TimeUnit:    Microseconds,
		NotesOnly:   true,
	}
}

// Option modifies Options.
type Option func(*Options)

// NewOptions applies opts on top of DefaultOptions.
func NewOptions(opts ...Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithMerge sets whether tracks are merged into one stream.
func WithMerge(merge bool) Option {
	return func(o *Options) { o.MergeTracks = merge }
}

// WithTimeUnit sets the output time unit.
func WithTimeUnit(u TimeUnit) Option {
	return func(o *Options) { o.TimeUnit = u }
}

// WithNotesOnly drops every event that is not a Note-On or Note-Off.
func WithNotesOnly(notesOnly bool) Option {
	return func(o *Options) { o.NotesOnly = notesOnly }
}

// WithDurations pairs notes and fills the duration column.
func WithDurations(durations bool) Option {
	return func(o *Options) { o.Durations = durations }
}

// WithRemoveNoteOff forces Note-Off removal on or off.
func WithRemoveNoteOff(remove bool) Option {
	return func(o *Options) {
		if remove {
			o.NoteOff = NoteOffRemove
		} else {
			o.NoteOff = NoteOffKeep
		}
	}
}

// WithUnterminated sets the policy for notes still open at end of track.
func WithUnterminated(p UnterminatedPolicy) Option {
	return func(o *Options) { o.Unterminated = p }
}

// WithDefaultProgram sets the program reported before any Program-Change.
func WithDefaultProgram(program uint8) Option {
	return func(o *Options) { o.DefaultProgram = program }
}

// RemoveNoteOff resolves the NoteOff policy against Durations.
func (o Options) RemoveNoteOff() bool {
	switch o.NoteOff {
	case NoteOffKeep:
		return false
	case NoteOffRemove:
		return true
	default:
		return o.Durations
	}
}

func (o Options) validate() error {
	if o.TimeUnit > Seconds {
		return fmt.Errorf("invalid time unit %d", o.TimeUnit)
	}
	if o.NoteOff > NoteOffRemove {
		return fmt.Errorf("invalid note-off policy %d", o.NoteOff)
	}
	if o.Unterminated > UnterminatedDrop {
		return fmt.Errorf("invalid unterminated policy %d", o.Unterminated)
	}
	return nil
}
