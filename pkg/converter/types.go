// Package converter writes decoded MIDI tables to files and provides the
// file-level helpers shared by the CLI, API and TUI.
package converter

import (
	"github.com/wrongbad/tensormidi/pkg/smf"
	"github.com/wrongbad/tensormidi/pkg/tensormidi"
	"go.uber.org/zap"
)

// TrackInfo summarizes one track of a file
type TrackInfo struct {
	Index    int     `json:"index"`
	Events   int     `json:"events"`
	Notes    int     `json:"notes"`
	Channels []uint8 `json:"channels"`
	Seconds  float64 `json:"seconds"`
}

// Info summarizes a whole file
type Info struct {
	Format       uint16      `json:"format"`
	TicksPerBeat uint16      `json:"ticks_per_beat"`
	Tempos       []smf.Tempo `json:"tempos"`
	Tracks       []TrackInfo `json:"tracks"`
	Seconds      float64     `json:"seconds"`
}

// Converter decodes MIDI files with a fixed set of options
type Converter struct {
	opts   tensormidi.Options
	logger *zap.Logger
}

// New creates a new Converter. A nil logger disables logging.
func New(opts tensormidi.Options, logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{opts: opts, logger: logger}
}

// GetOptions returns the decode options
func (c *Converter) GetOptions() tensormidi.Options {
	return c.opts
}

// SetOptions sets the decode options
func (c *Converter) SetOptions(opts tensormidi.Options) {
	c.opts = opts
}
