package main

import (
	"path/filepath"
	"testing"

	"github.com/wrongbad/tensormidi/pkg/converter"
)

func TestOutputFor(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		output string
		multi  bool
		format converter.Format
		want   string
	}{
		{"next to input", filepath.Join("songs", "a.mid"), "", false, converter.FormatNPY, filepath.Join("songs", "a.npy")},
		{"explicit file", "a.mid", "out.csv", false, converter.FormatCSV, "out.csv"},
		{"into directory", filepath.Join("songs", "b.midi"), "out", true, converter.FormatJSON, filepath.Join("out", "b.json")},
		{"multi without output", filepath.Join("x", "c.mid"), "", true, converter.FormatBin, filepath.Join("x", "c.bin")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outputFor(tt.input, tt.output, tt.multi, tt.format); got != tt.want {
				t.Errorf("outputFor() = %q, want %q", got, tt.want)
			}
		})
	}
}
