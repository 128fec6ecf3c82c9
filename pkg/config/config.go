// Package config stores the defaults shared by the tensormidi CLI, TUI and
// server in ~/.config/tensormidi/config.json.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/wrongbad/tensormidi/pkg/converter"
	"github.com/wrongbad/tensormidi/pkg/tensormidi"
)

// DecodeConfig holds the decoding defaults
type DecodeConfig struct {
	Merge            bool   `json:"merge"`
	TimeUnit         string `json:"timeUnit"`
	NotesOnly        bool   `json:"notesOnly"`
	Durations        bool   `json:"durations"`
	RemoveNoteOff    *bool  `json:"removeNoteOff,omitempty"` // nil follows durations
	DropUnterminated bool   `json:"dropUnterminated,omitempty"`
	DefaultProgram   uint8  `json:"defaultProgram,omitempty"`
}

// ServerConfig stores REST server settings
type ServerConfig struct {
	Port        int `json:"port"`
	MaxUploadMB int `json:"maxUploadMB,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Decode   DecodeConfig `json:"decode"`
	Format   string       `json:"format"`
	LogLevel string       `json:"logLevel,omitempty"`
	Workers  int          `json:"workers,omitempty"`
	Server   ServerConfig `json:"server"`
}

// DefaultConfig returns the library defaults: merged tracks, microsecond
// timestamps, notes only.
func DefaultConfig() *Config {
	return &Config{
		Decode: DecodeConfig{
			Merge:     true,
			TimeUnit:  tensormidi.Microseconds.String(),
			NotesOnly: true,
		},
		Format:   string(converter.FormatNPY),
		LogLevel: "info",
		Server: ServerConfig{
			Port:        8080,
			MaxUploadMB: 32,
		},
	}
}

// Dir returns the config directory path
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "tensormidi"), nil
}

// Path returns the full path to config.json
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config at path, or at Path() when path is empty. A missing
// file yields the defaults. Fields absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := Path()
		if err != nil {
			return DefaultConfig(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path, or to Path() when path is empty
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := Path()
		if err != nil {
			return err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the enumerated fields
func (c *Config) Validate() error {
	if _, err := tensormidi.ParseTimeUnit(c.Decode.TimeUnit); err != nil {
		return err
	}
	if _, err := converter.ParseFormat(c.Format); err != nil {
		return err
	}
	if c.Decode.DefaultProgram > 127 {
		return fmt.Errorf("defaultProgram %d out of range", c.Decode.DefaultProgram)
	}
	return nil
}

// Options converts the decode section to tensormidi options
func (c *Config) Options() (tensormidi.Options, error) {
	unit, err := tensormidi.ParseTimeUnit(c.Decode.TimeUnit)
	if err != nil {
		return tensormidi.Options{}, err
	}

	opts := []tensormidi.Option{
		tensormidi.WithMerge(c.Decode.Merge),
		tensormidi.WithTimeUnit(unit),
		tensormidi.WithNotesOnly(c.Decode.NotesOnly),
		tensormidi.WithDurations(c.Decode.Durations),
		tensormidi.WithDefaultProgram(c.Decode.DefaultProgram),
	}
	if c.Decode.RemoveNoteOff != nil {
		opts = append(opts, tensormidi.WithRemoveNoteOff(*c.Decode.RemoveNoteOff))
	}
	if c.Decode.DropUnterminated {
		opts = append(opts, tensormidi.WithUnterminated(tensormidi.UnterminatedDrop))
	}
	return tensormidi.NewOptions(opts...), nil
}

// ExportFormat returns the configured export format
func (c *Config) ExportFormat() converter.Format {
	f, err := converter.ParseFormat(c.Format)
	if err != nil {
		return converter.FormatNPY
	}
	return f
}
