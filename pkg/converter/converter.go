package converter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wrongbad/tensormidi/pkg/tensormidi"
	"go.uber.org/zap"
)

// Format represents a file format
type Format string

const (
	FormatMIDI    Format = "midi"
	FormatNPY     Format = "npy"
	FormatBin     Format = "bin"
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatUnknown Format = "unknown"
)

// Extension returns the file extension for an export format
func (f Format) Extension() string {
	switch f {
	case FormatMIDI:
		return ".mid"
	case FormatUnknown:
		return ""
	default:
		return "." + string(f)
	}
}

// ContentType returns the MIME type used when serving the format
func (f Format) ContentType() string {
	switch f {
	case FormatMIDI:
		return "audio/midi"
	case FormatCSV:
		return "text/csv"
	case FormatJSON:
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// ParseFormat parses an export format name
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(s, ".")))
	for _, known := range GetSupportedFormats() {
		if f == known {
			return f, nil
		}
	}
	return FormatUnknown, fmt.Errorf("unsupported format %q", s)
}

// DetectFormat detects the format of a file based on extension
func DetectFormat(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".mid", ".midi", ".smf", ".kar":
		return FormatMIDI
	case ".npy":
		return FormatNPY
	case ".bin", ".raw":
		return FormatBin
	case ".csv":
		return FormatCSV
	case ".json":
		return FormatJSON
	default:
		return FormatUnknown
	}
}

// DetectFormatFromContent detects format from file content
func DetectFormatFromContent(data []byte) Format {
	if len(data) < 4 {
		return FormatUnknown
	}

	switch {
	case string(data[:4]) == "MThd":
		return FormatMIDI
	case bytes.HasPrefix(data, npyMagic):
		return FormatNPY
	case data[0] == '{':
		return FormatJSON
	}
	return FormatUnknown
}

// GetSupportedFormats returns the export formats
func GetSupportedFormats() []Format {
	return []Format{FormatNPY, FormatBin, FormatCSV, FormatJSON}
}

// Decode decodes MIDI data with the converter's options. Input that is not
// an SMF fails with a *smf.DecodeError of kind InvalidHeader.
func (c *Converter) Decode(data []byte) (*tensormidi.Result, error) {
	start := time.Now()
	res, err := tensormidi.Decode(data, c.opts)
	if err != nil {
		c.logger.Debug("decode failed", zap.Int("bytes", len(data)), zap.Error(err))
		return nil, err
	}
	c.logger.Debug("decoded",
		zap.Int("bytes", len(data)),
		zap.Int("tables", len(res.Tracks)),
		zap.Int("events", res.Events()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// ConvertFile decodes a MIDI file and writes its tables in the format
// implied by outputPath. It returns the paths written.
//
// JSON output is a single document. Other formats get one file per table:
// outputPath itself when there is one track table, otherwise
// name.<track>.ext, plus name.tempo.ext when times are left in ticks.
func (c *Converter) ConvertFile(inputPath, outputPath string) ([]string, error) {
	outputFormat := DetectFormat(outputPath)
	if outputFormat == FormatUnknown || outputFormat == FormatMIDI {
		return nil, errors.New("cannot determine output format from filename")
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	res, err := c.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", inputPath, err)
	}

	written, err := WriteResult(res, outputPath, outputFormat)
	if err != nil {
		return written, err
	}
	c.logger.Info("converted",
		zap.String("input", inputPath),
		zap.Strings("outputs", written),
		zap.Int("events", res.Events()),
	)
	return written, nil
}

// WriteResult writes a decode result to outputPath in format f.
func WriteResult(res *tensormidi.Result, outputPath string, f Format) ([]string, error) {
	if f == FormatJSON {
		if err := writeFile(outputPath, func(w io.Writer) error { return WriteJSON(w, res) }); err != nil {
			return nil, err
		}
		return []string{outputPath}, nil
	}

	base := strings.TrimSuffix(outputPath, filepath.Ext(outputPath))
	ext := f.Extension()

	var written []string
	for i, t := range res.Tracks {
		path := outputPath
		if len(res.Tracks) > 1 {
			path = fmt.Sprintf("%s.%d%s", base, i, ext)
		}
		if err := writeFile(path, func(w io.Writer) error { return EncodeTable(w, t, f) }); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if res.Options.TimeUnit == tensormidi.Ticks {
		path := base + ".tempo" + ext
		if err := writeFile(path, func(w io.Writer) error { return EncodeTable(w, res.Tempos, f) }); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// EncodeTable writes one table in a tabular format
func EncodeTable(w io.Writer, t *tensormidi.Table, f Format) error {
	switch f {
	case FormatNPY:
		return WriteNPY(w, t)
	case FormatBin:
		_, err := w.Write(t.Data)
		return err
	case FormatCSV:
		return WriteCSV(w, t)
	case FormatJSON:
		return WriteTableJSON(w, t)
	default:
		return fmt.Errorf("unsupported format: %s", f)
	}
}

func writeFile(path string, write func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
