package converter

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/wrongbad/tensormidi/internal/smftest"
	"github.com/wrongbad/tensormidi/pkg/smf"
	"github.com/wrongbad/tensormidi/pkg/tensormidi"
	"gitlab.com/gomidi/midi/v2"
	gosmf "gitlab.com/gomidi/midi/v2/smf"
)

func testMIDI() []byte {
	return smftest.File(1, 480,
		smftest.NewTrack().Tempo(0, 400000).NoteOn(0, 0, 60, 100).NoteOff(480, 0, 60).End(0),
		smftest.NewTrack().NoteOn(240, 9, 36, 120).NoteOff(240, 9, 36).End(0),
	)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename string
		expected Format
	}{
		{"test.mid", FormatMIDI},
		{"test.MIDI", FormatMIDI},
		{"test.npy", FormatNPY},
		{"test.bin", FormatBin},
		{"test.csv", FormatCSV},
		{"test.json", FormatJSON},
		{"test.txt", FormatUnknown},
		{"test", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			result := DetectFormat(tt.filename)
			if result != tt.expected {
				t.Errorf("DetectFormat(%q) = %v, want %v", tt.filename, result, tt.expected)
			}
		})
	}
}

func TestDetectFormatFromContent(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected Format
	}{
		{"MIDI file", []byte("MThd\x00\x00\x00\x06"), FormatMIDI},
		{"npy file", []byte("\x93NUMPY\x01\x00"), FormatNPY},
		{"JSON document", []byte(`{"tracks": []}`), FormatJSON},
		{"Short data", []byte{0x00, 0x01}, FormatUnknown},
		{"Other binary", []byte{0x3C, 0x01, 0x3E, 0x02}, FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DetectFormatFromContent(tt.data)
			if result != tt.expected {
				t.Errorf("DetectFormatFromContent() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	for _, f := range GetSupportedFormats() {
		got, err := ParseFormat(f.Extension())
		if err != nil || got != f {
			t.Errorf("ParseFormat(%q) = %v, %v", f.Extension(), got, err)
		}
	}
	if _, err := ParseFormat("syx"); err == nil {
		t.Error("ParseFormat(syx) succeeded")
	}
}

func TestConverterSetOptions(t *testing.T) {
	conv := New(tensormidi.DefaultOptions(), nil)
	if conv.GetOptions() != tensormidi.DefaultOptions() {
		t.Error("GetOptions() did not return the options passed to New")
	}

	opts := tensormidi.Options{TimeUnit: tensormidi.Seconds}
	conv.SetOptions(opts)
	if conv.GetOptions() != opts {
		t.Error("GetOptions() should return the options after SetOptions")
	}
}

func TestConverterDecodeRejectsNonMIDI(t *testing.T) {
	conv := New(tensormidi.DefaultOptions(), nil)
	_, err := conv.Decode([]byte("RIFF\x00\x00\x00\x06WAVE"))
	var de *smf.DecodeError
	if !errors.As(err, &de) || de.Kind != smf.InvalidHeader || de.Offset != 0 {
		t.Errorf("Decode() error = %v, want InvalidHeader at offset 0", err)
	}
}

func TestWriteNPY(t *testing.T) {
	res, err := tensormidi.Decode(testMIDI(), tensormidi.Options{MergeTracks: true, Durations: true})
	if err != nil {
		t.Fatal(err)
	}
	tbl := res.Tracks[0]

	var buf bytes.Buffer
	if err := WriteNPY(&buf, tbl); err != nil {
		t.Fatalf("WriteNPY() error = %v", err)
	}
	out := buf.Bytes()

	if !bytes.HasPrefix(out, npyMagic) || out[6] != 1 || out[7] != 0 {
		t.Fatalf("bad magic/version: % x", out[:8])
	}
	hlen := int(binary.LittleEndian.Uint16(out[8:10]))
	if (10+hlen)%64 != 0 {
		t.Errorf("header end %d is not 64-byte aligned", 10+hlen)
	}
	header := string(out[10 : 10+hlen])
	for _, want := range []string{
		"('dt', '<u4')",
		"('duration', '<u4')",
		"('value', '|u1')",
		"('', '|V2')",
		"'shape': (2,)",
	} {
		if !strings.Contains(header, want) {
			t.Errorf("header %q missing %q", header, want)
		}
	}
	if !strings.HasSuffix(header, "\n") {
		t.Error("header does not end in newline")
	}
	if !bytes.Equal(out[10+hlen:], tbl.Data) {
		t.Error("npy payload differs from table data")
	}
}

func TestWriteCSV(t *testing.T) {
	res, err := tensormidi.Decode(testMIDI(), tensormidi.Options{MergeTracks: true, TimeUnit: tensormidi.Seconds})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, res.Tracks[0]); err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 5 {
		t.Fatalf("got %d csv records, want header + 4", len(records))
	}
	if strings.Join(records[0], ",") != "dt,program,track,type,channel,key,value" {
		t.Errorf("header = %v", records[0])
	}
	// second event: track 1 note-on at 240 ticks, 400000 usec/beat
	if records[2][0] != "0.2" || records[2][2] != "1" || records[2][3] != "144" {
		t.Errorf("row 2 = %v", records[2])
	}
}

func TestWriteJSON(t *testing.T) {
	res, err := tensormidi.Decode(testMIDI(), tensormidi.Options{})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteJSON(&buf, res); err != nil {
		t.Fatal(err)
	}

	var doc struct {
		TicksPerBeat int    `json:"ticks_per_beat"`
		TimeUnit     string `json:"time_unit"`
		Tracks       []struct {
			Columns []string    `json:"columns"`
			Rows    [][]float64 `json:"rows"`
		} `json:"tracks"`
		Tempos struct {
			Rows [][]float64 `json:"rows"`
		} `json:"tempos"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.TicksPerBeat != 480 || doc.TimeUnit != "ticks" {
		t.Errorf("doc header = %d %q", doc.TicksPerBeat, doc.TimeUnit)
	}
	if len(doc.Tracks) != 2 || len(doc.Tracks[1].Rows) != 2 {
		t.Fatalf("tracks = %+v", doc.Tracks)
	}
	if doc.Tracks[1].Rows[0][0] != 240 {
		t.Errorf("track 1 first dt = %v, want 240", doc.Tracks[1].Rows[0][0])
	}
	if len(doc.Tempos.Rows) != 1 || doc.Tempos.Rows[0][1] != 400000 {
		t.Errorf("tempos = %v", doc.Tempos.Rows)
	}
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "song.mid")
	if err := os.WriteFile(input, testMIDI(), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		opts   tensormidi.Options
		output string
		want   []string
	}{
		{"merged npy", tensormidi.DefaultOptions(), "song.npy", []string{"song.npy"}},
		{"separate ticks bin", tensormidi.Options{}, "out.bin", []string{"out.0.bin", "out.1.bin", "out.tempo.bin"}},
		{"json", tensormidi.Options{}, "song.json", []string{"song.json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := New(tt.opts, nil)
			written, err := conv.ConvertFile(input, filepath.Join(dir, tt.output))
			if err != nil {
				t.Fatalf("ConvertFile() error = %v", err)
			}
			if len(written) != len(tt.want) {
				t.Fatalf("wrote %v, want %v", written, tt.want)
			}
			for i, w := range tt.want {
				if filepath.Base(written[i]) != w {
					t.Errorf("output %d = %s, want %s", i, filepath.Base(written[i]), w)
				}
				if _, err := os.Stat(written[i]); err != nil {
					t.Error(err)
				}
			}
		})
	}

	if _, err := New(tensormidi.DefaultOptions(), nil).ConvertFile(input, filepath.Join(dir, "song.txt")); err == nil {
		t.Error("ConvertFile() to unknown format succeeded")
	}
}

func TestDecodeFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.mid")
	bad := filepath.Join(dir, "bad.mid")
	if err := os.WriteFile(good, testMIDI(), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, smftest.File(1, 0xE728, smftest.NewTrack().End(0)), 0644); err != nil {
		t.Fatal(err)
	}
	paths := []string{good, bad, filepath.Join(dir, "missing.mid"), good}

	results, err := New(tensormidi.DefaultOptions(), nil).DecodeFiles(context.Background(), paths, 2)
	if err != nil {
		t.Fatalf("DecodeFiles() error = %v", err)
	}
	if len(results) != len(paths) {
		t.Fatalf("got %d results, want %d", len(results), len(paths))
	}
	for i, r := range results {
		if r.Path != paths[i] {
			t.Errorf("result %d path = %s, want %s", i, r.Path, paths[i])
		}
	}
	if results[0].Err != nil || results[3].Err != nil {
		t.Errorf("good files failed: %v, %v", results[0].Err, results[3].Err)
	}
	if !bytes.Equal(results[0].Result.Tracks[0].Data, results[3].Result.Tracks[0].Data) {
		t.Error("same file decoded differently in one batch")
	}
	if !errors.Is(results[1].Err, smf.ErrUnsupportedDivision) {
		t.Errorf("bad file error = %v, want ErrUnsupportedDivision", results[1].Err)
	}
	if !errors.Is(results[2].Err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want not exist", results[2].Err)
	}
}

func TestDecodeFilesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(tensormidi.DefaultOptions(), nil).DecodeFiles(ctx, []string{"a.mid"}, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("DecodeFiles() error = %v, want context.Canceled", err)
	}
}

func TestInspect(t *testing.T) {
	info, err := Inspect(testMIDI())
	if err != nil {
		t.Fatal(err)
	}
	if info.Format != 1 || info.TicksPerBeat != 480 || len(info.Tracks) != 2 {
		t.Fatalf("info = %+v", info)
	}
	if info.Tracks[1].Notes != 1 || len(info.Tracks[1].Channels) != 1 || info.Tracks[1].Channels[0] != 9 {
		t.Errorf("track 1 = %+v", info.Tracks[1])
	}
	if info.Seconds != 0.4 {
		t.Errorf("Seconds = %v, want 0.4", info.Seconds)
	}
	if len(info.Tempos) != 1 || info.Tempos[0].UsecPerBeat != 400000 {
		t.Errorf("Tempos = %+v", info.Tempos)
	}
}

func TestCrossCheck(t *testing.T) {
	var lead, drums gosmf.Track
	lead.Add(0, gosmf.MetaTempo(90))
	lead.Add(0, midi.ProgramChange(0, 5))
	lead.Add(0, midi.NoteOn(0, 60, 100))
	lead.Add(480, midi.NoteOff(0, 60))
	lead.Add(0, midi.ControlChange(0, 7, 100))
	drums.Add(120, midi.NoteOn(9, 36, 127))
	drums.Add(120, midi.NoteOff(9, 36))
	drums.Add(0, gosmf.MetaTempo(180))

	report, err := CrossCheck(smftest.Write(t, 480, lead, drums))
	if err != nil {
		t.Fatalf("CrossCheck() error = %v", err)
	}
	if !report.OK() {
		t.Errorf("mismatches: %v", report.Mismatches)
	}
	if report.Tracks != 2 || report.Events != 6 || report.Tempos != 2 {
		t.Errorf("report = %+v", report)
	}
}
