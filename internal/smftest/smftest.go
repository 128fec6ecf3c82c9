// Package smftest builds Standard MIDI File byte streams for tests.
package smftest

import (
	"bytes"
	"encoding/binary"
	"testing"

	"gitlab.com/gomidi/midi/v2/smf"
)

// VLQ encodes v as an SMF variable-length quantity.
func VLQ(v uint32) []byte {
	out := []byte{byte(v & 0x7F)}
	for v >>= 7; v > 0; v >>= 7 {
		out = append([]byte{byte(v&0x7F) | 0x80}, out...)
	}
	return out
}

// Chunk wraps body in a chunk with the given four-byte id.
func Chunk(id string, body []byte) []byte {
	out := make([]byte, 8, 8+len(body))
	copy(out, id)
	binary.BigEndian.PutUint32(out[4:], uint32(len(body)))
	return append(out, body...)
}

// Header returns an MThd chunk.
func Header(format, tracks, division uint16) []byte {
	body := make([]byte, 6)
	binary.BigEndian.PutUint16(body[0:], format)
	binary.BigEndian.PutUint16(body[2:], tracks)
	binary.BigEndian.PutUint16(body[4:], division)
	return Chunk("MThd", body)
}

// File assembles a header and one MTrk chunk per track body.
func File(format, division uint16, tracks ...*Track) []byte {
	out := Header(format, uint16(len(tracks)), division)
	for _, t := range tracks {
		out = append(out, Chunk("MTrk", t.Bytes())...)
	}
	return out
}

// Track is a raw MTrk body. Bytes are written exactly as given, so tests can
// use running status or deliberately broken events.
type Track struct {
	buf []byte
}

// NewTrack returns an empty track body.
func NewTrack() *Track { return &Track{} }

// Raw appends a delta time followed by arbitrary bytes.
func (t *Track) Raw(delta uint32, b ...byte) *Track {
	t.buf = append(t.buf, VLQ(delta)...)
	t.buf = append(t.buf, b...)
	return t
}

// NoteOn appends a Note-On with an explicit status byte.
func (t *Track) NoteOn(delta uint32, ch, key, vel uint8) *Track {
	return t.Raw(delta, 0x90|ch, key, vel)
}

// NoteOff appends a Note-Off with an explicit status byte.
func (t *Track) NoteOff(delta uint32, ch, key uint8) *Track {
	return t.Raw(delta, 0x80|ch, key, 0x40)
}

// Program appends a Program-Change.
func (t *Track) Program(delta uint32, ch, program uint8) *Track {
	return t.Raw(delta, 0xC0|ch, program)
}

// Tempo appends a Set-Tempo meta event.
func (t *Track) Tempo(delta, usecPerBeat uint32) *Track {
	return t.Raw(delta, 0xFF, 0x51, 0x03,
		byte(usecPerBeat>>16), byte(usecPerBeat>>8), byte(usecPerBeat))
}

// End appends End-of-Track.
func (t *Track) End(delta uint32) *Track {
	return t.Raw(delta, 0xFF, 0x2F, 0x00)
}

// Bytes returns the encoded body.
func (t *Track) Bytes() []byte { return t.buf }

// Write encodes tracks built with gomidi's smf package into a format-1 file.
func Write(tb testing.TB, ticksPerBeat uint16, tracks ...smf.Track) []byte {
	tb.Helper()
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(ticksPerBeat)
	for _, tr := range tracks {
		tr.Close(0)
		if err := s.Add(tr); err != nil {
			tb.Fatalf("add track: %v", err)
		}
	}
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		tb.Fatalf("write smf: %v", err)
	}
	return buf.Bytes()
}
