// Package smf decodes Standard MIDI Files into per-track event lists and a
// tempo map. It reads a complete in-memory buffer in one pass and keeps no
// state between calls.
package smf

const (
	chunkHeader = "MThd"
	chunkTrack  = "MTrk"

	metaEndOfTrack = 0x2F
	metaSetTempo   = 0x51
)

// Header is the content of the MThd chunk.
type Header struct {
	Format       uint16
	Tracks       uint16
	TicksPerBeat uint16
}

// File is a fully decoded SMF.
type File struct {
	Header
	Tracks [][]Event // one slice per MTrk chunk, events in tick order
	Tempo  *TempoMap
}

// Decoder turns an SMF buffer into a File.
type Decoder struct {
	// DefaultProgram is reported for events on channels that have not seen
	// a Program-Change yet.
	DefaultProgram uint8

	data []byte
}

// NewDecoder returns a Decoder over data. The buffer is never modified.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

// Decode parses the whole buffer. It either returns a complete File or a
// *DecodeError; there are no partial results.
func (d *Decoder) Decode() (*File, error) {
	r := NewReader(d.data)

	hdr, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	f := &File{
		Header: hdr,
		Tracks: make([][]Event, 0, hdr.Tracks),
	}
	var tempos TempoBuilder

	for len(f.Tracks) < int(hdr.Tracks) {
		if r.Len() == 0 {
			return nil, errorf(TruncatedInput, r.Offset(),
				"header declares %d tracks, found %d", hdr.Tracks, len(f.Tracks))
		}
		id, body, err := readChunk(r)
		if err != nil {
			return nil, err
		}
		if id != chunkTrack {
			// unknown chunk types are skipped
			continue
		}
		td := &trackDecoder{
			r:      body,
			track:  len(f.Tracks),
			tempos: &tempos,
		}
		for ch := range td.program {
			td.program[ch] = d.DefaultProgram
		}
		if err := td.run(); err != nil {
			return nil, err
		}
		f.Tracks = append(f.Tracks, td.events)
	}

	f.Tempo = tempos.Build(hdr.TicksPerBeat)
	return f, nil
}

func readHeader(r *Reader) (Header, error) {
	var hdr Header
	if r.Len() < 8 {
		return hdr, errorf(InvalidHeader, r.Offset(), "file too short for %s chunk", chunkHeader)
	}
	if id := string(r.data[r.pos : r.pos+4]); id != chunkHeader {
		return hdr, errorf(InvalidHeader, r.Offset(), "expected %q, got %q", chunkHeader, id)
	}
	_, body, err := readChunk(r)
	if err != nil {
		return hdr, err
	}
	if body.Len() < 6 {
		return hdr, errorf(InvalidHeader, 4, "%s length %d, want 6", chunkHeader, body.Len())
	}

	hdr.Format, _ = body.Uint16()
	hdr.Tracks, _ = body.Uint16()
	divOffset := body.Offset()
	division, _ := body.Uint16()

	if hdr.Format > 2 {
		return hdr, errorf(InvalidHeader, 8, "unknown format %d", hdr.Format)
	}
	if division&0x8000 != 0 {
		return hdr, errorf(UnsupportedDivision, divOffset, "SMPTE division 0x%04X", division)
	}
	if division == 0 {
		return hdr, errorf(InvalidHeader, divOffset, "zero ticks per beat")
	}
	hdr.TicksPerBeat = division
	return hdr, nil
}

// readChunk reads a chunk id and length and returns a Reader bounded by the
// declared length.
func readChunk(r *Reader) (string, *Reader, error) {
	start := r.Offset()
	id, err := r.Take(4)
	if err != nil {
		return "", nil, err
	}
	n, err := r.Uint32()
	if err != nil {
		return "", nil, err
	}
	if int64(n) > int64(r.Len()) {
		return "", nil, errorf(TruncatedInput, start,
			"%q chunk declares %d bytes, %d remain", id, n, r.Len())
	}
	body, err := r.Sub(int(n))
	if err != nil {
		return "", nil, err
	}
	return string(id), body, nil
}
