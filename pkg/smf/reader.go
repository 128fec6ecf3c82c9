package smf

import "encoding/binary"

// maxVLQBytes is the longest variable-length quantity an SMF may contain.
const maxVLQBytes = 4

// Reader is a sequential cursor over an immutable byte buffer. Every read
// that would run past the end fails with TruncatedInput and leaves the
// cursor where it was.
type Reader struct {
	data []byte
	pos  int
	base int // absolute offset of data[0] in the file
}

// NewReader returns a Reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset returns the absolute position of the cursor in the file.
func (r *Reader) Offset() int { return r.base + r.pos }

// Len returns the number of unread bytes.
func (r *Reader) Len() int { return len(r.data) - r.pos }

func (r *Reader) need(n int) error {
	if n < 0 || r.Len() < n {
		return errorf(TruncatedInput, r.Offset(), "need %d bytes, %d remain", n, r.Len())
	}
	return nil
}

// Peek returns the next byte without consuming it.
func (r *Reader) Peek() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	return r.data[r.pos], nil
}

// Byte consumes one byte.
func (r *Reader) Byte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// Take consumes n bytes and returns them. The slice aliases the input.
func (r *Reader) Take(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Skip discards n bytes.
func (r *Reader) Skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.pos += n
	return nil
}

// Uint reads an n-byte big-endian unsigned integer, 1 <= n <= 4.
func (r *Reader) Uint(n int) (uint32, error) {
	b, err := r.Take(n)
	if err != nil {
		return 0, err
	}
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v, nil
}

// Uint16 reads a big-endian uint16.
func (r *Reader) Uint16() (uint16, error) {
	b, err := r.Take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// Uint32 reads a big-endian uint32.
func (r *Reader) Uint32() (uint32, error) {
	b, err := r.Take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// VLQ reads a variable-length quantity: 7 bits per byte, most significant
// group first, high bit set on every byte but the last.
func (r *Reader) VLQ() (uint32, error) {
	start := r.pos
	var v uint32
	for i := 0; i < maxVLQBytes; i++ {
		b, err := r.Byte()
		if err != nil {
			r.pos = start
			return 0, err
		}
		v = v<<7 | uint32(b&0x7F)
		if b&0x80 == 0 {
			return v, nil
		}
	}
	off := r.base + start
	r.pos = start
	return 0, errorf(MalformedEvent, off, "variable-length quantity longer than %d bytes", maxVLQBytes)
}

// Sub consumes the next n bytes and returns a Reader over just those bytes.
// Offsets reported by the child stay absolute.
func (r *Reader) Sub(n int) (*Reader, error) {
	start := r.Offset()
	b, err := r.Take(n)
	if err != nil {
		return nil, err
	}
	return &Reader{data: b, base: start}, nil
}
