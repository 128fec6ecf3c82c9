package smf

import (
	"errors"
	"testing"
)

func TestReaderVLQ(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint32
		used int
	}{
		{"zero", []byte{0x00}, 0, 1},
		{"one byte max", []byte{0x7F}, 0x7F, 1},
		{"two bytes", []byte{0x81, 0x00}, 0x80, 2},
		{"two bytes max", []byte{0xFF, 0x7F}, 0x3FFF, 2},
		{"three bytes", []byte{0x81, 0x80, 0x00}, 0x4000, 3},
		{"four bytes max", []byte{0xFF, 0xFF, 0xFF, 0x7F}, 0x0FFFFFFF, 4},
		{"trailing data untouched", []byte{0x40, 0x90}, 0x40, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(tt.data)
			got, err := r.VLQ()
			if err != nil {
				t.Fatalf("VLQ() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("VLQ() = %#x, want %#x", got, tt.want)
			}
			if r.Offset() != tt.used {
				t.Errorf("Offset() = %d, want %d", r.Offset(), tt.used)
			}
		})
	}
}

func TestReaderVLQErrors(t *testing.T) {
	r := NewReader([]byte{0x81, 0x80})
	if _, err := r.VLQ(); !errors.Is(err, ErrTruncatedInput) {
		t.Errorf("VLQ() on truncated input error = %v, want ErrTruncatedInput", err)
	}
	if r.Offset() != 0 {
		t.Errorf("cursor moved to %d after failed read", r.Offset())
	}

	r = NewReader([]byte{0x80, 0x80, 0x80, 0x80, 0x00})
	if _, err := r.VLQ(); !errors.Is(err, ErrMalformedEvent) {
		t.Errorf("VLQ() on 5-byte quantity error = %v, want ErrMalformedEvent", err)
	}
}

func TestReaderFixedWidth(t *testing.T) {
	r := NewReader([]byte{0x00, 0x06, 0x00, 0x00, 0x01, 0xE0, 0x07, 0xA1, 0x20})

	u16, err := r.Uint16()
	if err != nil || u16 != 6 {
		t.Fatalf("Uint16() = %d, %v; want 6", u16, err)
	}
	u32, err := r.Uint32()
	if err != nil || u32 != 480 {
		t.Fatalf("Uint32() = %d, %v; want 480", u32, err)
	}
	u24, err := r.Uint(3)
	if err != nil || u24 != 500000 {
		t.Fatalf("Uint(3) = %d, %v; want 500000", u24, err)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
	if _, err := r.Byte(); !errors.Is(err, ErrTruncatedInput) {
		t.Errorf("Byte() past end error = %v, want ErrTruncatedInput", err)
	}
}

func TestReaderSubKeepsAbsoluteOffsets(t *testing.T) {
	r := NewReader([]byte{1, 2, 3, 4, 5, 6})
	if err := r.Skip(2); err != nil {
		t.Fatal(err)
	}
	sub, err := r.Sub(3)
	if err != nil {
		t.Fatal(err)
	}
	if sub.Offset() != 2 {
		t.Errorf("sub.Offset() = %d, want 2", sub.Offset())
	}
	if _, err := sub.Take(4); err == nil {
		t.Fatal("Take past sub-reader end succeeded")
	} else {
		var de *DecodeError
		if !errors.As(err, &de) || de.Offset != 2 {
			t.Errorf("error = %v, want DecodeError at offset 2", err)
		}
	}
	if r.Len() != 1 {
		t.Errorf("parent Len() = %d, want 1", r.Len())
	}
}
