package smf

import "fmt"

// EventType is the MIDI status nibble of an event (channel bits cleared), or
// the full status byte for sysex.
type EventType uint8

const (
	NoteOff           EventType = 0x80
	NoteOn            EventType = 0x90
	PolyAftertouch    EventType = 0xA0
	ControlChange     EventType = 0xB0
	ProgramChange     EventType = 0xC0
	ChannelAftertouch EventType = 0xD0
	PitchBend         EventType = 0xE0
	SysexBegin        EventType = 0xF0
	SysexEnd          EventType = 0xF7
)

func (t EventType) String() string {
	switch t {
	case NoteOff:
		return "note_off"
	case NoteOn:
		return "note_on"
	case PolyAftertouch:
		return "poly_aftertouch"
	case ControlChange:
		return "control"
	case ProgramChange:
		return "program"
	case ChannelAftertouch:
		return "channel_aftertouch"
	case PitchBend:
		return "pitch_bend"
	case SysexBegin:
		return "sysex_begin"
	case SysexEnd:
		return "sysex_end"
	default:
		return fmt.Sprintf("0x%02X", uint8(t))
	}
}

// IsNote reports whether t is Note-On or Note-Off.
func (t EventType) IsNote() bool {
	return t == NoteOn || t == NoteOff
}

// Event is one decoded track event at an absolute tick. Every kind shares
// this shape; Key and Value hold the two data bytes when the kind has them.
//
//	note_on/note_off     Key=note       Value=velocity
//	poly_aftertouch      Key=note       Value=pressure
//	control              Key=controller Value=value
//	program              Key=program    Value=0
//	channel_aftertouch   Key=0          Value=pressure
//	pitch_bend           Key=lsb        Value=msb
//	sysex_begin/end      all zero
type Event struct {
	Tick    uint64
	Track   int
	Type    EventType
	Channel uint8
	Key     uint8
	Value   uint8
	Program uint8 // program active on (Track, Channel) when the event occurred
}
