package smf

// trackDecoder holds the mutable state of one linear scan over an MTrk
// chunk: the tick accumulator, the running status byte and the current
// program of each channel.
type trackDecoder struct {
	r       *Reader
	track   int
	tick    uint64
	status  byte
	program [16]uint8
	tempos  *TempoBuilder
	events  []Event
}

// run decodes events until End-of-Track or the end of the chunk. Bytes after
// End-of-Track are ignored; the declared chunk length is authoritative.
func (d *trackDecoder) run() error {
	for d.r.Len() > 0 {
		delta, err := d.r.VLQ()
		if err != nil {
			return err
		}
		d.tick += uint64(delta)

		start := d.r.Offset()
		b, err := d.r.Peek()
		if err != nil {
			return err
		}

		switch {
		case b == 0xFF:
			done, err := d.meta()
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		case b == byte(SysexBegin) || b == byte(SysexEnd):
			if err := d.sysex(EventType(b)); err != nil {
				return err
			}
		case b >= 0xF0:
			if err := d.system(b, start); err != nil {
				return err
			}
		default:
			if err := d.channel(start); err != nil {
				return err
			}
		}
	}
	return nil
}

// meta consumes a meta event. It reports true on End-of-Track.
func (d *trackDecoder) meta() (bool, error) {
	hdr, err := d.r.Take(2)
	if err != nil {
		return false, err
	}
	mtype := hdr[1]
	if mtype == metaEndOfTrack {
		return true, nil
	}
	n, err := d.r.VLQ()
	if err != nil {
		return false, err
	}
	payload, err := d.r.Sub(int(n))
	if err != nil {
		return false, err
	}
	if mtype == metaSetTempo && payload.Len() >= 3 {
		usec, _ := payload.Uint(3)
		d.tempos.Add(d.tick, usec)
	}
	return false, nil
}

func (d *trackDecoder) sysex(t EventType) error {
	if _, err := d.r.Byte(); err != nil {
		return err
	}
	n, err := d.r.VLQ()
	if err != nil {
		return err
	}
	if err := d.r.Skip(int(n)); err != nil {
		return err
	}
	d.events = append(d.events, Event{Tick: d.tick, Track: d.track, Type: t})
	return nil
}

// system skips system common and real-time messages embedded in a track.
func (d *trackDecoder) system(b byte, start int) error {
	var n int
	switch b {
	case 0xF1, 0xF3:
		n = 1
	case 0xF2:
		n = 2
	case 0xF6, 0xF8, 0xFA, 0xFB, 0xFC, 0xFE:
		n = 0
	default:
		return errorf(MalformedEvent, start, "unrecognized status byte 0x%02X", b)
	}
	return d.r.Skip(1 + n)
}

func (d *trackDecoder) channel(start int) error {
	b, _ := d.r.Peek()
	if b >= 0x80 {
		d.status = b
		_ = d.r.Skip(1)
	} else if d.status == 0 {
		return errorf(MalformedEvent, start, "data byte 0x%02X without running status", b)
	}

	t := EventType(d.status & 0xF0)
	ch := d.status & 0x0F

	switch t {
	case NoteOff, NoteOn, PolyAftertouch, ControlChange, PitchBend:
		m, err := d.r.Take(2)
		if err != nil {
			return err
		}
		if m[0] > 127 {
			return errorf(MalformedEvent, d.r.Offset()-2, "data byte 0x%02X > 127", m[0])
		}
		val := clip(m[1])
		if t == NoteOn && val == 0 {
			t = NoteOff
		}
		d.emit(t, ch, m[0], val)
	case ProgramChange:
		p, err := d.r.Byte()
		if err != nil {
			return err
		}
		if p > 127 {
			return nil
		}
		d.program[ch] = p
		d.emit(t, ch, p, 0)
	case ChannelAftertouch:
		p, err := d.r.Byte()
		if err != nil {
			return err
		}
		d.emit(t, ch, 0, clip(p))
	}
	return nil
}

func (d *trackDecoder) emit(t EventType, ch, key, val uint8) {
	d.events = append(d.events, Event{
		Tick:    d.tick,
		Track:   d.track,
		Type:    t,
		Channel: ch,
		Key:     key,
		Value:   val,
		Program: d.program[ch],
	})
}

// clip tolerates out-of-range value bytes written by buggy sequencers.
func clip(b byte) byte {
	if b > 127 {
		return 127
	}
	return b
}
