package converter

import (
	"bytes"
	"fmt"
	"math"

	"github.com/wrongbad/tensormidi/pkg/smf"
	"github.com/wrongbad/tensormidi/pkg/tensormidi"
	gosmf "gitlab.com/gomidi/midi/v2/smf"
)

// CheckReport lists the differences found between the tensormidi decoder
// and gomidi's SMF reader for one file
type CheckReport struct {
	Tracks     int      `json:"tracks"`
	Events     int      `json:"events"`
	Tempos     int      `json:"tempos"`
	Mismatches []string `json:"mismatches,omitempty"`
}

// OK reports whether both readers agreed
func (r *CheckReport) OK() bool {
	return len(r.Mismatches) == 0
}

func (r *CheckReport) addf(format string, args ...any) {
	r.Mismatches = append(r.Mismatches, fmt.Sprintf(format, args...))
}

// referenceTrack is what gomidi reports for one track
type referenceTrack struct {
	channelEvents int
	lastTick      uint64
}

// CrossCheck decodes data with both readers and compares per-track channel
// event counts, the tick of each track's last channel event, and the tempo
// map built from the Set-Tempo events each reader found.
func CrossCheck(data []byte) (*CheckReport, error) {
	ref, err := gosmf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("reference reader: %w", err)
	}

	res, err := tensormidi.Decode(data, tensormidi.Options{TimeUnit: tensormidi.Ticks})
	if err != nil {
		return nil, err
	}

	tracks := make([]referenceTrack, len(ref.Tracks))
	var tempos []smf.Tempo
	for i, track := range ref.Tracks {
		var tick uint64
		for _, ev := range track {
			tick += uint64(ev.Delta)
			msg := ev.Message

			var bpm float64
			if msg.GetMetaTempo(&bpm) && bpm > 0 {
				tempos = append(tempos, smf.Tempo{
					Tick:        tick,
					UsecPerBeat: uint32(math.Round(60000000 / bpm)),
				})
				continue
			}

			// channel voice messages: status 0x80-0xEF
			if len(msg) > 0 && msg[0] >= 0x80 && msg[0] < 0xF0 {
				tracks[i].channelEvents++
				tracks[i].lastTick = tick
			}
		}
	}

	report := &CheckReport{Tracks: len(res.Tracks), Tempos: len(tempos)}
	if len(res.Tracks) != len(ref.Tracks) {
		report.addf("track count: decoded %d, reference %d", len(res.Tracks), len(ref.Tracks))
	}

	for i := 0; i < min(len(res.Tracks), len(tracks)); i++ {
		rows, err := tensormidi.Rows[uint64](res.Tracks[i])
		if err != nil {
			return nil, err
		}
		var n int
		var tick, last uint64
		for _, r := range rows {
			tick += r.Dt
			if r.Type < smf.SysexBegin {
				n++
				last = tick
			}
		}
		report.Events += n

		if n != tracks[i].channelEvents {
			report.addf("track %d: decoded %d channel events, reference %d", i, n, tracks[i].channelEvents)
		}
		if n > 0 && last != tracks[i].lastTick {
			report.addf("track %d: last channel event at tick %d, reference %d", i, last, tracks[i].lastTick)
		}
	}

	decoded, err := res.Tempos.Tempos()
	if err != nil {
		return nil, err
	}
	var b smf.TempoBuilder
	for _, t := range tempos {
		b.Add(t.Tick, t.UsecPerBeat)
	}
	want := b.Build(res.TicksPerBeat).Entries()
	if len(decoded) != len(want) {
		report.addf("tempo map: decoded %d entries, reference %d", len(decoded), len(want))
		return report, nil
	}
	for i := range want {
		if decoded[i] != want[i] {
			report.addf("tempo entry %d: decoded %+v, reference %+v", i, decoded[i], want[i])
		}
	}
	return report, nil
}
