package converter

import (
	"sort"

	"github.com/wrongbad/tensormidi/pkg/smf"
	"github.com/wrongbad/tensormidi/pkg/tensormidi"
)

// Inspect decodes data and summarizes it per track. Track lengths are
// measured in seconds through the tempo map.
func Inspect(data []byte) (*Info, error) {
	res, err := tensormidi.Decode(data, tensormidi.Options{TimeUnit: tensormidi.Seconds})
	if err != nil {
		return nil, err
	}
	tempos, err := res.Tempos.Tempos()
	if err != nil {
		return nil, err
	}

	info := &Info{
		Format:       res.Format,
		TicksPerBeat: res.TicksPerBeat,
		Tempos:       tempos,
		Tracks:       make([]TrackInfo, len(res.Tracks)),
	}

	for i, t := range res.Tracks {
		rows, err := tensormidi.Rows[float64](t)
		if err != nil {
			return nil, err
		}
		ti := TrackInfo{Index: i, Events: len(rows)}
		seen := make(map[uint8]bool)
		for _, r := range rows {
			ti.Seconds += r.Dt
			if r.Type == smf.NoteOn {
				ti.Notes++
			}
			if r.Type < smf.SysexBegin && !seen[r.Channel] {
				seen[r.Channel] = true
				ti.Channels = append(ti.Channels, r.Channel)
			}
		}
		sort.Slice(ti.Channels, func(a, b int) bool { return ti.Channels[a] < ti.Channels[b] })
		info.Seconds = max(info.Seconds, ti.Seconds)
		info.Tracks[i] = ti
	}
	return info, nil
}
