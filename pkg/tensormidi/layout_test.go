package tensormidi

import "testing"

func TestEventLayout(t *testing.T) {
	tests := []struct {
		name      string
		unit      TimeUnit
		durations bool
		rowSize   int
		dtKind    ColumnKind
		keyOffset int
	}{
		{"ticks with durations", Ticks, true, 16, Uint32, 12},
		{"ticks", Ticks, false, 12, Uint32, 8},
		{"microseconds", Microseconds, false, 16, Uint64, 12},
		{"microseconds with durations", Microseconds, true, 24, Uint64, 20},
		{"seconds with durations", Seconds, true, 24, Float64, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := EventLayout(tt.unit, tt.durations)
			if l.RowSize != tt.rowSize {
				t.Errorf("RowSize = %d, want %d", l.RowSize, tt.rowSize)
			}
			dt, _ := l.Column(ColDt)
			if dt.Kind != tt.dtKind || dt.Offset != 0 {
				t.Errorf("dt column = %+v, want kind %v at 0", dt, tt.dtKind)
			}
			if l.Has(ColDuration) != tt.durations {
				t.Errorf("Has(duration) = %v, want %v", l.Has(ColDuration), tt.durations)
			}
			key, _ := l.Column(ColKey)
			if key.Offset != tt.keyOffset {
				t.Errorf("key offset = %d, want %d", key.Offset, tt.keyOffset)
			}
		})
	}
}

func TestEventLayoutColumnOrder(t *testing.T) {
	want := []string{ColDt, ColDuration, ColProgram, ColTrack, ColType, ColChannel, ColKey, ColValue}
	l := EventLayout(Ticks, true)
	if len(l.Columns) != len(want) {
		t.Fatalf("got %d columns, want %d", len(l.Columns), len(want))
	}
	for i, name := range want {
		if l.Columns[i].Name != name {
			t.Errorf("column %d = %q, want %q", i, l.Columns[i].Name, name)
		}
	}
}

func TestTempoLayout(t *testing.T) {
	tests := []struct {
		unit    TimeUnit
		rowSize int
		second  string
	}{
		{Ticks, 8, ColUsecPerBeat},
		{Microseconds, 16, ColUsecPerBeat},
		{Seconds, 16, ColSecPerBeat},
	}
	for _, tt := range tests {
		t.Run(tt.unit.String(), func(t *testing.T) {
			l := TempoLayout(tt.unit)
			if l.RowSize != tt.rowSize {
				t.Errorf("RowSize = %d, want %d", l.RowSize, tt.rowSize)
			}
			if l.Columns[0].Name != ColTick || l.Columns[1].Name != tt.second {
				t.Errorf("columns = %+v", l.Columns)
			}
		})
	}
}

func TestParseTimeUnit(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeUnit
		wantErr bool
	}{
		{"ticks", Ticks, false},
		{"US", Microseconds, false},
		{"seconds", Seconds, false},
		{"fortnights", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseTimeUnit(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseTimeUnit(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestRemoveNoteOffPolicy(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want bool
	}{
		{"auto without durations", Options{}, false},
		{"auto with durations", Options{Durations: true}, true},
		{"keep with durations", NewOptions(WithDurations(true), WithRemoveNoteOff(false)), false},
		{"remove without durations", NewOptions(WithRemoveNoteOff(true)), true},
	}
	for _, tt := range tests {
		if got := tt.opts.RemoveNoteOff(); got != tt.want {
			t.Errorf("%s: RemoveNoteOff() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
