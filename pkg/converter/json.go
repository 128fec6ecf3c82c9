package converter

import (
	"io"

	"github.com/goccy/go-json"
	"github.com/wrongbad/tensormidi/pkg/tensormidi"
)

// TableDocument is the JSON form of a table: column names plus one array
// of values per row.
type TableDocument struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Document is the JSON form of a whole decode result
type Document struct {
	Format       uint16            `json:"format"`
	TicksPerBeat uint16            `json:"ticks_per_beat"`
	TimeUnit     string            `json:"time_unit"`
	Layout       tensormidi.Layout `json:"layout"`
	Tracks       []TableDocument   `json:"tracks"`
	Tempos       TableDocument     `json:"tempos"`
}

// NewTableDocument converts a table for JSON encoding
func NewTableDocument(t *tensormidi.Table) TableDocument {
	doc := TableDocument{
		Columns: make([]string, len(t.Layout.Columns)),
		Rows:    make([][]any, t.Len),
	}
	for i, c := range t.Layout.Columns {
		doc.Columns[i] = c.Name
	}
	for i := range doc.Rows {
		row := make([]any, len(t.Layout.Columns))
		for j, c := range t.Layout.Columns {
			row[j] = t.Field(i, c)
		}
		doc.Rows[i] = row
	}
	return doc
}

// NewDocument converts a decode result for JSON encoding
func NewDocument(res *tensormidi.Result) *Document {
	doc := &Document{
		Format:       res.Format,
		TicksPerBeat: res.TicksPerBeat,
		TimeUnit:     res.Options.TimeUnit.String(),
		Tracks:       make([]TableDocument, len(res.Tracks)),
		Tempos:       NewTableDocument(res.Tempos),
	}
	if len(res.Tracks) > 0 {
		doc.Layout = res.Tracks[0].Layout
	}
	for i, t := range res.Tracks {
		doc.Tracks[i] = NewTableDocument(t)
	}
	return doc
}

// WriteJSON writes a whole decode result as one JSON document
func WriteJSON(w io.Writer, res *tensormidi.Result) error {
	return json.NewEncoder(w).Encode(NewDocument(res))
}

// WriteTableJSON writes a single table as JSON
func WriteTableJSON(w io.Writer, t *tensormidi.Table) error {
	return json.NewEncoder(w).Encode(NewTableDocument(t))
}
