package converter

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/wrongbad/tensormidi/pkg/tensormidi"
)

// WriteCSV writes a table as CSV with a header row of column names
func WriteCSV(w io.Writer, t *tensormidi.Table) error {
	cw := csv.NewWriter(w)

	header := make([]string, len(t.Layout.Columns))
	for i, c := range t.Layout.Columns {
		header[i] = c.Name
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(t.Layout.Columns))
	for i := 0; i < t.Len; i++ {
		for j, c := range t.Layout.Columns {
			record[j] = formatField(t.Field(i, c))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatField(v any) string {
	switch v := v.(type) {
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return ""
}
