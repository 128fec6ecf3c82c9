package converter

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/wrongbad/tensormidi/pkg/tensormidi"
)

var npyMagic = []byte("\x93NUMPY")

// npyAlign is the alignment numpy expects for the end of the header.
const npyAlign = 64

// WriteNPY writes a table as a version 1.0 .npy file holding a 1-D
// structured array. Row padding is declared as unnamed void fields so the
// dtype itemsize equals the layout's row size.
func WriteNPY(w io.Writer, t *tensormidi.Table) error {
	header := npyHeader(t)
	if len(header) > 0xFFFF {
		return fmt.Errorf("npy header too long: %d bytes", len(header))
	}

	pre := make([]byte, 0, 10)
	pre = append(pre, npyMagic...)
	pre = append(pre, 1, 0)
	pre = binary.LittleEndian.AppendUint16(pre, uint16(len(header)))

	for _, b := range [][]byte{pre, []byte(header), t.Data} {
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	return nil
}

func npyHeader(t *tensormidi.Table) string {
	var descr []string
	pos := 0
	for _, c := range t.Layout.Columns {
		if c.Offset > pos {
			descr = append(descr, fmt.Sprintf("('', '|V%d')", c.Offset-pos))
		}
		descr = append(descr, fmt.Sprintf("('%s', '%s')", c.Name, c.Kind.NumpyType()))
		pos = c.Offset + c.Kind.Size()
	}
	if pos < t.Layout.RowSize {
		descr = append(descr, fmt.Sprintf("('', '|V%d')", t.Layout.RowSize-pos))
	}

	dict := fmt.Sprintf("{'descr': [%s], 'fortran_order': False, 'shape': (%d,), }",
		strings.Join(descr, ", "), t.Len)

	// magic(6) + version(2) + length(2) + dict + padding + '\n'
	total := 10 + len(dict) + 1
	if rem := total % npyAlign; rem != 0 {
		dict += strings.Repeat(" ", npyAlign-rem)
	}
	return dict + "\n"
}
