package output

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vegasq/ledgerql/query"
)

// JSONFormatter writes rows as JSON objects whose keys follow the column
// order, either as one array or as JSON Lines.
type JSONFormatter struct {
	writer io.Writer
	opts   Options
	lines  bool
}

// NewJSONFormatter creates a formatter writing a single JSON array
func NewJSONFormatter(w io.Writer, opts Options) *JSONFormatter {
	return &JSONFormatter{writer: w, opts: opts}
}

// NewJSONLFormatter creates a JSON Lines formatter (one object per line)
func NewJSONLFormatter(w io.Writer, opts Options) *JSONFormatter {
	return &JSONFormatter{writer: w, opts: opts, lines: true}
}

// SetOutput sets the output writer
func (j *JSONFormatter) SetOutput(w io.Writer) {
	j.writer = w
}

// Format writes rs as JSON. Decimals are numbers, dates are strings and
// NULL is null.
func (j *JSONFormatter) Format(rs *query.ResultSet) error {
	prec := precisions(rs, j.opts)
	keys := make([][]byte, len(rs.Columns))
	for i, c := range rs.Columns {
		k, err := json.Marshal(c.Name)
		if err != nil {
			return err
		}
		keys[i] = k
	}

	bw := bufio.NewWriter(j.writer)
	if !j.lines {
		bw.WriteString("[")
	}
	var obj bytes.Buffer
	for r, row := range rs.Rows {
		obj.Reset()
		obj.WriteByte('{')
		for i, v := range row {
			if i > 0 {
				obj.WriteByte(',')
			}
			obj.Write(keys[i])
			obj.WriteByte(':')
			if err := writeJSON(&obj, v, prec[i], j.opts); err != nil {
				return err
			}
		}
		obj.WriteByte('}')

		switch {
		case j.lines:
		case r == 0:
			bw.WriteString("\n")
		default:
			bw.WriteString(",\n")
		}
		bw.Write(obj.Bytes())
		if j.lines {
			bw.WriteByte('\n')
		}
	}
	if !j.lines {
		if len(rs.Rows) > 0 {
			bw.WriteString("\n")
		}
		bw.WriteString("]\n")
	}
	return bw.Flush()
}

func writeJSON(b *bytes.Buffer, v query.Value, prec int, opts Options) error {
	switch x := v.(type) {
	case nil:
		b.WriteString("null")
	case decimal.Decimal:
		b.WriteString(formatDecimal(x, prec, opts))
	case time.Time:
		b.WriteString(`"` + query.FormatValue(x) + `"`)
	case query.Set:
		return writeJSONArray(b, x, prec, opts)
	case query.List:
		return writeJSONArray(b, x, prec, opts)
	case query.Object:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			b.Write(kb)
			b.WriteByte(':')
			if err := writeJSON(b, x[k], -1, DefaultOptions()); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return err
		}
		b.Write(data)
	}
	return nil
}

func writeJSONArray(b *bytes.Buffer, vals []query.Value, prec int, opts Options) error {
	b.WriteByte('[')
	for i, e := range vals {
		if i > 0 {
			b.WriteByte(',')
		}
		if err := writeJSON(b, e, prec, opts); err != nil {
			return err
		}
	}
	b.WriteByte(']')
	return nil
}
