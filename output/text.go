package output

import (
	"bufio"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/vegasq/ledgerql/query"
)

// TextFormatter writes fixed-width columns separated by one space, under a
// header line and a rule of dashes. Each column is as wide as its widest
// cell or header, measured in terminal cells. Numbers are right aligned,
// everything else left aligned. Line breaks inside a cell are escaped as
// \n and \r so every row stays on one line. Trailing spaces are trimmed
// from each line, so a left-aligned last column is not padded out to its
// width.
type TextFormatter struct {
	writer io.Writer
	opts   Options
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer, opts Options) *TextFormatter {
	return &TextFormatter{writer: w, opts: opts}
}

// SetOutput sets the output writer
func (t *TextFormatter) SetOutput(w io.Writer) {
	t.writer = w
}

// Format writes rs as aligned text.
func (t *TextFormatter) Format(rs *query.ResultSet) error {
	names := header(rs)
	cells := records(rs, t.opts)
	for _, rec := range cells {
		for i, c := range rec {
			rec[i] = lineBreaks.Replace(c)
		}
	}

	widths := make([]int, len(names))
	for i, name := range names {
		widths[i] = runewidth.StringWidth(name)
	}
	for _, rec := range cells {
		for i, c := range rec {
			if w := runewidth.StringWidth(c); w > widths[i] {
				widths[i] = w
			}
		}
	}

	bw := bufio.NewWriter(t.writer)
	line := make([]string, len(names))
	for i, name := range names {
		line[i] = pad(name, widths[i], rs.Columns[i].Type.IsNumeric())
	}
	writeLine(bw, line)
	for i, w := range widths {
		line[i] = strings.Repeat("-", w)
	}
	writeLine(bw, line)
	for r, rec := range cells {
		for i, c := range rec {
			right := rs.Columns[i].Type.IsNumeric() || isNumeric(rs.Rows[r][i])
			line[i] = pad(c, widths[i], right)
		}
		writeLine(bw, line)
	}
	return bw.Flush()
}

var lineBreaks = strings.NewReplacer("\n", `\n`, "\r", `\r`)

func pad(s string, width int, right bool) string {
	if right {
		return runewidth.FillLeft(s, width)
	}
	return runewidth.FillRight(s, width)
}

func writeLine(w *bufio.Writer, fields []string) {
	w.WriteString(strings.TrimRight(strings.Join(fields, " "), " "))
	w.WriteByte('\n')
}
