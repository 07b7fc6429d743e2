package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/vegasq/ledgerql/query"
)

// CSVFormatter outputs rows as delimited records with a header row.
type CSVFormatter struct {
	writer io.Writer
	opts   Options
	comma  rune
}

// NewCSVFormatter creates a new comma separated formatter
func NewCSVFormatter(w io.Writer, opts Options) *CSVFormatter {
	return &CSVFormatter{writer: w, opts: opts, comma: ','}
}

// NewTSVFormatter creates a new tab separated formatter
func NewTSVFormatter(w io.Writer, opts Options) *CSVFormatter {
	return &CSVFormatter{writer: w, opts: opts, comma: '\t'}
}

// SetOutput sets the output writer
func (c *CSVFormatter) SetOutput(w io.Writer) {
	c.writer = w
}

// Format writes rs as CSV. Fields holding the delimiter, quotes or line
// breaks are quoted.
func (c *CSVFormatter) Format(rs *query.ResultSet) error {
	csvWriter := csv.NewWriter(c.writer)
	csvWriter.Comma = c.comma

	if err := csvWriter.Write(header(rs)); err != nil {
		return err
	}

	for r, rec := range records(rs, c.opts) {
		for i, field := range rec {
			if _, ok := rs.Rows[r][i].(string); ok {
				rec[i] = sanitize(field)
			}
		}
		if err := csvWriter.Write(rec); err != nil {
			return err
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return nil
}

// sanitize defuses text that spreadsheet applications would run as a
// formula by prefixing it with a quote.
func sanitize(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '\n', '|':
		return "'" + strings.ReplaceAll(s, "'", "''")
	}
	return s
}
