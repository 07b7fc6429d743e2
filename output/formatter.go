package output

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/vegasq/ledgerql/query"
)

// Formatter defines the interface for output formatters.
type Formatter interface {
	// Format writes the result set in the formatter's format.
	Format(rs *query.ResultSet) error

	// SetOutput changes the output writer.
	SetOutput(w io.Writer)
}

// Options control how values are rendered.
type Options struct {
	// Precision fixes the number of fractional digits of decimals. A
	// negative value infers it per column from the data.
	Precision int
	// Null is the text written for NULL cells.
	Null string
}

// DefaultOptions infers precision and renders NULL as an empty cell.
func DefaultOptions() Options {
	return Options{Precision: -1}
}

// MaxPrecision bounds Options.Precision.
const MaxPrecision = 32

var constructors = map[string]func(io.Writer, Options) Formatter{
	"text":  func(w io.Writer, o Options) Formatter { return NewTextFormatter(w, o) },
	"table": func(w io.Writer, o Options) Formatter { return NewTableFormatter(w, o) },
	"csv":   func(w io.Writer, o Options) Formatter { return NewCSVFormatter(w, o) },
	"tsv":   func(w io.Writer, o Options) Formatter { return NewTSVFormatter(w, o) },
	"json":  func(w io.Writer, o Options) Formatter { return NewJSONFormatter(w, o) },
	"jsonl": func(w io.Writer, o Options) Formatter { return NewJSONLFormatter(w, o) },
}

// Formats lists the supported format names.
func Formats() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewFormatter returns the formatter registered under format. Names are
// case-insensitive.
func NewFormatter(format string, w io.Writer, opts Options) (Formatter, error) {
	newFormatter, ok := constructors[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return nil, &ConfigurationError{
			Option: "format",
			Value:  format,
			Err:    fmt.Errorf("%w (supported: %s)", ErrUnsupportedFormat, strings.Join(Formats(), ", ")),
		}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return newFormatter(w, opts), nil
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.Precision > MaxPrecision {
		return &ConfigurationError{
			Option: "precision",
			Value:  strconv.Itoa(o.Precision),
			Err:    fmt.Errorf("must be at most %d", MaxPrecision),
		}
	}
	if strings.ContainsAny(o.Null, "\r\n") {
		return &ConfigurationError{
			Option: "null",
			Value:  o.Null,
			Err:    errors.New("must not contain line breaks"),
		}
	}
	return nil
}

// Render formats rs onto w in one call.
func Render(rs *query.ResultSet, format string, w io.Writer, opts Options) error {
	f, err := NewFormatter(format, w, opts)
	if err != nil {
		return err
	}
	return f.Format(rs)
}
