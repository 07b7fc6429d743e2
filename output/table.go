package output

import (
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/vegasq/ledgerql/query"
)

// TableFormatter draws a boxed table.
type TableFormatter struct {
	writer io.Writer
	opts   Options
}

// NewTableFormatter creates a new boxed table formatter
func NewTableFormatter(w io.Writer, opts Options) *TableFormatter {
	return &TableFormatter{writer: w, opts: opts}
}

// SetOutput sets the output writer
func (t *TableFormatter) SetOutput(w io.Writer) {
	t.writer = w
}

// Format writes rs as a boxed table. Headers are kept as written.
func (t *TableFormatter) Format(rs *query.ResultSet) error {
	table := tablewriter.NewWriter(t.writer)
	table.SetHeader(header(rs))
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)

	align := make([]int, len(rs.Columns))
	for i, c := range rs.Columns {
		align[i] = tablewriter.ALIGN_LEFT
		if c.Type.IsNumeric() {
			align[i] = tablewriter.ALIGN_RIGHT
		}
	}
	table.SetColumnAlignment(align)
	table.AppendBulk(records(rs, t.opts))
	table.Render()
	return nil
}
