package output

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vegasq/ledgerql/query"
)

// precisions returns the number of fractional digits used for the decimals
// of each column.
func precisions(rs *query.ResultSet, opts Options) []int {
	out := make([]int, len(rs.Columns))
	for i := range out {
		if opts.Precision >= 0 {
			out[i] = opts.Precision
			continue
		}
		for _, row := range rs.Rows {
			if d, ok := row[i].(decimal.Decimal); ok {
				if s := int(query.Scale(d)); s > out[i] {
					out[i] = s
				}
			}
		}
	}
	return out
}

// cell renders one value for the delimited and fixed-width formats.
func cell(v query.Value, prec int, opts Options) string {
	switch x := v.(type) {
	case nil:
		return opts.Null
	case decimal.Decimal:
		return formatDecimal(x, prec, opts)
	case query.Set:
		return joinCells(x, prec, opts)
	case query.List:
		return joinCells(x, prec, opts)
	}
	return query.FormatValue(v)
}

// formatDecimal pads d to prec fractional digits. A fixed precision from
// the options rounds half to even instead.
func formatDecimal(d decimal.Decimal, prec int, opts Options) string {
	if opts.Precision >= 0 {
		return d.StringFixedBank(int32(opts.Precision))
	}
	if prec < int(query.Scale(d)) {
		return query.DecimalText(d)
	}
	return d.StringFixed(int32(prec))
}

func joinCells(vals []query.Value, prec int, opts Options) string {
	parts := make([]string, len(vals))
	for i, e := range vals {
		parts[i] = cell(e, prec, opts)
	}
	return strings.Join(parts, ", ")
}

func isNumeric(v query.Value) bool {
	switch v.(type) {
	case int64, decimal.Decimal:
		return true
	}
	return false
}

// records renders every cell of rs as text.
func records(rs *query.ResultSet, opts Options) [][]string {
	prec := precisions(rs, opts)
	out := make([][]string, len(rs.Rows))
	for i, row := range rs.Rows {
		rec := make([]string, len(row))
		for j, v := range row {
			rec[j] = cell(v, prec[j], opts)
		}
		out[i] = rec
	}
	return out
}

func header(rs *query.ResultSet) []string {
	names := make([]string, len(rs.Columns))
	for i, c := range rs.Columns {
		names[i] = c.Name
	}
	return names
}
