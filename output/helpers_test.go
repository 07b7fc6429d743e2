package output

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vegasq/ledgerql/query"
)

// sampleResult has one column of each rendering class and a row of NULLs.
func sampleResult() *query.ResultSet {
	return &query.ResultSet{
		Columns: []query.ResultColumn{
			{Name: "account", Type: query.TypeStr},
			{Name: "total", Type: query.TypeDecimal},
			{Name: "n", Type: query.TypeInt},
			{Name: "when", Type: query.TypeDate},
			{Name: "tags", Type: query.SetOf(query.TypeStr)},
		},
		Rows: [][]query.Value{
			{"Assets:Cash", decimal.RequireFromString("1234.56"), int64(3), query.NewDate(2024, 1, 5), query.NewSet("b", "a")},
			{"Café", decimal.RequireFromString("1.5"), nil, nil, query.NewSet()},
		},
	}
}

func emptyResult() *query.ResultSet {
	return &query.ResultSet{
		Columns: []query.ResultColumn{
			{Name: "account", Type: query.TypeStr},
			{Name: "balance", Type: query.TypeDecimal},
		},
	}
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}
