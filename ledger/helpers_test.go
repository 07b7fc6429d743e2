package ledger

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vegasq/ledgerql/query"
)

func amount(n, currency string) *Amount {
	return &Amount{Number: decimal.RequireFromString(n), Currency: currency}
}

// testLedger returns three balanced transactions; the first one has an
// elided amount that Balance fills in.
func testLedger(t *testing.T) *Ledger {
	t.Helper()
	l := &Ledger{}
	l.Add(
		&Transaction{
			Date: query.NewDate(2024, 1, 5), Flag: "*", Payee: "Cafe", Narration: "Coffee",
			Tags: []string{"trip"}, Filename: "main.ledger", Lineno: 3,
			Postings: []*Posting{
				{Account: "Expenses:Food", Units: amount("4.50", "USD"), Meta: query.Object{"receipt": "r-1"}},
				{Account: "Assets:Cash"},
			},
		},
		&Transaction{
			Date: query.NewDate(2024, 2, 1), Flag: "!", Narration: "Buy shares",
			Links: []string{"trade-1"}, Filename: "main.ledger", Lineno: 12,
			Postings: []*Posting{
				{Account: "Assets:Broker", Units: amount("10", "HOOL"), Price: amount("50", "USD")},
				{Account: "Assets:Bank:Checking", Units: amount("-500", "USD")},
			},
		},
		&Transaction{
			Date: query.NewDate(2024, 1, 10), Flag: "*", Payee: "Employer", Narration: "Salary",
			Meta: query.Object{"period": "2024-01"}, Filename: "main.ledger", Lineno: 7,
			Postings: []*Posting{
				{Account: "Income:Salary", Units: amount("-1000", "USD")},
				{Account: "Assets:Bank:Checking", Units: amount("1000", "USD")},
			},
		},
	)
	l.Sort()
	if err := l.Balance(); err != nil {
		t.Fatalf("Balance() error = %v", err)
	}
	return l
}

func runQuery(t *testing.T, l *Ledger, text string) *query.ResultSet {
	t.Helper()
	rs, err := execute(t, l, text)
	if err != nil {
		t.Fatalf("%s: %v", text, err)
	}
	return rs
}

func execute(t *testing.T, l *Ledger, text string) (*query.ResultSet, error) {
	t.Helper()
	stmt, err := query.Parse(text)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", text, err)
	}
	if stmt, err = Rewrite(stmt); err != nil {
		return nil, err
	}
	sel, ok := stmt.(*query.SelectStmt)
	if !ok {
		t.Fatalf("%q is not a query", text)
	}
	if sel.From.Narrows() {
		if l, err = l.Narrow(sel.From, nil); err != nil {
			return nil, err
		}
	}
	tables, err := Tables(l, nil)
	if err != nil {
		t.Fatal(err)
	}
	name := sel.From.TableName()
	if name == "" {
		name = PostingsTable
	}
	table, ok := tables[name]
	if !ok {
		t.Fatalf("no table %s", name)
	}
	plan, err := query.Compile(sel, table.Catalog)
	if err != nil {
		return nil, err
	}
	return query.Execute(plan, table.Source)
}

func render(rs *query.ResultSet) [][]string {
	out := make([][]string, len(rs.Rows))
	for i, row := range rs.Rows {
		out[i] = make([]string, len(row))
		for j, v := range row {
			if v == nil {
				out[i][j] = "NULL"
			} else {
				out[i][j] = query.FormatValue(v)
			}
		}
	}
	return out
}

func equalTable(a, b [][]string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}
