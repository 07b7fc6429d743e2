package query

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// keyedRow is a MapRow that names itself in execution errors.
type keyedRow struct {
	MapRow
	key string
}

func (r keyedRow) Key() string { return r.key }

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat, err := NewCatalog("postings", []ColumnDef{
		{Name: "account", Type: TypeStr},
		{Name: "date", Type: TypeDate},
		{Name: "year", Type: TypeInt, Extract: func(r Row) (Value, error) {
			v, ok := r.Value("date")
			if !ok || v == nil {
				return nil, nil
			}
			return int64(v.(time.Time).Year()), nil
		}},
		{Name: "number", Type: TypeDecimal},
		{Name: "units", Type: TypeInt},
		{Name: "payee", Type: TypeStr},
		{Name: "tags", Type: SetOf(TypeStr)},
		{Name: "meta", Type: TypeObject},
	}, Builtins())
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	return cat
}

// testRows are six postings of three balanced transactions.
func testRows() Rows {
	return Rows{
		MapRow{"account": "Expenses:Food", "date": NewDate(2024, 1, 5), "number": mustDecimal("10.50"), "units": int64(1), "payee": "Cafe", "tags": NewSet("trip")},
		MapRow{"account": "Assets:Cash", "date": NewDate(2024, 1, 5), "number": mustDecimal("-10.50"), "units": int64(-1), "payee": "Cafe"},
		MapRow{"account": "Expenses:Food", "date": NewDate(2024, 2, 10), "number": mustDecimal("4.25"), "units": int64(2)},
		MapRow{"account": "Assets:Cash", "date": NewDate(2024, 2, 10), "number": mustDecimal("-4.25"), "units": int64(-2)},
		MapRow{"account": "Expenses:Rent", "date": NewDate(2025, 3, 1), "number": mustDecimal("1000"), "units": int64(3), "payee": "Landlord", "meta": Object{"invoice": "A-1"}},
		MapRow{"account": "Assets:Bank", "date": NewDate(2025, 3, 1), "number": mustDecimal("-1000"), "units": int64(-3), "payee": "Landlord"},
	}
}

func compileQuery(t *testing.T, text string) (*Plan, error) {
	t.Helper()
	stmt, err := ParseSelect(text)
	if err != nil {
		t.Fatalf("ParseSelect(%q) error = %v", text, err)
	}
	return Compile(stmt, testCatalog(t))
}

func mustCompile(t *testing.T, text string) *Plan {
	t.Helper()
	plan, err := compileQuery(t, text)
	if err != nil {
		t.Fatalf("Compile(%q) error = %v", text, err)
	}
	return plan
}

func runQuery(t *testing.T, text string, source RowSource) *ResultSet {
	t.Helper()
	rs, err := Execute(mustCompile(t, text), source)
	if err != nil {
		t.Fatalf("Execute(%q) error = %v", text, err)
	}
	return rs
}

// render formats result rows as text, with NULL spelled out.
func render(rs *ResultSet) [][]string {
	out := make([][]string, len(rs.Rows))
	for i, row := range rs.Rows {
		out[i] = make([]string, len(row))
		for j, v := range row {
			if v == nil {
				out[i][j] = "NULL"
			} else {
				out[i][j] = FormatValue(v)
			}
		}
	}
	return out
}

func columnNames(rs *ResultSet) []string {
	names := make([]string, len(rs.Columns))
	for i, c := range rs.Columns {
		names[i] = c.Name
	}
	return names
}

// evalExpr evaluates a constant expression over a single empty row.
func evalExpr(t *testing.T, expr string) (Value, Type, error) {
	t.Helper()
	plan, err := compileQuery(t, "SELECT "+expr)
	if err != nil {
		return nil, Type{}, err
	}
	rs, err := Execute(plan, Rows{MapRow{}})
	if err != nil {
		return nil, plan.Targets[0].Expr.Type(), err
	}
	return rs.Rows[0][0], rs.Columns[0].Type, nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalTable(a, b [][]string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equalStrings(a[i], b[i]) {
			return false
		}
	}
	return true
}
