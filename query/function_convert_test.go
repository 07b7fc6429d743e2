package query

import "testing"

func TestConvertFunctions(t *testing.T) {
	runExprCases(t, []exprCase{
		{"str(42)", "42", "str"},
		{"str(1.50)", "1.50", "str"},
		{"str(TRUE)", "TRUE", "str"},
		{"str(2024-01-02)", "2024-01-02", "str"},
		{"int('12')", "12", "int"},
		{"int(' 7 ')", "7", "int"},
		{"int('foo')", "NULL", "int"},
		{"int(3.99)", "3", "int"},
		{"int(-3.99)", "-3", "int"},
		{"int(TRUE)", "1", "int"},
		{"decimal('1.50')", "1.50", "decimal"},
		{"decimal('x')", "NULL", "decimal"},
		{"decimal(FALSE)", "0", "decimal"},
		{"decimal(3)", "3", "decimal"},
		{"bool(0)", "FALSE", "bool"},
		{"bool('x')", "TRUE", "bool"},
		{"bool('')", "FALSE", "bool"},
		{"coalesce(NULL, 'b')", "b", "str"},
		{"coalesce(1, 2.5)", "1", "decimal"},
	})
}

func TestConvertFunctions_Metadata(t *testing.T) {
	rows := Rows{
		MapRow{"meta": Object{"rate": "1.25", "count": int64(3), "note": "hi"}},
	}
	rs := runQuery(t, `SELECT getitem(meta, 'rate') * 2, getitem(meta, 'count') + 1,
		getitem(meta, 'note') + 1, getitem(meta, 'missing'), int(getitem(meta, 'count')),
		str(getitem(meta, 'note'))`, rows)
	want := []string{"2.50", "4", "NULL", "NULL", "3", "hi"}
	if got := render(rs)[0]; !equalStrings(got, want) {
		t.Errorf("row = %v, want %v", got, want)
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		v    Value
		want bool
	}{
		{nil, false},
		{true, true},
		{int64(0), false},
		{int64(-1), true},
		{mustDecimal("0.00"), false},
		{"", false},
		{"x", true},
		{NewDate(2024, 1, 1), true},
		{Set{}, false},
		{NewSet("a"), true},
		{List{nil}, true},
		{Object{}, false},
	}

	for _, tt := range tests {
		if got := truthy(tt.v); got != tt.want {
			t.Errorf("truthy(%#v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}
