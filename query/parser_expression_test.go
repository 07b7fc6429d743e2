package query

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func parseTestExpr(t *testing.T, text string) Expr {
	t.Helper()
	q, err := ParseSelect("SELECT " + text)
	if err != nil {
		t.Fatalf("ParseSelect(%q) error = %v", text, err)
	}
	return q.Targets[0].Expr
}

func TestParseExpression_Precedence(t *testing.T) {
	tests := []struct {
		name   string
		expr   string
		wantOp TokenType
		left   string
		right  string
	}{
		{"multiplication binds tighter", "1 + 2 * 3", TokenPlus, "1", "2 * 3"},
		{"left associative minus", "1 - 2 - 3", TokenMinus, "1 - 2", "3"},
		{"and binds tighter than or", "a OR b AND c", TokenOr, "a", "b AND c"},
		{"comparison below arithmetic", "a + 1 > b * 2", TokenGreater, "a + 1", "b * 2"},
		{"match operator", "account ~ '^Assets'", TokenMatch, "account", "'^Assets'"},
		{"not match operator", "account !~ 'Cash'", TokenNotMatch, "account", "'Cash'"},
		{"modulo", "a % 2", TokenPercent, "a", "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin, ok := parseTestExpr(t, tt.expr).(*BinaryExpr)
			if !ok {
				t.Fatalf("got %T, want *BinaryExpr", parseTestExpr(t, tt.expr))
			}
			if bin.Operator != tt.wantOp {
				t.Errorf("operator = %v, want %v", bin.Operator, tt.wantOp)
			}
			if got := Format(bin.Left); got != tt.left {
				t.Errorf("left = %q, want %q", got, tt.left)
			}
			if got := Format(bin.Right); got != tt.right {
				t.Errorf("right = %q, want %q", got, tt.right)
			}
		})
	}
}

func TestParseExpression_Literals(t *testing.T) {
	tests := []struct {
		expr string
		want interface{}
	}{
		{"42", int64(42)},
		{"'text'", "text"},
		{"TRUE", true},
		{"false", false},
		{"NULL", nil},
		{"2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			lit, ok := parseTestExpr(t, tt.expr).(*Literal)
			if !ok {
				t.Fatalf("got %T, want *Literal", parseTestExpr(t, tt.expr))
			}
			if lit.Value != tt.want {
				t.Errorf("Value = %#v, want %#v", lit.Value, tt.want)
			}
		})
	}

	lit := parseTestExpr(t, "1.250").(*Literal)
	d, ok := lit.Value.(decimal.Decimal)
	if !ok || DecimalText(d) != "1.250" {
		t.Errorf("decimal literal = %#v, want 1.250 with its scale", lit.Value)
	}
}

func TestParseExpression_Predicates(t *testing.T) {
	in, ok := parseTestExpr(t, "x NOT IN ('a', 'b',)").(*InExpr)
	if !ok || !in.Negate {
		t.Fatalf("got %#v, want negated *InExpr", in)
	}
	list, ok := in.Collection.(*ListExpr)
	if !ok || len(list.Elems) != 2 {
		t.Errorf("collection = %#v, want two-element list", in.Collection)
	}

	if _, ok := parseTestExpr(t, "('a',)").(*ListExpr); !ok {
		t.Error("('a',) should parse as a one-element list")
	}
	if _, ok := parseTestExpr(t, "('a')").(*Literal); !ok {
		t.Error("('a') should parse as a parenthesized literal")
	}

	between, ok := parseTestExpr(t, "date BETWEEN 2024-01-01 AND 2024-12-31").(*BetweenExpr)
	if !ok || between.Negate {
		t.Fatalf("got %#v, want *BetweenExpr", between)
	}

	isNull, ok := parseTestExpr(t, "payee IS NOT NULL").(*IsNullExpr)
	if !ok || !isNull.Negate {
		t.Errorf("got %#v, want negated *IsNullExpr", isNull)
	}

	not, ok := parseTestExpr(t, "NOT NOT a").(*UnaryExpr)
	if !ok || not.Operator != TokenNot {
		t.Fatalf("got %#v, want NOT", not)
	}
	if inner, ok := not.Operand.(*UnaryExpr); !ok || inner.Operator != TokenNot {
		t.Errorf("operand = %#v, want nested NOT", not.Operand)
	}
}

func TestParseExpression_Calls(t *testing.T) {
	call, ok := parseTestExpr(t, "count(*)").(*FuncCall)
	if !ok || !call.Star || len(call.Args) != 0 {
		t.Errorf("count(*) = %#v", call)
	}

	call, ok = parseTestExpr(t, "Round(number, 2)").(*FuncCall)
	if !ok || call.Name != "round" || len(call.Args) != 2 {
		t.Errorf("round(number, 2) = %#v", call)
	}

	call, ok = parseTestExpr(t, "today()").(*FuncCall)
	if !ok || len(call.Args) != 0 || call.Star {
		t.Errorf("today() = %#v", call)
	}

	c, ok := parseTestExpr(t, "CASE WHEN a THEN 1 WHEN b THEN 2 END").(*CaseExpr)
	if !ok || len(c.Whens) != 2 || c.Else != nil {
		t.Errorf("case = %#v", c)
	}
}
