package query

import (
	"fmt"
	"regexp"
	"strings"
)

// TypedExpr is a compiled, typed expression. The set of implementations is
// closed; eval switches over all of them.
type TypedExpr interface {
	Type() Type
	typedNode()
}

// Const is a constant value.
type Const struct {
	Value Value
	T     Type
}

// ColumnRef reads a catalog column from the current row.
type ColumnRef struct {
	Column *ColumnDef
}

// Coerce converts its operand to type To: int to decimal, or an untyped
// value to decimal for arithmetic.
type Coerce struct {
	Expr TypedExpr
	To   Type
}

// Unary is NOT, negation or unary plus.
type Unary struct {
	Op   TokenType
	Expr TypedExpr
	T    Type
	Src  string
}

// Binary is a logical, comparison, match or arithmetic operator. Pattern is
// set when the right operand of ~ or !~ is a constant.
type Binary struct {
	Op          TokenType
	Left, Right TypedExpr
	T           Type
	Pattern     *regexp.Regexp
	Src         string
}

// IsNull tests for NULL.
type IsNull struct {
	Expr   TypedExpr
	Negate bool
}

// Between tests lower <= expr <= upper.
type Between struct {
	Expr, Lower, Upper TypedExpr
	Negate             bool
}

// In tests membership of a set or list.
type In struct {
	Expr, Collection TypedExpr
	Negate           bool
}

// When is one arm of a Case.
type When struct {
	Cond, Result TypedExpr
}

// Case evaluates to the result of the first arm whose condition holds.
type Case struct {
	Whens []When
	Else  TypedExpr // nil means NULL
	T     Type
}

// MakeList builds a list value.
type MakeList struct {
	Elems []TypedExpr
	T     Type
}

// Call invokes a scalar function overload.
type Call struct {
	Func     *Function
	Overload *Overload
	Args     []TypedExpr
	Src      string
}

// AggregateRef reads the finalized value of an aggregate slot of the
// current group.
type AggregateRef struct {
	Slot int
	T    Type
	Src  string
}

// GroupRef reads a group-by key of the current group.
type GroupRef struct {
	Index int
	T     Type
	Src   string
}

func (e *Const) Type() Type        { return e.T }
func (e *ColumnRef) Type() Type    { return e.Column.Type }
func (e *Coerce) Type() Type       { return e.To }
func (e *Unary) Type() Type        { return e.T }
func (e *Binary) Type() Type       { return e.T }
func (e *IsNull) Type() Type       { return TypeBool }
func (e *Between) Type() Type      { return TypeBool }
func (e *In) Type() Type           { return TypeBool }
func (e *Case) Type() Type         { return e.T }
func (e *MakeList) Type() Type     { return e.T }
func (e *Call) Type() Type         { return e.Overload.Result }
func (e *AggregateRef) Type() Type { return e.T }
func (e *GroupRef) Type() Type     { return e.T }

func (*Const) typedNode()        {}
func (*ColumnRef) typedNode()    {}
func (*Coerce) typedNode()       {}
func (*Unary) typedNode()        {}
func (*Binary) typedNode()       {}
func (*IsNull) typedNode()       {}
func (*Between) typedNode()      {}
func (*In) typedNode()           {}
func (*Case) typedNode()         {}
func (*MakeList) typedNode()     {}
func (*Call) typedNode()         {}
func (*AggregateRef) typedNode() {}
func (*GroupRef) typedNode()     {}

// PlanTarget is one output expression. Hidden targets exist only to sort by
// and are dropped from the result.
type PlanTarget struct {
	Name   string
	Expr   TypedExpr
	Hidden bool
}

// PlanOrder sorts by the value of a target.
type PlanOrder struct {
	Target     int
	Desc       bool
	NullsFirst bool
}

// AggregateSlot is one distinct aggregate call; identical calls share a
// slot.
type AggregateSlot struct {
	Name     string // canonical text of the call
	Func     *Function
	Overload *Overload
	Args     []TypedExpr
}

// PlanPivot reshapes the result: one row per value of the Rows target, one
// column per value of the Columns target.
type PlanPivot struct {
	Rows    int
	Columns int
}

// Plan is a compiled SELECT. It is immutable and may be executed any number
// of times.
type Plan struct {
	Table      string
	Targets    []PlanTarget
	Filter     TypedExpr
	GroupBy    []TypedExpr
	Having     TypedExpr
	OrderBy    []PlanOrder
	Distinct   bool
	Limit      *int64
	Offset     *int64
	Aggregates []AggregateSlot
	Aggregated bool
	Pivot      *PlanPivot
}

// Columns returns the output schema, without hidden targets.
func (p *Plan) Columns() []ResultColumn {
	var cols []ResultColumn
	for _, t := range p.Targets {
		if !t.Hidden {
			cols = append(cols, ResultColumn{Name: t.Name, Type: t.Expr.Type()})
		}
	}
	return cols
}

// Explain renders the plan as an indented tree.
func (p *Plan) Explain() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scan %s\n", p.Table)
	if p.Filter != nil {
		fmt.Fprintf(&b, "  Filter %s\n", Describe(p.Filter))
	}
	if p.Aggregated {
		keys := make([]string, len(p.GroupBy))
		for i, k := range p.GroupBy {
			keys[i] = Describe(k)
		}
		if len(keys) == 0 {
			b.WriteString("  Aggregate (single group)\n")
		} else {
			fmt.Fprintf(&b, "  Aggregate by %s\n", strings.Join(keys, ", "))
		}
		for i, a := range p.Aggregates {
			fmt.Fprintf(&b, "    $%d = %s%s -> %s\n", i, a.Func.Name, a.Overload.Signature(), a.Overload.Result)
		}
		if p.Having != nil {
			fmt.Fprintf(&b, "  Having %s\n", Describe(p.Having))
		}
	}
	b.WriteString("  Project\n")
	for _, t := range p.Targets {
		hidden := ""
		if t.Hidden {
			hidden = " (hidden)"
		}
		fmt.Fprintf(&b, "    %s: %s = %s%s\n", QuoteIdent(t.Name), t.Expr.Type(), Describe(t.Expr), hidden)
	}
	if p.Distinct {
		b.WriteString("  Distinct\n")
	}
	if len(p.OrderBy) > 0 {
		items := make([]string, len(p.OrderBy))
		for i, o := range p.OrderBy {
			items[i] = QuoteIdent(p.Targets[o.Target].Name)
			if o.Desc {
				items[i] += " DESC"
			}
			if o.NullsFirst {
				items[i] += " NULLS FIRST"
			} else {
				items[i] += " NULLS LAST"
			}
		}
		fmt.Fprintf(&b, "  Sort %s\n", strings.Join(items, ", "))
	}
	if p.Limit != nil || p.Offset != nil {
		var off, lim string
		if p.Offset != nil {
			off = fmt.Sprintf(" offset %d", *p.Offset)
		}
		if p.Limit != nil {
			lim = fmt.Sprintf(" limit %d", *p.Limit)
		}
		fmt.Fprintf(&b, "  Slice%s%s\n", lim, off)
	}
	if p.Pivot != nil {
		fmt.Fprintf(&b, "  Pivot by %s, %s\n", QuoteIdent(p.Targets[p.Pivot.Rows].Name), QuoteIdent(p.Targets[p.Pivot.Columns].Name))
	}
	return b.String()
}

// Describe renders a typed expression for plans and diagnostics.
func Describe(e TypedExpr) string {
	switch n := e.(type) {
	case *Const:
		return FormatLiteral(&Literal{Value: n.Value})
	case *ColumnRef:
		return QuoteIdent(n.Column.Name)
	case *Coerce:
		return fmt.Sprintf("%s(%s)", n.To, Describe(n.Expr))
	case *Unary:
		return n.Src
	case *Binary:
		return n.Src
	case *IsNull:
		if n.Negate {
			return Describe(n.Expr) + " IS NOT NULL"
		}
		return Describe(n.Expr) + " IS NULL"
	case *Between:
		not := ""
		if n.Negate {
			not = "NOT "
		}
		return fmt.Sprintf("%s %sBETWEEN %s AND %s", Describe(n.Expr), not, Describe(n.Lower), Describe(n.Upper))
	case *In:
		not := ""
		if n.Negate {
			not = "NOT "
		}
		return fmt.Sprintf("%s %sIN %s", Describe(n.Expr), not, Describe(n.Collection))
	case *Case:
		var b strings.Builder
		b.WriteString("CASE")
		for _, w := range n.Whens {
			fmt.Fprintf(&b, " WHEN %s THEN %s", Describe(w.Cond), Describe(w.Result))
		}
		if n.Else != nil {
			fmt.Fprintf(&b, " ELSE %s", Describe(n.Else))
		}
		b.WriteString(" END")
		return b.String()
	case *MakeList:
		parts := make([]string, len(n.Elems))
		for i, el := range n.Elems {
			parts[i] = Describe(el)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case *Call:
		return n.Src
	case *AggregateRef:
		return fmt.Sprintf("$%d", n.Slot)
	case *GroupRef:
		return fmt.Sprintf("key%d", n.Index)
	}
	return "?"
}
