package query

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Compile resolves a parsed SELECT against a catalog and produces an
// executable plan. It is a pure function of its inputs: it never touches
// row data, and every type error is reported here rather than at execution.
func Compile(stmt *SelectStmt, cat *Catalog) (*Plan, error) {
	c := &compiler{cat: cat, aggIndex: make(map[string]int)}
	return c.compile(stmt)
}

// Predicate is a compiled row condition.
type Predicate struct {
	expr TypedExpr
	src  string
}

// CompilePredicate compiles a boolean condition over the rows of cat.
// Aggregates are not allowed; clause names the condition in errors.
func CompilePredicate(e Expr, cat *Catalog, clause string) (*Predicate, error) {
	c := &compiler{cat: cat}
	expr, err := c.compileCondition(e, compileCtx{scope: scopeRow, clause: clause})
	if err != nil {
		return nil, err
	}
	return &Predicate{expr: expr, src: Format(e)}, nil
}

// Match evaluates the predicate on row. NULL does not match.
func (p *Predicate) Match(row Row) (bool, error) {
	v, err := eval(p.expr, &evalContext{row: row})
	if err != nil {
		return false, err
	}
	ok, _ := v.(bool)
	return ok, nil
}

// String returns the canonical text of the condition.
func (p *Predicate) String() string {
	return p.src
}

type scope int

const (
	scopeRow   scope = iota // row values are visible, aggregates are not
	scopeGroup              // only group keys and aggregates are visible
)

type compileCtx struct {
	scope  scope
	clause string // for diagnostics: "WHERE", "GROUP BY", ...
	inAgg  bool   // compiling the arguments of an aggregate call
}

type compiler struct {
	cat *Catalog

	groupKeys  []string // canonical text of each group-by expression
	groupTypes []Type
	aggIndex   map[string]int
	aggs       []AggregateSlot
}

func (c *compiler) compile(stmt *SelectStmt) (*Plan, error) {
	if table := stmt.From.TableName(); table != "" && !strings.EqualFold(table, c.cat.Name()) {
		return nil, &CompileError{Kind: ErrUnknownTable, Msg: fmt.Sprintf("no table named %s (available: %s)", table, c.cat.Name())}
	}

	targets := stmt.Targets
	if stmt.Wildcard {
		targets = make([]Target, 0, len(c.cat.columns))
		for _, col := range c.cat.columns {
			targets = append(targets, Target{Expr: &Column{Name: col.Name}})
		}
	}

	plan := &Plan{
		Table:    c.cat.Name(),
		Distinct: stmt.Distinct,
		Limit:    stmt.Limit,
		Offset:   stmt.Offset,
	}

	if stmt.Where != nil {
		filter, err := c.compileCondition(stmt.Where, compileCtx{scope: scopeRow, clause: "WHERE"})
		if err != nil {
			return nil, err
		}
		plan.Filter = filter
	}

	plan.Aggregated = len(stmt.GroupBy) > 0 || stmt.Having != nil
	for _, t := range targets {
		plan.Aggregated = plan.Aggregated || c.hasAggregate(t.Expr)
	}
	for _, o := range stmt.OrderBy {
		plan.Aggregated = plan.Aggregated || c.hasAggregate(o.Expr)
	}

	for _, g := range stmt.GroupBy {
		expr, err := c.resolveGroupItem(g, targets)
		if err != nil {
			return nil, err
		}
		key, err := c.compileExpr(expr, compileCtx{scope: scopeRow, clause: "GROUP BY"})
		if err != nil {
			return nil, err
		}
		plan.GroupBy = append(plan.GroupBy, key)
		c.groupKeys = append(c.groupKeys, Format(expr))
		c.groupTypes = append(c.groupTypes, key.Type())
	}

	ctx := compileCtx{scope: scopeRow, clause: "SELECT"}
	if plan.Aggregated {
		ctx.scope = scopeGroup
	}
	for _, t := range targets {
		expr, err := c.compileExpr(t.Expr, ctx)
		if err != nil {
			return nil, err
		}
		name := t.Alias
		if name == "" {
			name = Format(t.Expr)
		}
		plan.Targets = append(plan.Targets, PlanTarget{Name: name, Expr: expr})
	}

	if stmt.Having != nil {
		having, err := c.compileCondition(stmt.Having, compileCtx{scope: scopeGroup, clause: "HAVING"})
		if err != nil {
			return nil, err
		}
		plan.Having = having
	}

	ctx.clause = "ORDER BY"
	for _, item := range stmt.OrderBy {
		idx, err := c.resolveOrderItem(item.Expr, targets, plan, ctx)
		if err != nil {
			return nil, err
		}
		order := PlanOrder{Target: idx, Desc: item.Desc, NullsFirst: !item.Desc}
		switch item.Nulls {
		case NullsFirst:
			order.NullsFirst = true
		case NullsLast:
			order.NullsFirst = false
		}
		plan.OrderBy = append(plan.OrderBy, order)
	}

	if stmt.Pivot != nil {
		pivot, err := c.resolvePivot(stmt.Pivot, plan)
		if err != nil {
			return nil, err
		}
		plan.Pivot = pivot
	}

	plan.Aggregates = c.aggs
	return plan, nil
}

// hasAggregate reports whether e calls an aggregate function anywhere.
func (c *compiler) hasAggregate(e Expr) bool {
	found := false
	walkExpr(e, func(n Expr) {
		if call, ok := n.(*FuncCall); ok {
			if f, ok := c.cat.Function(call.Name); ok && f.IsAggregate() {
				found = true
			}
		}
	})
	return found
}

// walkExpr calls fn for e and every expression below it.
func walkExpr(e Expr, fn func(Expr)) {
	if e == nil {
		return
	}
	fn(e)
	switch n := e.(type) {
	case *FuncCall:
		for _, a := range n.Args {
			walkExpr(a, fn)
		}
	case *UnaryExpr:
		walkExpr(n.Operand, fn)
	case *BinaryExpr:
		walkExpr(n.Left, fn)
		walkExpr(n.Right, fn)
	case *IsNullExpr:
		walkExpr(n.Operand, fn)
	case *BetweenExpr:
		walkExpr(n.Operand, fn)
		walkExpr(n.Lower, fn)
		walkExpr(n.Upper, fn)
	case *InExpr:
		walkExpr(n.Operand, fn)
		walkExpr(n.Collection, fn)
	case *ListExpr:
		for _, el := range n.Elems {
			walkExpr(el, fn)
		}
	case *CaseExpr:
		for _, w := range n.Whens {
			walkExpr(w.Cond, fn)
			walkExpr(w.Result, fn)
		}
		walkExpr(n.Else, fn)
	}
}

// targetIndex interprets an integer literal as a 1-based target reference.
func targetIndex(e Expr, n int, clause string) (int, bool, error) {
	lit, ok := e.(*Literal)
	if !ok || lit.Kind != TokenInteger {
		return 0, false, nil
	}
	idx := lit.Value.(int64)
	if idx < 1 || idx > int64(n) {
		return 0, true, compileErrorf(ErrInvalidReference, e, "%s index %d out of range (1..%d)", clause, idx, n)
	}
	return int(idx - 1), true, nil
}

// resolveGroupItem maps a GROUP BY item to the expression it groups by:
// a 1-based target index, a target alias, or the expression itself.
// Aliases take precedence over columns of the same name.
func (c *compiler) resolveGroupItem(g Expr, targets []Target) (Expr, error) {
	expr := g
	if idx, ok, err := targetIndex(g, len(targets), "GROUP BY"); err != nil {
		return nil, err
	} else if ok {
		expr = targets[idx].Expr
	} else if col, ok := g.(*Column); ok {
		for _, t := range targets {
			if t.Alias == col.Name {
				expr = t.Expr
				break
			}
		}
	}
	if c.hasAggregate(expr) {
		return nil, compileErrorf(ErrAggregateNotAllowed, g, "aggregates are not allowed in GROUP BY")
	}
	return expr, nil
}

// resolveOrderItem returns the index of the target an ORDER BY item sorts
// by, adding a hidden target when the item matches none.
func (c *compiler) resolveOrderItem(e Expr, targets []Target, plan *Plan, ctx compileCtx) (int, error) {
	if idx, ok, err := targetIndex(e, len(targets), "ORDER BY"); err != nil {
		return 0, err
	} else if ok {
		return idx, nil
	}
	if col, ok := e.(*Column); ok {
		for i, t := range targets {
			if t.Alias == col.Name {
				return i, nil
			}
		}
	}
	text := Format(e)
	for i, t := range targets {
		if Format(t.Expr) == text {
			return i, nil
		}
	}
	if plan.Distinct {
		return 0, compileErrorf(ErrInvalidReference, e, "with DISTINCT, ORDER BY expressions must appear in the select list")
	}
	expr, err := c.compileExpr(e, ctx)
	if err != nil {
		return 0, err
	}
	plan.Targets = append(plan.Targets, PlanTarget{Name: text, Expr: expr, Hidden: true})
	return len(plan.Targets) - 1, nil
}

func (c *compiler) resolvePivot(p *PivotBy, plan *Plan) (*PlanPivot, error) {
	if len(plan.GroupBy) == 0 {
		return nil, &CompileError{Kind: ErrInvalidReference, Msg: "PIVOT BY requires GROUP BY"}
	}
	visible := 0
	for _, t := range plan.Targets {
		if !t.Hidden {
			visible++
		}
	}
	ref := func(e Expr) (int, error) {
		if idx, ok, err := targetIndex(e, visible, "PIVOT BY"); err != nil {
			return 0, err
		} else if ok {
			return idx, nil
		}
		if col, ok := e.(*Column); ok {
			for i, t := range plan.Targets[:visible] {
				if t.Name == col.Name {
					return i, nil
				}
			}
		}
		return 0, compileErrorf(ErrInvalidReference, e, "PIVOT BY must name a target")
	}
	rows, err := ref(p.Rows)
	if err != nil {
		return nil, err
	}
	cols, err := ref(p.Columns)
	if err != nil {
		return nil, err
	}
	if rows == cols {
		return nil, compileErrorf(ErrInvalidReference, p.Columns, "PIVOT BY needs two different targets")
	}
	if visible < 3 {
		return nil, &CompileError{Kind: ErrInvalidReference, Msg: "PIVOT BY needs at least one target besides the pivot keys"}
	}
	return &PlanPivot{Rows: rows, Columns: cols}, nil
}

// compileCondition compiles a WHERE, HAVING or WHEN condition, which must be
// boolean.
func (c *compiler) compileCondition(e Expr, ctx compileCtx) (TypedExpr, error) {
	expr, err := c.compileExpr(e, ctx)
	if err != nil {
		return nil, err
	}
	if !isBoolish(expr.Type()) {
		return nil, compileErrorf(ErrTypeMismatch, e, "%s condition must be bool, not %s", ctx.clause, expr.Type())
	}
	return expr, nil
}

func isBoolish(t Type) bool {
	return t.Kind == KindBool || t.Kind == KindNull || t.Kind == KindAny
}

func (c *compiler) compileExpr(e Expr, ctx compileCtx) (TypedExpr, error) {
	if ctx.scope == scopeGroup && !ctx.inAgg {
		text := Format(e)
		for i, k := range c.groupKeys {
			if k == text {
				return &GroupRef{Index: i, T: c.groupTypes[i], Src: text}, nil
			}
		}
	}

	switch n := e.(type) {
	case *Column:
		if ctx.scope == scopeGroup && !ctx.inAgg {
			if _, ok := c.cat.Column(n.Name); !ok {
				return nil, compileErrorf(ErrUnknownColumn, e, "no column named %s", n.Name)
			}
			return nil, compileErrorf(ErrUngroupedColumn, e, "column %s must appear in GROUP BY or be used in an aggregate", n.Name)
		}
		col, ok := c.cat.Column(n.Name)
		if !ok {
			return nil, compileErrorf(ErrUnknownColumn, e, "no column named %s", n.Name)
		}
		return &ColumnRef{Column: col}, nil

	case *Literal:
		return &Const{Value: n.Value, T: literalType(n)}, nil

	case *FuncCall:
		return c.compileCall(n, ctx)

	case *UnaryExpr:
		return c.compileUnary(n, ctx)

	case *BinaryExpr:
		return c.compileBinary(n, ctx)

	case *IsNullExpr:
		operand, err := c.compileExpr(n.Operand, ctx)
		if err != nil {
			return nil, err
		}
		return &IsNull{Expr: operand, Negate: n.Negate}, nil

	case *BetweenExpr:
		operand, err := c.compileExpr(n.Operand, ctx)
		if err != nil {
			return nil, err
		}
		lower, err := c.compileExpr(n.Lower, ctx)
		if err != nil {
			return nil, err
		}
		upper, err := c.compileExpr(n.Upper, ctx)
		if err != nil {
			return nil, err
		}
		for _, bound := range []TypedExpr{lower, upper} {
			if _, ok := commonType(operand.Type(), bound.Type()); !ok {
				return nil, compileErrorf(ErrTypeMismatch, e, "cannot compare %s with %s", operand.Type(), bound.Type())
			}
		}
		return &Between{Expr: operand, Lower: lower, Upper: upper, Negate: n.Negate}, nil

	case *InExpr:
		operand, err := c.compileExpr(n.Operand, ctx)
		if err != nil {
			return nil, err
		}
		coll, err := c.compileExpr(n.Collection, ctx)
		if err != nil {
			return nil, err
		}
		ct := coll.Type()
		if !ct.IsCollection() && ct.Kind != KindNull && ct.Kind != KindAny {
			return nil, compileErrorf(ErrTypeMismatch, e, "IN needs a set or list, not %s", ct)
		}
		if ct.IsCollection() {
			if _, ok := commonType(operand.Type(), ct.ElemType()); !ok {
				return nil, compileErrorf(ErrTypeMismatch, e, "cannot look up %s in %s", operand.Type(), ct)
			}
		}
		return &In{Expr: operand, Collection: coll, Negate: n.Negate}, nil

	case *ListExpr:
		elems := make([]TypedExpr, len(n.Elems))
		elemType := TypeNull
		for i, el := range n.Elems {
			te, err := c.compileExpr(el, ctx)
			if err != nil {
				return nil, err
			}
			t, ok := commonType(elemType, te.Type())
			if !ok {
				return nil, compileErrorf(ErrTypeMismatch, e, "list mixes %s and %s", elemType, te.Type())
			}
			elems[i], elemType = te, t
		}
		for i := range elems {
			elems[i] = coerceTo(elems[i], elemType)
		}
		return &MakeList{Elems: elems, T: ListOf(elemType)}, nil

	case *CaseExpr:
		return c.compileCase(n, ctx)
	}
	return nil, compileErrorf(ErrTypeMismatch, e, "unsupported expression %T", e)
}

func literalType(l *Literal) Type {
	switch l.Value.(type) {
	case bool:
		return TypeBool
	case int64:
		return TypeInt
	case decimal.Decimal:
		return TypeDecimal
	case string:
		return TypeStr
	case time.Time:
		return TypeDate
	}
	return TypeNull
}

// coerceTo inserts a conversion where the representation changes: int or
// untyped values used as decimals. Constants are converted in place.
func coerceTo(e TypedExpr, t Type) TypedExpr {
	from := e.Type().Kind
	if t.Kind != KindDecimal || (from != KindInt && from != KindAny) {
		return e
	}
	if k, ok := e.(*Const); ok {
		if n, ok := k.Value.(int64); ok {
			return &Const{Value: decimal.NewFromInt(n), T: TypeDecimal}
		}
	}
	return &Coerce{Expr: e, To: TypeDecimal}
}

func (c *compiler) compileCall(n *FuncCall, ctx compileCtx) (TypedExpr, error) {
	f, ok := c.cat.Function(n.Name)
	if !ok {
		return nil, compileErrorf(ErrNoMatchingFunction, n, "unknown function %s", n.Name)
	}
	if n.Star && f.Name != "count" {
		return nil, compileErrorf(ErrNoMatchingFunction, n, "only count accepts *")
	}
	if f.Name == "count" && !n.Star && len(n.Args) == 0 {
		return nil, compileErrorf(ErrNoMatchingFunction, n, "count needs an argument or *")
	}

	if f.IsAggregate() {
		switch {
		case ctx.inAgg:
			return nil, compileErrorf(ErrAggregateNotAllowed, n, "aggregate calls cannot be nested")
		case ctx.scope == scopeRow:
			return nil, compileErrorf(ErrAggregateNotAllowed, n, "aggregates are not allowed in %s", ctx.clause)
		}
		ctx = compileCtx{scope: scopeRow, clause: ctx.clause, inAgg: true}
	}

	args := make([]TypedExpr, len(n.Args))
	for i, a := range n.Args {
		te, err := c.compileExpr(a, ctx)
		if err != nil {
			return nil, err
		}
		args[i] = te
	}

	o, err := resolveOverload(f, args, n)
	if err != nil {
		return nil, err
	}
	for i := range args {
		args[i] = coerceTo(args[i], paramType(o, i))
	}

	src := Format(n)
	if !f.IsAggregate() {
		return &Call{Func: f, Overload: o, Args: args, Src: src}, nil
	}

	slot, ok := c.aggIndex[src]
	if !ok {
		slot = len(c.aggs)
		c.aggIndex[src] = slot
		c.aggs = append(c.aggs, AggregateSlot{Name: src, Func: f, Overload: o, Args: args})
	}
	return &AggregateRef{Slot: slot, T: o.Result, Src: src}, nil
}

func paramType(o *Overload, i int) Type {
	if i >= len(o.Params) {
		return o.Params[len(o.Params)-1]
	}
	return o.Params[i]
}

// resolveOverload picks the overload of f for the argument types: an exact
// match if there is one, otherwise the unique overload reachable with the
// lowest total coercion cost. Ties are rejected as ambiguous.
func resolveOverload(f *Function, args []TypedExpr, n *FuncCall) (*Overload, error) {
	best, bestCost := -1, 0
	tied := false
	for i := range f.Overloads {
		o := &f.Overloads[i]
		if o.Variadic {
			if len(args) < len(o.Params)-1 {
				continue
			}
		} else if len(args) != len(o.Params) {
			continue
		}
		cost, ok := 0, true
		for j, a := range args {
			c, reachable := coercionCost(a.Type(), paramType(o, j))
			if !reachable {
				ok = false
				break
			}
			cost += c
		}
		if !ok {
			continue
		}
		switch {
		case best < 0 || cost < bestCost:
			best, bestCost, tied = i, cost, false
		case cost == bestCost:
			tied = true
		}
	}

	types := make([]string, len(args))
	for i, a := range args {
		types[i] = a.Type().String()
	}
	if best < 0 {
		return nil, compileErrorf(ErrNoMatchingFunction, n, "no overload of %s accepts (%s); candidates: %s",
			f.Name, strings.Join(types, ", "), signatures(f))
	}
	if tied {
		return nil, compileErrorf(ErrNoMatchingFunction, n, "call of %s(%s) is ambiguous; candidates: %s",
			f.Name, strings.Join(types, ", "), signatures(f))
	}
	return &f.Overloads[best], nil
}

func signatures(f *Function) string {
	sigs := make([]string, len(f.Overloads))
	for i := range f.Overloads {
		sigs[i] = f.Name + f.Overloads[i].Signature()
	}
	return strings.Join(sigs, ", ")
}

func (c *compiler) compileUnary(n *UnaryExpr, ctx compileCtx) (TypedExpr, error) {
	operand, err := c.compileExpr(n.Operand, ctx)
	if err != nil {
		return nil, err
	}
	t := operand.Type()
	src := Format(n)
	if n.Operator == TokenNot {
		if !isBoolish(t) {
			return nil, compileErrorf(ErrTypeMismatch, n, "NOT needs a bool operand, not %s", t)
		}
		return &Unary{Op: TokenNot, Expr: operand, T: TypeBool, Src: src}, nil
	}
	switch t.Kind {
	case KindInt, KindDecimal, KindNull:
	case KindAny:
		operand, t = coerceTo(operand, TypeDecimal), TypeDecimal
	default:
		return nil, compileErrorf(ErrTypeMismatch, n, "cannot apply %s to %s", n.Operator, t)
	}
	if n.Operator == TokenPlus {
		return operand, nil
	}
	return &Unary{Op: TokenMinus, Expr: operand, T: t, Src: src}, nil
}

func (c *compiler) compileBinary(n *BinaryExpr, ctx compileCtx) (TypedExpr, error) {
	left, err := c.compileExpr(n.Left, ctx)
	if err != nil {
		return nil, err
	}
	right, err := c.compileExpr(n.Right, ctx)
	if err != nil {
		return nil, err
	}
	lt, rt := left.Type(), right.Type()
	bin := &Binary{Op: n.Operator, Left: left, Right: right, Src: Format(n)}
	mismatch := func() error {
		return compileErrorf(ErrTypeMismatch, n, "operator %s does not apply to %s and %s", n.Operator, lt, rt)
	}

	switch n.Operator {
	case TokenAnd, TokenOr:
		if !isBoolish(lt) || !isBoolish(rt) {
			return nil, mismatch()
		}
		bin.T = TypeBool

	case TokenEqual, TokenNotEqual, TokenLess, TokenLessEqual, TokenGreater, TokenGreaterEqual:
		if _, ok := commonType(lt, rt); !ok {
			return nil, mismatch()
		}
		bin.T = TypeBool

	case TokenMatch, TokenNotMatch:
		for _, t := range []Type{lt, rt} {
			if t.Kind != KindStr && t.Kind != KindNull && t.Kind != KindAny {
				return nil, mismatch()
			}
		}
		if k, ok := right.(*Const); ok {
			if s, ok := k.Value.(string); ok {
				re, err := regexp.Compile(s)
				if err != nil {
					return nil, compileErrorf(ErrInvalidPattern, n.Right, "%v", err)
				}
				bin.Pattern = re
			}
		}
		bin.T = TypeBool

	case TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPercent:
		t, ok := arithmeticType(n.Operator, lt, rt)
		if !ok {
			return nil, mismatch()
		}
		bin.T = t
		if t.Kind == KindDecimal {
			bin.Left, bin.Right = coerceTo(left, TypeDecimal), coerceTo(right, TypeDecimal)
		}

	default:
		return nil, mismatch()
	}
	return bin, nil
}

// arithmeticType returns the result type of an arithmetic operator. Int op
// Int stays Int except for division; any other numeric mix is Decimal. Dates
// shift by a number of days, and two dates subtract to a day count.
func arithmeticType(op TokenType, l, r Type) (Type, bool) {
	lk, rk := l.Kind, r.Kind
	numeric := func(k Kind) bool { return k == KindInt || k == KindDecimal || k == KindNull || k == KindAny }

	switch {
	case lk == KindDate && rk == KindDate:
		return TypeInt, op == TokenMinus
	case lk == KindDate && (rk == KindInt || rk == KindNull):
		return TypeDate, op == TokenPlus || op == TokenMinus
	case lk == KindInt && rk == KindDate:
		return TypeDate, op == TokenPlus
	case lk == KindNull && rk == KindDate:
		return TypeDate, op == TokenPlus
	case !numeric(lk) || !numeric(rk):
		return Type{}, false
	case lk == KindNull && rk == KindNull:
		return TypeNull, true
	case op == TokenSlash:
		return TypeDecimal, true
	case (lk == KindInt || lk == KindNull) && (rk == KindInt || rk == KindNull):
		return TypeInt, true
	}
	return TypeDecimal, true
}

func (c *compiler) compileCase(n *CaseExpr, ctx compileCtx) (TypedExpr, error) {
	out := &Case{}
	resultType := TypeNull
	var results []TypedExpr
	for _, w := range n.Whens {
		condCtx := ctx
		condCtx.clause = "CASE WHEN"
		cond, err := c.compileCondition(w.Cond, condCtx)
		if err != nil {
			return nil, err
		}
		result, err := c.compileExpr(w.Result, ctx)
		if err != nil {
			return nil, err
		}
		out.Whens = append(out.Whens, When{Cond: cond, Result: result})
		results = append(results, result)
	}
	if n.Else != nil {
		result, err := c.compileExpr(n.Else, ctx)
		if err != nil {
			return nil, err
		}
		out.Else = result
		results = append(results, result)
	}
	for _, r := range results {
		t, ok := commonType(resultType, r.Type())
		if !ok {
			return nil, compileErrorf(ErrTypeMismatch, n, "CASE results mix %s and %s", resultType, r.Type())
		}
		resultType = t
	}
	for i := range out.Whens {
		out.Whens[i].Result = coerceTo(out.Whens[i].Result, resultType)
	}
	if out.Else != nil {
		out.Else = coerceTo(out.Else, resultType)
	}
	out.T = resultType
	return out, nil
}
