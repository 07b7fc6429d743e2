package query

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// evalContext is what an expression sees while it is evaluated: a source
// row during the scan, or the keys and finalized aggregates of a group.
type evalContext struct {
	row     Row
	ordinal int64
	keys    []Value
	aggs    []Value
}

// rowKey identifies the row or group being evaluated in error messages.
func (ctx *evalContext) rowKey() string {
	if ctx.row == nil {
		return "group (" + joinValues(ctx.keys) + ")"
	}
	if k, ok := ctx.row.(Keyed); ok {
		return k.Key()
	}
	return fmt.Sprintf("#%d", ctx.ordinal)
}

func (ctx *evalContext) fail(src string, err error) error {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return err
	}
	return &ExecutionError{Expr: src, RowKey: ctx.rowKey(), Err: err}
}

// eval computes e in ctx.
func eval(e TypedExpr, ctx *evalContext) (Value, error) {
	switch n := e.(type) {
	case *Const:
		return n.Value, nil

	case *ColumnRef:
		v, err := n.Column.extract(ctx.row)
		if err != nil {
			return nil, ctx.fail(n.Column.Name, err)
		}
		return v, nil

	case *Coerce:
		v, err := eval(n.Expr, ctx)
		if err != nil || v == nil {
			return nil, err
		}
		if d, ok := valueToDecimal(v); ok {
			return d, nil
		}
		return nil, nil

	case *Unary:
		v, err := eval(n.Expr, ctx)
		if err != nil {
			return nil, err
		}
		if n.Op == TokenNot {
			return !truthy(v), nil
		}
		switch x := v.(type) {
		case int64:
			r, err := subInt(0, x)
			if err != nil {
				return nil, ctx.fail(n.Src, err)
			}
			return r, nil
		case decimal.Decimal:
			return x.Neg(), nil
		}
		return nil, nil

	case *Binary:
		return evalBinary(n, ctx)

	case *IsNull:
		v, err := eval(n.Expr, ctx)
		if err != nil {
			return nil, err
		}
		return (v == nil) != n.Negate, nil

	case *Between:
		v, err := eval(n.Expr, ctx)
		if err != nil {
			return nil, err
		}
		lo, err := eval(n.Lower, ctx)
		if err != nil {
			return nil, err
		}
		hi, err := eval(n.Upper, ctx)
		if err != nil {
			return nil, err
		}
		if v == nil || lo == nil || hi == nil {
			return nil, nil
		}
		in := Compare(v, lo) >= 0 && Compare(v, hi) <= 0
		return in != n.Negate, nil

	case *In:
		v, err := eval(n.Expr, ctx)
		if err != nil {
			return nil, err
		}
		coll, err := eval(n.Collection, ctx)
		if err != nil {
			return nil, err
		}
		if v == nil || coll == nil {
			return nil, nil
		}
		found := false
		switch c := coll.(type) {
		case Set:
			found = c.Contains(v)
		case List:
			for _, el := range c {
				if el != nil && Equal(el, v) {
					found = true
					break
				}
			}
		default:
			return nil, nil
		}
		return found != n.Negate, nil

	case *Case:
		for _, w := range n.Whens {
			c, err := eval(w.Cond, ctx)
			if err != nil {
				return nil, err
			}
			if truthy(c) {
				return eval(w.Result, ctx)
			}
		}
		if n.Else == nil {
			return nil, nil
		}
		return eval(n.Else, ctx)

	case *MakeList:
		out := make(List, len(n.Elems))
		for i, el := range n.Elems {
			v, err := eval(el, ctx)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case *Call:
		args := make([]Value, len(n.Args))
		for i, a := range n.Args {
			v, err := eval(a, ctx)
			if err != nil {
				return nil, err
			}
			if v == nil && !n.Overload.AcceptsNull {
				return nil, nil
			}
			args[i] = v
		}
		v, err := n.Overload.Eval(args)
		if err != nil {
			return nil, ctx.fail(n.Src, err)
		}
		return v, nil

	case *AggregateRef:
		return ctx.aggs[n.Slot], nil

	case *GroupRef:
		return ctx.keys[n.Index], nil
	}
	return nil, fmt.Errorf("eval: unexpected node %T", e)
}

func evalBinary(n *Binary, ctx *evalContext) (Value, error) {
	left, err := eval(n.Left, ctx)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case TokenAnd:
		if !truthy(left) {
			return false, nil
		}
		right, err := eval(n.Right, ctx)
		if err != nil {
			return nil, err
		}
		return truthy(right), nil
	case TokenOr:
		if truthy(left) {
			return true, nil
		}
		right, err := eval(n.Right, ctx)
		if err != nil {
			return nil, err
		}
		return truthy(right), nil
	}

	right, err := eval(n.Right, ctx)
	if err != nil {
		return nil, err
	}
	if left == nil || right == nil {
		return nil, nil
	}

	switch n.Op {
	case TokenEqual:
		return Compare(left, right) == 0, nil
	case TokenNotEqual:
		return Compare(left, right) != 0, nil
	case TokenLess:
		return Compare(left, right) < 0, nil
	case TokenLessEqual:
		return Compare(left, right) <= 0, nil
	case TokenGreater:
		return Compare(left, right) > 0, nil
	case TokenGreaterEqual:
		return Compare(left, right) >= 0, nil
	case TokenMatch, TokenNotMatch:
		s, ok1 := left.(string)
		pattern, ok2 := right.(string)
		if !ok1 || !ok2 {
			return nil, nil
		}
		re := n.Pattern
		if re == nil {
			re, err = regexp.Compile(pattern)
			if err != nil {
				return nil, ctx.fail(n.Src, fmt.Errorf("%w: %v", ErrInvalidPattern, err))
			}
		}
		return re.MatchString(s) == (n.Op == TokenMatch), nil
	}

	v, err := arithmetic(n.Op, left, right)
	if err != nil {
		return nil, ctx.fail(n.Src, err)
	}
	return v, nil
}

// arithmetic applies an arithmetic operator to two non-NULL values whose
// types the compiler has already checked.
func arithmetic(op TokenType, left, right Value) (Value, error) {
	switch l := left.(type) {
	case int64:
		switch r := right.(type) {
		case int64:
			switch op {
			case TokenPlus:
				return addInt(l, r)
			case TokenMinus:
				return subInt(l, r)
			case TokenStar:
				return mulInt(l, r)
			case TokenPercent:
				if r == 0 {
					return nil, ErrDivisionByZero
				}
				return l % r, nil
			case TokenSlash:
				return divideDecimal(decimal.NewFromInt(l), decimal.NewFromInt(r))
			}
		case time.Time:
			if op == TokenPlus {
				return r.AddDate(0, 0, int(l)), nil
			}
		case decimal.Decimal:
			return decimalArithmetic(op, decimal.NewFromInt(l), r)
		}

	case decimal.Decimal:
		return decimalArithmetic(op, l, toDecimal(right))

	case time.Time:
		switch r := right.(type) {
		case int64:
			switch op {
			case TokenPlus:
				return l.AddDate(0, 0, int(r)), nil
			case TokenMinus:
				return l.AddDate(0, 0, -int(r)), nil
			}
		case time.Time:
			if op == TokenMinus {
				return epochDay(l) - epochDay(r), nil
			}
		}
	}
	return nil, fmt.Errorf("%w: cannot apply operator to %s and %s", ErrTypeMismatch, TypeOf(left), TypeOf(right))
}

func decimalArithmetic(op TokenType, l, r decimal.Decimal) (Value, error) {
	switch op {
	case TokenPlus:
		return l.Add(r), nil
	case TokenMinus:
		return l.Sub(r), nil
	case TokenStar:
		return l.Mul(r), nil
	case TokenSlash:
		return divideDecimal(l, r)
	case TokenPercent:
		if r.IsZero() {
			return nil, ErrDivisionByZero
		}
		return l.Mod(r), nil
	}
	return nil, fmt.Errorf("unexpected decimal operator %d", op)
}
