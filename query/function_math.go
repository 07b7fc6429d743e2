package query

import (
	"github.com/shopspring/decimal"
)

func mathFunctions() []Function {
	return []Function{
		{
			Name: "abs",
			Doc:  "Absolute value.",
			Overloads: []Overload{
				ScalarFunc(TypeInt, func(args []Value) (Value, error) {
					n := args[0].(int64)
					if n < 0 {
						if n == -1<<63 {
							return nil, ErrIntegerOverflow
						}
						return -n, nil
					}
					return n, nil
				}, TypeInt),
				ScalarFunc(TypeDecimal, func(args []Value) (Value, error) {
					return args[0].(decimal.Decimal).Abs(), nil
				}, TypeDecimal),
			},
		},
		{
			Name: "neg",
			Doc:  "Negated value.",
			Overloads: []Overload{
				ScalarFunc(TypeInt, func(args []Value) (Value, error) {
					return subInt(0, args[0].(int64))
				}, TypeInt),
				ScalarFunc(TypeDecimal, func(args []Value) (Value, error) {
					return args[0].(decimal.Decimal).Neg(), nil
				}, TypeDecimal),
			},
		},
		{
			Name: "round",
			Doc:  "Round half to even to the given number of fractional digits (default 0); negative digits round to tens, hundreds, ...",
			Overloads: []Overload{
				ScalarFunc(TypeDecimal, func(args []Value) (Value, error) {
					return args[0].(decimal.Decimal).RoundBank(0), nil
				}, TypeDecimal),
				ScalarFunc(TypeDecimal, func(args []Value) (Value, error) {
					return roundDecimal(args[0].(decimal.Decimal), args[1].(int64)), nil
				}, TypeDecimal, TypeInt),
				ScalarFunc(TypeInt, func(args []Value) (Value, error) {
					return args[0], nil
				}, TypeInt),
				ScalarFunc(TypeInt, func(args []Value) (Value, error) {
					n, places := args[0].(int64), args[1].(int64)
					if places >= 0 {
						return n, nil
					}
					r := roundDecimal(decimal.NewFromInt(n), places)
					if !r.IsInteger() || r.Abs().GreaterThanOrEqual(decimal.New(1, 18)) {
						return nil, ErrIntegerOverflow
					}
					return r.IntPart(), nil
				}, TypeInt, TypeInt),
			},
		},
		{
			Name: "safediv",
			Doc:  "Division that yields zero instead of failing when the divisor is zero.",
			Overloads: []Overload{
				ScalarFunc(TypeDecimal, func(args []Value) (Value, error) {
					a, b := args[0].(decimal.Decimal), args[1].(decimal.Decimal)
					if b.IsZero() {
						return decimal.Zero, nil
					}
					return divideDecimal(a, b)
				}, TypeDecimal, TypeDecimal),
			},
		},
	}
}

func roundDecimal(d decimal.Decimal, places int64) decimal.Decimal {
	if places > DivisionScale*4 {
		places = DivisionScale * 4
	}
	if places < -DivisionScale*4 {
		places = -DivisionScale * 4
	}
	return d.RoundBank(int32(places))
}
