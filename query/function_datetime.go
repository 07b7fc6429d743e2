package query

import (
	"fmt"
	"strings"
	"time"
)

func dateFunctions() []Function {
	datePart := func(fn func(time.Time) Value) func([]Value) (Value, error) {
		return func(args []Value) (Value, error) {
			return fn(args[0].(time.Time)), nil
		}
	}

	return []Function{
		{
			Name: "date",
			Doc:  "Build a date from an ISO string, from year, month and day, or from an untyped value. Invalid input yields NULL.",
			Overloads: []Overload{
				ScalarFunc(TypeDate, func(args []Value) (Value, error) {
					return args[0], nil
				}, TypeDate),
				ScalarFunc(TypeDate, func(args []Value) (Value, error) {
					return parseDateOrNull(args[0].(string)), nil
				}, TypeStr),
				ScalarFunc(TypeDate, func(args []Value) (Value, error) {
					y, m, d := args[0].(int64), args[1].(int64), args[2].(int64)
					if m < 1 || m > 12 || d < 1 || d > 31 || y < 1 || y > 9999 {
						return nil, nil
					}
					t := NewDate(int(y), time.Month(m), int(d))
					if t.Day() != int(d) {
						return nil, nil // e.g. February 30th
					}
					return t, nil
				}, TypeInt, TypeInt, TypeInt),
				ScalarFunc(TypeDate, func(args []Value) (Value, error) {
					switch x := args[0].(type) {
					case time.Time:
						return x, nil
					case string:
						return parseDateOrNull(x), nil
					}
					return nil, nil
				}, TypeAny),
			},
		},
		{
			Name: "year",
			Doc:  "Year of a date.",
			Overloads: []Overload{
				ScalarFunc(TypeInt, datePart(func(t time.Time) Value { return int64(t.Year()) }), TypeDate),
			},
		},
		{
			Name: "month",
			Doc:  "Month of a date (1-12).",
			Overloads: []Overload{
				ScalarFunc(TypeInt, datePart(func(t time.Time) Value { return int64(t.Month()) }), TypeDate),
			},
		},
		{
			Name: "day",
			Doc:  "Day of the month of a date.",
			Overloads: []Overload{
				ScalarFunc(TypeInt, datePart(func(t time.Time) Value { return int64(t.Day()) }), TypeDate),
			},
		},
		{
			Name: "quarter",
			Doc:  "Quarter of a date, formatted YYYY-QN.",
			Overloads: []Overload{
				ScalarFunc(TypeStr, datePart(func(t time.Time) Value {
					return fmt.Sprintf("%04d-Q%d", t.Year(), (int(t.Month())-1)/3+1)
				}), TypeDate),
			},
		},
		{
			Name: "weekday",
			Doc:  "Abbreviated day of the week of a date (Mon, Tue, ...).",
			Overloads: []Overload{
				ScalarFunc(TypeStr, datePart(func(t time.Time) Value { return t.Weekday().String()[:3] }), TypeDate),
			},
		},
		{
			Name: "ymonth",
			Doc:  "First day of the month of a date.",
			Overloads: []Overload{
				ScalarFunc(TypeDate, datePart(func(t time.Time) Value { return NewDate(t.Year(), t.Month(), 1) }), TypeDate),
			},
		},
	}
}

func parseDateOrNull(s string) Value {
	t, err := ParseDate(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return t
}
