package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Builtins returns a new registry holding the built-in scalar and aggregate
// functions. Embedders register their own functions on top before building a
// Catalog.
func Builtins() *FunctionRegistry {
	r := NewFunctionRegistry()
	r.MustRegister(stringFunctions()...)
	r.MustRegister(mathFunctions()...)
	r.MustRegister(dateFunctions()...)
	r.MustRegister(convertFunctions()...)
	r.MustRegister(aggregateFunctions()...)
	return r
}

// ScalarFunc builds a scalar overload. Eval is skipped and NULL returned
// when any argument is NULL.
func ScalarFunc(result Type, eval func(args []Value) (Value, error), params ...Type) Overload {
	return Overload{Params: params, Result: result, Eval: eval}
}

// variadic marks the last parameter of o as repeating.
func variadic(o Overload) Overload {
	o.Variadic = true
	return o
}

// nullable lets o see NULL arguments.
func nullable(o Overload) Overload {
	o.AcceptsNull = true
	return o
}

// comparableTypes are the element types for which min, max, first, last and
// coalesce have overloads.
var comparableTypes = []Type{TypeBool, TypeInt, TypeDecimal, TypeStr, TypeDate}

// valueToString converts a value for text functions such as str().
func valueToString(v Value) string {
	return FormatValue(v)
}

// valueToDecimal converts an untyped value to a decimal. Strings are parsed;
// anything else that is not numeric yields ok=false.
func valueToDecimal(v Value) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case int64:
		return decimal.NewFromInt(x), true
	case decimal.Decimal:
		return x, true
	case bool:
		if x {
			return decimal.NewFromInt(1), true
		}
		return decimal.Zero, true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	}
	return decimal.Zero, false
}

// valueToInt converts an untyped value to an integer, truncating decimals.
func valueToInt(v Value) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case decimal.Decimal:
		if x.Abs().GreaterThanOrEqual(decimal.New(1, 18)) {
			return 0, false
		}
		return x.IntPart(), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// truthy reports the boolean interpretation of a value: NULL, false, zero,
// the empty string and empty collections are false.
func truthy(v Value) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case int64:
		return x != 0
	case decimal.Decimal:
		return !x.IsZero()
	case string:
		return x != ""
	case time.Time:
		return true
	case Set:
		return len(x) > 0
	case List:
		return len(x) > 0
	case Object:
		return len(x) > 0
	}
	return false
}

func argError(name string, v Value) error {
	return fmt.Errorf("%s: unexpected argument %v of type %s", name, v, TypeOf(v))
}
