package query

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func stringFunctions() []Function {
	str1 := func(fn func(string) Value) func([]Value) (Value, error) {
		return func(args []Value) (Value, error) {
			return fn(args[0].(string)), nil
		}
	}
	str2 := func(fn func(a, b string) Value) func([]Value) (Value, error) {
		return func(args []Value) (Value, error) {
			return fn(args[0].(string), args[1].(string)), nil
		}
	}

	return []Function{
		{
			Name: "upper",
			Doc:  "Convert a string to upper case.",
			Overloads: []Overload{
				// A Caser carries state, so each call gets its own.
				ScalarFunc(TypeStr, str1(func(s string) Value { return cases.Upper(language.Und).String(s) }), TypeStr),
			},
		},
		{
			Name: "lower",
			Doc:  "Convert a string to lower case.",
			Overloads: []Overload{
				ScalarFunc(TypeStr, str1(func(s string) Value { return cases.Lower(language.Und).String(s) }), TypeStr),
			},
		},
		{
			Name: "length",
			Doc:  "Number of characters of a string, or number of elements of a set or list.",
			Overloads: []Overload{
				ScalarFunc(TypeInt, str1(func(s string) Value { return int64(utf8.RuneCountInString(s)) }), TypeStr),
				ScalarFunc(TypeInt, func(args []Value) (Value, error) {
					return int64(len(args[0].(Set))), nil
				}, SetOf(TypeAny)),
				ScalarFunc(TypeInt, func(args []Value) (Value, error) {
					return int64(len(args[0].(List))), nil
				}, ListOf(TypeAny)),
			},
		},
		{
			Name: "substr",
			Doc:  "Substring starting at the 1-based character position, optionally limited to a length.",
			Overloads: []Overload{
				ScalarFunc(TypeStr, func(args []Value) (Value, error) {
					return substring(args[0].(string), args[1].(int64), -1), nil
				}, TypeStr, TypeInt),
				ScalarFunc(TypeStr, func(args []Value) (Value, error) {
					n := args[2].(int64)
					if n < 0 {
						n = 0
					}
					return substring(args[0].(string), args[1].(int64), n), nil
				}, TypeStr, TypeInt, TypeInt),
			},
		},
		{
			Name: "trim",
			Doc:  "Remove leading and trailing white space.",
			Overloads: []Overload{
				ScalarFunc(TypeStr, str1(func(s string) Value { return strings.TrimSpace(s) }), TypeStr),
			},
		},
		{
			Name: "startswith",
			Doc:  "Whether the first string starts with the second.",
			Overloads: []Overload{
				ScalarFunc(TypeBool, str2(func(a, b string) Value { return strings.HasPrefix(a, b) }), TypeStr, TypeStr),
			},
		},
		{
			Name: "endswith",
			Doc:  "Whether the first string ends with the second.",
			Overloads: []Overload{
				ScalarFunc(TypeBool, str2(func(a, b string) Value { return strings.HasSuffix(a, b) }), TypeStr, TypeStr),
			},
		},
		{
			Name: "concat",
			Doc:  "Concatenate strings; NULL arguments are skipped.",
			Overloads: []Overload{
				nullable(variadic(ScalarFunc(TypeStr, func(args []Value) (Value, error) {
					var b strings.Builder
					for _, a := range args {
						if s, ok := a.(string); ok {
							b.WriteString(s)
						}
					}
					return b.String(), nil
				}, TypeStr))),
			},
		},
		{
			Name: "replace",
			Doc:  "Replace every occurrence of the second string by the third.",
			Overloads: []Overload{
				ScalarFunc(TypeStr, func(args []Value) (Value, error) {
					return strings.ReplaceAll(args[0].(string), args[1].(string), args[2].(string)), nil
				}, TypeStr, TypeStr, TypeStr),
			},
		},
		{
			Name: "joinstr",
			Doc:  "Join the elements of a set or list with a comma.",
			Overloads: []Overload{
				ScalarFunc(TypeStr, func(args []Value) (Value, error) {
					return joinValues(args[0].(Set)), nil
				}, SetOf(TypeAny)),
				ScalarFunc(TypeStr, func(args []Value) (Value, error) {
					return joinValues(args[0].(List)), nil
				}, ListOf(TypeAny)),
			},
		},
	}
}

// substring returns n runes of s starting at the 1-based position start; a
// negative n means to the end.
func substring(s string, start, n int64) string {
	runes := []rune(s)
	from := start - 1
	if from < 0 {
		if n >= 0 {
			n += from
			if n < 0 {
				n = 0
			}
		}
		from = 0
	}
	if from >= int64(len(runes)) {
		return ""
	}
	to := int64(len(runes))
	if n >= 0 && from+n < to {
		to = from + n
	}
	return string(runes[from:to])
}
