package query

import (
	"github.com/shopspring/decimal"
)

func convertFunctions() []Function {
	coalesce := make([]Overload, 0, len(comparableTypes)+1)
	for _, t := range append(comparableTypes, TypeAny) {
		coalesce = append(coalesce, nullable(variadic(ScalarFunc(t, func(args []Value) (Value, error) {
			for _, a := range args {
				if a != nil {
					return a, nil
				}
			}
			return nil, nil
		}, t))))
	}

	return []Function{
		{
			Name: "str",
			Doc:  "Text rendering of a value.",
			Overloads: []Overload{
				ScalarFunc(TypeStr, func(args []Value) (Value, error) {
					return valueToString(args[0]), nil
				}, TypeAny),
			},
		},
		{
			Name: "int",
			Doc:  "Convert to an integer; decimals are truncated, unparsable strings yield NULL.",
			Overloads: []Overload{
				ScalarFunc(TypeInt, toIntValue, TypeBool),
				ScalarFunc(TypeInt, toIntValue, TypeInt),
				ScalarFunc(TypeInt, toIntValue, TypeDecimal),
				ScalarFunc(TypeInt, toIntValue, TypeStr),
				ScalarFunc(TypeInt, toIntValue, TypeAny),
			},
		},
		{
			Name: "decimal",
			Doc:  "Convert to a decimal; unparsable strings yield NULL.",
			Overloads: []Overload{
				ScalarFunc(TypeDecimal, toDecimalValue, TypeBool),
				ScalarFunc(TypeDecimal, toDecimalValue, TypeDecimal),
				ScalarFunc(TypeDecimal, toDecimalValue, TypeStr),
				ScalarFunc(TypeDecimal, toDecimalValue, TypeAny),
			},
		},
		{
			Name: "bool",
			Doc:  "Truth value: NULL stays NULL; false, zero, empty strings and empty collections are false.",
			Overloads: []Overload{
				ScalarFunc(TypeBool, func(args []Value) (Value, error) {
					return truthy(args[0]), nil
				}, TypeAny),
			},
		},
		{
			Name:      "coalesce",
			Doc:       "First non-NULL argument.",
			Overloads: coalesce,
		},
		{
			Name: "getitem",
			Doc:  "Value stored under a key of an object, NULL when missing.",
			Overloads: []Overload{
				ScalarFunc(TypeAny, func(args []Value) (Value, error) {
					return args[0].(Object)[args[1].(string)], nil
				}, TypeObject, TypeStr),
			},
		},
	}
}

func toIntValue(args []Value) (Value, error) {
	if n, ok := valueToInt(args[0]); ok {
		return n, nil
	}
	return nil, nil
}

func toDecimalValue(args []Value) (Value, error) {
	if _, ok := args[0].(decimal.Decimal); ok {
		return args[0], nil
	}
	if d, ok := valueToDecimal(args[0]); ok {
		return d, nil
	}
	return nil, nil
}
