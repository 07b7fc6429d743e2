package query

import (
	"fmt"

	"github.com/shopspring/decimal"
)

func aggregateFunctions() []Function {
	countAll := Overload{Result: TypeInt, NewAccumulator: func() Accumulator { return &countAcc{star: true} }}
	count := Overload{Params: []Type{TypeAny}, Result: TypeInt, NewAccumulator: func() Accumulator { return &countAcc{} }}

	minOverloads := make([]Overload, 0, len(comparableTypes))
	maxOverloads := make([]Overload, 0, len(comparableTypes))
	for _, t := range comparableTypes {
		minOverloads = append(minOverloads, Overload{Params: []Type{t}, Result: t,
			NewAccumulator: func() Accumulator { return &extremeAcc{} }})
		maxOverloads = append(maxOverloads, Overload{Params: []Type{t}, Result: t,
			NewAccumulator: func() Accumulator { return &extremeAcc{max: true} }})
	}

	firstOverloads := make([]Overload, 0, len(comparableTypes)+1)
	lastOverloads := make([]Overload, 0, len(comparableTypes)+1)
	for _, t := range append(comparableTypes, TypeAny) {
		firstOverloads = append(firstOverloads, Overload{Params: []Type{t}, Result: t,
			NewAccumulator: func() Accumulator { return &positionalAcc{} }})
		lastOverloads = append(lastOverloads, Overload{Params: []Type{t}, Result: t,
			NewAccumulator: func() Accumulator { return &positionalAcc{last: true} }})
	}

	return []Function{
		{
			Name:      "count",
			Doc:       "Number of rows (count(*)) or of non-NULL values.",
			Overloads: []Overload{countAll, count},
		},
		{
			Name: "sum",
			Doc:  "Sum of the non-NULL values; NULL when there are none.",
			Overloads: []Overload{
				{Params: []Type{TypeInt}, Result: TypeInt, NewAccumulator: func() Accumulator { return &sumIntAcc{} }},
				{Params: []Type{TypeDecimal}, Result: TypeDecimal, NewAccumulator: func() Accumulator { return &sumDecimalAcc{} }},
			},
		},
		{
			Name: "avg",
			Doc:  "Average of the non-NULL values.",
			Overloads: []Overload{
				{Params: []Type{TypeDecimal}, Result: TypeDecimal, NewAccumulator: func() Accumulator { return &avgAcc{} }},
			},
		},
		{Name: "min", Doc: "Smallest non-NULL value.", Overloads: minOverloads},
		{Name: "max", Doc: "Largest non-NULL value.", Overloads: maxOverloads},
		{Name: "first", Doc: "Value from the first row of the group in scan order.", Overloads: firstOverloads},
		{Name: "last", Doc: "Value from the last row of the group in scan order.", Overloads: lastOverloads},
	}
}

func mergeMismatch(a, b Accumulator) error {
	return fmt.Errorf("cannot merge %T into %T", b, a)
}

type countAcc struct {
	star bool
	n    int64
}

func (a *countAcc) Update(args []Value, _ int64) error {
	if a.star || args[0] != nil {
		a.n++
	}
	return nil
}

func (a *countAcc) Merge(other Accumulator) error {
	o, ok := other.(*countAcc)
	if !ok {
		return mergeMismatch(a, other)
	}
	a.n += o.n
	return nil
}

func (a *countAcc) Finalize() (Value, error) {
	return a.n, nil
}

type sumIntAcc struct {
	sum  int64
	seen bool
}

func (a *sumIntAcc) Update(args []Value, _ int64) error {
	n, ok := args[0].(int64)
	if !ok {
		return nil
	}
	s, err := addInt(a.sum, n)
	if err != nil {
		return err
	}
	a.sum, a.seen = s, true
	return nil
}

func (a *sumIntAcc) Merge(other Accumulator) error {
	o, ok := other.(*sumIntAcc)
	if !ok {
		return mergeMismatch(a, other)
	}
	if !o.seen {
		return nil
	}
	return a.Update([]Value{o.sum}, 0)
}

func (a *sumIntAcc) Finalize() (Value, error) {
	if !a.seen {
		return nil, nil
	}
	return a.sum, nil
}

type sumDecimalAcc struct {
	sum  decimal.Decimal
	seen bool
}

func (a *sumDecimalAcc) Update(args []Value, _ int64) error {
	if args[0] == nil {
		return nil
	}
	a.sum = a.sum.Add(toDecimal(args[0]))
	a.seen = true
	return nil
}

func (a *sumDecimalAcc) Merge(other Accumulator) error {
	o, ok := other.(*sumDecimalAcc)
	if !ok {
		return mergeMismatch(a, other)
	}
	if o.seen {
		a.sum = a.sum.Add(o.sum)
		a.seen = true
	}
	return nil
}

func (a *sumDecimalAcc) Finalize() (Value, error) {
	if !a.seen {
		return nil, nil
	}
	return a.sum, nil
}

type avgAcc struct {
	sum decimal.Decimal
	n   int64
}

func (a *avgAcc) Update(args []Value, _ int64) error {
	if args[0] == nil {
		return nil
	}
	a.sum = a.sum.Add(toDecimal(args[0]))
	a.n++
	return nil
}

func (a *avgAcc) Merge(other Accumulator) error {
	o, ok := other.(*avgAcc)
	if !ok {
		return mergeMismatch(a, other)
	}
	a.sum = a.sum.Add(o.sum)
	a.n += o.n
	return nil
}

func (a *avgAcc) Finalize() (Value, error) {
	if a.n == 0 {
		return nil, nil
	}
	return divideDecimal(a.sum, decimal.NewFromInt(a.n))
}

// extremeAcc implements min and max.
type extremeAcc struct {
	max  bool
	best Value
}

func (a *extremeAcc) Update(args []Value, _ int64) error {
	v := args[0]
	if v == nil {
		return nil
	}
	if a.best == nil {
		a.best = v
		return nil
	}
	c := Compare(v, a.best)
	if a.max && c > 0 || !a.max && c < 0 {
		a.best = v
	}
	return nil
}

func (a *extremeAcc) Merge(other Accumulator) error {
	o, ok := other.(*extremeAcc)
	if !ok || o.max != a.max {
		return mergeMismatch(a, other)
	}
	return a.Update([]Value{o.best}, 0)
}

func (a *extremeAcc) Finalize() (Value, error) {
	return a.best, nil
}

// positionalAcc implements first and last. It keeps the scan ordinal of the
// chosen row so partial accumulators merge in any order.
type positionalAcc struct {
	last    bool
	value   Value
	ordinal int64
	set     bool
}

func (a *positionalAcc) Update(args []Value, ordinal int64) error {
	if !a.set || a.last && ordinal > a.ordinal || !a.last && ordinal < a.ordinal {
		a.value, a.ordinal, a.set = args[0], ordinal, true
	}
	return nil
}

func (a *positionalAcc) Merge(other Accumulator) error {
	o, ok := other.(*positionalAcc)
	if !ok || o.last != a.last {
		return mergeMismatch(a, other)
	}
	if !o.set {
		return nil
	}
	return a.Update([]Value{o.value}, o.ordinal)
}

func (a *positionalAcc) Finalize() (Value, error) {
	return a.value, nil
}
