package query

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the category of a value type.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindDecimal
	KindStr
	KindDate
	KindSet
	KindList
	KindObject
	KindAny
)

var kindNames = [...]string{
	KindNull:    "null",
	KindBool:    "bool",
	KindInt:     "int",
	KindDecimal: "decimal",
	KindStr:     "str",
	KindDate:    "date",
	KindSet:     "set",
	KindList:    "list",
	KindObject:  "object",
	KindAny:     "any",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Type is a resolved value type. Elem is set only for sets and lists.
type Type struct {
	Kind Kind
	Elem *Type
}

// Scalar types.
var (
	TypeNull    = Type{Kind: KindNull}
	TypeBool    = Type{Kind: KindBool}
	TypeInt     = Type{Kind: KindInt}
	TypeDecimal = Type{Kind: KindDecimal}
	TypeStr     = Type{Kind: KindStr}
	TypeDate    = Type{Kind: KindDate}
	TypeObject  = Type{Kind: KindObject}
	TypeAny     = Type{Kind: KindAny}
)

// SetOf returns the type of a set of elem values.
func SetOf(elem Type) Type {
	return Type{Kind: KindSet, Elem: &elem}
}

// ListOf returns the type of a list of elem values.
func ListOf(elem Type) Type {
	return Type{Kind: KindList, Elem: &elem}
}

func (t Type) String() string {
	if t.Kind == KindSet || t.Kind == KindList {
		elem := TypeAny
		if t.Elem != nil {
			elem = *t.Elem
		}
		return fmt.Sprintf("%s<%s>", t.Kind, elem)
	}
	return t.Kind.String()
}

// ElemType returns the element type of a set or list, Any when unknown.
func (t Type) ElemType() Type {
	if t.Elem == nil {
		return TypeAny
	}
	return *t.Elem
}

// Equal reports structural type equality.
func (t Type) Equal(u Type) bool {
	if t.Kind != u.Kind {
		return false
	}
	if t.Kind == KindSet || t.Kind == KindList {
		return t.ElemType().Equal(u.ElemType())
	}
	return true
}

// IsNumeric reports whether values of the type take part in arithmetic.
func (t Type) IsNumeric() bool {
	return t.Kind == KindInt || t.Kind == KindDecimal
}

// IsCollection reports whether t is a set or a list.
func (t Type) IsCollection() bool {
	return t.Kind == KindSet || t.Kind == KindList
}

// Coercion costs used by overload resolution.
const (
	costExact   = 0
	costWiden   = 1 // int to decimal
	costFromNil = 1 // null literal to any concrete type
	costToAny   = 2
)

// coercionCost reports whether a value of type from may be implicitly used
// where type to is expected, and at what cost. Only int to decimal, null to
// anything, and anything to any are implicit.
func coercionCost(from, to Type) (int, bool) {
	switch {
	case from.Equal(to):
		return costExact, true
	case to.Kind == KindAny:
		return costToAny, true
	case from.Kind == KindNull:
		return costFromNil, true
	case from.Kind == KindInt && to.Kind == KindDecimal:
		return costWiden, true
	case from.Kind == to.Kind && from.IsCollection():
		// An empty or all-null list literal has element type null.
		return coercionCost(from.ElemType(), to.ElemType())
	}
	return 0, false
}

// commonType returns the type both a and b coerce to for comparison and
// arithmetic, following the same implicit rules as coercionCost.
func commonType(a, b Type) (Type, bool) {
	switch {
	case a.Equal(b):
		return a, true
	case a.Kind == KindNull:
		return b, true
	case b.Kind == KindNull:
		return a, true
	case a.Kind == KindAny || b.Kind == KindAny:
		return TypeAny, true
	case a.IsNumeric() && b.IsNumeric():
		return TypeDecimal, true
	case a.Kind == b.Kind && a.IsCollection():
		elem, ok := commonType(a.ElemType(), b.ElemType())
		if !ok {
			return Type{}, false
		}
		return Type{Kind: a.Kind, Elem: &elem}, true
	}
	return Type{}, false
}

// TypeOf returns the dynamic type of a runtime value.
func TypeOf(v Value) Type {
	switch v.(type) {
	case nil:
		return TypeNull
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
	case Set:
		return SetOf(TypeAny)
	case List:
		return ListOf(TypeAny)
	case Object:
		return TypeObject
	}
	return TypeAny
}
