package query

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Value is a runtime value: nil (NULL), bool, int64, decimal.Decimal,
// string, time.Time (a calendar date at UTC midnight), Set, List or Object.
type Value = interface{}

// Set is an ordered, duplicate-free collection. Build it with NewSet.
type Set []Value

// List is an ordered collection that may contain duplicates.
type List []Value

// Object is a string-keyed bag of values, such as posting metadata.
type Object map[string]Value

// DivisionScale is the number of fractional digits kept by decimal division
// before trailing zeros are trimmed.
const DivisionScale = 16

const dateLayout = "2006-01-02"

// NewSet returns the sorted, de-duplicated set of vals.
func NewSet(vals ...Value) Set {
	s := make(Set, len(vals))
	copy(s, vals)
	sort.SliceStable(s, func(i, j int) bool { return Compare(s[i], s[j]) < 0 })
	out := s[:0]
	for i, v := range s {
		if i > 0 && Compare(out[len(out)-1], v) == 0 {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Contains reports whether the set holds a value equal to v.
func (s Set) Contains(v Value) bool {
	i := sort.Search(len(s), func(i int) bool { return Compare(s[i], v) >= 0 })
	return i < len(s) && Compare(s[i], v) == 0
}

// NewDate returns the date value for a calendar day.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an ISO YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// truncateDate drops the time of day, keeping the calendar day of t.
func truncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// Normalize converts a host value supplied by a row source into a query
// value. Integers widen to int64, floats become decimals, timestamps are
// truncated to their date.
func Normalize(v interface{}) (Value, error) {
	switch x := v.(type) {
	case nil, bool, int64, decimal.Decimal, string, Set, List, Object:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case float32:
		return decimal.NewFromFloat32(x), nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case *decimal.Decimal:
		if x == nil {
			return nil, nil
		}
		return *x, nil
	case time.Time:
		return truncateDate(x), nil
	case []string:
		vals := make([]Value, len(x))
		for i, s := range x {
			vals[i] = s
		}
		return NewSet(vals...), nil
	case []interface{}:
		vals := make(List, len(x))
		for i, e := range x {
			n, err := Normalize(e)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			vals[i] = n
		}
		return vals, nil
	case map[string]interface{}:
		obj := make(Object, len(x))
		for k, e := range x {
			n, err := Normalize(e)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			obj[k] = n
		}
		return obj, nil
	}
	return nil, fmt.Errorf("unsupported value type %T", v)
}

// kindRank orders values of different kinds, used only when an Any-typed
// expression mixes kinds.
func kindRank(v Value) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case int64, decimal.Decimal:
		return 2
	case string:
		return 3
	case time.Time:
		return 4
	case Set:
		return 5
	case List:
		return 6
	case Object:
		return 7
	}
	return 8
}

// Compare defines the total order used for sorting, grouping and set
// membership. NULL sorts before everything; ints and decimals compare by
// numeric value.
func Compare(a, b Value) int {
	ra, rb := kindRank(a), kindRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch x := a.(type) {
	case nil:
		return 0
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case int64:
		if y, ok := b.(int64); ok {
			return compareInt(x, y)
		}
		return decimal.NewFromInt(x).Cmp(b.(decimal.Decimal))
	case decimal.Decimal:
		return x.Cmp(toDecimal(b))
	case string:
		return strings.Compare(x, b.(string))
	case time.Time:
		y := b.(time.Time)
		switch {
		case x.Before(y):
			return -1
		case x.After(y):
			return 1
		}
		return 0
	case Set:
		return compareSlices(x, b.(Set))
	case List:
		return compareSlices(x, b.(List))
	case Object:
		return strings.Compare(ValueKey(x), ValueKey(b))
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func compareInt(x, y int64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func compareSlices(x, y []Value) int {
	for i := 0; i < len(x) && i < len(y); i++ {
		if c := Compare(x[i], y[i]); c != 0 {
			return c
		}
	}
	return compareInt(int64(len(x)), int64(len(y)))
}

// Equal reports value equality under Compare.
func Equal(a, b Value) bool {
	return Compare(a, b) == 0
}

// ValueKey encodes v so that two values have the same key exactly when they
// are Equal. Decimals are keyed by value, not representation.
func ValueKey(v Value) string {
	var b strings.Builder
	writeKey(&b, v)
	return b.String()
}

// RowKey encodes a tuple of values the way ValueKey encodes one.
func RowKey(vals []Value) string {
	var b strings.Builder
	for _, v := range vals {
		writeKey(&b, v)
		b.WriteByte(0)
	}
	return b.String()
}

func writeKey(b *strings.Builder, v Value) {
	switch x := v.(type) {
	case nil:
		b.WriteString("N")
	case bool:
		if x {
			b.WriteString("B1")
		} else {
			b.WriteString("B0")
		}
	case int64:
		b.WriteString("n")
		b.WriteString(strconv.FormatInt(x, 10))
	case decimal.Decimal:
		b.WriteString("n")
		b.WriteString(x.String())
	case string:
		b.WriteString("s")
		b.WriteString(strconv.Itoa(len(x)))
		b.WriteByte(':')
		b.WriteString(x)
	case time.Time:
		b.WriteString("d")
		b.WriteString(x.Format(dateLayout))
	case Set:
		writeSliceKey(b, 'S', x)
	case List:
		writeSliceKey(b, 'L', x)
	case Object:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("O{")
		for _, k := range keys {
			writeKey(b, k)
			writeKey(b, x[k])
		}
		b.WriteByte('}')
	default:
		fmt.Fprintf(b, "?%v", x)
	}
}

func writeSliceKey(b *strings.Builder, tag byte, vals []Value) {
	b.WriteByte(tag)
	b.WriteByte('[')
	for _, e := range vals {
		writeKey(b, e)
		b.WriteByte(',')
	}
	b.WriteByte(']')
}

// FormatValue renders a value as plain text: decimals keep their scale,
// dates are ISO, NULL is empty. It is used by str() and in diagnostics.
func FormatValue(v Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case int64:
		return strconv.FormatInt(x, 10)
	case decimal.Decimal:
		return DecimalText(x)
	case string:
		return x
	case time.Time:
		return x.Format(dateLayout)
	case Set:
		return joinValues(x)
	case List:
		return joinValues(x)
	case Object:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + FormatValue(x[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprint(v)
}

func joinValues(vals []Value) string {
	parts := make([]string, len(vals))
	for i, e := range vals {
		parts[i] = FormatValue(e)
	}
	return strings.Join(parts, ", ")
}

// DecimalText renders d with exactly its own scale, so 1.50 stays "1.50".
func DecimalText(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

// Scale returns the number of fractional digits in the representation of d.
func Scale(d decimal.Decimal) int32 {
	if exp := d.Exponent(); exp < 0 {
		return -exp
	}
	return 0
}

func toDecimal(v Value) decimal.Decimal {
	switch x := v.(type) {
	case int64:
		return decimal.NewFromInt(x)
	case decimal.Decimal:
		return x
	}
	return decimal.Zero
}

var bigTen = big.NewInt(10)

// trimDecimal drops trailing fractional zeros from d, but never below
// minScale fractional digits.
func trimDecimal(d decimal.Decimal, minScale int32) decimal.Decimal {
	exp := d.Exponent()
	if exp >= -minScale {
		return d
	}
	coef := d.Coefficient()
	q, r := new(big.Int), new(big.Int)
	for exp < -minScale {
		q.QuoRem(coef, bigTen, r)
		if r.Sign() != 0 {
			break
		}
		coef.Set(q)
		exp++
	}
	return decimal.NewFromBigInt(coef, exp)
}

// divideDecimal computes a / b to DivisionScale fractional digits, rounding
// half to even, then trims trailing zeros down to the dividend's scale.
func divideDecimal(a, b decimal.Decimal) (decimal.Decimal, error) {
	if b.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}
	q, r := a.QuoRem(b, DivisionScale)
	if !r.IsZero() {
		// Compare twice the remainder with one unit in the last place of b.
		unit := decimal.New(1, -DivisionScale)
		c := r.Abs().Mul(decimal.NewFromInt(2)).Cmp(b.Abs().Mul(unit))
		odd := q.Shift(DivisionScale).BigInt().Bit(0) == 1
		if c > 0 || c == 0 && odd {
			if a.Sign()*b.Sign() < 0 {
				q = q.Sub(unit)
			} else {
				q = q.Add(unit)
			}
		}
	}
	return trimDecimal(q, Scale(a)), nil
}

// Checked int64 arithmetic.

func addInt(a, b int64) (int64, error) {
	c := a + b
	if (c > a) != (b > 0) {
		return 0, ErrIntegerOverflow
	}
	return c, nil
}

func subInt(a, b int64) (int64, error) {
	c := a - b
	if (c < a) != (b > 0) {
		return 0, ErrIntegerOverflow
	}
	return c, nil
}

func mulInt(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	c := a * b
	if c/b != a || (a == -1 && b == -1<<63) || (b == -1 && a == -1<<63) {
		return 0, ErrIntegerOverflow
	}
	return c, nil
}

// epochDay is the number of days since 1970-01-01.
func epochDay(t time.Time) int64 {
	secs := t.Unix()
	if secs < 0 && secs%86400 != 0 {
		return secs/86400 - 1
	}
	return secs / 86400
}
