package query

import (
	"fmt"
	"sort"
	"strings"
)

// Row is one source record. Value reports false for a column the row does
// not carry, which reads as NULL.
type Row interface {
	Value(column string) (Value, bool)
}

// Keyed rows identify themselves in execution errors.
type Keyed interface {
	Key() string
}

// MapRow is a Row backed by a map.
type MapRow map[string]Value

// Value returns the value stored under column.
func (r MapRow) Value(column string) (Value, bool) {
	v, ok := r[column]
	return v, ok
}

// RowSource produces rows in a deterministic order. Scan stops at the first
// error returned by fn and returns it.
type RowSource interface {
	Scan(fn func(Row) error) error
}

// Rows is an in-memory RowSource.
type Rows []Row

// Scan calls fn for each row in order.
func (rs Rows) Scan(fn func(Row) error) error {
	for _, r := range rs {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

// ColumnDef describes one queryable column. Extract computes the value from a
// row; when nil the row's own value under Name is used.
type ColumnDef struct {
	Name    string
	Type    Type
	Doc     string
	Extract func(Row) (Value, error)
}

func (c *ColumnDef) extract(r Row) (Value, error) {
	if c.Extract != nil {
		return c.Extract(r)
	}
	v, ok := r.Value(c.Name)
	if !ok {
		return nil, nil
	}
	return Normalize(v)
}

// Accumulator is the per-group state of an aggregate function. Update folds
// in one row's arguments; ordinal is the row's position in the scan. Merge
// folds in a partial accumulator of the same function built over a disjoint
// set of rows; it must be associative and commutative.
type Accumulator interface {
	Update(args []Value, ordinal int64) error
	Merge(other Accumulator) error
	Finalize() (Value, error)
}

// Overload is one signature of a function. Exactly one of Eval and
// NewAccumulator is set. With Variadic the last parameter repeats zero or
// more times.
type Overload struct {
	Params   []Type
	Variadic bool
	Result   Type

	// Eval computes a scalar result. Unless AcceptsNull is set it is not
	// called when any argument is NULL; the result is NULL instead.
	Eval        func(args []Value) (Value, error)
	AcceptsNull bool

	NewAccumulator func() Accumulator
}

// IsAggregate reports whether the overload folds rows.
func (o *Overload) IsAggregate() bool {
	return o.NewAccumulator != nil
}

// Signature renders the parameter list, e.g. "(str, int...)".
func (o *Overload) Signature() string {
	parts := make([]string, len(o.Params))
	for i, p := range o.Params {
		parts[i] = p.String()
		if o.Variadic && i == len(o.Params)-1 {
			parts[i] += "..."
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Function is a named family of overloads.
type Function struct {
	Name      string
	Doc       string
	Overloads []Overload
}

// IsAggregate reports whether the function is an aggregate. A function's
// overloads are either all aggregate or all scalar.
func (f *Function) IsAggregate() bool {
	return len(f.Overloads) > 0 && f.Overloads[0].IsAggregate()
}

// FunctionRegistry collects functions before they are frozen into a
// Catalog.
type FunctionRegistry struct {
	functions map[string]*Function
}

// NewFunctionRegistry creates an empty function registry
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: make(map[string]*Function)}
}

// Register adds f, merging its overloads into an existing function of the
// same name. Names are case-insensitive.
func (r *FunctionRegistry) Register(f Function) error {
	name := strings.ToLower(f.Name)
	if name == "" {
		return fmt.Errorf("function has no name")
	}
	if len(f.Overloads) == 0 {
		return fmt.Errorf("function %s: no overloads", name)
	}
	agg := f.Overloads[0].IsAggregate()
	for i := range f.Overloads {
		o := &f.Overloads[i]
		if (o.Eval == nil) == (o.NewAccumulator == nil) {
			return fmt.Errorf("function %s%s: exactly one of Eval and NewAccumulator must be set", name, o.Signature())
		}
		if o.IsAggregate() != agg {
			return fmt.Errorf("function %s: mixes aggregate and scalar overloads", name)
		}
		if o.Variadic && len(o.Params) == 0 {
			return fmt.Errorf("function %s: variadic overload without parameters", name)
		}
	}

	existing, ok := r.functions[name]
	if !ok {
		cp := f
		cp.Name = name
		cp.Overloads = append([]Overload(nil), f.Overloads...)
		r.functions[name] = &cp
		return nil
	}
	if existing.IsAggregate() != agg {
		return fmt.Errorf("function %s: mixes aggregate and scalar overloads", name)
	}
	for _, o := range f.Overloads {
		for _, e := range existing.Overloads {
			if sameParams(&o, &e) {
				return fmt.Errorf("function %s%s: already registered", name, o.Signature())
			}
		}
	}
	existing.Overloads = append(existing.Overloads, f.Overloads...)
	if existing.Doc == "" {
		existing.Doc = f.Doc
	}
	return nil
}

// MustRegister is Register for static tables; it panics on error.
func (r *FunctionRegistry) MustRegister(fs ...Function) {
	for _, f := range fs {
		if err := r.Register(f); err != nil {
			panic(err)
		}
	}
}

// Get retrieves a function by name (case-insensitive)
func (r *FunctionRegistry) Get(name string) (*Function, bool) {
	f, ok := r.functions[strings.ToLower(name)]
	return f, ok
}

func sameParams(a, b *Overload) bool {
	if a.Variadic != b.Variadic || len(a.Params) != len(b.Params) {
		return false
	}
	for i := range a.Params {
		if !a.Params[i].Equal(b.Params[i]) {
			return false
		}
	}
	return true
}

// Catalog is the schema of one queryable table: its columns in declared
// order and the functions available to queries. It is immutable and safe to
// share between concurrent compilations.
type Catalog struct {
	name      string
	columns   []*ColumnDef
	byName    map[string]*ColumnDef
	functions map[string]*Function
	funcNames []string
}

// NewCatalog builds a catalog named table from columns and the functions in
// reg. The registry is copied; later registrations do not affect the
// catalog.
func NewCatalog(table string, columns []ColumnDef, reg *FunctionRegistry) (*Catalog, error) {
	c := &Catalog{
		name:      strings.ToLower(table),
		byName:    make(map[string]*ColumnDef, len(columns)),
		functions: make(map[string]*Function),
	}
	for i := range columns {
		col := columns[i]
		if col.Name == "" {
			return nil, fmt.Errorf("catalog %s: column %d has no name", table, i+1)
		}
		if _, dup := c.byName[col.Name]; dup {
			return nil, fmt.Errorf("catalog %s: duplicate column %s", table, col.Name)
		}
		c.columns = append(c.columns, &col)
		c.byName[col.Name] = &col
	}
	if reg != nil {
		for name, f := range reg.functions {
			cp := *f
			cp.Overloads = append([]Overload(nil), f.Overloads...)
			c.functions[name] = &cp
			c.funcNames = append(c.funcNames, name)
		}
	}
	sort.Strings(c.funcNames)
	return c, nil
}

// Name returns the table name.
func (c *Catalog) Name() string {
	return c.name
}

// Columns returns the columns in declared order.
func (c *Catalog) Columns() []*ColumnDef {
	out := make([]*ColumnDef, len(c.columns))
	copy(out, c.columns)
	return out
}

// Column looks up a column by exact name.
func (c *Catalog) Column(name string) (*ColumnDef, bool) {
	col, ok := c.byName[name]
	return col, ok
}

// Functions returns the functions sorted by name.
func (c *Catalog) Functions() []*Function {
	out := make([]*Function, len(c.funcNames))
	for i, n := range c.funcNames {
		out[i] = c.functions[n]
	}
	return out
}

// Function looks up a function by name (case-insensitive)
func (c *Catalog) Function(name string) (*Function, bool) {
	f, ok := c.functions[strings.ToLower(name)]
	return f, ok
}
