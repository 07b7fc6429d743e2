package query

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ResultColumn names and types one output column.
type ResultColumn struct {
	Name string
	Type Type
}

// ResultSet is the materialized output of a plan.
type ResultSet struct {
	Columns []ResultColumn
	Rows    [][]Value
}

// ExecOptions tunes execution. Workers > 1 partitions aggregation across
// goroutines; results are identical to a single-worker run.
type ExecOptions struct {
	Workers int
}

// batchSize is the number of rows handed to an aggregation worker at once.
const batchSize = 256

// errStopScan ends a scan early once LIMIT is satisfied.
var errStopScan = errors.New("stop scan")

// Execute runs plan against source.
func Execute(plan *Plan, source RowSource) (*ResultSet, error) {
	return ExecuteWithOptions(plan, source, ExecOptions{})
}

// ExecuteWithOptions runs plan against source with the given options. Any
// runtime failure aborts execution and no partial result is returned.
func ExecuteWithOptions(plan *Plan, source RowSource, opts ExecOptions) (*ResultSet, error) {
	var (
		rows [][]Value
		err  error
	)
	if plan.Aggregated {
		rows, err = aggregateRows(plan, source, opts.Workers)
	} else {
		rows, err = scanRows(plan, source)
	}
	if err != nil {
		return nil, err
	}

	visible := len(plan.Columns())
	if plan.Distinct {
		rows = distinctRows(rows, visible)
	}
	if len(plan.OrderBy) > 0 {
		sortRows(rows, plan.OrderBy)
	}
	rows = sliceRows(rows, plan.Offset, plan.Limit)
	for i, r := range rows {
		rows[i] = r[:visible]
	}

	rs := &ResultSet{Columns: plan.Columns(), Rows: rows}
	if plan.Pivot != nil {
		rs = pivot(rs, plan.Pivot)
	}
	return rs, nil
}

// scanRows filters and projects rows one at a time, stopping as soon as
// enough rows exist to satisfy LIMIT when nothing downstream reorders them.
func scanRows(plan *Plan, source RowSource) ([][]Value, error) {
	stopAt := int64(-1)
	if plan.Limit != nil && len(plan.OrderBy) == 0 && !plan.Distinct && plan.Pivot == nil {
		stopAt = *plan.Limit
		if plan.Offset != nil {
			stopAt += *plan.Offset
		}
	}
	if stopAt == 0 {
		return nil, nil
	}

	var out [][]Value
	ctx := &evalContext{}
	err := source.Scan(func(r Row) error {
		ctx.ordinal++
		ctx.row = r
		ok, err := passes(plan.Filter, ctx)
		if err != nil || !ok {
			return err
		}
		row, err := project(plan.Targets, ctx)
		if err != nil {
			return err
		}
		out = append(out, row)
		if stopAt > 0 && int64(len(out)) >= stopAt {
			return errStopScan
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopScan) {
		return nil, err
	}
	return out, nil
}

func passes(cond TypedExpr, ctx *evalContext) (bool, error) {
	if cond == nil {
		return true, nil
	}
	v, err := eval(cond, ctx)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

func project(targets []PlanTarget, ctx *evalContext) ([]Value, error) {
	row := make([]Value, len(targets))
	for i, t := range targets {
		v, err := eval(t.Expr, ctx)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

// group is the running state of one GROUP BY key.
type group struct {
	keys  []Value
	accs  []Accumulator
	first int64 // ordinal of the first row seen
}

// groupTable accumulates groups in first-seen order.
type groupTable struct {
	plan   *Plan
	byKey  map[string]*group
	order  []*group
	ctx    evalContext
	argBuf [][]Value
}

func newGroupTable(plan *Plan) *groupTable {
	t := &groupTable{plan: plan, byKey: make(map[string]*group)}
	t.argBuf = make([][]Value, len(plan.Aggregates))
	for i, a := range plan.Aggregates {
		t.argBuf[i] = make([]Value, len(a.Args))
	}
	return t
}

func (t *groupTable) newGroup(keys []Value, ordinal int64) *group {
	g := &group{keys: keys, first: ordinal, accs: make([]Accumulator, len(t.plan.Aggregates))}
	for i, a := range t.plan.Aggregates {
		g.accs[i] = a.Overload.NewAccumulator()
	}
	return g
}

// add folds one source row into its group.
func (t *groupTable) add(r Row, ordinal int64) error {
	ctx := &t.ctx
	ctx.row, ctx.ordinal = r, ordinal
	ok, err := passes(t.plan.Filter, ctx)
	if err != nil || !ok {
		return err
	}

	keys := make([]Value, len(t.plan.GroupBy))
	for i, k := range t.plan.GroupBy {
		if keys[i], err = eval(k, ctx); err != nil {
			return err
		}
	}
	key := RowKey(keys)
	g, ok := t.byKey[key]
	if !ok {
		g = t.newGroup(keys, ordinal)
		t.byKey[key] = g
		t.order = append(t.order, g)
	}

	for i, a := range t.plan.Aggregates {
		args := t.argBuf[i]
		for j, arg := range a.Args {
			if args[j], err = eval(arg, ctx); err != nil {
				return err
			}
		}
		if err := g.accs[i].Update(args, ordinal); err != nil {
			return ctx.fail(a.Name, err)
		}
	}
	return nil
}

// merge folds the groups of other into t.
func (t *groupTable) merge(other *groupTable) error {
	for _, og := range other.order {
		key := RowKey(og.keys)
		g, ok := t.byKey[key]
		if !ok {
			t.byKey[key] = og
			t.order = append(t.order, og)
			continue
		}
		if og.first < g.first {
			g.first = og.first
		}
		for i := range g.accs {
			if err := g.accs[i].Merge(og.accs[i]); err != nil {
				return &ExecutionError{Expr: t.plan.Aggregates[i].Name, RowKey: "group (" + joinValues(g.keys) + ")", Err: err}
			}
		}
	}
	return nil
}

func aggregateRows(plan *Plan, source RowSource, workers int) ([][]Value, error) {
	var (
		table *groupTable
		err   error
	)
	if workers > 1 {
		table, err = scanParallel(plan, source, workers)
	} else {
		table = newGroupTable(plan)
		var ordinal int64
		err = source.Scan(func(r Row) error {
			ordinal++
			return table.add(r, ordinal)
		})
	}
	if err != nil {
		return nil, err
	}

	// Without GROUP BY there is exactly one group, even over no rows.
	if len(plan.GroupBy) == 0 && len(table.order) == 0 {
		table.order = append(table.order, table.newGroup(nil, 0))
	}

	out := make([][]Value, 0, len(table.order))
	for _, g := range table.order {
		ctx := &evalContext{keys: g.keys, aggs: make([]Value, len(g.accs))}
		for i, acc := range g.accs {
			v, err := acc.Finalize()
			if err != nil {
				return nil, ctx.fail(plan.Aggregates[i].Name, err)
			}
			ctx.aggs[i] = v
		}
		ok, err := passes(plan.Having, ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		row, err := project(plan.Targets, ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

type rowBatch struct {
	rows  []Row
	start int64
}

// scanParallel reads the source on the calling goroutine and fans batches
// of rows out to workers, each with its own group table. Partial tables are
// merged and groups put back in the order their first row was scanned.
func scanParallel(plan *Plan, source RowSource, workers int) (*groupTable, error) {
	batches := make(chan rowBatch, workers)
	stop := make(chan struct{})
	tables := make([]*groupTable, workers)

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			close(stop)
		})
	}

	for w := 0; w < workers; w++ {
		tables[w] = newGroupTable(plan)
		wg.Add(1)
		go func(t *groupTable) {
			defer wg.Done()
			for b := range batches {
				for i, r := range b.rows {
					if err := t.add(r, b.start+int64(i)); err != nil {
						fail(err)
						break
					}
				}
			}
		}(tables[w])
	}

	send := func(b rowBatch) error {
		select {
		case batches <- b:
			return nil
		case <-stop:
			return errStopScan
		}
	}

	var ordinal int64
	cur := rowBatch{start: 1}
	scanErr := source.Scan(func(r Row) error {
		ordinal++
		cur.rows = append(cur.rows, r)
		if len(cur.rows) < batchSize {
			return nil
		}
		b := cur
		cur = rowBatch{start: ordinal + 1}
		return send(b)
	})
	if scanErr == nil && len(cur.rows) > 0 {
		scanErr = send(cur)
	}
	close(batches)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if scanErr != nil {
		return nil, scanErr
	}

	merged := tables[0]
	for _, t := range tables[1:] {
		if err := merged.merge(t); err != nil {
			return nil, err
		}
	}
	sort.SliceStable(merged.order, func(i, j int) bool {
		return merged.order[i].first < merged.order[j].first
	})
	return merged, nil
}

// distinctRows keeps the first occurrence of each distinct visible row.
func distinctRows(rows [][]Value, visible int) [][]Value {
	seen := make(map[string]bool, len(rows))
	out := rows[:0]
	for _, r := range rows {
		key := RowKey(r[:visible])
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

func sortRows(rows [][]Value, order []PlanOrder) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range order {
			a, b := rows[i][o.Target], rows[j][o.Target]
			var c int
			switch {
			case a == nil && b == nil:
				continue
			case a == nil:
				return o.NullsFirst
			case b == nil:
				return !o.NullsFirst
			default:
				c = Compare(a, b)
			}
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func sliceRows(rows [][]Value, offset, limit *int64) [][]Value {
	if offset != nil {
		if *offset >= int64(len(rows)) {
			return nil
		}
		rows = rows[*offset:]
	}
	if limit != nil && *limit < int64(len(rows)) {
		rows = rows[:*limit]
	}
	return rows
}

// pivot turns the values of one column into columns. The result has one row
// per distinct value of the rows column, in order of appearance, and one
// column per distinct value of the columns column (sorted) and remaining
// target. Cells without a source row are NULL.
func pivot(rs *ResultSet, p *PlanPivot) *ResultSet {
	var values []int
	for i := range rs.Columns {
		if i != p.Rows && i != p.Columns {
			values = append(values, i)
		}
	}

	var (
		rowVals []Value
		rowSeen = make(map[string]int)
		colVals []Value
		colSeen = make(map[string]bool)
		cells   = make(map[string][]Value)
	)
	for _, r := range rs.Rows {
		rk, ck := ValueKey(r[p.Rows]), ValueKey(r[p.Columns])
		if _, ok := rowSeen[rk]; !ok {
			rowSeen[rk] = len(rowVals)
			rowVals = append(rowVals, r[p.Rows])
		}
		if !colSeen[ck] {
			colSeen[ck] = true
			colVals = append(colVals, r[p.Columns])
		}
		cells[rk+"\x00"+ck] = r
	}
	sort.SliceStable(colVals, func(i, j int) bool { return Compare(colVals[i], colVals[j]) < 0 })

	rowCol, colCol := rs.Columns[p.Rows], rs.Columns[p.Columns]
	cols := []ResultColumn{{Name: fmt.Sprintf("%s/%s", rowCol.Name, colCol.Name), Type: rowCol.Type}}
	for _, cv := range colVals {
		for _, vi := range values {
			name := FormatValue(cv)
			if len(values) > 1 {
				name += "/" + rs.Columns[vi].Name
			}
			cols = append(cols, ResultColumn{Name: name, Type: rs.Columns[vi].Type})
		}
	}

	out := make([][]Value, len(rowVals))
	for i, rv := range rowVals {
		row := make([]Value, 0, len(cols))
		row = append(row, rv)
		rk := ValueKey(rv)
		for _, cv := range colVals {
			src, ok := cells[rk+"\x00"+ValueKey(cv)]
			for _, vi := range values {
				if ok {
					row = append(row, src[vi])
				} else {
					row = append(row, nil)
				}
			}
		}
		out[i] = row
	}
	return &ResultSet{Columns: cols, Rows: out}
}
