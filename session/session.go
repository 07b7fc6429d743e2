// Package session runs statements against a loaded ledger: it compiles
// queries through a plan cache, executes them and renders the results, and
// handles SET, SHOW and EXPLAIN.
package session

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"

	"github.com/vegasq/ledgerql/config"
	"github.com/vegasq/ledgerql/ledger"
	"github.com/vegasq/ledgerql/output"
	"github.com/vegasq/ledgerql/query"
)

var (
	// ErrUnknownVariable is returned by SET for names it does not know.
	ErrUnknownVariable = errors.New("unknown variable")
	// ErrNoLedger is returned for a FROM filter on a session whose tables
	// were not built from a ledger.
	ErrNoLedger = errors.New("FROM filters need a ledger")
)

// Session holds the tables of one ledger and the settings statements are
// rendered with. It is safe for concurrent use.
type Session struct {
	tables map[string]ledger.Table
	ledger *ledger.Ledger // nil unless built by FromLedger
	out    io.Writer
	logger *log.Logger

	mu       sync.Mutex
	format   string
	opts     output.Options
	workers  int
	plans    *lru.Cache // nil when caching is disabled
	hits     int
	compiles int
}

// New returns a session over tables writing to w. A nil cfg uses
// config.Default().
func New(tables map[string]ledger.Table, w io.Writer, cfg *config.Config) *Session {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Session{
		tables:  tables,
		out:     w,
		logger:  log.New(io.Discard, "", 0),
		format:  cfg.Format,
		opts:    cfg.Options(),
		workers: cfg.Workers,
	}
	if cfg.PlanCacheSize > 0 {
		s.plans = lru.New(cfg.PlanCacheSize)
	}
	return s
}

// FromLedger builds a session over the postings and entries tables of l.
func FromLedger(l *ledger.Ledger, w io.Writer, cfg *config.Config) (*Session, error) {
	tables, err := ledger.Tables(l, nil)
	if err != nil {
		return nil, err
	}
	s := New(tables, w, cfg)
	s.ledger = l
	return s, nil
}

// SetLogger routes timing and cache diagnostics to logger.
func (s *Session) SetLogger(logger *log.Logger) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s.logger = logger
}

// Run executes one statement and renders its result, if any.
func (s *Session) Run(text string) error {
	rs, err := s.Execute(text)
	if err != nil {
		return err
	}
	if rs == nil {
		return nil
	}
	format, opts := s.Settings()
	start := time.Now()
	if err := output.Render(rs, format, s.out, opts); err != nil {
		return err
	}
	s.logger.Printf("render %s: %d rows in %v", format, len(rs.Rows), time.Since(start))
	return nil
}

// Execute runs one statement. SET statements return a nil result set.
func (s *Session) Execute(text string) (*query.ResultSet, error) {
	stmt, err := query.Parse(text)
	if err != nil {
		return nil, err
	}

	if stmt, err = ledger.Rewrite(stmt); err != nil {
		return nil, err
	}
	switch st := stmt.(type) {
	case *query.SelectStmt:
		return s.query(st)
	case *query.ExplainStmt:
		plan, table, err := s.compile(st.Select)
		if err != nil {
			return nil, err
		}
		if _, err := s.source(st.Select.From, table); err != nil {
			return nil, err
		}
		return explainResult(plan), nil
	case *query.ShowStmt:
		return s.show(st)
	case *query.SetStmt:
		return nil, s.set(st)
	default:
		return nil, fmt.Errorf("unsupported statement %T", st)
	}
}

// Settings returns the current output format and options.
func (s *Session) Settings() (string, output.Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.format, s.opts
}

// CacheStats reports plan cache hits and compilations so far.
func (s *Session) CacheStats() (hits, compiles int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits, s.compiles
}

func (s *Session) query(stmt *query.SelectStmt) (*query.ResultSet, error) {
	plan, table, err := s.compile(stmt)
	if err != nil {
		return nil, err
	}
	source, err := s.source(stmt.From, table)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	workers := s.workers
	s.mu.Unlock()

	start := time.Now()
	rs, err := query.ExecuteWithOptions(plan, source, query.ExecOptions{Workers: workers})
	if err != nil {
		return nil, err
	}
	s.logger.Printf("execute %s: %d rows in %v (workers=%d)", plan.Table, len(rs.Rows), time.Since(start), workers)
	return rs, nil
}

// source returns the rows of table, narrowed by the filter, OPEN, CLOSE and
// CLEAR parts of from.
func (s *Session) source(from *query.FromClause, table ledger.Table) (query.RowSource, error) {
	if !from.Narrows() {
		return table.Source, nil
	}
	if s.ledger == nil {
		return nil, ErrNoLedger
	}
	var entries *query.Catalog
	if t, ok := s.tables[ledger.EntriesTable]; ok {
		entries = t.Catalog
	}
	start := time.Now()
	narrowed, err := s.ledger.Narrow(from, entries)
	if err != nil {
		return nil, err
	}
	source, ok := narrowed.Source(table.Catalog.Name())
	if !ok {
		return nil, ErrNoLedger
	}
	s.logger.Printf("narrow: %d of %d transactions in %v", len(narrowed.Transactions), len(s.ledger.Transactions), time.Since(start))
	return source, nil
}

func (s *Session) table(name string) (ledger.Table, error) {
	if name == "" {
		name = ledger.PostingsTable
	}
	t, ok := s.tables[strings.ToLower(name)]
	if !ok {
		return ledger.Table{}, &query.CompileError{
			Kind: query.ErrUnknownTable,
			Msg:  fmt.Sprintf("no table named %s (available: %s)", name, strings.Join(ledger.TableNames(s.tables), ", ")),
		}
	}
	return t, nil
}

// compile returns the plan of stmt, from the cache when the same canonical
// statement was compiled before.
func (s *Session) compile(stmt *query.SelectStmt) (*query.Plan, ledger.Table, error) {
	table, err := s.table(stmt.From.TableName())
	if err != nil {
		return nil, ledger.Table{}, err
	}
	key := table.Catalog.Name() + "\x00" + query.FormatStatement(stmt)

	s.mu.Lock()
	if s.plans != nil {
		if v, ok := s.plans.Get(key); ok {
			s.hits++
			s.mu.Unlock()
			s.logger.Printf("plan cache hit: %s", query.FormatStatement(stmt))
			return v.(*query.Plan), table, nil
		}
	}
	s.mu.Unlock()

	start := time.Now()
	plan, err := query.Compile(stmt, table.Catalog)
	if err != nil {
		return nil, ledger.Table{}, err
	}
	s.logger.Printf("compile: %v", time.Since(start))

	s.mu.Lock()
	s.compiles++
	if s.plans != nil {
		s.plans.Add(key, plan)
	}
	s.mu.Unlock()
	return plan, table, nil
}

func explainResult(plan *query.Plan) *query.ResultSet {
	rs := &query.ResultSet{Columns: []query.ResultColumn{{Name: "plan", Type: query.TypeStr}}}
	for _, line := range strings.Split(strings.TrimRight(plan.Explain(), "\n"), "\n") {
		rs.Rows = append(rs.Rows, []query.Value{line})
	}
	return rs
}
