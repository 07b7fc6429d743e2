package session

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vegasq/ledgerql/config"
	"github.com/vegasq/ledgerql/ledger"
	"github.com/vegasq/ledgerql/output"
	"github.com/vegasq/ledgerql/query"
)

func amount(n, currency string) *ledger.Amount {
	return &ledger.Amount{Number: decimal.RequireFromString(n), Currency: currency}
}

func testLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l := &ledger.Ledger{}
	l.Add(
		&ledger.Transaction{
			Date: query.NewDate(2024, 1, 5), Flag: "*", Payee: "Cafe", Narration: "Coffee",
			Postings: []*ledger.Posting{
				{Account: "Expenses:Food", Units: amount("4.50", "USD")},
				{Account: "Assets:Cash"},
			},
		},
		&ledger.Transaction{
			Date: query.NewDate(2024, 1, 3), Flag: "*", Narration: "Opening",
			Postings: []*ledger.Posting{
				{Account: "Assets:Cash", Units: amount("100", "USD")},
				{Account: "Equity:Opening", Units: amount("-100", "USD")},
			},
		},
	)
	l.Sort()
	if err := l.Balance(); err != nil {
		t.Fatalf("Balance() error = %v", err)
	}
	return l
}

func newSession(t *testing.T, cfg *config.Config) (*Session, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	s, err := FromLedger(testLedger(t), &buf, cfg)
	if err != nil {
		t.Fatalf("FromLedger() error = %v", err)
	}
	return s, &buf
}

func csvConfig() *config.Config {
	cfg := config.Default()
	cfg.Format = "csv"
	return cfg
}

func TestSession_Run(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "select",
			query: "SELECT account, sum(number) AS total GROUP BY account ORDER BY account",
			want:  "account,total\nAssets:Cash,95.50\nEquity:Opening,-100.00\nExpenses:Food,4.50\n",
		},
		{
			name:  "balances",
			query: "BALANCES WHERE account ~ '^(Assets|Equity)'",
			want:  "account,currency,balance\nAssets:Cash,USD,95.50\nEquity:Opening,USD,-100.00\n",
		},
		{
			name:  "journal",
			query: "JOURNAL 'Cash'",
			want:  "date,flag,payee,narration,account,number,currency\n2024-01-03,*,,Opening,Assets:Cash,100.00,USD\n2024-01-05,*,Cafe,Coffee,Assets:Cash,-4.50,USD\n",
		},
		{
			name:  "entries table",
			query: "SELECT narration FROM entries ORDER BY date DESC;",
			want:  "narration\nCoffee\nOpening\n",
		},
		{
			name:  "print with close",
			query: "PRINT FROM year = 2024 CLOSE ON 2024-01-04",
			want:  "date,flag,description,account,position\n2024-01-03,*,Opening,Assets:Cash,100 USD\n2024-01-03,*,Opening,Equity:Opening,-100 USD\n",
		},
		{
			name:  "balances of the opening summary",
			query: "BALANCES FROM OPEN ON 2024-01-04 WHERE flag = 'S'",
			want:  "account,currency,balance\nAssets:Cash,USD,100\nEquity:Opening,USD,-100\nEquity:Opening-Balances,USD,0\n",
		},
		{
			name:  "hash date in from filter",
			query: `SELECT narration FROM entries date >= #"2024/01/04"`,
			want:  "narration\nCoffee\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, buf := newSession(t, csvConfig())
			if err := s.Run(tt.query); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("Run() output =\n%s\nwant\n%s", buf.String(), tt.want)
			}
		})
	}
}

func TestSession_Errors(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr error
	}{
		{"unknown table", "SELECT account FROM prices", query.ErrUnknownTable},
		{"unknown column", "SELECT nope", query.ErrUnknownColumn},
		{"unknown variable", "SET colour = 'red'", ErrUnknownVariable},
		{"unknown format", "SET format = 'xml'", output.ErrUnsupportedFormat},
		{"division by zero", "SELECT number / 0", query.ErrDivisionByZero},
		{"unknown column in from filter", "SELECT account FROM nope = 1", query.ErrUnknownColumn},
		{"explain checks the from filter", "EXPLAIN SELECT account FROM nope = 1", query.ErrUnknownColumn},
		{"unknown summary", "BALANCES AT cost", query.ErrNoMatchingFunction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, buf := newSession(t, nil)
			if err := s.Run(tt.query); !errors.Is(err, tt.wantErr) {
				t.Errorf("Run() error = %v, want %v", err, tt.wantErr)
			}
			if buf.Len() != 0 {
				t.Errorf("failed statement wrote output: %q", buf.String())
			}
		})
	}

	s, _ := newSession(t, nil)
	var pe *query.ParseError
	if err := s.Run("SELECT FROM"); !errors.As(err, &pe) {
		t.Errorf("Run() error = %v, want *query.ParseError", err)
	}
}

func TestSession_FromFilterNeedsLedger(t *testing.T) {
	tables, err := ledger.Tables(testLedger(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	s := New(tables, &buf, csvConfig())
	if err := s.Run("SELECT account FROM CLEAR"); !errors.Is(err, ErrNoLedger) {
		t.Errorf("Run() error = %v, want ErrNoLedger", err)
	}
	if err := s.Run("SELECT count(*) AS n FROM postings"); err != nil {
		t.Fatalf("plain FROM: %v", err)
	}
	if buf.String() != "n\n4\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestSession_Set(t *testing.T) {
	s, buf := newSession(t, nil)
	for _, stmt := range []string{"SET format = 'JSONL'", "SET precision = 3", "SET null = '-'", "SET workers = 4"} {
		if err := s.Run(stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	if buf.Len() != 0 {
		t.Errorf("SET wrote output: %q", buf.String())
	}
	format, opts := s.Settings()
	if format != "jsonl" || opts.Precision != 3 || opts.Null != "-" || s.workers != 4 {
		t.Errorf("settings = %s %+v workers=%d", format, opts, s.workers)
	}

	if err := s.Run("SELECT account, number WHERE account = 'Expenses:Food'"); err != nil {
		t.Fatal(err)
	}
	if want := "{\"account\":\"Expenses:Food\",\"number\":4.500}\n"; buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}

	if err := s.Run("SET precision = -1"); err != nil {
		t.Fatal(err)
	}
	if _, opts := s.Settings(); opts.Precision != -1 {
		t.Errorf("Precision = %d, want inferred", opts.Precision)
	}

	for _, stmt := range []string{"SET format = 1", "SET precision = 'x'", "SET precision = 99", "SET workers = 0", "SET null = 1"} {
		err := s.Run(stmt)
		var ce *output.ConfigurationError
		if !errors.As(err, &ce) {
			t.Errorf("%s: error = %v, want *output.ConfigurationError", stmt, err)
		}
	}
	if format, opts := s.Settings(); format != "jsonl" || opts.Precision != -1 || opts.Null != "-" || s.workers != 4 {
		t.Errorf("invalid SET changed settings: %s %+v workers=%d", format, opts, s.workers)
	}
}

func TestSession_PlanCache(t *testing.T) {
	var logs bytes.Buffer
	s, _ := newSession(t, csvConfig())
	s.SetLogger(log.New(&logs, "", 0))

	for _, q := range []string{
		"SELECT account WHERE number > 0",
		"select   ACCOUNT where number > 0",
		"SELECT account WHERE number > 1",
	} {
		if err := s.Run(q); err != nil {
			t.Fatalf("%s: %v", q, err)
		}
	}
	if hits, compiles := s.CacheStats(); hits != 1 || compiles != 2 {
		t.Errorf("CacheStats() = %d hits, %d compiles; want 1, 2", hits, compiles)
	}
	if !strings.Contains(logs.String(), "plan cache hit") {
		t.Errorf("log does not mention the cache hit:\n%s", logs.String())
	}

	cfg := csvConfig()
	cfg.PlanCacheSize = 0
	s, _ = newSession(t, cfg)
	for i := 0; i < 2; i++ {
		if err := s.Run("SELECT account"); err != nil {
			t.Fatal(err)
		}
	}
	if hits, compiles := s.CacheStats(); hits != 0 || compiles != 2 {
		t.Errorf("disabled cache: CacheStats() = %d, %d; want 0, 2", hits, compiles)
	}
}

func TestSession_Explain(t *testing.T) {
	s, _ := newSession(t, nil)
	rs, err := s.Execute("EXPLAIN SELECT account, count(*) GROUP BY account")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(rs.Columns) != 1 || rs.Columns[0].Name != "plan" {
		t.Fatalf("Columns = %+v", rs.Columns)
	}
	if rs.Rows[0][0] != "Scan postings" {
		t.Errorf("first plan line = %v, want Scan postings", rs.Rows[0][0])
	}
}

func TestSession_Show(t *testing.T) {
	s, _ := newSession(t, nil)

	rs, err := s.Execute("SHOW TABLES")
	if err != nil {
		t.Fatal(err)
	}
	if len(rs.Rows) != 2 || rs.Rows[0][0] != "entries" || rs.Rows[1][0] != "postings" {
		t.Errorf("SHOW TABLES = %v", rs.Rows)
	}

	rs, err = s.Execute("SHOW COLUMNS FROM entries")
	if err != nil {
		t.Fatal(err)
	}
	if rs.Rows[0][0] != "date" || rs.Rows[0][1] != "date" || rs.Rows[0][2] == nil {
		t.Errorf("first entries column = %v", rs.Rows[0])
	}
	if _, err := s.Execute("SHOW COLUMNS FROM nope"); !errors.Is(err, query.ErrUnknownTable) {
		t.Errorf("SHOW COLUMNS FROM nope error = %v", err)
	}

	rs, err = s.Execute("SHOW FUNCTIONS")
	if err != nil {
		t.Fatal(err)
	}
	found := map[string]string{}
	for _, row := range rs.Rows {
		found[row[2].(string)] = row[1].(string)
	}
	for sig, kind := range map[string]string{
		"root(str, int) -> str":   "scalar",
		"sum(decimal) -> decimal": "aggregate",
		"upper(str) -> str":       "scalar",
	} {
		if found[sig] != kind {
			t.Errorf("SHOW FUNCTIONS: %s kind = %q, want %q", sig, found[sig], kind)
		}
	}
}

func TestSession_Concurrent(t *testing.T) {
	s, _ := newSession(t, nil)
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rs, err := s.Execute("SELECT count(*) AS n")
			if err == nil && rs.Rows[0][0] != int64(4) {
				err = errors.New("wrong count")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Error(err)
		}
	}
}
