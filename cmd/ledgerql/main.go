package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/vegasq/ledgerql/config"
	"github.com/vegasq/ledgerql/ledger"
	"github.com/vegasq/ledgerql/output"
	"github.com/vegasq/ledgerql/query"
	"github.com/vegasq/ledgerql/reader"
	"github.com/vegasq/ledgerql/session"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// options are the parsed command line flags.
type options struct {
	query      string
	format     string
	precision  int
	null       string
	workers    int
	configPath string
	source     string
	verbose    bool
	schema     bool
	export     string
}

func newFlagSet(opts *options, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("ledgerql", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.query, "q", "", "Query to run (e.g., \"BALANCES WHERE account ~ '^Assets'\"); read from stdin when empty")
	fs.StringVar(&opts.format, "f", "", "Output format: "+strings.Join(output.Formats(), ", "))
	fs.IntVar(&opts.precision, "precision", -1, "Fractional digits of decimals (-1 = infer per column)")
	fs.StringVar(&opts.null, "null", "", "Text printed for NULL values")
	fs.IntVar(&opts.workers, "workers", 1, "Goroutines used for aggregation")
	fs.StringVar(&opts.configPath, "config", "", "Path of a YAML configuration file")
	fs.StringVar(&opts.source, "source", "", "Name of a ledger source from the configuration file")
	fs.BoolVar(&opts.verbose, "v", false, "Log timings and plan cache hits to stderr")
	fs.BoolVar(&opts.schema, "schema", false, "Show the Parquet schema of the ledger file instead of running a query")
	fs.StringVar(&opts.export, "export", "", "Write the loaded ledger to this Parquet file")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: ledgerql [options] <ledger file>\n\n")
		fmt.Fprintf(stderr, "Query a ledger of transactions with a SQL-like language.\n")
		fmt.Fprintf(stderr, "Ledger files may be .parquet (globs allowed), .sqlite or .yaml.\n\n")
		fmt.Fprintf(stderr, "IMPORTANT: All flags must come BEFORE file arguments.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  ledgerql -q \"BALANCES\" books.parquet\n")
		fmt.Fprintf(stderr, "  ledgerql -f csv -q \"SELECT year, sum(number) GROUP BY year\" 'books/*.parquet'\n")
		fmt.Fprintf(stderr, "  ledgerql -q \"JOURNAL 'Expenses:Food'\" books.yaml\n")
		fmt.Fprintf(stderr, "  ledgerql -q \"BALANCES FROM OPEN ON 2024-01-01 CLOSE ON 2025-01-01 CLEAR\" books.yaml\n")
		fmt.Fprintf(stderr, "  ledgerql -schema books.parquet\n")
	}
	return fs
}

// run is main without the process exit; it returns the exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var opts options
	fs := newFlagSet(&opts, stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := applyFlags(fs, &opts, cfg); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	path, err := ledgerPath(fs, &opts, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n\n", err)
		fs.Usage()
		return 1
	}

	if opts.schema {
		if opts.query != "" {
			fmt.Fprintf(stderr, "Error: -schema and -q cannot be used together\n")
			return 1
		}
		if err := showSchema(path, cfg, stdout); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	l, err := reader.Load(context.Background(), path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(stderr, "Error: file '%s' not found\n", path)
			fmt.Fprintf(stderr, "Please check the file path and try again.\n")
		} else {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}

	if opts.export != "" {
		if err := export(opts.export, l); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if opts.query == "" {
			return 0
		}
	}

	s, err := session.FromLedger(l, stdout, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if opts.verbose {
		s.SetLogger(log.New(stderr, "ledgerql: ", log.Ltime|log.Lmicroseconds))
	}

	if opts.query != "" {
		if err := s.Run(opts.query); err != nil {
			reportQueryError(stderr, err)
			return 1
		}
		return 0
	}
	return runStatements(s, stdin, stderr)
}

// applyFlags overrides cfg with the flags given on the command line.
func applyFlags(fs *flag.FlagSet, opts *options, cfg *config.Config) error {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "f":
			cfg.Format = opts.format
		case "precision":
			cfg.Precision = opts.precision
		case "null":
			cfg.Null = opts.null
		case "workers":
			cfg.Workers = opts.workers
		}
	})
	return cfg.Validate()
}

// ledgerPath picks the positional file, or the -source entry of the
// configuration.
func ledgerPath(fs *flag.FlagSet, opts *options, cfg *config.Config) (string, error) {
	switch {
	case opts.source != "" && fs.NArg() > 0:
		return "", errors.New("-source and a ledger file argument cannot be used together")
	case opts.source != "":
		path, ok := cfg.Sources[opts.source]
		if !ok {
			return "", fmt.Errorf("unknown source %q (configured: %s)", opts.source, strings.Join(cfg.SourceNames(), ", "))
		}
		return path, nil
	case fs.NArg() == 0:
		return "", errors.New("missing ledger file argument")
	case fs.NArg() > 1:
		return "", fmt.Errorf("expected one ledger file, got %d (quote glob patterns)", fs.NArg())
	}
	return fs.Arg(0), nil
}

// runStatements runs one statement per non-blank input line. It stops at
// the first failing statement.
func runStatements(s *session.Session, stdin io.Reader, stderr io.Writer) int {
	scanner := bufio.NewScanner(stdin)
	scanner.Buffer(make([]byte, 64*1024), query.MaxQueryLength)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "--") {
			continue
		}
		if err := s.Run(text); err != nil {
			fmt.Fprintf(stderr, "line %d: ", line)
			reportQueryError(stderr, err)
			return 1
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(stderr, "Error reading statements: %v\n", err)
		return 1
	}
	return 0
}

func reportQueryError(stderr io.Writer, err error) {
	var (
		le *query.LexError
		pe *query.ParseError
	)
	if errors.As(err, &le) || errors.As(err, &pe) {
		fmt.Fprintf(stderr, "Error parsing query: %v\n\n", err)
		fmt.Fprintf(stderr, "Query format: SELECT <targets> [FROM postings|entries] [WHERE <condition>] ...\n")
		fmt.Fprintf(stderr, "Example: SELECT account, sum(number) WHERE year = 2024 GROUP BY account\n")
		return
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
}

// showSchema lists the Parquet columns of path as a result set.
func showSchema(path string, cfg *config.Config, stdout io.Writer) error {
	infos, err := reader.ExtractSchemaInfo(path)
	if err != nil {
		return err
	}
	rs := &query.ResultSet{Columns: []query.ResultColumn{
		{Name: "name", Type: query.TypeStr},
		{Name: "type", Type: query.TypeStr},
		{Name: "physical_type", Type: query.TypeStr},
		{Name: "logical_type", Type: query.TypeStr},
		{Name: "required", Type: query.TypeBool},
		{Name: "optional", Type: query.TypeBool},
		{Name: "repeated", Type: query.TypeBool},
	}}
	for _, info := range infos {
		var logical query.Value
		if info.LogicalType != "" {
			logical = info.LogicalType
		}
		rs.Rows = append(rs.Rows, []query.Value{
			info.Name, info.Type, info.PhysicalType, logical, info.Required, info.Optional, info.Repeated,
		})
	}
	if err := output.Render(rs, cfg.Format, stdout, cfg.Options()); err != nil {
		return err
	}
	if err := reader.CheckPostingSchema(infos); err != nil {
		return fmt.Errorf("%s is not a posting export: %w", path, err)
	}
	return nil
}

func export(path string, l *ledger.Ledger) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := reader.WriteParquet(f, l); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
