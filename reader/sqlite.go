package reader

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/vegasq/ledgerql/ledger"
)

// DefaultSQLiteTable is the table ReadSQLite reads when none is given.
const DefaultSQLiteTable = "postings"

// ReadSQLite loads the flat posting records stored in table of the SQLite
// database at path. The database must exist; it is never created.
func ReadSQLite(ctx context.Context, path, table string) (*ledger.Ledger, error) {
	if table == "" {
		table = DefaultSQLiteTable
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	records, err := queryRecords(ctx, db, "SELECT * FROM "+quoteIdent(table))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return BuildLedger(records, path)
}

func queryRecords(ctx context.Context, db *sql.DB, stmt string) ([]map[string]interface{}, error) {
	rows, err := db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var records []map[string]interface{}
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rec := make(map[string]interface{}, len(cols))
		for i, c := range cols {
			rec[strings.ToLower(c)] = vals[i]
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return records, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
