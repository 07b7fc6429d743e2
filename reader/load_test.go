package reader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "books.YAML")
	if err := os.WriteFile(yamlPath, []byte(sampleYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	parquetPath := writeParquetFile(t, dir, "books.parquet", sampleExport())
	sqlitePath := createSQLiteLedger(t, dir, "books.sqlite3",
		createPostings,
		`INSERT INTO postings VALUES
			(1, '2024-01-03', '*', NULL, 'Opening', 'Assets:Cash', '100', 'USD', NULL, NULL),
			(1, '2024-01-03', '*', NULL, 'Opening', 'Equity:Opening', '-100', 'USD', NULL, NULL),
			(2, '2024-01-05', '*', 'Cafe', 'Coffee', 'Expenses:Food', '4.50', 'USD', NULL, NULL),
			(2, '2024-01-05', '*', 'Cafe', 'Coffee', 'Assets:Cash', '-4.50', 'USD', NULL, NULL)`,
	)

	for _, path := range []string{yamlPath, parquetPath, filepath.Join(dir, "*.parquet"), sqlitePath} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			l, err := Load(context.Background(), path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if len(l.Transactions) != 2 {
				t.Fatalf("got %d transactions, want 2", len(l.Transactions))
			}
			if l.Transactions[0].Narration != "Opening" {
				t.Errorf("first transaction = %+v, want Opening", l.Transactions[0])
			}
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(context.Background(), filepath.Join(dir, "books.csv")); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Load(.csv) error = %v, want ErrUnknownFormat", err)
	}
	if _, err := Load(context.Background(), filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load() of a missing YAML file succeeded")
	}
}
