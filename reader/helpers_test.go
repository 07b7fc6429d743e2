package reader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
)

// exportRow is a hand-written flat export without txn, flag, filename or
// lineno columns.
type exportRow struct {
	Date      string `parquet:"date"`
	Payee     string `parquet:"payee,optional"`
	Narration string `parquet:"narration"`
	Tags      string `parquet:"tags,optional"`
	Account   string `parquet:"account"`
	Number    string `parquet:"number,optional"`
	Currency  string `parquet:"currency,optional"`
	Meta      string `parquet:"meta,optional"`
}

func sampleExport() []exportRow {
	return []exportRow{
		{Date: "2024-01-05", Payee: "Cafe", Narration: "Coffee", Tags: "trip, food", Account: "Expenses:Food", Number: "4.50", Currency: "USD", Meta: `{"receipt": "r-1", "n": 2, "rate": 0.125}`},
		{Date: "2024-01-05", Payee: "Cafe", Narration: "Coffee", Tags: "trip, food", Account: "Assets:Cash"},
		{Date: "2024-01-03", Narration: "Opening", Account: "Assets:Cash", Number: "100", Currency: "USD"},
		{Date: "2024-01-03", Narration: "Opening", Account: "Equity:Opening", Number: "-100", Currency: "USD"},
	}
}

// writeParquetFile writes rows to dir/name with the parquet-go writer.
func writeParquetFile[T any](t *testing.T, dir, name string, rows []T) string {
	t.Helper()
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	writer := parquet.NewGenericWriter[T](f)
	if _, err := writer.Write(rows); err != nil {
		t.Fatalf("failed to write test data: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("failed to close file: %v", err)
	}
	return path
}
