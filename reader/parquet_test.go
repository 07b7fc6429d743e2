package reader

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vegasq/ledgerql/ledger"
	"github.com/vegasq/ledgerql/query"
)

func TestReadParquet(t *testing.T) {
	path := writeParquetFile(t, t.TempDir(), "export.parquet", sampleExport())

	l, err := ReadParquet(path)
	if err != nil {
		t.Fatalf("ReadParquet() error = %v", err)
	}
	if len(l.Transactions) != 2 {
		t.Fatalf("got %d transactions, want 2", len(l.Transactions))
	}

	opening, coffee := l.Transactions[0], l.Transactions[1]
	if opening.Narration != "Opening" || opening.Payee != "" || opening.Flag != "*" {
		t.Errorf("first transaction = %+v, want the opening entry sorted first", opening)
	}
	if opening.Filename != path {
		t.Errorf("Filename = %q, want %q", opening.Filename, path)
	}
	if !reflect.DeepEqual(coffee.Tags, []string{"trip", "food"}) {
		t.Errorf("Tags = %q", coffee.Tags)
	}

	cash := coffee.Postings[1]
	if cash.Units == nil || cash.Units.String() != "-4.50 USD" {
		t.Errorf("elided posting = %v, want -4.50 USD", cash.Units)
	}
	meta := coffee.Postings[0].Meta
	if meta["receipt"] != "r-1" || meta["n"] != int64(2) {
		t.Errorf("Meta = %#v", meta)
	}
	if d, ok := meta["rate"].(decimal.Decimal); !ok || query.DecimalText(d) != "0.125" {
		t.Errorf("Meta[rate] = %#v, want exact decimal 0.125", meta["rate"])
	}
}

func TestReadParquet_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		rows    []exportRow
		wantErr error
	}{
		{
			name: "unbalanced",
			rows: []exportRow{
				{Date: "2024-01-01", Narration: "x", Account: "Assets:Cash", Number: "1", Currency: "USD"},
			},
			wantErr: ledger.ErrUnbalanced,
		},
		{
			name: "missing account",
			rows: []exportRow{
				{Date: "2024-01-01", Narration: "x", Number: "1", Currency: "USD"},
			},
			wantErr: ErrMissingColumn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeParquetFile(t, dir, tt.name+".parquet", tt.rows)
			if _, err := ReadParquet(path); !errors.Is(err, tt.wantErr) {
				t.Errorf("ReadParquet() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := ReadParquet(filepath.Join(dir, "missing.parquet")); err == nil {
		t.Error("ReadParquet() of a missing file succeeded")
	}
	bad := filepath.Join(dir, "bad.parquet")
	if err := os.WriteFile(bad, []byte("not parquet"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadParquet(bad); err == nil {
		t.Error("ReadParquet() of a corrupted file succeeded")
	}
}

func TestReadParquet_Glob(t *testing.T) {
	dir := t.TempDir()
	rows := sampleExport()
	first := writeParquetFile(t, dir, "2024-01.parquet", rows[:2])
	second := writeParquetFile(t, dir, "2024-02.parquet", rows[2:])
	writeParquetFile(t, dir, "other.parquet", rows[2:])

	l, err := ReadParquet(filepath.Join(dir, "2024-*.parquet"))
	if err != nil {
		t.Fatalf("ReadParquet() error = %v", err)
	}
	if len(l.Transactions) != 2 {
		t.Fatalf("got %d transactions, want 2", len(l.Transactions))
	}
	if l.Transactions[0].Filename != second || l.Transactions[1].Filename != first {
		t.Errorf("filenames = %q, %q; want the source file of each record",
			l.Transactions[0].Filename, l.Transactions[1].Filename)
	}
}

func TestReadMultipleFiles(t *testing.T) {
	dir := t.TempDir()
	rows := sampleExport()
	single := writeParquetFile(t, dir, "a.parquet", rows[:2])
	writeParquetFile(t, dir, "b.parquet", rows[2:])

	result, err := ReadMultipleFiles(single)
	if err != nil {
		t.Fatalf("ReadMultipleFiles() error = %v", err)
	}
	if len(result) != 2 {
		t.Errorf("single file returned %d rows, want 2", len(result))
	}
	if _, ok := result[0][FileColumn]; ok {
		t.Errorf("single file read added %s", FileColumn)
	}

	result, err = ReadMultipleFiles(filepath.Join(dir, "*.parquet"))
	if err != nil {
		t.Fatalf("ReadMultipleFiles() error = %v", err)
	}
	files := make(map[string]bool)
	for _, row := range result {
		s, ok := row[FileColumn].(string)
		if !ok {
			t.Fatalf("%s = %#v, want string", FileColumn, row[FileColumn])
		}
		files[s] = true
	}
	if len(result) != 4 || len(files) != 2 {
		t.Errorf("glob read %d rows from %d files, want 4 from 2", len(result), len(files))
	}

	if _, err := ReadMultipleFiles(filepath.Join(dir, "none-*.parquet")); err == nil {
		t.Error("ReadMultipleFiles() with no matches succeeded")
	}
	if _, err := ReadMultipleFiles(filepath.Join(dir, "[.parquet")); err == nil {
		t.Error("ReadMultipleFiles() with a malformed pattern succeeded")
	}
}

func TestWriteParquet_RoundTrip(t *testing.T) {
	src, err := ReadParquet(writeParquetFile(t, t.TempDir(), "in.parquet", sampleExport()))
	if err != nil {
		t.Fatal(err)
	}
	src.Transactions[1].Links = []string{"l-1"}
	src.Transactions[1].Meta = query.Object{"period": "2024-01", "items": query.List{int64(1), "x"}}
	src.Transactions[1].Postings[0].Price = &ledger.Amount{Number: decimal.RequireFromString("1"), Currency: "USD"}

	path := filepath.Join(t.TempDir(), "out.parquet")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteParquet(f, src); err != nil {
		t.Fatalf("WriteParquet() error = %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := ReadParquet(path)
	if err != nil {
		t.Fatalf("ReadParquet() error = %v", err)
	}
	want, err := Records(src)
	if err != nil {
		t.Fatal(err)
	}
	have, err := Records(got)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(have, want) {
		t.Errorf("round trip changed records:\n got %+v\nwant %+v", have, want)
	}
}

func TestExtractSchemaInfo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.parquet")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	l := &ledger.Ledger{}
	if err := WriteParquet(f, l); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	infos, err := ExtractSchemaInfo(path)
	if err != nil {
		t.Fatalf("ExtractSchemaInfo() error = %v", err)
	}
	types := make(map[string]SchemaInfo)
	for _, info := range infos {
		types[info.Name] = info
	}
	for name, want := range map[string]string{"txn": "int", "date": "str", "number": "str", "lineno": "int"} {
		if got := types[name].Type; got != want {
			t.Errorf("column %s type = %q, want %q", name, got, want)
		}
	}
	if !types["payee"].Optional || types["txn"].Optional {
		t.Errorf("repetition flags wrong: payee %+v, txn %+v", types["payee"], types["txn"])
	}
	if err := CheckPostingSchema(infos); err != nil {
		t.Errorf("CheckPostingSchema() error = %v", err)
	}

	type other struct {
		ID   int64  `parquet:"id"`
		Name string `parquet:"name"`
	}
	otherPath := writeParquetFile(t, dir, "other.parquet", []other{{ID: 1, Name: "alice"}})
	infos, err = ExtractSchemaInfo(otherPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := CheckPostingSchema(infos); !errors.Is(err, ErrMissingColumn) {
		t.Errorf("CheckPostingSchema() error = %v, want ErrMissingColumn", err)
	}
}
