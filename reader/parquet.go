package reader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/vegasq/ledgerql/ledger"
	"github.com/vegasq/ledgerql/query"
)

// maxFiles bounds the number of files a glob pattern may expand to.
const maxFiles = 1000

// Reader reads parquet files and returns rows as maps.
//
// It keeps both the OS file handle and the parquet file handle so Close can
// release them.
type Reader struct {
	file   *os.File
	pqFile *parquet.File
}

// NewReader opens path and validates it as a parquet file.
func NewReader(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pqFile, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	return &Reader{file: file, pqFile: pqFile}, nil
}

// ReadAll reads every row into memory, keyed by column name.
func (r *Reader) ReadAll() ([]map[string]interface{}, error) {
	rows := make([]map[string]interface{}, 0, r.pqFile.NumRows())

	reader := parquet.NewReader(r.pqFile)
	defer func() { _ = reader.Close() }()

	for {
		row := make(map[string]interface{})
		err := reader.Read(&row)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// Schema returns the parquet file schema.
func (r *Reader) Schema() *parquet.Schema {
	return r.pqFile.Schema()
}

// Close releases the file. It is safe to call more than once.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// isGlob reports whether pattern contains glob metacharacters.
func isGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

// expand resolves pattern to the files it names.
func expand(pattern string) ([]string, error) {
	if !isGlob(pattern) {
		return []string{pattern}, nil
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no files match pattern: %s", pattern)
	}
	if len(matches) > maxFiles {
		return nil, fmt.Errorf("glob pattern matched too many files (%d), maximum is %d", len(matches), maxFiles)
	}
	return matches, nil
}

// ReadMultipleFiles reads all rows of the parquet files matching pattern.
// Rows read through a glob are tagged with FileColumn; a plain path is read
// as is.
func ReadMultipleFiles(pattern string) ([]map[string]interface{}, error) {
	paths, err := expand(pattern)
	if err != nil {
		return nil, err
	}

	var allRows []map[string]interface{}
	for _, path := range paths {
		r, err := NewReader(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		rows, readErr := r.ReadAll()
		closeErr := r.Close()
		if readErr != nil {
			return nil, fmt.Errorf("failed to read rows from %s: %w", path, readErr)
		}
		if closeErr != nil {
			return nil, fmt.Errorf("failed to close %s: %w", path, closeErr)
		}

		if isGlob(pattern) {
			for i := range rows {
				rows[i][FileColumn] = path
			}
		}
		allRows = append(allRows, rows...)
	}

	return allRows, nil
}

// ReadParquet loads the flat posting records of the files matching pattern.
func ReadParquet(pattern string) (*ledger.Ledger, error) {
	records, err := ReadMultipleFiles(pattern)
	if err != nil {
		return nil, err
	}
	return BuildLedger(records, pattern)
}

// PostingRecord is the flat posting layout written by WriteParquet.
type PostingRecord struct {
	Txn           int64  `parquet:"txn"`
	Date          string `parquet:"date"`
	Flag          string `parquet:"flag"`
	Payee         string `parquet:"payee,optional"`
	Narration     string `parquet:"narration"`
	Tags          string `parquet:"tags,optional"`
	Links         string `parquet:"links,optional"`
	Account       string `parquet:"account"`
	Number        string `parquet:"number,optional"`
	Currency      string `parquet:"currency,optional"`
	PriceNumber   string `parquet:"price_number,optional"`
	PriceCurrency string `parquet:"price_currency,optional"`
	Meta          string `parquet:"meta,optional"`
	EntryMeta     string `parquet:"entry_meta,optional"`
	Filename      string `parquet:"filename,optional"`
	Lineno        int64  `parquet:"lineno"`
}

// Records flattens l into one record per posting.
func Records(l *ledger.Ledger) ([]PostingRecord, error) {
	var out []PostingRecord
	for i, t := range l.Transactions {
		entryMeta, err := encodeMeta(t.Meta)
		if err != nil {
			return nil, err
		}
		for _, p := range t.Postings {
			rec := PostingRecord{
				Txn:       int64(i + 1),
				Date:      query.FormatValue(t.Date),
				Flag:      t.Flag,
				Payee:     t.Payee,
				Narration: t.Narration,
				Tags:      strings.Join(t.Tags, ","),
				Links:     strings.Join(t.Links, ","),
				Account:   p.Account,
				EntryMeta: entryMeta,
				Filename:  t.Filename,
				Lineno:    int64(t.Lineno),
			}
			if p.Units != nil {
				rec.Number, rec.Currency = query.DecimalText(p.Units.Number), p.Units.Currency
			}
			if p.Price != nil {
				rec.PriceNumber, rec.PriceCurrency = query.DecimalText(p.Price.Number), p.Price.Currency
			}
			if rec.Meta, err = encodeMeta(p.Meta); err != nil {
				return nil, err
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

// encodeMeta renders metadata as a JSON object; decimals are written as
// numbers so they read back exactly.
func encodeMeta(m query.Object) (string, error) {
	if len(m) == 0 {
		return "", nil
	}
	data, err := json.Marshal(jsonValue(m))
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(data), nil
}

func jsonValue(v query.Value) interface{} {
	switch x := v.(type) {
	case query.Object:
		m := make(map[string]interface{}, len(x))
		for k, e := range x {
			m[k] = jsonValue(e)
		}
		return m
	case query.List:
		return jsonList(x)
	case query.Set:
		return jsonList(x)
	case nil, bool, int64, string:
		return x
	}
	if isDecimal(v) {
		return json.Number(query.FormatValue(v))
	}
	return query.FormatValue(v)
}

func jsonList(vals []query.Value) []interface{} {
	out := make([]interface{}, len(vals))
	for i, e := range vals {
		out[i] = jsonValue(e)
	}
	return out
}

func isDecimal(v query.Value) bool {
	return query.TypeOf(v).Equal(query.TypeDecimal)
}

// WriteParquet writes l to w in the flat posting layout.
func WriteParquet(w io.Writer, l *ledger.Ledger) error {
	records, err := Records(l)
	if err != nil {
		return err
	}
	writer := parquet.NewGenericWriter[PostingRecord](w)
	if _, err := writer.Write(records); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	return nil
}
