package ledger

import (
	"fmt"
	"sort"

	"github.com/vegasq/ledgerql/query"
)

// Table names.
const (
	PostingsTable = "postings"
	EntriesTable  = "entries"
)

var entryColumns = []query.ColumnDef{
	{Name: "date", Type: query.TypeDate, Doc: "Transaction date."},
	{Name: "year", Type: query.TypeInt, Doc: "Year of the transaction date."},
	{Name: "month", Type: query.TypeInt, Doc: "Month of the transaction date."},
	{Name: "day", Type: query.TypeInt, Doc: "Day of the transaction date."},
	{Name: "flag", Type: query.TypeStr, Doc: "Transaction flag, * for cleared and ! for pending."},
	{Name: "payee", Type: query.TypeStr, Doc: "Payee, NULL when absent."},
	{Name: "narration", Type: query.TypeStr, Doc: "Narration text."},
	{Name: "description", Type: query.TypeStr, Doc: "Payee and narration joined by \" | \"."},
	{Name: "tags", Type: query.SetOf(query.TypeStr), Doc: "Transaction tags."},
	{Name: "links", Type: query.SetOf(query.TypeStr), Doc: "Transaction links."},
}

var entrySourceColumns = []query.ColumnDef{
	{Name: "filename", Type: query.TypeStr, Doc: "Source file of the transaction."},
	{Name: "lineno", Type: query.TypeInt, Doc: "Line of the transaction in its source file."},
}

var postingOnlyColumns = []query.ColumnDef{
	{Name: "account", Type: query.TypeStr, Doc: "Account of the posting."},
	{Name: "number", Type: query.TypeDecimal, Doc: "Number of units."},
	{Name: "currency", Type: query.TypeStr, Doc: "Currency of the units."},
	{Name: "price_number", Type: query.TypeDecimal, Doc: "Per-unit price, NULL when unpriced."},
	{Name: "price_currency", Type: query.TypeStr, Doc: "Currency of the price."},
	{Name: "weight_number", Type: query.TypeDecimal, Doc: "Units times price, the units when unpriced."},
	{Name: "weight_currency", Type: query.TypeStr, Doc: "Currency of the weight."},
	{Name: "position", Type: query.TypeStr, Doc: "Units and price as text."},
	{Name: "meta", Type: query.TypeObject, Doc: "Posting metadata."},
	{Name: "entry_meta", Type: query.TypeObject, Doc: "Transaction metadata."},
}

func postingColumns() []query.ColumnDef {
	cols := append([]query.ColumnDef(nil), entryColumns...)
	cols = append(cols, postingOnlyColumns...)
	return append(cols, entrySourceColumns...)
}

func entriesColumns() []query.ColumnDef {
	cols := append([]query.ColumnDef(nil), entryColumns...)
	cols = append(cols, query.ColumnDef{Name: "meta", Type: query.TypeObject, Doc: "Transaction metadata."})
	return append(cols, entrySourceColumns...)
}

// Functions returns the built-in functions plus the account functions.
func Functions() *query.FunctionRegistry {
	r := query.Builtins()
	r.MustRegister(accountFunctions()...)
	return r
}

// PostingsCatalog returns the schema of the postings table.
func PostingsCatalog(reg *query.FunctionRegistry) (*query.Catalog, error) {
	return query.NewCatalog(PostingsTable, postingColumns(), reg)
}

// EntriesCatalog returns the schema of the entries table.
func EntriesCatalog(reg *query.FunctionRegistry) (*query.Catalog, error) {
	return query.NewCatalog(EntriesTable, entriesColumns(), reg)
}

// Table pairs a catalog with the rows it describes.
type Table struct {
	Catalog *query.Catalog
	Source  query.RowSource
}

// Tables exposes l as the postings and entries tables. A nil reg uses
// Functions().
func Tables(l *Ledger, reg *query.FunctionRegistry) (map[string]Table, error) {
	if reg == nil {
		reg = Functions()
	}
	postings, err := PostingsCatalog(reg)
	if err != nil {
		return nil, fmt.Errorf("postings catalog: %w", err)
	}
	entries, err := EntriesCatalog(reg)
	if err != nil {
		return nil, fmt.Errorf("entries catalog: %w", err)
	}
	return map[string]Table{
		PostingsTable: {Catalog: postings, Source: l.Postings()},
		EntriesTable:  {Catalog: entries, Source: l.Entries()},
	}, nil
}

// TableNames returns the sorted keys of tables.
func TableNames(tables map[string]Table) []string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
