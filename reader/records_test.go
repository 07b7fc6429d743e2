package reader

import (
	"errors"
	"testing"
	"time"

	"github.com/vegasq/ledgerql/ledger"
	"github.com/vegasq/ledgerql/query"
)

func TestBuildLedger_Grouping(t *testing.T) {
	records := []map[string]interface{}{
		{"txn": int64(7), "date": "2024-03-01", "narration": "Rent", "account": "Expenses:Rent", "number": "1000", "currency": "EUR"},
		{"txn": int64(7), "date": "2024-03-01", "narration": "Rent", "account": "Assets:Bank"},
		// Same description and date, but a different txn id.
		{"txn": int64(8), "date": "2024-03-01", "narration": "Rent", "account": "Expenses:Rent", "number": "5", "currency": "EUR"},
		{"txn": int64(8), "date": "2024-03-01", "narration": "Rent", "account": "Assets:Bank", "number": "-5", "currency": "EUR"},
	}

	l, err := BuildLedger(records, "rent.db")
	if err != nil {
		t.Fatalf("BuildLedger() error = %v", err)
	}
	if len(l.Transactions) != 2 {
		t.Fatalf("got %d transactions, want 2", len(l.Transactions))
	}
	first := l.Transactions[0]
	if first.Filename != "rent.db" || first.Flag != "*" {
		t.Errorf("first = %+v, want source filename and default flag", first)
	}
	if got := first.Postings[1].Units.String(); got != "-1000 EUR" {
		t.Errorf("elided posting = %s, want -1000 EUR", got)
	}
}

func TestBuildLedger_ValueConversions(t *testing.T) {
	records := []map[string]interface{}{
		{
			"date": int32(19723), "flag": []byte("!"), "payee": []byte("Shop"),
			"tags": []interface{}{"a", " b ", ""}, "links": []string{"x"},
			"account": "Expenses:Misc", "number": 2.5, "currency": "USD",
			"price_number": int64(2), "price_currency": "EUR",
			"lineno": "12", "entry_meta": map[string]interface{}{"k": 1},
		},
		{
			"date": time.Date(2024, 1, 1, 15, 30, 0, 0, time.UTC), "flag": []byte("!"), "payee": []byte("Shop"),
			"tags": []interface{}{"a", " b ", ""}, "links": []string{"x"},
			"account": "Assets:Cash", "number": int32(-5), "currency": "EUR",
			"lineno": "12",
		},
	}

	l, err := BuildLedger(records, "mixed")
	if err != nil {
		t.Fatalf("BuildLedger() error = %v", err)
	}
	if len(l.Transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(l.Transactions))
	}
	txn := l.Transactions[0]
	if !txn.Date.Equal(query.NewDate(2024, 1, 1)) {
		t.Errorf("Date = %v, want 2024-01-01", txn.Date)
	}
	if txn.Flag != "!" || txn.Payee != "Shop" || txn.Lineno != 12 {
		t.Errorf("transaction = %+v", txn)
	}
	if len(txn.Tags) != 2 || txn.Tags[1] != "b" || len(txn.Links) != 1 {
		t.Errorf("Tags = %q, Links = %q", txn.Tags, txn.Links)
	}
	if txn.Meta["k"] != int64(1) {
		t.Errorf("Meta = %#v", txn.Meta)
	}
	misc := txn.Postings[0]
	if misc.Units.String() != "2.5 USD" || misc.Price.String() != "2 EUR" {
		t.Errorf("posting = %s @ %s", misc.Units, misc.Price)
	}
}

func TestBuildLedger_Errors(t *testing.T) {
	tests := []struct {
		name    string
		records []map[string]interface{}
		wantErr error
	}{
		{
			name:    "missing date",
			records: []map[string]interface{}{{"account": "Assets:Cash"}},
			wantErr: ErrMissingColumn,
		},
		{
			name:    "missing account",
			records: []map[string]interface{}{{"date": "2024-01-01"}},
			wantErr: ErrMissingColumn,
		},
		{
			name: "two elided postings",
			records: []map[string]interface{}{
				{"date": "2024-01-01", "account": "Assets:Cash"},
				{"date": "2024-01-01", "account": "Assets:Bank"},
			},
			wantErr: ledger.ErrAmbiguousElision,
		},
		{
			name: "bad account",
			records: []map[string]interface{}{
				{"date": "2024-01-01", "account": "cash", "number": "0", "currency": "USD"},
			},
			wantErr: ledger.ErrInvalidAccount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := BuildLedger(tt.records, "t"); !errors.Is(err, tt.wantErr) {
				t.Errorf("BuildLedger() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	for name, rec := range map[string]map[string]interface{}{
		"bad date":   {"date": "01/02/2024", "account": "Assets:Cash"},
		"bad number": {"date": "2024-01-01", "account": "Assets:Cash", "number": "1,5"},
		"bad meta":   {"date": "2024-01-01", "account": "Assets:Cash", "meta": "[1]"},
		"bad lineno": {"date": "2024-01-01", "account": "Assets:Cash", "lineno": "x"},
	} {
		if _, err := BuildLedger([]map[string]interface{}{rec}, "t"); err == nil {
			t.Errorf("%s: BuildLedger() succeeded", name)
		}
	}
}
