package ledger

import (
	"strconv"

	"github.com/vegasq/ledgerql/query"
)

// PostingRow is a row of the postings table.
type PostingRow struct {
	Txn     *Transaction
	Posting *Posting
	index   int
}

// Key names the posting in execution errors.
func (r PostingRow) Key() string {
	return r.Txn.location() + "#" + strconv.Itoa(r.index+1)
}

// Value returns the value of a postings column.
func (r PostingRow) Value(column string) (query.Value, bool) {
	p := r.Posting
	switch column {
	case "account":
		return p.Account, true
	case "number":
		if p.Units == nil {
			return nil, true
		}
		return p.Units.Number, true
	case "currency":
		if p.Units == nil {
			return nil, true
		}
		return p.Units.Currency, true
	case "price_number":
		if p.Price == nil {
			return nil, true
		}
		return p.Price.Number, true
	case "price_currency":
		if p.Price == nil {
			return nil, true
		}
		return p.Price.Currency, true
	case "weight_number", "weight_currency":
		w, ok := p.Weight()
		if !ok {
			return nil, true
		}
		if column == "weight_number" {
			return w.Number, true
		}
		return w.Currency, true
	case "position":
		if p.Units == nil {
			return nil, true
		}
		s := p.Units.String()
		if p.Price != nil {
			s += " @ " + p.Price.String()
		}
		return s, true
	case "meta":
		return metaValue(p.Meta), true
	case "entry_meta":
		return metaValue(r.Txn.Meta), true
	}
	return entryValue(r.Txn, column)
}

// EntryRow is a row of the entries table.
type EntryRow struct {
	Txn *Transaction
}

// Key names the transaction in execution errors.
func (r EntryRow) Key() string {
	return r.Txn.location()
}

// Value returns the value of an entries column.
func (r EntryRow) Value(column string) (query.Value, bool) {
	if column == "meta" {
		return metaValue(r.Txn.Meta), true
	}
	return entryValue(r.Txn, column)
}

func entryValue(t *Transaction, column string) (query.Value, bool) {
	switch column {
	case "date":
		return t.Date, true
	case "year":
		return int64(t.Date.Year()), true
	case "month":
		return int64(t.Date.Month()), true
	case "day":
		return int64(t.Date.Day()), true
	case "flag":
		return t.Flag, true
	case "payee":
		if t.Payee == "" {
			return nil, true
		}
		return t.Payee, true
	case "narration":
		return t.Narration, true
	case "description":
		return t.Description(), true
	case "tags":
		return stringSet(t.Tags), true
	case "links":
		return stringSet(t.Links), true
	case "filename":
		if t.Filename == "" {
			return nil, true
		}
		return t.Filename, true
	case "lineno":
		if t.Lineno == 0 {
			return nil, true
		}
		return int64(t.Lineno), true
	}
	return nil, false
}

func stringSet(ss []string) query.Set {
	vals := make([]query.Value, len(ss))
	for i, s := range ss {
		vals[i] = s
	}
	return query.NewSet(vals...)
}

func metaValue(m query.Object) query.Value {
	if m == nil {
		return query.Object{}
	}
	return m
}

type postingSource struct {
	ledger *Ledger
}

func (s postingSource) Scan(fn func(query.Row) error) error {
	for _, t := range s.ledger.Transactions {
		for i, p := range t.Postings {
			if err := fn(PostingRow{Txn: t, Posting: p, index: i}); err != nil {
				return err
			}
		}
	}
	return nil
}

type entrySource struct {
	ledger *Ledger
}

func (s entrySource) Scan(fn func(query.Row) error) error {
	for _, t := range s.ledger.Transactions {
		if err := fn(EntryRow{Txn: t}); err != nil {
			return err
		}
	}
	return nil
}

// Postings returns the ledger's posting rows in transaction order.
func (l *Ledger) Postings() query.RowSource {
	return postingSource{ledger: l}
}

// Entries returns one row per transaction.
func (l *Ledger) Entries() query.RowSource {
	return entrySource{ledger: l}
}
