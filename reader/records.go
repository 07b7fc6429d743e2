package reader

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vegasq/ledgerql/ledger"
	"github.com/vegasq/ledgerql/query"
)

// ErrMissingColumn is returned when a flat record lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// FileColumn is added to records read through a glob pattern.
const FileColumn = "_file"

// BuildLedger groups flat posting records into transactions. source names
// the records in errors and is the default filename.
func BuildLedger(records []map[string]interface{}, source string) (*ledger.Ledger, error) {
	l := &ledger.Ledger{}
	var (
		current *ledger.Transaction
		lastKey string
	)
	for i, rec := range records {
		txn, key, err := transactionOf(rec, source)
		if err != nil {
			return nil, fmt.Errorf("%s: record %d: %w", source, i+1, err)
		}
		p, err := postingOf(rec)
		if err != nil {
			return nil, fmt.Errorf("%s: record %d: %w", source, i+1, err)
		}
		if current == nil || key != lastKey {
			current, lastKey = txn, key
			l.Add(current)
		}
		current.Postings = append(current.Postings, p)
	}
	return finish(l)
}

func finish(l *ledger.Ledger) (*ledger.Ledger, error) {
	l.Sort()
	if err := l.Balance(); err != nil {
		return nil, err
	}
	return l, nil
}

func transactionOf(rec map[string]interface{}, source string) (*ledger.Transaction, string, error) {
	raw, ok := rec["date"]
	if !ok || raw == nil {
		return nil, "", fmt.Errorf("%w: date", ErrMissingColumn)
	}
	date, err := toDate(raw)
	if err != nil {
		return nil, "", fmt.Errorf("date: %w", err)
	}
	t := &ledger.Transaction{
		Date:      date,
		Flag:      toString(rec["flag"]),
		Payee:     toString(rec["payee"]),
		Narration: toString(rec["narration"]),
		Tags:      toList(rec["tags"]),
		Links:     toList(rec["links"]),
		Filename:  toString(rec["filename"]),
	}
	if t.Flag == "" {
		t.Flag = "*"
	}
	if t.Filename == "" {
		t.Filename = toString(rec[FileColumn])
	}
	if t.Filename == "" {
		t.Filename = source
	}
	if v := rec["lineno"]; v != nil {
		n, err := toInt(v)
		if err != nil {
			return nil, "", fmt.Errorf("lineno: %w", err)
		}
		t.Lineno = int(n)
	}
	if t.Meta, err = toObject(rec["entry_meta"]); err != nil {
		return nil, "", fmt.Errorf("entry_meta: %w", err)
	}

	var key string
	if id, ok := rec["txn"]; ok && id != nil {
		key = fmt.Sprint(id)
	} else {
		key = strings.Join([]string{date.Format("2006-01-02"), t.Flag, t.Payee, t.Narration, t.Filename, strconv.Itoa(t.Lineno)}, "\x00")
	}
	return t, t.Filename + "\x00" + key, nil
}

func postingOf(rec map[string]interface{}) (*ledger.Posting, error) {
	p := &ledger.Posting{Account: toString(rec["account"])}
	if p.Account == "" {
		return nil, fmt.Errorf("%w: account", ErrMissingColumn)
	}
	units, err := toAmount(rec["number"], rec["currency"])
	if err != nil {
		return nil, fmt.Errorf("number: %w", err)
	}
	p.Units = units
	if p.Price, err = toAmount(rec["price_number"], rec["price_currency"]); err != nil {
		return nil, fmt.Errorf("price_number: %w", err)
	}
	if p.Meta, err = toObject(rec["meta"]); err != nil {
		return nil, fmt.Errorf("meta: %w", err)
	}
	return p, nil
}

func toAmount(number, currency interface{}) (*ledger.Amount, error) {
	d, ok, err := toDecimal(number)
	if err != nil || !ok {
		return nil, err
	}
	return &ledger.Amount{Number: d, Currency: toString(currency)}, nil
}

func toString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	}
	return fmt.Sprint(v)
}

// epoch is day zero of the Parquet DATE type.
var epoch = query.NewDate(1970, 1, 1)

func toDate(v interface{}) (time.Time, error) {
	switch x := v.(type) {
	case string:
		return query.ParseDate(strings.TrimSpace(x))
	case []byte:
		return query.ParseDate(strings.TrimSpace(string(x)))
	case time.Time:
		return query.NewDate(x.Year(), x.Month(), x.Day()), nil
	case int32:
		return epoch.AddDate(0, 0, int(x)), nil
	case int64:
		return epoch.AddDate(0, 0, int(x)), nil
	}
	return time.Time{}, fmt.Errorf("unsupported date value %v (%T)", v, v)
}

func toDecimal(v interface{}) (decimal.Decimal, bool, error) {
	switch x := v.(type) {
	case nil:
		return decimal.Decimal{}, false, nil
	case string:
		if strings.TrimSpace(x) == "" {
			return decimal.Decimal{}, false, nil
		}
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		return d, err == nil, err
	case []byte:
		return toDecimal(string(x))
	case float64:
		return decimal.NewFromFloat(x), true, nil
	case float32:
		return decimal.NewFromFloat32(x), true, nil
	case int64:
		return decimal.NewFromInt(x), true, nil
	case int32:
		return decimal.NewFromInt32(x), true, nil
	case int:
		return decimal.NewFromInt(int64(x)), true, nil
	}
	return decimal.Decimal{}, false, fmt.Errorf("unsupported number %v (%T)", v, v)
}

func toInt(v interface{}) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case int:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	}
	return 0, fmt.Errorf("unsupported integer %v (%T)", v, v)
}

func toList(v interface{}) []string {
	var out []string
	switch x := v.(type) {
	case []interface{}:
		for _, e := range x {
			if s := strings.TrimSpace(toString(e)); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		return toList(stringsToAny(x))
	default:
		for _, s := range strings.Split(toString(v), ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func stringsToAny(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// toObject decodes metadata stored as a JSON object.
func toObject(v interface{}) (query.Object, error) {
	var m map[string]interface{}
	switch x := v.(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		m = x
	default:
		s := strings.TrimSpace(toString(v))
		if s == "" {
			return nil, nil
		}
		dec := json.NewDecoder(strings.NewReader(s))
		dec.UseNumber()
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("invalid JSON object: %w", err)
		}
	}
	return metaObject(m)
}

// metaObject converts decoded metadata to query values. JSON numbers stay
// exact: integers become int64, anything else a decimal.
func metaObject(m map[string]interface{}) (query.Object, error) {
	obj := make(query.Object, len(m))
	for k, e := range m {
		v, err := metaValue(e)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		obj[k] = v
	}
	return obj, nil
}

func metaValue(v interface{}) (query.Value, error) {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
		return decimal.NewFromString(x.String())
	case map[string]interface{}:
		return metaObject(x)
	case []interface{}:
		vals := make(query.List, len(x))
		for i, e := range x {
			n, err := metaValue(e)
			if err != nil {
				return nil, err
			}
			vals[i] = n
		}
		return vals, nil
	}
	return query.Normalize(v)
}
