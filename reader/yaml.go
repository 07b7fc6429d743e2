package reader

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vegasq/ledgerql/ledger"
	"github.com/vegasq/ledgerql/query"
)

// yamlLedger is the document layout read by ReadYAML:
//
//	transactions:
//	  - date: 2024-01-05
//	    flag: "*"
//	    payee: Cafe
//	    narration: Coffee
//	    tags: [trip]
//	    postings:
//	      - account: Expenses:Food
//	        amount: 4.50 USD
//	      - account: Assets:Cash
type yamlLedger struct {
	Transactions []yaml.Node `yaml:"transactions"`
}

type yamlTransaction struct {
	Date      string                 `yaml:"date"`
	Flag      string                 `yaml:"flag"`
	Payee     string                 `yaml:"payee"`
	Narration string                 `yaml:"narration"`
	Tags      []string               `yaml:"tags"`
	Links     []string               `yaml:"links"`
	Meta      map[string]interface{} `yaml:"meta"`
	Postings  []yamlPosting          `yaml:"postings"`
}

type yamlPosting struct {
	Account string                 `yaml:"account"`
	Amount  string                 `yaml:"amount"`
	Price   string                 `yaml:"price"`
	Meta    map[string]interface{} `yaml:"meta"`
}

// ReadYAML loads a YAML ledger. filename is recorded on every transaction
// together with the line it starts on.
func ReadYAML(r io.Reader, filename string) (*ledger.Ledger, error) {
	var doc yamlLedger
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &ledger.Ledger{}, nil
		}
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	l := &ledger.Ledger{}
	for i := range doc.Transactions {
		node := &doc.Transactions[i]
		t, err := decodeTransaction(node)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", filename, node.Line, err)
		}
		t.Filename, t.Lineno = filename, node.Line
		l.Add(t)
	}
	return finish(l)
}

func decodeTransaction(node *yaml.Node) (*ledger.Transaction, error) {
	var yt yamlTransaction
	if err := node.Decode(&yt); err != nil {
		return nil, err
	}
	date, err := query.ParseDate(strings.TrimSpace(yt.Date))
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", yt.Date)
	}
	if len(yt.Postings) == 0 {
		return nil, errors.New("transaction has no postings")
	}
	t := &ledger.Transaction{
		Date:      date,
		Flag:      yt.Flag,
		Payee:     yt.Payee,
		Narration: yt.Narration,
		Tags:      yt.Tags,
		Links:     yt.Links,
	}
	if t.Flag == "" {
		t.Flag = "*"
	}
	if t.Meta, err = yamlMeta(yt.Meta); err != nil {
		return nil, fmt.Errorf("meta: %w", err)
	}
	for _, yp := range yt.Postings {
		p := &ledger.Posting{Account: yp.Account}
		if p.Account == "" {
			return nil, fmt.Errorf("%w: account", ErrMissingColumn)
		}
		if p.Units, err = parseAmount(yp.Amount); err != nil {
			return nil, fmt.Errorf("posting %s: %w", yp.Account, err)
		}
		if p.Price, err = parseAmount(yp.Price); err != nil {
			return nil, fmt.Errorf("posting %s price: %w", yp.Account, err)
		}
		if p.Meta, err = yamlMeta(yp.Meta); err != nil {
			return nil, fmt.Errorf("posting %s meta: %w", yp.Account, err)
		}
		t.Postings = append(t.Postings, p)
	}
	return t, nil
}

// parseAmount parses "NUMBER CURRENCY". Empty text means no amount.
func parseAmount(s string) (*ledger.Amount, error) {
	fields := strings.Fields(s)
	switch len(fields) {
	case 0:
		return nil, nil
	case 2:
		d, err := decimal.NewFromString(fields[0])
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q", s)
		}
		return &ledger.Amount{Number: d, Currency: fields[1]}, nil
	}
	return nil, fmt.Errorf("invalid amount %q, want NUMBER CURRENCY", s)
}

func yamlMeta(m map[string]interface{}) (query.Object, error) {
	if m == nil {
		return nil, nil
	}
	v, err := query.Normalize(m)
	if err != nil {
		return nil, err
	}
	return v.(query.Object), nil
}
