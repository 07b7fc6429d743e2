package ledger

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vegasq/ledgerql/query"
)

var (
	// ErrUnbalanced is returned when the postings of a transaction do not
	// sum to zero in every currency.
	ErrUnbalanced = errors.New("transaction does not balance")
	// ErrAmbiguousElision is returned when the missing amount of a posting
	// cannot be inferred.
	ErrAmbiguousElision = errors.New("cannot infer elided amount")
	// ErrInvalidAccount is returned for malformed account names.
	ErrInvalidAccount = errors.New("invalid account name")
)

// Amount is a quantity of one currency or commodity.
type Amount struct {
	Number   decimal.Decimal
	Currency string
}

func (a Amount) String() string {
	return query.DecimalText(a.Number) + " " + a.Currency
}

// Posting is one leg of a transaction. Units is nil when the amount was
// left out and must be inferred. Price, when set, is the per-unit price the
// units were exchanged at.
type Posting struct {
	Account string
	Units   *Amount
	Price   *Amount
	Meta    query.Object
}

// Weight is the amount the posting contributes to the balance of its
// transaction: the units, or units times price when priced.
func (p *Posting) Weight() (Amount, bool) {
	if p.Units == nil {
		return Amount{}, false
	}
	if p.Price == nil {
		return *p.Units, true
	}
	return Amount{Number: p.Units.Number.Mul(p.Price.Number), Currency: p.Price.Currency}, true
}

// Transaction is a dated, balanced set of postings.
type Transaction struct {
	Date      time.Time
	Flag      string
	Payee     string
	Narration string
	Tags      []string
	Links     []string
	Meta      query.Object
	Filename  string
	Lineno    int
	Postings  []*Posting
}

// Description joins payee and narration the way they are usually shown.
func (t *Transaction) Description() string {
	switch {
	case t.Payee == "":
		return t.Narration
	case t.Narration == "":
		return t.Payee
	}
	return t.Payee + " | " + t.Narration
}

func (t *Transaction) location() string {
	if t.Filename != "" {
		return fmt.Sprintf("%s:%d", t.Filename, t.Lineno)
	}
	return fmt.Sprintf("%s %q", t.Date.Format("2006-01-02"), t.Description())
}

// Balance infers a single elided posting amount and checks that the
// weights of all postings sum to zero per currency.
func (t *Transaction) Balance() error {
	residual := make(map[string]decimal.Decimal)
	var elided *Posting
	for _, p := range t.Postings {
		if err := ValidateAccount(p.Account); err != nil {
			return fmt.Errorf("%s: %w", t.location(), err)
		}
		w, ok := p.Weight()
		if !ok {
			if elided != nil {
				return fmt.Errorf("%s: %w: more than one posting without an amount", t.location(), ErrAmbiguousElision)
			}
			elided = p
			continue
		}
		residual[w.Currency] = residual[w.Currency].Add(w.Number)
	}

	currencies := make([]string, 0, len(residual))
	for c, n := range residual {
		if !n.IsZero() {
			currencies = append(currencies, c)
		}
	}
	sort.Strings(currencies)

	if elided != nil {
		if len(currencies) != 1 {
			return fmt.Errorf("%s: %w: %d currencies left unbalanced", t.location(), ErrAmbiguousElision, len(currencies))
		}
		c := currencies[0]
		elided.Units = &Amount{Number: residual[c].Neg(), Currency: c}
		return nil
	}
	if len(currencies) > 0 {
		parts := make([]string, len(currencies))
		for i, c := range currencies {
			parts[i] = Amount{Number: residual[c], Currency: c}.String()
		}
		return fmt.Errorf("%s: %w: residual %s", t.location(), ErrUnbalanced, strings.Join(parts, ", "))
	}
	return nil
}

// ValidateAccount checks that name is a colon separated list of non-empty
// components, the first one capitalized.
func ValidateAccount(name string) error {
	parts := strings.Split(name, ":")
	for _, p := range parts {
		if p == "" || strings.ContainsAny(p, " \t") {
			return fmt.Errorf("%w: %q", ErrInvalidAccount, name)
		}
	}
	if c := parts[0][0]; c < 'A' || c > 'Z' {
		return fmt.Errorf("%w: %q must start with a capital letter", ErrInvalidAccount, name)
	}
	return nil
}

// Ledger is an ordered list of transactions.
type Ledger struct {
	Transactions []*Transaction
}

// Add appends transactions.
func (l *Ledger) Add(txns ...*Transaction) {
	l.Transactions = append(l.Transactions, txns...)
}

// Sort orders transactions by date, keeping the input order of
// transactions on the same day.
func (l *Ledger) Sort() {
	sort.SliceStable(l.Transactions, func(i, j int) bool {
		return l.Transactions[i].Date.Before(l.Transactions[j].Date)
	})
}

// Balance runs Transaction.Balance on every transaction and returns the
// first failure.
func (l *Ledger) Balance() error {
	for _, t := range l.Transactions {
		if err := t.Balance(); err != nil {
			return err
		}
	}
	return nil
}

// Accounts returns the sorted set of accounts used by any posting.
func (l *Ledger) Accounts() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range l.Transactions {
		for _, p := range t.Postings {
			if !seen[p.Account] {
				seen[p.Account] = true
				out = append(out, p.Account)
			}
		}
	}
	sort.Strings(out)
	return out
}
