package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vegasq/ledgerql/query"
)

// Equity accounts that summarized balances are posted against.
const (
	OpeningBalancesAccount  = "Equity:Opening-Balances"
	EarningsPreviousAccount = "Equity:Earnings:Previous"
	EarningsCurrentAccount  = "Equity:Earnings:Current"
	ConversionsAccount      = "Equity:Conversions:Current"
)

// Flags of the transactions Narrow adds.
const (
	FlagSummarize  = "S"
	FlagTransfer   = "T"
	FlagConversion = "C"
)

// conversionCurrency prices conversion postings at zero so that they
// balance.
const conversionCurrency = "NOTHING"

// IsIncomeStatement reports whether account is an income or expense
// account.
func IsIncomeStatement(account string) bool {
	root := account
	if i := strings.IndexByte(account, ':'); i >= 0 {
		root = account[:i]
	}
	return root == "Income" || root == "Expenses"
}

// Narrow returns the ledger a FROM clause selects. l is not modified. The
// steps run in order:
//
//   - the filter keeps the transactions whose entries row matches it
//   - OPEN ON d moves income and expense balances before d to
//     Equity:Earnings:Previous, then replaces every transaction before d
//     with one opening balance transaction per account, dated the day
//     before d
//   - CLOSE ON d drops the transactions on or after d
//   - CLOSE adds a conversion transaction when the units left do not net
//     to zero per currency
//   - CLEAR moves income and expense balances to Equity:Earnings:Current
//
// entries is the catalog the filter compiles against; nil uses
// EntriesCatalog(Functions()).
func (l *Ledger) Narrow(from *query.FromClause, entries *query.Catalog) (*Ledger, error) {
	txns := append([]*Transaction(nil), l.Transactions...)
	sort.SliceStable(txns, func(i, j int) bool { return txns[i].Date.Before(txns[j].Date) })
	if from == nil {
		return &Ledger{Transactions: txns}, nil
	}

	if from.Filter != nil {
		if entries == nil {
			var err error
			if entries, err = EntriesCatalog(Functions()); err != nil {
				return nil, err
			}
		}
		pred, err := query.CompilePredicate(from.Filter, entries, "FROM")
		if err != nil {
			return nil, err
		}
		kept := txns[:0]
		for _, t := range txns {
			ok, err := pred.Match(EntryRow{Txn: t})
			if err != nil {
				return nil, err
			}
			if ok {
				kept = append(kept, t)
			}
		}
		txns = kept
	}

	if from.Open != nil {
		txns = open(txns, *from.Open)
	}

	var day time.Time
	if from.Close != nil {
		txns = truncate(txns, *from.Close)
		day = from.Close.AddDate(0, 0, -1)
	} else if n := len(txns); n > 0 {
		day = txns[n-1].Date
	}
	if from.Closed && !day.IsZero() {
		if c := conversion(txns, day); c != nil {
			txns = append(txns, c)
		}
	}
	if from.Clear && !day.IsZero() {
		txns = append(txns, transfer(txns, day, EarningsCurrentAccount)...)
	}
	return &Ledger{Transactions: txns}, nil
}

// Source returns the rows of the named ledger table.
func (l *Ledger) Source(table string) (query.RowSource, bool) {
	switch strings.ToLower(table) {
	case PostingsTable:
		return l.Postings(), true
	case EntriesTable:
		return l.Entries(), true
	}
	return nil, false
}

func open(txns []*Transaction, date time.Time) []*Transaction {
	i := sort.Search(len(txns), func(i int) bool { return !txns[i].Date.Before(date) })
	before := append([]*Transaction(nil), txns[:i]...)
	day := date.AddDate(0, 0, -1)

	before = append(before, transfer(before, day, EarningsPreviousAccount)...)
	out := summarize(before, day)
	if c := conversion(before, day); c != nil {
		out = append(out, c)
	}
	return append(out, txns[i:]...)
}

func truncate(txns []*Transaction, date time.Time) []*Transaction {
	i := sort.Search(len(txns), func(i int) bool { return !txns[i].Date.Before(date) })
	return txns[:i]
}

// sheet sums posting units per account and currency.
type sheet map[string]map[string]decimal.Decimal

func tally(txns []*Transaction, keep func(account string) bool) sheet {
	b := make(sheet)
	for _, t := range txns {
		for _, p := range t.Postings {
			if p.Units == nil || !keep(p.Account) {
				continue
			}
			m := b[p.Account]
			if m == nil {
				m = make(map[string]decimal.Decimal)
				b[p.Account] = m
			}
			m[p.Units.Currency] = m[p.Units.Currency].Add(p.Units.Number)
		}
	}
	return b
}

// positions returns the non-zero amounts of one account, by currency.
func (b sheet) positions(account string) []Amount {
	var out []Amount
	for c, n := range b[account] {
		if !n.IsZero() {
			out = append(out, Amount{Number: n, Currency: c})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out
}

func (b sheet) accounts() []string {
	names := make([]string, 0, len(b))
	for a := range b {
		names = append(names, a)
	}
	sort.Strings(names)
	return names
}

func synthetic(day time.Time, flag, narration string) *Transaction {
	return &Transaction{Date: day, Flag: flag, Narration: narration}
}

func post(t *Transaction, account string, n decimal.Decimal, currency string) {
	t.Postings = append(t.Postings, &Posting{Account: account, Units: &Amount{Number: n, Currency: currency}})
}

// transfer zeroes every income and expense account against equity, one
// transaction per account.
func transfer(txns []*Transaction, day time.Time, equity string) []*Transaction {
	b := tally(txns, IsIncomeStatement)
	var out []*Transaction
	for _, account := range b.accounts() {
		amounts := b.positions(account)
		if len(amounts) == 0 {
			continue
		}
		t := synthetic(day, FlagTransfer, fmt.Sprintf("Transfer balance for '%s' (Transfer balance)", account))
		for _, a := range amounts {
			post(t, account, a.Number.Neg(), a.Currency)
			post(t, equity, a.Number, a.Currency)
		}
		out = append(out, t)
	}
	return out
}

// summarize replaces txns with one opening balance transaction per account.
func summarize(txns []*Transaction, day time.Time) []*Transaction {
	b := tally(txns, func(string) bool { return true })
	var out []*Transaction
	for _, account := range b.accounts() {
		amounts := b.positions(account)
		if len(amounts) == 0 {
			continue
		}
		t := synthetic(day, FlagSummarize, fmt.Sprintf("Opening balance for '%s' (Summarization)", account))
		for _, a := range amounts {
			post(t, account, a.Number, a.Currency)
			post(t, OpeningBalancesAccount, a.Number.Neg(), a.Currency)
		}
		out = append(out, t)
	}
	return out
}

// conversion returns a transaction cancelling the net units of txns, or nil
// when they already net to zero. Its postings are priced at zero so that it
// balances.
func conversion(txns []*Transaction, day time.Time) *Transaction {
	net := make(map[string]decimal.Decimal)
	for _, m := range tally(txns, func(string) bool { return true }) {
		for c, n := range m {
			net[c] = net[c].Add(n)
		}
	}
	amounts := sheet{ConversionsAccount: net}.positions(ConversionsAccount)
	if len(amounts) == 0 {
		return nil
	}
	parts := make([]string, len(amounts))
	for i, a := range amounts {
		parts[i] = a.String()
	}
	t := synthetic(day, FlagConversion, "Conversion for ("+strings.Join(parts, ", ")+")")
	for _, a := range amounts {
		t.Postings = append(t.Postings, &Posting{
			Account: ConversionsAccount,
			Units:   &Amount{Number: a.Number.Neg(), Currency: a.Currency},
			Price:   &Amount{Number: decimal.Zero, Currency: conversionCurrency},
		})
	}
	return t
}
