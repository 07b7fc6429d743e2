package ledger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vegasq/ledgerql/query"
)

// Summaries maps the names accepted by AT to the number and currency
// columns each posting contributes.
var Summaries = map[string][2]string{
	"units":  {"number", "currency"},
	"weight": {"weight_number", "weight_currency"},
}

// Rewrite expands BALANCES, JOURNAL and PRINT into the SELECT statements
// they stand for. Other statements are returned unchanged.
//
//	BALANCES [AT f] [FROM ...] [WHERE e]
//	  => SELECT account, currency, sum(number) AS balance [FROM ...] [WHERE e]
//	     GROUP BY account, currency ORDER BY account, currency
//
//	JOURNAL ['re'] [AT f] [FROM ...] [WHERE e]
//	  => SELECT date, flag, payee, narration, account, number, currency
//	     [FROM ...] WHERE account ~ 're' AND e
//
//	PRINT [FROM ...]
//	  => SELECT date, flag, description, account, position [FROM ...]
//
// AT weight reads weight_number and weight_currency in place of number and
// currency.
func Rewrite(stmt query.Statement) (query.Statement, error) {
	switch s := stmt.(type) {
	case *query.BalancesStmt:
		number, currency, err := summary(s.Summary)
		if err != nil {
			return nil, err
		}
		return balances(s, number, currency), nil
	case *query.JournalStmt:
		number, currency, err := summary(s.Summary)
		if err != nil {
			return nil, err
		}
		return journal(s, number, currency), nil
	case *query.PrintStmt:
		return &query.SelectStmt{
			Targets: targets("date", "flag", "description", "account", "position"),
			From:    s.From,
		}, nil
	}
	return stmt, nil
}

func summary(name string) (number, currency string, err error) {
	if name == "" {
		name = "units"
	}
	cols, ok := Summaries[name]
	if !ok {
		names := make([]string, 0, len(Summaries))
		for n := range Summaries {
			names = append(names, n)
		}
		sort.Strings(names)
		return "", "", &query.CompileError{
			Kind: query.ErrNoMatchingFunction,
			Msg:  fmt.Sprintf("no summary named %s (available: %s)", name, strings.Join(names, ", ")),
		}
	}
	return cols[0], cols[1], nil
}

func col(name string) query.Expr {
	return &query.Column{Name: name}
}

func targets(names ...string) []query.Target {
	out := make([]query.Target, len(names))
	for i, n := range names {
		out[i] = query.Target{Expr: col(n)}
	}
	return out
}

// named selects column as name, aliased when the two differ.
func named(column, name string) query.Target {
	t := query.Target{Expr: col(column)}
	if column != name {
		t.Alias = name
	}
	return t
}

func balances(s *query.BalancesStmt, number, currency string) *query.SelectStmt {
	return &query.SelectStmt{
		Targets: []query.Target{
			named("account", "account"),
			named(currency, "currency"),
			{Expr: &query.FuncCall{Name: "sum", Args: []query.Expr{col(number)}}, Alias: "balance"},
		},
		From:    s.From,
		Where:   s.Where,
		GroupBy: []query.Expr{col("account"), col(currency)},
		OrderBy: []query.OrderItem{{Expr: col("account")}, {Expr: col(currency)}},
	}
}

func journal(s *query.JournalStmt, number, currency string) *query.SelectStmt {
	where := s.Where
	if s.Account != "" {
		match := &query.BinaryExpr{
			Left:     col("account"),
			Operator: query.TokenMatch,
			Right:    &query.Literal{Value: s.Account, Kind: query.TokenString},
		}
		if where == nil {
			where = match
		} else {
			where = &query.BinaryExpr{Left: match, Operator: query.TokenAnd, Right: where}
		}
	}
	return &query.SelectStmt{
		Targets: append(targets("date", "flag", "payee", "narration", "account"),
			named(number, "number"), named(currency, "currency")),
		From:  s.From,
		Where: where,
	}
}
