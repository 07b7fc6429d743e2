package ledger

import (
	"strings"

	"github.com/vegasq/ledgerql/query"
)

func accountFunctions() []query.Function {
	return []query.Function{
		{
			Name: "root",
			Doc:  "The first n components of an account name.",
			Overloads: []query.Overload{
				query.ScalarFunc(query.TypeStr, func(args []query.Value) (query.Value, error) {
					parts := strings.Split(args[0].(string), ":")
					n := args[1].(int64)
					if n < 0 {
						n = 0
					}
					if n < int64(len(parts)) {
						parts = parts[:n]
					}
					return strings.Join(parts, ":"), nil
				}, query.TypeStr, query.TypeInt),
			},
		},
		{
			Name: "leaf",
			Doc:  "The last component of an account name.",
			Overloads: []query.Overload{
				query.ScalarFunc(query.TypeStr, func(args []query.Value) (query.Value, error) {
					s := args[0].(string)
					return s[strings.LastIndexByte(s, ':')+1:], nil
				}, query.TypeStr),
			},
		},
		{
			Name: "parent",
			Doc:  "The account name without its last component, NULL for a top-level account.",
			Overloads: []query.Overload{
				query.ScalarFunc(query.TypeStr, func(args []query.Value) (query.Value, error) {
					s := args[0].(string)
					i := strings.LastIndexByte(s, ':')
					if i < 0 {
						return nil, nil
					}
					return s[:i], nil
				}, query.TypeStr),
			},
		},
		{
			Name: "account_depth",
			Doc:  "Number of components of an account name.",
			Overloads: []query.Overload{
				query.ScalarFunc(query.TypeInt, func(args []query.Value) (query.Value, error) {
					s := args[0].(string)
					if s == "" {
						return int64(0), nil
					}
					return int64(strings.Count(s, ":") + 1), nil
				}, query.TypeStr),
			},
		},
	}
}
