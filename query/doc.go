// Package query implements the ledger query language: lexing, parsing,
// compilation against a Catalog into a typed Plan, and execution of plans
// against a RowSource.
//
// The language is a SQL dialect over a single implicit table:
//   - SELECT [DISTINCT] with target aliases and SELECT *
//   - WHERE, GROUP BY (expressions, aliases or 1-based indices), HAVING
//   - ORDER BY with ASC/DESC and NULLS FIRST/LAST
//   - LIMIT and OFFSET
//   - PIVOT BY rows, columns
//   - EXPLAIN, SHOW TABLES/COLUMNS/FUNCTIONS and SET
//   - FROM [table] [filter] [OPEN ON date] [CLOSE [ON date]] [CLEAR]
//   - BALANCES, JOURNAL and PRINT shorthands, rewritten by the ledger package
//
// String literals take single or double quotes; backquotes quote
// identifiers. A date is written 2024-01-31 or #'Jan 31, 2024'.
//
// # Basic Usage
//
// Parse, compile and execute a query:
//
//	stmt, err := query.ParseSelect("SELECT account, sum(number) GROUP BY account ORDER BY 1")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	plan, err := query.Compile(stmt, catalog)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := query.Execute(plan, source)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// A Plan is immutable and may be executed any number of times against
// different sources.
//
// # Catalogs
//
// A Catalog names the table, its columns and the functions queries may call.
// Columns carry a static Type and an optional Extract function computing the
// value from a Row:
//
//	cat, err := query.NewCatalog("postings", []query.ColumnDef{
//	    {Name: "account", Type: query.TypeStr},
//	    {Name: "number", Type: query.TypeDecimal},
//	}, query.Builtins())
//
// # Type System
//
// Every expression has a static type checked at compile time:
//   - Int widens to Decimal implicitly; the reverse needs int()
//   - NULL is accepted wherever a value is
//   - values of type any (e.g. metadata) convert at run time
//   - / always yields a decimal with DivisionScale fractional digits
//
// Functions are overloaded by argument types. Resolution prefers an exact
// match, then the overload needing the cheapest conversions.
//
// # Error Handling
//
// Failures are typed: LexError and ParseError carry a position,
// CompileError wraps one of the Err* sentinels (test with errors.Is), and
// ExecutionError names the expression and row that failed.
package query
