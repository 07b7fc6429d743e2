// Package ledger models a double-entry ledger and exposes it to the query
// engine.
//
// A Ledger is a list of transactions, each made of postings that move an
// amount of a currency into or out of an account. Two tables are built on
// top of it:
//
//   - postings: one row per posting, carrying the fields of its transaction
//   - entries: one row per transaction
//
// Tables returns both with their catalogs, which add the account functions
// root, leaf, parent and account_depth to the built-in functions.
//
// Rewrite expands the BALANCES, JOURNAL and PRINT shorthand statements into
// ordinary SELECT statements over the postings table. Narrow applies the
// filter, OPEN, CLOSE and CLEAR parts of a FROM clause to a ledger.
package ledger
