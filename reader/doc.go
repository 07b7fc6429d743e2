// Package reader loads ledgers from files.
//
// Three storage layouts are supported:
//
//   - Parquet posting exports, one flat record per posting (ReadParquet)
//   - SQLite tables with the same flat layout (ReadSQLite)
//   - YAML ledgers with nested transactions and postings (ReadYAML)
//
// Load picks the layout from the file extension. Every loader returns a
// *ledger.Ledger sorted by date with elided amounts filled in and every
// transaction checked for balance.
//
// # Flat Posting Layout
//
// Parquet and SQLite sources hold one record per posting with these
// columns (date and account are required):
//
//	txn             transaction id; consecutive records with the same id
//	                form one transaction
//	date            ISO date text, or a Parquet DATE
//	flag, payee, narration
//	tags, links     comma separated text
//	account
//	number          decimal text (exact) or a number; empty when elided
//	currency
//	price_number, price_currency
//	meta, entry_meta JSON objects
//	filename, lineno
//
// Without a txn column, consecutive records sharing date, flag, payee,
// narration, filename and lineno form a transaction.
//
// # Multi-file Operations
//
// ReadParquet accepts glob patterns:
//
//	l, err := reader.ReadParquet("exports/2024-*.parquet")
//
// Records read through a glob are tagged with a "_file" column, used as the
// filename of transactions that carry none.
//
// WriteParquet writes a ledger back in the flat layout.
package reader
