// Command generate writes books.parquet, a small flat posting export used
// for trying ledgerql by hand:
//
//	go run ./testdata/generate.go
//	ledgerql -q "BALANCES" books.parquet
package main

import (
	"log"
	"os"

	"github.com/segmentio/parquet-go"
)

type Posting struct {
	Txn       int64  `parquet:"txn"`
	Date      string `parquet:"date"`
	Flag      string `parquet:"flag"`
	Payee     string `parquet:"payee,optional"`
	Narration string `parquet:"narration"`
	Tags      string `parquet:"tags,optional"`
	Account   string `parquet:"account"`
	Number    string `parquet:"number,optional"`
	Currency  string `parquet:"currency,optional"`
	Meta      string `parquet:"meta,optional"`
}

func main() {
	postings := []Posting{
		{Txn: 1, Date: "2024-01-01", Flag: "*", Narration: "Opening balances", Account: "Assets:Bank:Checking", Number: "2500.00", Currency: "USD"},
		{Txn: 1, Date: "2024-01-01", Flag: "*", Narration: "Opening balances", Account: "Equity:Opening"},
		{Txn: 2, Date: "2024-01-05", Flag: "*", Payee: "Cafe", Narration: "Coffee", Tags: "trip", Account: "Expenses:Food:Coffee", Number: "4.50", Currency: "USD", Meta: `{"receipt": "r-1"}`},
		{Txn: 2, Date: "2024-01-05", Flag: "*", Payee: "Cafe", Narration: "Coffee", Tags: "trip", Account: "Assets:Cash"},
		{Txn: 3, Date: "2024-01-31", Flag: "*", Payee: "Employer", Narration: "Salary", Account: "Income:Salary", Number: "-3200.00", Currency: "USD"},
		{Txn: 3, Date: "2024-01-31", Flag: "*", Payee: "Employer", Narration: "Salary", Account: "Assets:Bank:Checking", Number: "3200.00", Currency: "USD"},
		{Txn: 4, Date: "2024-02-01", Flag: "!", Payee: "Landlord", Narration: "Rent", Account: "Expenses:Rent", Number: "1400.00", Currency: "USD"},
		{Txn: 4, Date: "2024-02-01", Flag: "!", Payee: "Landlord", Narration: "Rent", Account: "Assets:Bank:Checking"},
		{Txn: 5, Date: "2024-02-12", Flag: "*", Payee: "Market", Narration: "Groceries", Account: "Expenses:Food:Groceries", Number: "86.15", Currency: "USD"},
		{Txn: 5, Date: "2024-02-12", Flag: "*", Payee: "Market", Narration: "Groceries", Account: "Assets:Bank:Checking", Number: "-86.15", Currency: "USD"},
	}

	file, err := os.Create("books.parquet")
	if err != nil {
		log.Fatal(err)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[Posting](file)
	defer writer.Close()

	if _, err := writer.Write(postings); err != nil {
		log.Fatal(err)
	}

	log.Printf("Generated books.parquet with %d postings", len(postings))
}
