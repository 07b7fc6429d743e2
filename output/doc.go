// Package output renders query result sets.
//
// A Formatter writes a *query.ResultSet to an io.Writer in one of the
// supported formats:
//
//   - text: fixed-width columns under a header and a dash rule
//   - table: a boxed table drawn with tablewriter
//   - csv, tsv: delimited records with a header row
//   - json: a single array of objects
//   - jsonl: one JSON object per line
//
// # Basic Usage
//
//	f, err := output.NewFormatter("csv", os.Stdout, output.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := f.Format(rs); err != nil {
//	    log.Fatal(err)
//	}
//
// Render does both steps at once.
//
// # Value Rendering
//
// Decimals in a column share one precision, the largest number of
// fractional digits found in that column, unless Options.Precision is set.
// Dates are ISO 8601, booleans TRUE and FALSE, and sets and lists are
// joined with ", ". NULL becomes Options.Null in the text formats and null
// in JSON.
//
// Unknown formats and invalid options fail with a *ConfigurationError
// before anything is written.
package output
