package session

import (
	"github.com/vegasq/ledgerql/ledger"
	"github.com/vegasq/ledgerql/query"
)

func strColumns(names ...string) []query.ResultColumn {
	cols := make([]query.ResultColumn, len(names))
	for i, n := range names {
		cols[i] = query.ResultColumn{Name: n, Type: query.TypeStr}
	}
	return cols
}

func (s *Session) show(stmt *query.ShowStmt) (*query.ResultSet, error) {
	switch stmt.Kind {
	case query.ShowTables:
		rs := &query.ResultSet{Columns: []query.ResultColumn{
			{Name: "name", Type: query.TypeStr},
			{Name: "columns", Type: query.TypeInt},
		}}
		for _, name := range ledger.TableNames(s.tables) {
			rs.Rows = append(rs.Rows, []query.Value{name, int64(len(s.tables[name].Catalog.Columns()))})
		}
		return rs, nil

	case query.ShowColumns:
		t, err := s.table(stmt.Table)
		if err != nil {
			return nil, err
		}
		rs := &query.ResultSet{Columns: strColumns("name", "type", "doc")}
		for _, c := range t.Catalog.Columns() {
			rs.Rows = append(rs.Rows, []query.Value{c.Name, c.Type.String(), nullable(c.Doc)})
		}
		return rs, nil

	default:
		t, err := s.table("")
		if err != nil {
			return nil, err
		}
		rs := &query.ResultSet{Columns: strColumns("name", "kind", "signature", "doc")}
		for _, f := range t.Catalog.Functions() {
			kind := "scalar"
			if f.IsAggregate() {
				kind = "aggregate"
			}
			for i := range f.Overloads {
				o := &f.Overloads[i]
				sig := f.Name + o.Signature() + " -> " + o.Result.String()
				rs.Rows = append(rs.Rows, []query.Value{f.Name, kind, sig, nullable(f.Doc)})
			}
		}
		return rs, nil
	}
}

func nullable(s string) query.Value {
	if s == "" {
		return nil
	}
	return s
}
