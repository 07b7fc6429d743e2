package query

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Operator precedence levels, loosest first.
const (
	precOr = iota + 1
	precAnd
	precNot
	precCompare
	precAdd
	precMul
	precUnary
	precPrimary
)

func precedence(e Expr) int {
	switch n := e.(type) {
	case *BinaryExpr:
		switch n.Operator {
		case TokenOr:
			return precOr
		case TokenAnd:
			return precAnd
		case TokenPlus, TokenMinus:
			return precAdd
		case TokenStar, TokenSlash, TokenPercent:
			return precMul
		}
		return precCompare
	case *UnaryExpr:
		if n.Operator == TokenNot {
			return precNot
		}
		return precUnary
	case *IsNullExpr, *BetweenExpr, *InExpr:
		return precCompare
	case *Literal:
		if n.Kind == TokenInteger || n.Kind == TokenDecimal {
			if FormatLiteral(n)[0] == '-' {
				return precUnary
			}
		}
	}
	return precPrimary
}

// Format renders an expression as canonical query text. Parsing the result
// yields an equal expression. Unaliased targets are named by this text.
func Format(e Expr) string {
	var b strings.Builder
	writeExpr(&b, e, 0)
	return b.String()
}

func writeExpr(b *strings.Builder, e Expr, min int) {
	if precedence(e) < min {
		b.WriteByte('(')
		writeExpr(b, e, 0)
		b.WriteByte(')')
		return
	}
	switch n := e.(type) {
	case *Column:
		b.WriteString(QuoteIdent(n.Name))
	case *Literal:
		b.WriteString(FormatLiteral(n))
	case *FuncCall:
		b.WriteString(QuoteIdent(n.Name))
		b.WriteByte('(')
		if n.Star {
			b.WriteByte('*')
		}
		for i, a := range n.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			writeExpr(b, a, 0)
		}
		b.WriteByte(')')
	case *UnaryExpr:
		if n.Operator == TokenNot {
			b.WriteString("NOT ")
			writeExpr(b, n.Operand, precNot)
			return
		}
		b.WriteString(n.Operator.String())
		// A nested sign must not fuse into a "--" comment.
		if precedence(n.Operand) == precUnary {
			b.WriteByte('(')
			writeExpr(b, n.Operand, 0)
			b.WriteByte(')')
			return
		}
		writeExpr(b, n.Operand, precUnary)
	case *BinaryExpr:
		prec := precedence(n)
		left, right := prec, prec+1
		if prec == precCompare {
			left, right = precAdd, precAdd
		}
		writeExpr(b, n.Left, left)
		b.WriteByte(' ')
		b.WriteString(n.Operator.String())
		b.WriteByte(' ')
		writeExpr(b, n.Right, right)
	case *IsNullExpr:
		writeExpr(b, n.Operand, precAdd)
		if n.Negate {
			b.WriteString(" IS NOT NULL")
		} else {
			b.WriteString(" IS NULL")
		}
	case *BetweenExpr:
		writeExpr(b, n.Operand, precAdd)
		if n.Negate {
			b.WriteString(" NOT")
		}
		b.WriteString(" BETWEEN ")
		writeExpr(b, n.Lower, precAdd)
		b.WriteString(" AND ")
		writeExpr(b, n.Upper, precAdd)
	case *InExpr:
		writeExpr(b, n.Operand, precAdd)
		if n.Negate {
			b.WriteString(" NOT")
		}
		b.WriteString(" IN ")
		writeExpr(b, n.Collection, precAdd)
	case *ListExpr:
		b.WriteByte('(')
		for i, el := range n.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			writeExpr(b, el, 0)
		}
		if len(n.Elems) == 1 {
			b.WriteByte(',')
		}
		b.WriteByte(')')
	case *CaseExpr:
		b.WriteString("CASE")
		for _, w := range n.Whens {
			b.WriteString(" WHEN ")
			writeExpr(b, w.Cond, 0)
			b.WriteString(" THEN ")
			writeExpr(b, w.Result, 0)
		}
		if n.Else != nil {
			b.WriteString(" ELSE ")
			writeExpr(b, n.Else, 0)
		}
		b.WriteString(" END")
	}
}

// FormatLiteral renders a literal in query syntax.
func FormatLiteral(l *Literal) string {
	switch v := l.Value.(type) {
	case nil:
		return "NULL"
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case int64:
		return strconv.FormatInt(v, 10)
	case decimal.Decimal:
		s := DecimalText(v)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	case string:
		return quoteString(v)
	case time.Time:
		return v.Format(dateLayout)
	}
	return "NULL"
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// QuoteIdent returns name unchanged when it lexes back as the same
// identifier, and backquoted otherwise.
func QuoteIdent(name string) string {
	simple := name != "" && isIdentStart(name[0]) && !IsKeyword(name)
	for i := 0; simple && i < len(name); i++ {
		c := name[i]
		simple = isIdentPart(c) && !(c >= 'A' && c <= 'Z')
	}
	if simple {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// FormatStatement renders a statement as canonical query text.
func FormatStatement(stmt Statement) string {
	var b strings.Builder
	switch s := stmt.(type) {
	case *SelectStmt:
		writeSelect(&b, s)
	case *ExplainStmt:
		b.WriteString("EXPLAIN ")
		writeSelect(&b, s.Select)
	case *ShowStmt:
		switch s.Kind {
		case ShowTables:
			b.WriteString("SHOW TABLES")
		case ShowFunctions:
			b.WriteString("SHOW FUNCTIONS")
		case ShowColumns:
			b.WriteString("SHOW COLUMNS")
			if s.Table != "" {
				b.WriteString(" FROM ")
				b.WriteString(QuoteIdent(s.Table))
			}
		}
	case *SetStmt:
		b.WriteString("SET ")
		b.WriteString(QuoteIdent(s.Name))
		b.WriteString(" = ")
		b.WriteString(FormatLiteral(s.Value))
	case *BalancesStmt:
		b.WriteString("BALANCES")
		writeSummary(&b, s.Summary)
		writeFrom(&b, s.From)
		writeWhere(&b, s.Where)
	case *JournalStmt:
		b.WriteString("JOURNAL")
		if s.Account != "" {
			b.WriteByte(' ')
			b.WriteString(quoteString(s.Account))
		}
		writeSummary(&b, s.Summary)
		writeFrom(&b, s.From)
		writeWhere(&b, s.Where)
	case *PrintStmt:
		b.WriteString("PRINT")
		writeFrom(&b, s.From)
	}
	return b.String()
}

func writeFrom(b *strings.Builder, f *FromClause) {
	if f == nil {
		return
	}
	b.WriteString(" FROM")
	if f.Table != "" {
		b.WriteByte(' ')
		b.WriteString(QuoteIdent(f.Table))
	}
	if f.Filter != nil {
		b.WriteByte(' ')
		// A lone column would read back as a table name.
		if _, ok := f.Filter.(*Column); ok && f.Table == "" {
			b.WriteByte('(')
			writeExpr(b, f.Filter, 0)
			b.WriteByte(')')
		} else {
			writeExpr(b, f.Filter, 0)
		}
	}
	if f.Open != nil {
		b.WriteString(" OPEN ON ")
		b.WriteString(f.Open.Format(dateLayout))
	}
	if f.Closed {
		b.WriteString(" CLOSE")
		if f.Close != nil {
			b.WriteString(" ON ")
			b.WriteString(f.Close.Format(dateLayout))
		}
	}
	if f.Clear {
		b.WriteString(" CLEAR")
	}
}

func writeSummary(b *strings.Builder, name string) {
	if name != "" {
		b.WriteString(" AT ")
		b.WriteString(QuoteIdent(name))
	}
}

func writeWhere(b *strings.Builder, where Expr) {
	if where != nil {
		b.WriteString(" WHERE ")
		writeExpr(b, where, 0)
	}
}

func writeExprList(b *strings.Builder, exprs []Expr) {
	for i, e := range exprs {
		if i > 0 {
			b.WriteString(", ")
		}
		writeExpr(b, e, 0)
	}
}

func writeSelect(b *strings.Builder, s *SelectStmt) {
	b.WriteString("SELECT ")
	if s.Distinct {
		b.WriteString("DISTINCT ")
	}
	if s.Wildcard {
		b.WriteByte('*')
	}
	for i, t := range s.Targets {
		if i > 0 {
			b.WriteString(", ")
		}
		writeExpr(b, t.Expr, 0)
		if t.Alias != "" {
			b.WriteString(" AS ")
			b.WriteString(QuoteIdent(t.Alias))
		}
	}
	writeFrom(b, s.From)
	writeWhere(b, s.Where)
	if len(s.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		writeExprList(b, s.GroupBy)
	}
	if s.Having != nil {
		b.WriteString(" HAVING ")
		writeExpr(b, s.Having, 0)
	}
	if len(s.OrderBy) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range s.OrderBy {
			if i > 0 {
				b.WriteString(", ")
			}
			writeExpr(b, o.Expr, 0)
			if o.Desc {
				b.WriteString(" DESC")
			}
			switch o.Nulls {
			case NullsFirst:
				b.WriteString(" NULLS FIRST")
			case NullsLast:
				b.WriteString(" NULLS LAST")
			}
		}
	}
	if s.Limit != nil {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.FormatInt(*s.Limit, 10))
		if s.Offset != nil {
			b.WriteString(" OFFSET ")
			b.WriteString(strconv.FormatInt(*s.Offset, 10))
		}
	}
	if s.Pivot != nil {
		b.WriteString(" PIVOT BY ")
		writeExpr(b, s.Pivot.Rows, 0)
		b.WriteString(", ")
		writeExpr(b, s.Pivot.Columns, 0)
	}
}
