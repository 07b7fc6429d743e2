package query

import (
	"fmt"
	"time"
)

// TokenType represents the type of a token
type TokenType int

const (
	// Keywords
	TokenSelect TokenType = iota
	TokenDistinct
	TokenFrom
	TokenWhere
	TokenGroup
	TokenBy
	TokenHaving
	TokenOrder
	TokenAsc
	TokenDesc
	TokenNulls
	TokenLimit
	TokenOffset
	TokenPivot
	TokenAs
	TokenAnd
	TokenOr
	TokenNot
	TokenIn
	TokenIs
	TokenBetween
	TokenNull
	TokenTrue
	TokenFalse
	TokenCase
	TokenWhen
	TokenThen
	TokenElse
	TokenEnd
	TokenExplain
	TokenShow
	TokenSet
	TokenBalances
	TokenJournal
	TokenPrint
	TokenAt
	TokenOpen
	TokenClose
	TokenClear
	TokenOn

	// Operators
	TokenEqual        // =
	TokenNotEqual     // != or <>
	TokenLess         // <
	TokenGreater      // >
	TokenLessEqual    // <=
	TokenGreaterEqual // >=
	TokenMatch        // ~
	TokenNotMatch     // !~
	TokenPlus         // +
	TokenMinus        // -
	TokenStar         // *
	TokenSlash        // /
	TokenPercent      // %

	// Literals
	TokenIdent
	TokenString
	TokenInteger
	TokenDecimal
	TokenDate

	// Delimiters
	TokenComma      // ,
	TokenLeftParen  // (
	TokenRightParen // )
	TokenSemicolon  // ;

	// Special
	TokenEOF
)

var tokenNames = map[TokenType]string{
	TokenSelect: "SELECT", TokenDistinct: "DISTINCT", TokenFrom: "FROM",
	TokenWhere: "WHERE", TokenGroup: "GROUP", TokenBy: "BY", TokenHaving: "HAVING",
	TokenOrder: "ORDER", TokenAsc: "ASC", TokenDesc: "DESC", TokenNulls: "NULLS",
	TokenLimit: "LIMIT", TokenOffset: "OFFSET",
	TokenPivot: "PIVOT", TokenAs: "AS", TokenAnd: "AND", TokenOr: "OR", TokenNot: "NOT",
	TokenIn: "IN", TokenIs: "IS", TokenBetween: "BETWEEN", TokenNull: "NULL",
	TokenTrue: "TRUE", TokenFalse: "FALSE", TokenCase: "CASE", TokenWhen: "WHEN",
	TokenThen: "THEN", TokenElse: "ELSE", TokenEnd: "END", TokenExplain: "EXPLAIN",
	TokenShow: "SHOW", TokenSet: "SET", TokenBalances: "BALANCES",
	TokenJournal: "JOURNAL", TokenPrint: "PRINT", TokenAt: "AT", TokenOpen: "OPEN",
	TokenClose: "CLOSE", TokenClear: "CLEAR", TokenOn: "ON",

	TokenEqual: "=", TokenNotEqual: "!=", TokenLess: "<", TokenGreater: ">",
	TokenLessEqual: "<=", TokenGreaterEqual: ">=", TokenMatch: "~", TokenNotMatch: "!~",
	TokenPlus: "+", TokenMinus: "-", TokenStar: "*", TokenSlash: "/", TokenPercent: "%",

	TokenIdent: "identifier", TokenString: "string", TokenInteger: "integer",
	TokenDecimal: "decimal", TokenDate: "date",

	TokenComma: ",", TokenLeftParen: "(", TokenRightParen: ")", TokenSemicolon: ";",
	TokenEOF: "end of input",
}

// String returns the keyword, operator or class name of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Value string // lexeme; identifiers are case folded, strings unquoted
	Pos   int    // byte offset of the first character in the source text
}

// Statement is any top-level statement the parser produces.
type Statement interface {
	statementNode()
}

// SelectStmt represents a parsed SELECT query
type SelectStmt struct {
	Distinct bool
	Wildcard bool     // SELECT *
	Targets  []Target // empty when Wildcard is set
	From     *FromClause
	Where    Expr
	GroupBy  []Expr
	Having   Expr
	OrderBy  []OrderItem
	Limit    *int64
	Offset   *int64
	Pivot    *PivotBy
}

// FromClause names the table a statement reads and narrows the ledger the
// table is built from. Filter is evaluated against the entries row of each
// transaction. OPEN ON replaces everything before Open with opening
// balances. CLOSE drops everything from Close on, or nothing when Close is
// nil. CLEAR moves income and expense balances to equity.
type FromClause struct {
	Table  string // empty for the default table
	Filter Expr
	Open   *time.Time
	Closed bool
	Close  *time.Time
	Clear  bool
}

// TableName returns the table f names, empty for a nil clause.
func (f *FromClause) TableName() string {
	if f == nil {
		return ""
	}
	return f.Table
}

// Narrows reports whether f does more than name a table.
func (f *FromClause) Narrows() bool {
	return f != nil && (f.Filter != nil || f.Open != nil || f.Closed || f.Clear)
}

// Target represents an expression in the SELECT list
type Target struct {
	Expr  Expr
	Alias string // optional alias (AS name)
}

// OrderItem represents one ORDER BY key
type OrderItem struct {
	Expr  Expr
	Desc  bool
	Nulls NullsOrder
}

// NullsOrder selects where NULL keys sort.
type NullsOrder int

const (
	NullsDefault NullsOrder = iota // first when ascending, last when descending
	NullsFirst
	NullsLast
)

// PivotBy names the row and column targets of a PIVOT BY clause. Each
// reference is either a target name (Column) or a 1-based index (Literal).
type PivotBy struct {
	Rows    Expr
	Columns Expr
}

// ExplainStmt asks for the compiled plan of a SELECT instead of its rows.
type ExplainStmt struct {
	Select *SelectStmt
}

// ShowKind selects what a SHOW statement lists.
type ShowKind int

const (
	ShowTables ShowKind = iota
	ShowColumns
	ShowFunctions
)

// ShowStmt is the schema introspection statement.
type ShowStmt struct {
	Kind  ShowKind
	Table string // SHOW COLUMNS FROM table
}

// SetStmt assigns a session variable.
type SetStmt struct {
	Name  string
	Value *Literal
}

// BalancesStmt is shorthand for a per-account balance query. Summary names
// the amount each posting contributes (AT units, AT weight).
type BalancesStmt struct {
	Summary string
	From    *FromClause
	Where   Expr
}

// JournalStmt is shorthand for a posting listing, optionally restricted to
// accounts matching Account.
type JournalStmt struct {
	Account string
	Summary string
	From    *FromClause
	Where   Expr
}

// PrintStmt lists the transactions a FROM clause selects, one row per
// posting.
type PrintStmt struct {
	From *FromClause
}

func (*SelectStmt) statementNode()   {}
func (*ExplainStmt) statementNode()  {}
func (*ShowStmt) statementNode()     {}
func (*SetStmt) statementNode()      {}
func (*BalancesStmt) statementNode() {}
func (*JournalStmt) statementNode()  {}
func (*PrintStmt) statementNode()    {}

// Expr is an untyped expression node produced by the parser.
type Expr interface {
	exprNode()
	// Position returns the byte offset of the node in the source text.
	Position() int
}

// Column references a column by name
type Column struct {
	Name string
	Pos  int
}

// Literal represents a constant. Value holds nil, bool, int64,
// decimal.Decimal, string or time.Time; Kind records the literal class.
type Literal struct {
	Value interface{}
	Kind  TokenType // TokenInteger, TokenDecimal, TokenString, TokenDate, TokenTrue/False, TokenNull
	Pos   int
}

// FuncCall represents a function invocation
type FuncCall struct {
	Name string
	Args []Expr
	Star bool // count(*)
	Pos  int
}

// UnaryExpr is NOT, unary minus or unary plus.
type UnaryExpr struct {
	Operator TokenType
	Operand  Expr
	Pos      int
}

// BinaryExpr covers logical, comparison, match and arithmetic operators.
type BinaryExpr struct {
	Left     Expr
	Operator TokenType
	Right    Expr
	Pos      int
}

// IsNullExpr represents expr IS [NOT] NULL
type IsNullExpr struct {
	Operand Expr
	Negate  bool
	Pos     int
}

// BetweenExpr represents expr [NOT] BETWEEN lower AND upper
type BetweenExpr struct {
	Operand Expr
	Lower   Expr
	Upper   Expr
	Negate  bool
	Pos     int
}

// InExpr represents expr [NOT] IN collection
type InExpr struct {
	Operand    Expr
	Collection Expr
	Negate     bool
	Pos        int
}

// ListExpr is a parenthesized list of two or more expressions.
type ListExpr struct {
	Elems []Expr
	Pos   int
}

// CaseExpr represents CASE WHEN ... THEN ... [ELSE ...] END
type CaseExpr struct {
	Whens []WhenClause
	Else  Expr
	Pos   int
}

// WhenClause represents a single WHEN condition and result
type WhenClause struct {
	Cond   Expr
	Result Expr
}

func (*Column) exprNode()      {}
func (*Literal) exprNode()     {}
func (*FuncCall) exprNode()    {}
func (*UnaryExpr) exprNode()   {}
func (*BinaryExpr) exprNode()  {}
func (*IsNullExpr) exprNode()  {}
func (*BetweenExpr) exprNode() {}
func (*InExpr) exprNode()      {}
func (*ListExpr) exprNode()    {}
func (*CaseExpr) exprNode()    {}

func (e *Column) Position() int      { return e.Pos }
func (e *Literal) Position() int     { return e.Pos }
func (e *FuncCall) Position() int    { return e.Pos }
func (e *UnaryExpr) Position() int   { return e.Pos }
func (e *BinaryExpr) Position() int  { return e.Pos }
func (e *IsNullExpr) Position() int  { return e.Pos }
func (e *BetweenExpr) Position() int { return e.Pos }
func (e *InExpr) Position() int      { return e.Pos }
func (e *ListExpr) Position() int    { return e.Pos }
func (e *CaseExpr) Position() int    { return e.Pos }
