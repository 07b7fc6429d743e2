package query

import (
	"strconv"
	"time"
)

// Parser parses a token stream into a Statement
type Parser struct {
	tokens []Token
	pos    int
	depth  *depthCounter
}

// NewParser creates a new parser
func NewParser(tokens []Token) *Parser {
	return &Parser{
		tokens: tokens,
		depth:  newDepthCounter(),
	}
}

// current returns the current token
func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		end := 0
		if n := len(p.tokens); n > 0 {
			end = p.tokens[n-1].Pos
		}
		return Token{Type: TokenEOF, Pos: end}
	}
	return p.tokens[p.pos]
}

// peek returns the next token without advancing
func (p *Parser) peek() Token {
	if p.pos+1 >= len(p.tokens) {
		return Token{Type: TokenEOF, Pos: p.current().Pos}
	}
	return p.tokens[p.pos+1]
}

// advance moves to the next token
func (p *Parser) advance() {
	p.pos++
}

// accept consumes the current token if it has type typ.
func (p *Parser) accept(typ TokenType) bool {
	if p.current().Type == typ {
		p.advance()
		return true
	}
	return false
}

// expect checks if current token matches expected type and advances
func (p *Parser) expect(typ TokenType) (Token, error) {
	tok := p.current()
	if tok.Type != typ {
		return tok, p.unexpected(typ.String())
	}
	p.advance()
	return tok, nil
}

// unexpected builds a ParseError at the current token.
func (p *Parser) unexpected(expected ...string) error {
	tok := p.current()
	return &ParseError{Pos: tok.Pos, Expected: expected, Found: describeToken(tok)}
}

func describeToken(tok Token) string {
	switch tok.Type {
	case TokenEOF:
		return "end of input"
	case TokenIdent:
		return "identifier " + strconv.Quote(tok.Value)
	case TokenString:
		return "string " + quoteString(tok.Value)
	case TokenInteger, TokenDecimal, TokenDate:
		return tok.Type.String() + " " + tok.Value
	}
	return strconv.Quote(tok.Type.String())
}

// Parse parses one statement.
func Parse(text string) (Statement, error) {
	if err := ValidateQuery(text); err != nil {
		return nil, err
	}
	tokens, err := Tokenize(text)
	if err != nil {
		return nil, err
	}
	return ParseTokens(tokens)
}

// ParseSelect parses text that must be a SELECT statement.
func ParseSelect(text string) (*SelectStmt, error) {
	stmt, err := Parse(text)
	if err != nil {
		return nil, err
	}
	sel, ok := stmt.(*SelectStmt)
	if !ok {
		return nil, &ParseError{Expected: []string{"SELECT"}, Found: "another statement"}
	}
	return sel, nil
}

// ParseTokens parses a token stream produced by Tokenize.
func ParseTokens(tokens []Token) (Statement, error) {
	if err := ValidateTokens(tokens); err != nil {
		return nil, err
	}
	p := NewParser(tokens)
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	p.accept(TokenSemicolon)
	if p.current().Type != TokenEOF {
		return nil, p.unexpected("end of input")
	}
	return stmt, nil
}

func (p *Parser) parseStatement() (Statement, error) {
	switch p.current().Type {
	case TokenSelect:
		return p.parseSelect()
	case TokenExplain:
		p.advance()
		sel, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		return &ExplainStmt{Select: sel}, nil
	case TokenShow:
		return p.parseShow()
	case TokenSet:
		return p.parseSet()
	case TokenBalances:
		return p.parseBalances()
	case TokenJournal:
		return p.parseJournal()
	case TokenPrint:
		p.advance()
		from, err := p.parseFrom()
		if err != nil {
			return nil, err
		}
		return &PrintStmt{From: from}, nil
	}
	return nil, p.unexpected("SELECT", "EXPLAIN", "SHOW", "SET", "BALANCES", "JOURNAL", "PRINT")
}

// parseSelect parses:
// SELECT [DISTINCT] targets [FROM ...] [WHERE e] [GROUP BY ...] [HAVING e]
// [ORDER BY ...] [LIMIT n [OFFSET m]] [PIVOT BY r, c]
func (p *Parser) parseSelect() (*SelectStmt, error) {
	if _, err := p.expect(TokenSelect); err != nil {
		return nil, err
	}
	stmt := &SelectStmt{}
	stmt.Distinct = p.accept(TokenDistinct)

	if p.accept(TokenStar) {
		stmt.Wildcard = true
	} else {
		targets, err := p.parseTargets()
		if err != nil {
			return nil, err
		}
		stmt.Targets = targets
	}

	var err error
	if stmt.From, err = p.parseFrom(); err != nil {
		return nil, err
	}
	if stmt.Where, err = p.parseWhere(); err != nil {
		return nil, err
	}

	if p.accept(TokenGroup) {
		if _, err := p.expect(TokenBy); err != nil {
			return nil, err
		}
		if stmt.GroupBy, err = p.parseExprList(); err != nil {
			return nil, err
		}
	}

	if p.accept(TokenHaving) {
		if stmt.Having, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}

	if p.accept(TokenOrder) {
		if _, err := p.expect(TokenBy); err != nil {
			return nil, err
		}
		if stmt.OrderBy, err = p.parseOrderList(); err != nil {
			return nil, err
		}
	}

	if p.accept(TokenLimit) {
		if stmt.Limit, err = p.parseCount(); err != nil {
			return nil, err
		}
		if p.accept(TokenOffset) {
			if stmt.Offset, err = p.parseCount(); err != nil {
				return nil, err
			}
		}
	}

	if p.accept(TokenPivot) {
		if _, err := p.expect(TokenBy); err != nil {
			return nil, err
		}
		rows, err := p.parsePivotRef()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenComma); err != nil {
			return nil, err
		}
		cols, err := p.parsePivotRef()
		if err != nil {
			return nil, err
		}
		stmt.Pivot = &PivotBy{Rows: rows, Columns: cols}
	}

	return stmt, nil
}

func (p *Parser) parseTargets() ([]Target, error) {
	var targets []Target
	for {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		t := Target{Expr: expr}
		if p.accept(TokenAs) {
			if t.Alias, err = p.parseIdent(); err != nil {
				return nil, err
			}
		}
		targets = append(targets, t)
		if !p.accept(TokenComma) {
			return targets, nil
		}
	}
}

func (p *Parser) parseIdent() (string, error) {
	tok, err := p.expect(TokenIdent)
	if err != nil {
		return "", err
	}
	if err := ValidateIdentifier(tok.Value); err != nil {
		return "", err
	}
	return tok.Value, nil
}

// parseTableName parses an optional FROM t.
func (p *Parser) parseTableName() (string, error) {
	if !p.accept(TokenFrom) {
		return "", nil
	}
	return p.parseIdent()
}

// parseFrom parses FROM [t] [e] [OPEN ON date] [CLOSE [ON date]] [CLEAR].
// A leading identifier names the table unless an operator follows it.
func (p *Parser) parseFrom() (*FromClause, error) {
	if !p.accept(TokenFrom) {
		return nil, nil
	}
	from := &FromClause{}
	start := p.pos
	var err error
	if p.current().Type == TokenIdent && !continuesExpr(p.peek().Type) {
		if from.Table, err = p.parseIdent(); err != nil {
			return nil, err
		}
	}
	if !endsFrom(p.current().Type) {
		if from.Filter, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}
	if p.accept(TokenOpen) {
		if from.Open, err = p.parseOnDate(); err != nil {
			return nil, err
		}
	}
	if p.accept(TokenClose) {
		from.Closed = true
		if p.current().Type == TokenOn {
			if from.Close, err = p.parseOnDate(); err != nil {
				return nil, err
			}
		}
	}
	from.Clear = p.accept(TokenClear)
	if p.pos == start {
		return nil, p.unexpected("table", "expression", "OPEN", "CLOSE", "CLEAR")
	}
	return from, nil
}

// parseOnDate parses ON date.
func (p *Parser) parseOnDate() (*time.Time, error) {
	if _, err := p.expect(TokenOn); err != nil {
		return nil, err
	}
	tok, err := p.expect(TokenDate)
	if err != nil {
		return nil, err
	}
	d, err := ParseDate(tok.Value)
	if err != nil {
		return nil, &ParseError{Pos: tok.Pos, Msg: "invalid date literal", Found: tok.Value}
	}
	return &d, nil
}

// continuesExpr reports whether a token of type typ after an identifier
// makes the identifier part of an expression.
func continuesExpr(typ TokenType) bool {
	switch typ {
	case TokenEqual, TokenNotEqual, TokenLess, TokenGreater, TokenLessEqual, TokenGreaterEqual,
		TokenMatch, TokenNotMatch, TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPercent,
		TokenLeftParen, TokenAnd, TokenOr, TokenNot, TokenIn, TokenIs, TokenBetween:
		return true
	}
	return false
}

// endsFrom reports whether a token of type typ ends the expression part of
// a FROM clause.
func endsFrom(typ TokenType) bool {
	switch typ {
	case TokenOpen, TokenClose, TokenClear, TokenWhere, TokenGroup, TokenHaving, TokenOrder,
		TokenLimit, TokenOffset, TokenPivot, TokenSemicolon, TokenRightParen, TokenEOF:
		return true
	}
	return false
}

// parseSummary parses an optional AT name.
func (p *Parser) parseSummary() (string, error) {
	if !p.accept(TokenAt) {
		return "", nil
	}
	return p.parseIdent()
}

func (p *Parser) parseWhere() (Expr, error) {
	if !p.accept(TokenWhere) {
		return nil, nil
	}
	return p.parseExpr()
}

func (p *Parser) parseExprList() ([]Expr, error) {
	var exprs []Expr
	for {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
		if !p.accept(TokenComma) {
			return exprs, nil
		}
	}
}

func (p *Parser) parseOrderList() ([]OrderItem, error) {
	var items []OrderItem
	for {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		item := OrderItem{Expr: expr}
		if p.accept(TokenDesc) {
			item.Desc = true
		} else {
			p.accept(TokenAsc)
		}
		if p.accept(TokenNulls) {
			tok := p.current()
			switch {
			case tok.Type == TokenIdent && tok.Value == "first":
				item.Nulls = NullsFirst
			case tok.Type == TokenIdent && tok.Value == "last":
				item.Nulls = NullsLast
			default:
				return nil, p.unexpected("FIRST", "LAST")
			}
			p.advance()
		}
		items = append(items, item)
		if !p.accept(TokenComma) {
			return items, nil
		}
	}
}

// parseCount parses the non-negative integer of LIMIT and OFFSET.
func (p *Parser) parseCount() (*int64, error) {
	tok := p.current()
	if tok.Type != TokenInteger {
		return nil, p.unexpected("integer")
	}
	n, err := strconv.ParseInt(tok.Value, 10, 64)
	if err != nil {
		return nil, &ParseError{Pos: tok.Pos, Msg: "integer out of range", Found: tok.Value}
	}
	p.advance()
	return &n, nil
}

// parsePivotRef parses a target name or a 1-based target index.
func (p *Parser) parsePivotRef() (Expr, error) {
	tok := p.current()
	switch tok.Type {
	case TokenIdent:
		p.advance()
		return &Column{Name: tok.Value, Pos: tok.Pos}, nil
	case TokenInteger:
		n, err := p.parseCount()
		if err != nil {
			return nil, err
		}
		return &Literal{Value: *n, Kind: TokenInteger, Pos: tok.Pos}, nil
	}
	return nil, p.unexpected("identifier", "integer")
}

// parseShow parses SHOW TABLES | SHOW FUNCTIONS | SHOW COLUMNS [FROM t]
func (p *Parser) parseShow() (Statement, error) {
	p.advance()
	tok := p.current()
	if tok.Type != TokenIdent {
		return nil, p.unexpected("TABLES", "COLUMNS", "FUNCTIONS")
	}
	stmt := &ShowStmt{}
	switch tok.Value {
	case "tables":
		stmt.Kind = ShowTables
	case "functions":
		stmt.Kind = ShowFunctions
	case "columns":
		stmt.Kind = ShowColumns
	default:
		return nil, p.unexpected("TABLES", "COLUMNS", "FUNCTIONS")
	}
	p.advance()
	if stmt.Kind == ShowColumns {
		var err error
		if stmt.Table, err = p.parseTableName(); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

// parseSet parses SET name = literal
func (p *Parser) parseSet() (Statement, error) {
	p.advance()
	name, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenEqual); err != nil {
		return nil, err
	}
	negative := p.accept(TokenMinus)
	lit, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	if negative {
		if err := negateLiteral(lit); err != nil {
			return nil, err
		}
	}
	return &SetStmt{Name: name, Value: lit}, nil
}

// parseBalances parses BALANCES [AT f] [FROM ...] [WHERE e]
func (p *Parser) parseBalances() (Statement, error) {
	p.advance()
	stmt := &BalancesStmt{}
	var err error
	if stmt.Summary, err = p.parseSummary(); err != nil {
		return nil, err
	}
	if stmt.From, err = p.parseFrom(); err != nil {
		return nil, err
	}
	if stmt.Where, err = p.parseWhere(); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseJournal parses JOURNAL ['account regexp'] [AT f] [FROM ...] [WHERE e]
func (p *Parser) parseJournal() (Statement, error) {
	p.advance()
	stmt := &JournalStmt{}
	if tok := p.current(); tok.Type == TokenString {
		stmt.Account = tok.Value
		p.advance()
	}
	var err error
	if stmt.Summary, err = p.parseSummary(); err != nil {
		return nil, err
	}
	if stmt.From, err = p.parseFrom(); err != nil {
		return nil, err
	}
	if stmt.Where, err = p.parseWhere(); err != nil {
		return nil, err
	}
	return stmt, nil
}
