package query

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// parseExpr parses a full expression.
func (p *Parser) parseExpr() (Expr, error) {
	return p.parseOr()
}

// parseOr parses OR expressions (lowest precedence)
func (p *Parser) parseOr() (Expr, error) {
	if err := p.depth.enter(); err != nil {
		return nil, err
	}
	defer p.depth.exit()

	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenOr {
		pos := p.current().Pos
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Operator: TokenOr, Right: right, Pos: pos}
	}

	return left, nil
}

// parseAnd parses AND expressions (higher precedence than OR)
func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenAnd {
		pos := p.current().Pos
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Operator: TokenAnd, Right: right, Pos: pos}
	}

	return left, nil
}

func (p *Parser) parseNot() (Expr, error) {
	if tok := p.current(); tok.Type == TokenNot {
		if err := p.depth.enter(); err != nil {
			return nil, err
		}
		defer p.depth.exit()
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Operator: TokenNot, Operand: operand, Pos: tok.Pos}, nil
	}
	return p.parseComparison()
}

func isComparison(t TokenType) bool {
	switch t {
	case TokenEqual, TokenNotEqual, TokenLess, TokenLessEqual,
		TokenGreater, TokenGreaterEqual, TokenMatch, TokenNotMatch:
		return true
	}
	return false
}

// parseComparison parses binary comparisons, pattern matches, IS [NOT] NULL,
// [NOT] IN and [NOT] BETWEEN. Comparisons do not chain.
func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	tok := p.current()
	switch {
	case isComparison(tok.Type):
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Left: left, Operator: tok.Type, Right: right, Pos: tok.Pos}, nil

	case tok.Type == TokenIs:
		p.advance()
		negate := p.accept(TokenNot)
		if _, err := p.expect(TokenNull); err != nil {
			return nil, err
		}
		return &IsNullExpr{Operand: left, Negate: negate, Pos: tok.Pos}, nil

	case tok.Type == TokenNot:
		p.advance()
		switch p.current().Type {
		case TokenIn:
			return p.parseIn(left, true, tok.Pos)
		case TokenBetween:
			return p.parseBetween(left, true, tok.Pos)
		}
		return nil, p.unexpected("IN", "BETWEEN")

	case tok.Type == TokenIn:
		return p.parseIn(left, false, tok.Pos)

	case tok.Type == TokenBetween:
		return p.parseBetween(left, false, tok.Pos)
	}

	return left, nil
}

func (p *Parser) parseIn(operand Expr, negate bool, pos int) (Expr, error) {
	p.advance() // IN
	coll, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return &InExpr{Operand: operand, Collection: coll, Negate: negate, Pos: pos}, nil
}

func (p *Parser) parseBetween(operand Expr, negate bool, pos int) (Expr, error) {
	p.advance() // BETWEEN
	lower, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenAnd); err != nil {
		return nil, err
	}
	upper, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return &BetweenExpr{Operand: operand, Lower: lower, Upper: upper, Negate: negate, Pos: pos}, nil
}

// parseAdditive parses + and - (left associative)
func (p *Parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.current()
		if tok.Type != TokenPlus && tok.Type != TokenMinus {
			return left, nil
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Operator: tok.Type, Right: right, Pos: tok.Pos}
	}
}

// parseMultiplicative parses *, / and % (left associative)
func (p *Parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.current()
		if tok.Type != TokenStar && tok.Type != TokenSlash && tok.Type != TokenPercent {
			return left, nil
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Operator: tok.Type, Right: right, Pos: tok.Pos}
	}
}

func (p *Parser) parseUnary() (Expr, error) {
	tok := p.current()
	if tok.Type != TokenMinus && tok.Type != TokenPlus {
		return p.parsePrimary()
	}
	if err := p.depth.enter(); err != nil {
		return nil, err
	}
	defer p.depth.exit()
	p.advance()
	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &UnaryExpr{Operator: tok.Type, Operand: operand, Pos: tok.Pos}, nil
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.current()
	switch tok.Type {
	case TokenInteger, TokenDecimal, TokenString, TokenDate, TokenTrue, TokenFalse, TokenNull:
		return p.parseLiteral()

	case TokenIdent:
		if err := ValidateIdentifier(tok.Value); err != nil {
			return nil, err
		}
		p.advance()
		if p.current().Type == TokenLeftParen {
			return p.parseCall(tok)
		}
		return &Column{Name: tok.Value, Pos: tok.Pos}, nil

	case TokenLeftParen:
		return p.parseParen()

	case TokenCase:
		return p.parseCase()
	}
	return nil, p.unexpected("expression")
}

// parseLiteral converts the current literal token, keeping exact digits.
func (p *Parser) parseLiteral() (*Literal, error) {
	tok := p.current()
	lit := &Literal{Kind: tok.Type, Pos: tok.Pos}
	switch tok.Type {
	case TokenInteger:
		n, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return nil, &ParseError{Pos: tok.Pos, Msg: "integer literal out of range", Found: tok.Value}
		}
		lit.Value = n
	case TokenDecimal:
		d, err := decimal.NewFromString(tok.Value)
		if err != nil {
			return nil, &ParseError{Pos: tok.Pos, Msg: "invalid decimal literal", Found: tok.Value}
		}
		lit.Value = d
	case TokenString:
		lit.Value = tok.Value
	case TokenDate:
		d, err := ParseDate(tok.Value)
		if err != nil {
			return nil, &ParseError{Pos: tok.Pos, Msg: "invalid date literal", Found: tok.Value}
		}
		lit.Value = d
	case TokenTrue:
		lit.Value = true
	case TokenFalse:
		lit.Value = false
	case TokenNull:
		lit.Value = nil
	default:
		return nil, p.unexpected("literal")
	}
	p.advance()
	return lit, nil
}

func negateLiteral(lit *Literal) error {
	switch v := lit.Value.(type) {
	case int64:
		lit.Value = -v
	case decimal.Decimal:
		lit.Value = v.Neg()
	default:
		return &ParseError{Pos: lit.Pos, Expected: []string{"number"}, Found: Format(lit)}
	}
	return nil
}

// parseCall parses name '(' [* | args] ')'
func (p *Parser) parseCall(name Token) (Expr, error) {
	p.advance() // (
	call := &FuncCall{Name: name.Value, Pos: name.Pos}
	switch {
	case p.accept(TokenStar):
		call.Star = true
	case p.current().Type != TokenRightParen:
		args, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		call.Args = args
	}
	if _, err := p.expect(TokenRightParen); err != nil {
		return nil, err
	}
	return call, nil
}

// parseParen parses a parenthesized expression or a list literal. A list of
// one element needs a trailing comma: ('a',).
func (p *Parser) parseParen() (Expr, error) {
	open := p.current()
	p.advance()
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.accept(TokenRightParen) {
		return first, nil
	}
	if _, err := p.expect(TokenComma); err != nil {
		return nil, err
	}
	list := &ListExpr{Elems: []Expr{first}, Pos: open.Pos}
	for p.current().Type != TokenRightParen {
		elem, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		list.Elems = append(list.Elems, elem)
		if !p.accept(TokenComma) {
			break
		}
	}
	if _, err := p.expect(TokenRightParen); err != nil {
		return nil, err
	}
	return list, nil
}

// parseCase parses CASE WHEN cond THEN result ... [ELSE result] END
func (p *Parser) parseCase() (Expr, error) {
	tok := p.current()
	p.advance()
	expr := &CaseExpr{Pos: tok.Pos}
	for p.accept(TokenWhen) {
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenThen); err != nil {
			return nil, err
		}
		result, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		expr.Whens = append(expr.Whens, WhenClause{Cond: cond, Result: result})
	}
	if len(expr.Whens) == 0 {
		return nil, p.unexpected("WHEN")
	}
	if p.accept(TokenElse) {
		result, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		expr.Else = result
	}
	if _, err := p.expect(TokenEnd); err != nil {
		return nil, err
	}
	return expr, nil
}
