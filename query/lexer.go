package query

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Lexer tokenizes query text. It is lazy: each call to Next scans exactly
// one token.
type Lexer struct {
	input   string
	pos     int  // offset of ch
	readPos int  // offset of the byte after ch
	ch      byte // 0 at end of input
}

// NewLexer creates a new lexer
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// readChar reads the next character
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

// peekChar looks at the next character without advancing
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) atEnd() bool {
	return l.pos >= len(l.input)
}

// skipWhitespace skips blanks and both comment styles.
func (l *Lexer) skipWhitespace() error {
	for !l.atEnd() {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r':
			l.readChar()
		case l.ch == '-' && l.peekChar() == '-':
			for !l.atEnd() && l.ch != '\n' {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			start := l.pos
			l.readChar()
			l.readChar()
			for {
				if l.atEnd() {
					return &LexError{Pos: start, Msg: "unterminated comment"}
				}
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar()
					l.readChar()
					break
				}
				l.readChar()
			}
		default:
			return nil
		}
	}
	return nil
}

// readQuoted reads a quoted string or identifier. A doubled quote stands for
// one literal quote character.
func (l *Lexer) readQuoted(quote byte, what string) (string, error) {
	start := l.pos
	var result strings.Builder
	l.readChar() // skip opening quote

	for {
		if l.atEnd() {
			return "", &LexError{Pos: start, Msg: "unterminated " + what}
		}
		if l.ch == quote {
			if l.peekChar() != quote {
				l.readChar()
				return result.String(), nil
			}
			l.readChar()
		}
		result.WriteByte(l.ch)
		l.readChar()
	}
}

// readNumber reads an integer or decimal literal, keeping its exact digits.
func (l *Lexer) readNumber() (Token, error) {
	start := l.pos
	typ := TokenInteger
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' {
		typ = TokenDecimal
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if isIdentStart(l.ch) || l.ch == '.' {
		return Token{}, &LexError{Pos: start, Msg: "malformed number " + quoteLexeme(l.input[start:l.pos+1])}
	}
	return Token{Type: typ, Value: l.input[start:l.pos], Pos: start}, nil
}

// isDateAhead reports whether an ISO YYYY-MM-DD literal starts at pos.
func (l *Lexer) isDateAhead() bool {
	const layout = "dddd-dd-dd"
	if l.pos+len(layout) > len(l.input) {
		return false
	}
	for i := 0; i < len(layout); i++ {
		c := l.input[l.pos+i]
		if layout[i] == 'd' && !isDigit(c) || layout[i] == '-' && c != '-' {
			return false
		}
	}
	end := l.pos + len(layout)
	return end == len(l.input) || !isIdentPart(l.input[end]) && l.input[end] != '.'
}

func (l *Lexer) readDate() (Token, error) {
	start := l.pos
	text := l.input[start : start+10]
	if _, err := time.Parse("2006-01-02", text); err != nil {
		return Token{}, &LexError{Pos: start, Msg: "invalid date " + text}
	}
	for i := 0; i < 10; i++ {
		l.readChar()
	}
	return Token{Type: TokenDate, Value: text, Pos: start}, nil
}

// looseDateLayouts are the forms a #'...' date literal may take.
var looseDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"20060102",
	"01/02/2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"January 2 2006",
	"2 Jan 2006",
	"2 January 2006",
}

// readHashDate reads #'text' or #"text" and normalizes the date to ISO form.
func (l *Lexer) readHashDate() (Token, error) {
	start := l.pos
	quote := l.peekChar()
	if quote != '\'' && quote != '"' {
		return Token{}, &LexError{Pos: start, Msg: "invalid character '#'"}
	}
	l.readChar()
	text, err := l.readQuoted(quote, "date")
	if err != nil {
		return Token{}, err
	}
	text = strings.TrimSpace(text)
	for _, layout := range looseDateLayouts {
		if d, err := time.Parse(layout, text); err == nil {
			return Token{Type: TokenDate, Value: d.Format("2006-01-02"), Pos: start}, nil
		}
	}
	return Token{}, &LexError{Pos: start, Msg: "invalid date " + quoteLexeme(text)}
}

// readIdentifier reads an unquoted identifier or keyword
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isIdentPart(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// Next returns the next token. After the end of input it keeps returning
// TokenEOF.
func (l *Lexer) Next() (Token, error) {
	if err := l.skipWhitespace(); err != nil {
		return Token{}, err
	}

	start := l.pos
	single := func(typ TokenType) (Token, error) {
		l.readChar()
		return Token{Type: typ, Value: l.input[start:l.pos], Pos: start}, nil
	}
	double := func(typ TokenType) (Token, error) {
		l.readChar()
		l.readChar()
		return Token{Type: typ, Value: l.input[start:l.pos], Pos: start}, nil
	}

	if l.atEnd() {
		return Token{Type: TokenEOF, Pos: len(l.input)}, nil
	}

	switch l.ch {
	case '=':
		return single(TokenEqual)
	case '!':
		switch l.peekChar() {
		case '=':
			return double(TokenNotEqual)
		case '~':
			return double(TokenNotMatch)
		}
		return Token{}, &LexError{Pos: start, Msg: "invalid character '!'"}
	case '<':
		switch l.peekChar() {
		case '=':
			return double(TokenLessEqual)
		case '>':
			return double(TokenNotEqual)
		}
		return single(TokenLess)
	case '>':
		if l.peekChar() == '=' {
			return double(TokenGreaterEqual)
		}
		return single(TokenGreater)
	case '~':
		return single(TokenMatch)
	case '+':
		return single(TokenPlus)
	case '-':
		return single(TokenMinus)
	case '*':
		return single(TokenStar)
	case '/':
		return single(TokenSlash)
	case '%':
		return single(TokenPercent)
	case ',':
		return single(TokenComma)
	case '(':
		return single(TokenLeftParen)
	case ')':
		return single(TokenRightParen)
	case ';':
		return single(TokenSemicolon)
	case '\'':
		s, err := l.readQuoted('\'', "string")
		if err != nil {
			return Token{}, err
		}
		return Token{Type: TokenString, Value: s, Pos: start}, nil
	case '"':
		s, err := l.readQuoted('"', "string")
		if err != nil {
			return Token{}, err
		}
		return Token{Type: TokenString, Value: s, Pos: start}, nil
	case '`':
		s, err := l.readQuoted('`', "quoted identifier")
		if err != nil {
			return Token{}, err
		}
		if s == "" {
			return Token{}, &LexError{Pos: start, Msg: "empty quoted identifier"}
		}
		return Token{Type: TokenIdent, Value: s, Pos: start}, nil
	case '#':
		return l.readHashDate()
	case '.':
		if isDigit(l.peekChar()) {
			return l.readNumber()
		}
		return Token{}, &LexError{Pos: start, Msg: "invalid character '.'"}
	}

	switch {
	case isDigit(l.ch):
		if l.isDateAhead() {
			return l.readDate()
		}
		return l.readNumber()
	case isIdentStart(l.ch):
		word := l.readIdentifier()
		if typ, ok := keywords[strings.ToUpper(word)]; ok {
			return Token{Type: typ, Value: strings.ToUpper(word), Pos: start}, nil
		}
		return Token{Type: TokenIdent, Value: strings.ToLower(word), Pos: start}, nil
	}
	r, _ := utf8.DecodeRuneInString(l.input[start:])
	return Token{}, &LexError{Pos: start, Msg: "invalid character " + quoteLexeme(string(r))}
}

var keywords = map[string]TokenType{
	"SELECT":   TokenSelect,
	"DISTINCT": TokenDistinct,
	"FROM":     TokenFrom,
	"WHERE":    TokenWhere,
	"GROUP":    TokenGroup,
	"BY":       TokenBy,
	"HAVING":   TokenHaving,
	"ORDER":    TokenOrder,
	"ASC":      TokenAsc,
	"DESC":     TokenDesc,
	"NULLS":    TokenNulls,
	"LIMIT":    TokenLimit,
	"OFFSET":   TokenOffset,
	"PIVOT":    TokenPivot,
	"AS":       TokenAs,
	"AND":      TokenAnd,
	"OR":       TokenOr,
	"NOT":      TokenNot,
	"IN":       TokenIn,
	"IS":       TokenIs,
	"BETWEEN":  TokenBetween,
	"NULL":     TokenNull,
	"TRUE":     TokenTrue,
	"FALSE":    TokenFalse,
	"CASE":     TokenCase,
	"WHEN":     TokenWhen,
	"THEN":     TokenThen,
	"ELSE":     TokenElse,
	"END":      TokenEnd,
	"EXPLAIN":  TokenExplain,
	"SHOW":     TokenShow,
	"SET":      TokenSet,
	"BALANCES": TokenBalances,
	"JOURNAL":  TokenJournal,
	"PRINT":    TokenPrint,
	"AT":       TokenAt,
	"OPEN":     TokenOpen,
	"CLOSE":    TokenClose,
	"CLEAR":    TokenClear,
	"ON":       TokenOn,
}

// IsKeyword reports whether word (in any case) is reserved.
func IsKeyword(word string) bool {
	_, ok := keywords[strings.ToUpper(word)]
	return ok
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func quoteLexeme(s string) string {
	return "'" + s + "'"
}

// Tokenize returns all tokens from the input, ending with TokenEOF.
func Tokenize(input string) ([]Token, error) {
	lexer := NewLexer(input)
	var tokens []Token

	for {
		tok, err := lexer.Next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}
