package query

import (
	"errors"
	"testing"
)

func TestLexer_Tokens(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Token
	}{
		{
			name:  "keywords are case insensitive",
			input: "select Distinct FROM",
			want: []Token{
				{Type: TokenSelect, Value: "SELECT", Pos: 0},
				{Type: TokenDistinct, Value: "DISTINCT", Pos: 7},
				{Type: TokenFrom, Value: "FROM", Pos: 16},
			},
		},
		{
			name:  "identifiers are folded to lower case",
			input: "Account",
			want:  []Token{{Type: TokenIdent, Value: "account", Pos: 0}},
		},
		{
			name:  "quoted identifier keeps case and may be a keyword",
			input: "`Select`",
			want:  []Token{{Type: TokenIdent, Value: "Select", Pos: 0}},
		},
		{
			name:  "double quotes make a string",
			input: `"a" "it""s"`,
			want: []Token{
				{Type: TokenString, Value: "a", Pos: 0},
				{Type: TokenString, Value: `it"s`, Pos: 4},
			},
		},
		{
			name:  "string with doubled quote",
			input: `'it''s'`,
			want:  []Token{{Type: TokenString, Value: "it's", Pos: 0}},
		},
		{
			name:  "numbers keep their text",
			input: "42 1.50 .5",
			want: []Token{
				{Type: TokenInteger, Value: "42", Pos: 0},
				{Type: TokenDecimal, Value: "1.50", Pos: 3},
				{Type: TokenDecimal, Value: ".5", Pos: 8},
			},
		},
		{
			name:  "date literal",
			input: "date >= 2024-02-29",
			want: []Token{
				{Type: TokenIdent, Value: "date", Pos: 0},
				{Type: TokenGreaterEqual, Value: ">=", Pos: 5},
				{Type: TokenDate, Value: "2024-02-29", Pos: 8},
			},
		},
		{
			name:  "hash dates are normalized",
			input: `#"Mar 5, 2024" #'2024/03/05' #'5 March 2024'`,
			want: []Token{
				{Type: TokenDate, Value: "2024-03-05", Pos: 0},
				{Type: TokenDate, Value: "2024-03-05", Pos: 15},
				{Type: TokenDate, Value: "2024-03-05", Pos: 29},
			},
		},
		{
			name:  "from clause keywords",
			input: "open on close clear print at",
			want: []Token{
				{Type: TokenOpen, Value: "OPEN", Pos: 0},
				{Type: TokenOn, Value: "ON", Pos: 5},
				{Type: TokenClose, Value: "CLOSE", Pos: 8},
				{Type: TokenClear, Value: "CLEAR", Pos: 14},
				{Type: TokenPrint, Value: "PRINT", Pos: 20},
				{Type: TokenAt, Value: "AT", Pos: 26},
			},
		},
		{
			name:  "digits separated by spaced minus are arithmetic",
			input: "2024 - 02",
			want: []Token{
				{Type: TokenInteger, Value: "2024", Pos: 0},
				{Type: TokenMinus, Value: "-", Pos: 5},
				{Type: TokenInteger, Value: "02", Pos: 7},
			},
		},
		{
			name:  "operators",
			input: "= != <> < <= > >= ~ !~ + - * / %",
			want: []Token{
				{Type: TokenEqual, Value: "=", Pos: 0},
				{Type: TokenNotEqual, Value: "!=", Pos: 2},
				{Type: TokenNotEqual, Value: "<>", Pos: 5},
				{Type: TokenLess, Value: "<", Pos: 8},
				{Type: TokenLessEqual, Value: "<=", Pos: 10},
				{Type: TokenGreater, Value: ">", Pos: 13},
				{Type: TokenGreaterEqual, Value: ">=", Pos: 15},
				{Type: TokenMatch, Value: "~", Pos: 18},
				{Type: TokenNotMatch, Value: "!~", Pos: 20},
				{Type: TokenPlus, Value: "+", Pos: 23},
				{Type: TokenMinus, Value: "-", Pos: 25},
				{Type: TokenStar, Value: "*", Pos: 27},
				{Type: TokenSlash, Value: "/", Pos: 29},
				{Type: TokenPercent, Value: "%", Pos: 31},
			},
		},
		{
			name:  "comments are skipped",
			input: "a -- line\n/* block */ b",
			want: []Token{
				{Type: TokenIdent, Value: "a", Pos: 0},
				{Type: TokenIdent, Value: "b", Pos: 22},
			},
		},
		{
			name:  "punctuation",
			input: "(a, b);",
			want: []Token{
				{Type: TokenLeftParen, Value: "(", Pos: 0},
				{Type: TokenIdent, Value: "a", Pos: 1},
				{Type: TokenComma, Value: ",", Pos: 2},
				{Type: TokenIdent, Value: "b", Pos: 4},
				{Type: TokenRightParen, Value: ")", Pos: 5},
				{Type: TokenSemicolon, Value: ";", Pos: 6},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Tokenize(tt.input)
			if err != nil {
				t.Fatalf("Tokenize() error = %v", err)
			}
			if last := tokens[len(tokens)-1]; last.Type != TokenEOF || last.Pos != len(tt.input) {
				t.Errorf("last token = %+v, want EOF at %d", last, len(tt.input))
			}
			tokens = tokens[:len(tokens)-1]
			if len(tokens) != len(tt.want) {
				t.Fatalf("Tokenize() = %+v, want %+v", tokens, tt.want)
			}
			for i := range tokens {
				if tokens[i] != tt.want[i] {
					t.Errorf("token %d = %+v, want %+v", i, tokens[i], tt.want[i])
				}
			}
		})
	}
}

func TestLexer_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantPos int
	}{
		{"unterminated string", "x = 'abc", 4},
		{"unterminated comment", "x /* abc", 2},
		{"empty quoted identifier", "``", 0},
		{"invalid character", "x # y", 2},
		{"lone bang", "a ! b", 2},
		{"malformed number", "12abc", 0},
		{"two decimal points", "1.2.3", 0},
		{"invalid date", "2024-02-30", 0},
		{"unparseable hash date", "#'yesterday'", 0},
		{"unterminated hash date", "#'2024-01-01", 1},
		{"bare dot", "a . b", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.input)
			var lexErr *LexError
			if !errors.As(err, &lexErr) {
				t.Fatalf("Tokenize() error = %v, want *LexError", err)
			}
			if lexErr.Pos != tt.wantPos {
				t.Errorf("LexError.Pos = %d, want %d", lexErr.Pos, tt.wantPos)
			}
		})
	}
}

func TestLexer_NextAfterEOF(t *testing.T) {
	l := NewLexer("a")
	for i := 0; i < 3; i++ {
		if _, err := l.Next(); err != nil {
			t.Fatalf("Next() error = %v", err)
		}
	}
	tok, err := l.Next()
	if err != nil || tok.Type != TokenEOF {
		t.Errorf("Next() = %+v, %v; want EOF", tok, err)
	}
}
