package query

import (
	"errors"
	"fmt"
)

// Input limits guarding the lexer and the recursive-descent parser.
const (
	// MaxQueryLength is the maximum allowed query string length (1MB)
	MaxQueryLength = 1024 * 1024

	// MaxTokens is the maximum number of tokens in a statement
	MaxTokens = 10000

	// MaxExpressionDepth is the maximum nesting depth for expressions
	MaxExpressionDepth = 100

	// MaxIdentifierLength is the maximum length for a column, alias or table name
	MaxIdentifierLength = 256
)

var (
	// ErrQueryTooLong is returned when query exceeds MaxQueryLength
	ErrQueryTooLong = errors.New("query too long")

	// ErrTooManyTokens is returned when a statement has too many tokens
	ErrTooManyTokens = errors.New("too many tokens in query")

	// ErrExpressionTooDeep is returned when expression nesting exceeds limit
	ErrExpressionTooDeep = errors.New("expression nesting too deep")

	// ErrIdentifierTooLong is returned when an identifier is too long
	ErrIdentifierTooLong = errors.New("identifier too long")
)

// ValidateQuery checks the raw statement text before lexing.
func ValidateQuery(text string) error {
	if len(text) > MaxQueryLength {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrQueryTooLong, len(text), MaxQueryLength)
	}
	return nil
}

// ValidateTokens validates token count
func ValidateTokens(tokens []Token) error {
	if len(tokens) > MaxTokens {
		return fmt.Errorf("%w: %d tokens (max %d)", ErrTooManyTokens, len(tokens), MaxTokens)
	}
	return nil
}

// ValidateIdentifier validates identifier length
func ValidateIdentifier(name string) error {
	if len(name) > MaxIdentifierLength {
		return fmt.Errorf("%w: %d chars (max %d)", ErrIdentifierTooLong, len(name), MaxIdentifierLength)
	}
	return nil
}

// depthCounter tracks expression nesting depth during parsing.
type depthCounter struct {
	depth    int
	maxDepth int
}

func newDepthCounter() *depthCounter {
	return &depthCounter{maxDepth: MaxExpressionDepth}
}

// enter increments depth and returns error if limit exceeded
func (c *depthCounter) enter() error {
	c.depth++
	if c.depth > c.maxDepth {
		return fmt.Errorf("%w: %d (max %d)", ErrExpressionTooDeep, c.depth, c.maxDepth)
	}
	return nil
}

func (c *depthCounter) exit() {
	c.depth--
}
