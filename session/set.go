package session

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vegasq/ledgerql/output"
	"github.com/vegasq/ledgerql/query"
)

// Variables lists the names SET accepts.
var Variables = []string{"format", "null", "precision", "workers"}

// set applies SET name = value. Nothing changes when the value is invalid.
func (s *Session) set(stmt *query.SetStmt) error {
	name := strings.ToLower(stmt.Name)
	value := stmt.Value.Value

	s.mu.Lock()
	defer s.mu.Unlock()

	switch name {
	case "format":
		f, ok := value.(string)
		if !ok {
			return invalid(name, stmt.Value, "want a string")
		}
		if _, err := output.NewFormatter(f, io.Discard, s.opts); err != nil {
			return err
		}
		s.format = strings.ToLower(strings.TrimSpace(f))

	case "null":
		n, ok := value.(string)
		if !ok {
			return invalid(name, stmt.Value, "want a string")
		}
		opts := s.opts
		opts.Null = n
		if err := opts.Validate(); err != nil {
			return err
		}
		s.opts = opts

	case "precision":
		n, ok := value.(int64)
		if !ok {
			return invalid(name, stmt.Value, "want an integer")
		}
		opts := s.opts
		opts.Precision = int(n)
		if n < 0 {
			opts.Precision = -1
		}
		if err := opts.Validate(); err != nil {
			return err
		}
		s.opts = opts

	case "workers":
		n, ok := value.(int64)
		if !ok || n < 1 {
			return invalid(name, stmt.Value, "want a positive integer")
		}
		s.workers = int(n)

	default:
		return fmt.Errorf("%w %q (known: %s)", ErrUnknownVariable, stmt.Name, strings.Join(Variables, ", "))
	}

	s.logger.Printf("set %s = %s", name, query.FormatLiteral(stmt.Value))
	return nil
}

func invalid(name string, lit *query.Literal, msg string) error {
	return &output.ConfigurationError{Option: name, Value: query.FormatLiteral(lit), Err: errors.New(msg)}
}
