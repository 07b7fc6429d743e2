package output

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is wrapped by NewFormatter for unknown format names.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// ConfigurationError reports an unusable renderer setting.
type ConfigurationError struct {
	Option string
	Value  string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Option, e.Value, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
