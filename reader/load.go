package reader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vegasq/ledgerql/ledger"
)

// ErrUnknownFormat is returned by Load for unrecognized file extensions.
var ErrUnknownFormat = errors.New("unknown ledger file format")

// Load reads a ledger, choosing the loader from the file extension:
// .parquet (globs allowed), .db/.sqlite/.sqlite3, or .yml/.yaml.
func Load(ctx context.Context, path string) (*ledger.Ledger, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".parquet":
		return ReadParquet(path)
	case ".db", ".sqlite", ".sqlite3":
		return ReadSQLite(ctx, path, DefaultSQLiteTable)
	case ".yml", ".yaml":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		defer func() { _ = f.Close() }()
		return ReadYAML(f, path)
	default:
		return nil, fmt.Errorf("%w: %q (want .parquet, .sqlite or .yaml)", ErrUnknownFormat, ext)
	}
}
