package ledger

import (
	"context"
	"fmt"

	"github.com/crave-grocer/api/internal/enum"
)

// Options selects and locates a ledger backend.
type Options struct {
	Backend     string
	Path        string
	DatabaseURL string
}

// Open returns the Store for opts.Backend. An empty backend means file.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", enum.LedgerBackendFile:
		if opts.Path == "" {
			return nil, fmt.Errorf("file ledger: path is required")
		}
		return OpenFile(opts.Path)
	case enum.LedgerBackendSQLite:
		if opts.Path == "" {
			return nil, fmt.Errorf("sqlite ledger: path is required")
		}
		return OpenSQLite(ctx, opts.Path)
	case enum.LedgerBackendPostgres:
		if opts.DatabaseURL == "" {
			return nil, fmt.Errorf("postgres ledger: database url is required")
		}
		return OpenPostgres(ctx, opts.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", opts.Backend)
	}
}
