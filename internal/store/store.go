// Package store persists the folder collection between runs.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ginjaninja78/speakboard/internal/types"
)

// Store loads and saves the whole folder collection. Save writes the given
// folders as the new state, in order.
type Store interface {
	Load(ctx context.Context) ([]*types.Folder, error)
	Save(ctx context.Context, folders []*types.Folder) error
}

// Drivers accepted by Open.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

// Options selects and configures a store backend.
type Options struct {
	Driver string
	Dir    string // file driver
	DSN    string // postgres driver
}

// Open returns the configured store and a function releasing its resources.
// The postgres schema is created if missing.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (Store, func(), error) {
	switch opts.Driver {
	case DriverFile, "":
		return NewFile(opts.Dir, logger), func() {}, nil

	case DriverPostgres:
		pool, err := NewPool(ctx, opts.DSN)
		if err != nil {
			return nil, nil, err
		}
		pg := NewPostgres(pool, logger)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pg, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
