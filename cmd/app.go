package cmd

import (
	"context"
	"fmt"

	"github.com/ginjaninja78/speakboard/internal/fetcher"
	"github.com/ginjaninja78/speakboard/internal/library"
	"github.com/ginjaninja78/speakboard/internal/store"
	"github.com/ginjaninja78/speakboard/internal/xlsxparser"
)

// openLibrary opens the configured store and loads the library from it.
// The returned function releases the store.
func openLibrary(ctx context.Context) (*library.Library, store.Store, func(), error) {
	st, release, err := store.Open(ctx, store.Options{
		Driver: cfg.Store.Driver,
		Dir:    cfg.Store.Dir,
		DSN:    cfg.Store.DSN,
	}, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open store: %w", err)
	}

	folders, err := st.Load(ctx)
	if err != nil {
		release()
		return nil, nil, nil, fmt.Errorf("failed to load library: %w", err)
	}
	return library.New(folders), st, release, nil
}

func newFetcher() *fetcher.HTTPFetcher {
	return fetcher.New(fetcher.Options{
		Timeout:      cfg.Fetch.Timeout,
		MaxBytes:     cfg.Fetch.MaxBytes,
		Retries:      cfg.Fetch.Retries(),
		RetryBackoff: cfg.Fetch.RetryBackoff,
		UserAgent:    cfg.Fetch.UserAgent,
	}, logger)
}

func documentOptions() xlsxparser.Options {
	return xlsxparser.Options{Delimiter: cfg.Import.CSVDelimiter}
}
