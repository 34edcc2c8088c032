package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/speakboard/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP import API",
	Long: `Serves the import API:

  POST /api/imports          multipart upload, field "file"
  GET  /api/folders          folders, paginated with ?page=&per_page=
  GET  /api/folders/{id}     one folder with its icons
  GET  /api/quick-access     quick-access icons
  GET  /healthz              liveness and import slots`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		lib, st, release, err := openLibrary(ctx)
		if err != nil {
			return err
		}
		defer release()

		srv := web.NewServer(lib, st, newFetcher(), web.Options{
			Addr:                 cfg.Server.Addr(),
			MaxUploadSize:        cfg.Server.MaxUploadSize,
			MaxConcurrentImports: cfg.Server.MaxConcurrentImports,
			ImportWaitTime:       cfg.Server.ImportWaitTime,
			FetchConcurrency:     cfg.Fetch.Concurrency,
			Document:             documentOptions(),
			ReadTimeout:          cfg.Server.ReadTimeout,
			WriteTimeout:         cfg.Server.WriteTimeout,
			IdleTimeout:          cfg.Server.IdleTimeout,
		}, logger)

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return <-errCh
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
