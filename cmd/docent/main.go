package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harmattan-labs/docent/internal/app"
	"github.com/harmattan-labs/docent/internal/config"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "docent",
		Short:        "document chatbot backend and index tooling",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd(), indexCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, log, err := initApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			defer log.Sync()

			errCh := make(chan error, 1)
			go func() { errCh <- a.Server.Start() }()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-stop:
				log.Info("signal received", zap.String("signal", sig.String()))
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return a.Server.Shutdown(shutdownCtx)
		},
	}
}

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "manage the vector index",
	}

	var dataDir, indexName string

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "ingest every file in the data directory into the index",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, log, err := initApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			defer log.Sync()

			dir := dataDir
			if dir == "" {
				dir = a.Config.DataDir
			}
			name := indexName
			if name == "" {
				name = a.Config.IndexName
			}
			return a.Writer.Build(cmd.Context(), dir, name)
		},
	}
	buildCmd.Flags().StringVar(&dataDir, "data-dir", "", "directory of source files (defaults to DATA_DIR)")
	buildCmd.Flags().StringVar(&indexName, "index", "", "index name (defaults to INDEX_NAME)")

	appendCmd := &cobra.Command{
		Use:   "append <file>",
		Short: "ingest a single file into an existing index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, log, err := initApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			defer log.Sync()

			name := indexName
			if name == "" {
				name = a.Config.IndexName
			}
			count, err := a.Writer.AppendFile(cmd.Context(), args[0], name, filepath.Base(args[0]))
			if err != nil {
				return err
			}
			log.Info("file appended", zap.String("file", args[0]), zap.Int("chunks", count))
			return nil
		},
	}
	appendCmd.Flags().StringVar(&indexName, "index", "", "index name (defaults to INDEX_NAME)")

	cmd.AddCommand(buildCmd, appendCmd)
	return cmd
}

func initApp(ctx context.Context) (*app.App, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := zap.NewProduction()
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	a, err := app.NewApp(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return a, log, nil
}
