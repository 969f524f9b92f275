package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"familienfreizeit/libs/richtext"
)

const shutdownTimeout = 10 * time.Second

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "familienfreizeit",
		Short:        "Freizeitangebote content API",
		SilenceUsage: true,
	}

	serveCmd := newServeCmd()
	rootCmd.AddCommand(serveCmd, newMigrateCmd(), newRenderCmd(), newSeedCmd())

	// serve is the default when no subcommand is given
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())
	rootCmd.RunE = serveCmd.RunE

	return rootCmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run migrations and start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().String("addr", "", "listen address, e.g. :1337")
	cmd.Flags().String("env", "", "runtime environment (development, production)")
	cmd.Flags().String("database-url", "", "postgres connection URL")
	cmd.Flags().Bool("public-writes", false, "allow writes without an API token")
	cmd.Flags().String("templates-dir", "", "load page templates from this directory")
	return cmd
}

func runServe(ctx context.Context, cfg *Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	version, err := runMigrations(ctx, db)
	if err != nil {
		return err
	}

	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	app := newApp(cfg, db, logger)
	router, err := app.newRouter()
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	logger.Info(
		"runtime configuration",
		"env", cfg.Env,
		"addr", cfg.Addr,
		"schema_version", version,
		"geocoder", cfg.GeocoderProvider,
		"public_writes", cfg.PublicWrites,
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(nil)
			if err != nil {
				return err
			}
			db, err := openDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			version, err := runMigrations(cmd.Context(), db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
			return nil
		},
	}
}

func newRenderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "render [file|-]",
		Short: "Render a rich-text JSON document to HTML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if len(args) == 0 || args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read document: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), richtext.RenderJSON(data))
			return nil
		},
	}
}

type seedFile struct {
	Data []EntryInput `json:"data"`
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file>",
		Short: "Create entries from a JSON file of write payloads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read seed file: %w", err)
			}
			var seed seedFile
			if err := json.Unmarshal(content, &seed); err != nil {
				return fmt.Errorf("decode seed file: %w", err)
			}

			cfg, err := loadConfig(nil)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			db, err := openDatabase(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if _, err := runMigrations(ctx, db); err != nil {
				return err
			}

			app := newApp(cfg, db, newLogger())
			created, err := app.seedEntries(ctx, seed.Data)
			fmt.Fprintf(cmd.OutOrStdout(), "created %d entries\n", created)
			return err
		},
	}
}

// seedEntries validates and creates each input, stopping at the first
// failure.
func (a *App) seedEntries(ctx context.Context, inputs []EntryInput) (int, error) {
	created := 0
	for i := range inputs {
		input := inputs[i]
		if err := validateEntryInput(&input, true); err != nil {
			return created, fmt.Errorf("entry %d: %w", i, err)
		}
		a.fillCoordinates(ctx, &input)

		entry, err := a.createEntry(ctx, input)
		if err != nil {
			return created, fmt.Errorf("entry %d: %w", i, err)
		}
		a.log.Info("entry seeded", "id", entry.ID, "titel", entry.Titel)
		created++
	}
	return created, nil
}
