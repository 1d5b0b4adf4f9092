package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"plantpedia/internal/app"
	"plantpedia/internal/auth"
	"plantpedia/internal/content"
	"plantpedia/internal/isr"
	"plantpedia/internal/logger"
	"plantpedia/internal/tools/export"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "plantpedia",
		Short:         "Server-rendered plant catalog backed by a headless CMS",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to a config file (default ./plantpedia.yaml)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd.Context(), configFile)
			},
		},
		newExportCmd(&configFile),
		&cobra.Command{
			Use:   "hash-password [password]",
			Short: "Print a bcrypt hash for auth.password_hash",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				hash, err := auth.HashPassword(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), hash)
				return nil
			},
		},
	)
	return root
}

func newExportCmd(configFile *string) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the static page set to a directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd.Context(), *configFile, outDir)
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "out", "directory to write pages to")
	return cmd
}

func setup(configFile string) (app.Config, error) {
	v, err := app.NewViper(configFile)
	if err != nil {
		return app.Config{}, err
	}
	cfg, err := app.LoadConfig(v)
	if err != nil {
		return app.Config{}, fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Env, cfg.LogLevel)
	return cfg, nil
}

func openStore(ctx context.Context, cfg app.StoreConfig) (isr.Store, error) {
	switch cfg.Driver {
	case app.StoreMySQL:
		db, err := isr.OpenMySQL(cfg.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ping db: %w", err)
		}
		store := isr.NewMySQLStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return store, nil
	case app.StoreRedis:
		client := isr.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		store := isr.NewRedisStore(client, cfg.Retention)
		if err := store.Ping(ctx); err != nil {
			client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return store, nil
	default:
		return isr.NewMemoryStoreWithCapacity(cfg.MemoryCapacity), nil
	}
}

func newServer(ctx context.Context, cfg app.Config) (*app.Server, isr.Store, error) {
	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, nil, err
	}

	client, err := content.NewClient(cfg.Content, nil)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("init content client: %w", err)
	}

	srv, err := app.NewServer(cfg, app.Deps{Content: client, Store: store})
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("init server: %w", err)
	}
	return srv, store, nil
}

func runServe(parent context.Context, configFile string) error {
	cfg, err := setup(configFile)
	if err != nil {
		return err
	}

	shutdownCtx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler, store, err := newServer(shutdownCtx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("startup failed")
		return err
	}
	defer store.Close()

	handler.Prebuild(shutdownCtx)

	warmer, err := handler.NewWarmer()
	if err != nil {
		log.Error().Err(err).Msg("init warmer")
		return err
	}
	warmer.Start()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("store", cfg.Store.Driver).Msg("plantpedia listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	warmer.Stop()
	handler.Close()
	return nil
}

func runExport(parent context.Context, configFile, outDir string) error {
	cfg, err := setup(configFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, store, err := newServer(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	defer srv.Close()

	srv.Prebuild(ctx)
	targets, err := srv.StaticTargets(ctx)
	if err != nil {
		return fmt.Errorf("enumerate pages: %w", err)
	}

	m, err := export.Export(ctx, store, targets, srv.PublicPath, outDir)
	if err != nil {
		return fmt.Errorf("export pages: %w", err)
	}

	log.Info().
		Str("out", outDir).
		Int("pages", m.Totals.Pages).
		Int("written", m.Totals.Written).
		Int("redirects", m.Totals.Redirects).
		Int("missing", m.Totals.Missing).
		Int("not_found", m.Totals.NotFound).
		Msg("export finished")
	return nil
}
