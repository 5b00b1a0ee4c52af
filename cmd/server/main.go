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

	"office-hub/internal/config"
	"office-hub/internal/database"
	"office-hub/internal/events"
	"office-hub/internal/handlers"
	"office-hub/internal/logging"
	"office-hub/internal/reporting"
	"office-hub/internal/server"
	"office-hub/internal/storage"
	"office-hub/internal/telemetry"
	"office-hub/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const serviceName = "office-hub"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Office hub: directory, inventory and task board",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(serveCmd(), migrateCmd(), seedCmd())
	return root
}

// bootstrap — общее для всех команд: конфиг, логгер, БД.
func bootstrap(ctx context.Context) (*config.Config, zerolog.Logger, *gorm.DB, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	log := logging.New(cfg.LogLevel, cfg.LogPretty)

	db, err := database.Connect(ctx, cfg.DBDSN, cfg.DBConnectAttempts, log)
	if err != nil {
		return nil, log, nil, err
	}
	return cfg, log, db, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			_, log, db, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := database.Migrate(ctx, db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info().Msg("migrations applied")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	var demoFile string
	var demo bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the default admin and optionally demo data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, log, db, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := database.Migrate(ctx, db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			if err := database.SeedAdmin(ctx, db, cfg.AdminUsername, cfg.AdminPassword, log); err != nil {
				return err
			}
			if !demo && demoFile == "" {
				return nil
			}

			fixture := database.DefaultDemoFixture
			if demoFile != "" {
				if fixture, err = os.ReadFile(demoFile); err != nil {
					return fmt.Errorf("read demo fixture: %w", err)
				}
			}
			return database.SeedDemo(ctx, db, fixture, log)
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "load the built-in demo data")
	cmd.Flags().StringVar(&demoFile, "demo-file", "", "load demo data from a YAML file")
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	cfg, log, db, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Error().Err(err).Msg("close database")
		}
	}()

	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := database.SeedAdmin(ctx, db, cfg.AdminUsername, cfg.AdminPassword, log); err != nil {
		return err
	}

	shutdownTracing, err := telemetry.Init(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown tracing")
		}
	}()

	files, err := newFileStore(ctx, cfg)
	if err != nil {
		return err
	}

	opts := []workflow.Option{workflow.WithLogger(log), workflow.WithFileStore(files)}
	if cfg.NATSURL != "" {
		bus, err := events.NewNATS(cfg.NATSURL, cfg.NATSStream)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer bus.Close()
		opts = append(opts, workflow.WithPublisher(bus))
		log.Info().Str("url", cfg.NATSURL).Str("stream", cfg.NATSStream).Msg("activity events enabled")
	}

	engine := workflow.NewEngine(db, opts...)
	reports := reporting.NewService(db, cfg.Reports.Limits())
	h := handlers.New(db, engine, reports, log)

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           server.NewRouter(cfg, db, h, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown server")
	}
	log.Info().Msg("server stopped")
	return nil
}

func newFileStore(ctx context.Context, cfg *config.Config) (storage.FileStore, error) {
	if cfg.Storage.Driver == config.StorageS3 {
		return storage.NewS3(ctx, storage.S3Options{
			Endpoint:       cfg.Storage.S3Endpoint,
			Region:         cfg.Storage.S3Region,
			Bucket:         cfg.Storage.S3Bucket,
			AccessKey:      cfg.Storage.S3AccessKey,
			SecretKey:      cfg.Storage.S3SecretKey,
			ForcePathStyle: cfg.Storage.S3PathStyle,
		})
	}
	return storage.NewLocal(cfg.Storage.Dir, cfg.Storage.BaseURL)
}
