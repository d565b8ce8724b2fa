package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medroute/medroute/internal/config"
	"github.com/medroute/medroute/internal/domain/appointment"
	"github.com/medroute/medroute/internal/platform/db"
	"github.com/medroute/medroute/internal/platform/events"
	"github.com/medroute/medroute/internal/platform/lock"
	"github.com/medroute/medroute/internal/platform/seed"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medroute-server",
		Short: "Appointment routing API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger writes JSON to w, or human readable lines in development.
func newLogger(w io.Writer, env string) zerolog.Logger {
	if env == "" || env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a synthetic development dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			appointments, _ := cmd.Flags().GetInt("appointments")
			seedValue, _ := cmd.Flags().GetUint64("seed")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.IsProduction() {
				return fmt.Errorf("refusing to seed a production database")
			}

			seedCfg := seed.DefaultConfig()
			seedCfg.Appointments = appointments
			seedCfg.Seed = seedValue

			ds, err := seed.Generate(seedCfg)
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := seed.Insert(ctx, pool, ds); err != nil {
				return fmt.Errorf("seed failed: %w", err)
			}

			fmt.Printf("Seeded %d users, %d ships and %d appointments.\n",
				len(ds.Users), len(ds.Ships), len(ds.Appointments))
			return nil
		},
	}
	cmd.Flags().Int("appointments", seed.DefaultConfig().Appointments, "Number of appointments to generate")
	cmd.Flags().Uint64("seed", seed.DefaultConfig().Seed, "Random seed for reproducible data")
	return cmd
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := newLogger(os.Stdout, os.Getenv("ENV"))
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(os.Stdout, cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	checks := map[string]db.Check{
		"postgres": func(ctx context.Context) error { return pool.Ping(ctx) },
	}

	// Allocation lock
	var locker lock.Locker
	var rdb *redis.Client
	if cfg.RedisEnabled() {
		rdb, err = lock.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, cfg.LockTTL)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		logger.Info().Msg("connected to redis")
	} else {
		locker = lock.NewLocalLocker()
		logger.Warn().Msg("REDIS_URL not set, allocation locks are local to this instance")
	}

	// Events
	var publisher events.Publisher
	if cfg.KafkaEnabled() {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing events to kafka")
	} else {
		publisher = events.NewLogPublisher(logger)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}()

	svc := appointment.NewService(appointment.NewRepoPG(pool), locker, publisher, logger)

	e := newRouter(cfg, logger, routes{
		Appointments: appointment.NewHandler(svc),
		DBHealth:     db.HealthHandler(pool),
		Checks:       checks,
	})

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
