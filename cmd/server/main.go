package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"notifrelay/internal/application"
	"notifrelay/internal/config"
	"notifrelay/internal/consolidation"
	"notifrelay/internal/domain"
	"notifrelay/internal/infrastructure/iconstore"
	"notifrelay/internal/infrastructure/postgres"
	"notifrelay/internal/infrastructure/sqlite"
	"notifrelay/internal/infrastructure/webhook"
	kafkaconsumer "notifrelay/internal/kafka"
	transporthttp "notifrelay/internal/transport/http"
)

func main() {
	// ── Logging ──────────────────────────────────────────────────────────────
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// ── Config ───────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if cfg.Server.Env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().
		Str("env", cfg.Server.Env).
		Str("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Driver).
		Msg("starting notifrelay")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Storage ──────────────────────────────────────────────────────────────
	var (
		repo    domain.Repository
		configs domain.ConfigRepository
	)
	switch cfg.Storage.Driver {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			log.Fatal().Err(err).Msg("postgres ping failed")
		}
		pg := postgres.New(pool)
		if err := pg.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("postgres migration failed")
		}
		repo, configs = pg, postgres.NewConfigStore(pool)
		log.Info().Msg("postgres connected")

	default:
		store, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Storage.SQLitePath).Msg("failed to open sqlite store")
		}
		defer store.Close()
		repo, configs = store, store.ConfigStore()
		log.Info().Str("path", cfg.Storage.SQLitePath).Msg("sqlite store opened")
	}

	// ── Side-store, Engine & SSE Hub ─────────────────────────────────────────
	icons := iconstore.New(afero.NewOsFs(), cfg.Icons.Dir)
	engine := consolidation.New(repo, consolidation.WithAssets(icons))
	hub := transporthttp.NewHub()
	hook := webhook.New(cfg.Webhook.Timeout, cfg.Webhook.RatePerSecond)

	// ── Application Service ───────────────────────────────────────────────────
	svc := application.NewService(repo, configs, engine, icons, hook, hub)

	// ── HTTP Server ───────────────────────────────────────────────────────────
	handler := transporthttp.NewHandler(svc, hub)
	router := transporthttp.NewRouter(handler, cfg.Server.JWTSecret)

	// ── Kafka Consumer ────────────────────────────────────────────────────────
	if cfg.Kafka.Enabled {
		consumer, err := kafkaconsumer.New(
			cfg.Kafka.Brokers,
			cfg.Kafka.ConsumerGroupID,
			cfg.Kafka.Topics,
			svc,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create kafka consumer")
		}

		go consumer.Start(ctx)
		log.Info().Strs("topics", cfg.Kafka.Topics).Msg("kafka consumer started")
	}

	// ── TTL Purge Job ─────────────────────────────────────────────────────────
	if cfg.TTL.RetentionDays > 0 {
		scheduler := cron.New()
		_, err := scheduler.AddFunc(cfg.TTL.Schedule, func() {
			svc.PurgeTTL(context.Background(), cfg.TTL.RetentionDays)
		})
		if err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.TTL.Schedule).Msg("invalid purge schedule")
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	// ── Start HTTP Server ─────────────────────────────────────────────────────
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("HTTP server listening")
		if err := router.Start(":" + cfg.Server.Port); err != nil {
			log.Info().Msg("HTTP server stopped")
		}
	}()

	// ── Graceful Shutdown ─────────────────────────────────────────────────────
	<-ctx.Done()
	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := router.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("notifrelay stopped")
}
