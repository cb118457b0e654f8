package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/letterly/backend/internal/auth"
	"github.com/anonto42/letterly/backend/internal/handlers"
	"github.com/anonto42/letterly/backend/internal/realtime"
	"github.com/anonto42/letterly/backend/internal/router"
	"github.com/anonto42/letterly/backend/internal/scheduler"
	"github.com/anonto42/letterly/backend/internal/storage"
	"github.com/anonto42/letterly/backend/internal/supervisor"
	"github.com/anonto42/letterly/backend/pkg/config"
	"github.com/anonto42/letterly/backend/pkg/firebase"
	"github.com/anonto42/letterly/backend/pkg/logger"
	"github.com/anonto42/letterly/backend/validators"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := run(); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stdout})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDB(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize databases: %w", err)
	}
	defer db.CloseDB()

	if err := router.Migrate(db.Postgres); err != nil {
		return err
	}

	media, err := newMediaStore(cfg, db)
	if err != nil {
		return err
	}

	var verifier handlers.FirebaseVerifier
	if cfg.FirebaseCredentialsPath != "" {
		app, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			return fmt.Errorf("initialize firebase: %w", err)
		}
		verifier = app
	}

	tree := supervisor.NewTree(supervisor.DefaultTreeConfig())

	hub := realtime.NewHub()
	tree.AddRealtimeService(hub)
	relay, err := newRelay(cfg.Realtime)
	if err != nil {
		return err
	}
	if relay != nil {
		defer relay.Close()
		hub.SetRelay(realtime.NewBreakerRelay(cfg.Realtime.Broker, relay))
		tree.AddRealtimeService(&realtime.RelayService{Hub: hub, Relay: relay})
	}

	repos := router.NewPostgresRepositories(db.Postgres)
	if cfg.Scheduler.Enabled {
		tree.AddRealtimeService(scheduler.New(cfg.Scheduler.Spec, repos.Letters))
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validators.NewValidator()
	config.SetupMiddleware(e, cfg)
	router.SetupRoutes(e, repos, router.Options{
		Tokens:         auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL),
		Hub:            hub,
		Media:          media,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Firebase:       verifier,
	})

	apiServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}
	tree.AddAPIService(supervisor.NewHTTPService("http-server", apiServer, 10*time.Second))

	if cfg.MetricsPort != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		tree.AddAPIService(supervisor.NewHTTPService("metrics-server", metricsServer, 5*time.Second))
	}

	logger.Info().
		Str("port", cfg.Port).
		Str("metrics_port", cfg.MetricsPort).
		Str("broker", cfg.Realtime.Broker).
		Bool("firebase", verifier != nil).
		Msg("server starting")

	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func newMediaStore(cfg *config.Config, db *config.DB) (storage.Store, error) {
	if db.Mongo != nil {
		return storage.NewGridFSStore(db.Mongo.Database(cfg.MongoDatabase))
	}
	return storage.NewDiskStore(cfg.UploadDir)
}

func newRelay(cfg config.RealtimeConfig) (realtime.Relay, error) {
	switch cfg.Broker {
	case "", "local":
		return nil, nil
	case "redis":
		return realtime.NewRedisRelay(cfg.RedisURL, cfg.Subject)
	case "nats":
		return realtime.NewNATSRelay(cfg.NATSURL, cfg.Subject)
	}
	return nil, fmt.Errorf("unknown realtime broker %q", cfg.Broker)
}
