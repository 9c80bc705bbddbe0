package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/pflag"

	"trockle-api/internal/auth"
	"trockle-api/internal/cache"
	"trockle-api/internal/config"
	"trockle-api/internal/database"
	"trockle-api/internal/events"
	"trockle-api/internal/features"
	"trockle-api/internal/handler"
	"trockle-api/internal/middleware"
	"trockle-api/internal/service"
	"trockle-api/internal/swipe"
	"trockle-api/internal/tracing"
)

const shutdownTimeout = 15 * time.Second

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configFile, port, dbPath string

	flagSet := pflag.NewFlagSet("trockle-api", pflag.ContinueOnError)
	flagSet.StringVar(&configFile, "config", "", "path to a JSON or YAML config file")
	flagSet.StringVar(&port, "port", "", "server port (overrides config)")
	flagSet.StringVar(&dbPath, "db", "", "database file path (overrides config)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}
	if port != "" {
		cfg.Server.Port = port
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	sessions, closeSessions, err := newSessionCache(cfg.Redis)
	if err != nil {
		return err
	}
	defer closeSessions()

	if _, err := tracing.InitTracing(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: tracing.DefaultServiceName,
		Version:     version,
		Environment: cfg.Tracing.Environment,
	}); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	flags := features.NewDefaultManager(featureSettings(cfg))

	bus := events.NewManager(true, logger)
	bus.Gate(func() bool { return flags.IsEnabled(features.FeatureEventHooks) })
	logEvents(bus, logger)

	swipeCfg := swipe.DefaultConfig()
	swipeCfg.Threshold = cfg.Swipe.Threshold
	swipeCfg.ScreenWidth = cfg.Swipe.ScreenWidth
	swipeCfg.ExitDuration = cfg.ExitDuration()

	svc := service.NewService(service.Deps{
		DB:         db,
		Sessions:   sessions,
		SessionTTL: cfg.SessionTTL(),
		Events:     bus,
		Features:   flags,
		Swipe:      swipeCfg,
		Logger:     logger,
	})

	issuer := auth.NewIssuer(cfg.Security.JWTSecret, cfg.TokenTTL())
	origins := splitOrigins(cfg.Security.AllowedOrigins)

	h := handler.NewHandlerWithOptions(svc, issuer, flags, handler.NewHandlerOptions{
		MaxBodySize:    cfg.Security.MaxRequestBodySize,
		AllowedOrigins: origins,
		Logger:         logger,
	})

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.Rate, time.Duration(cfg.RateLimit.Window)*time.Second)
		defer limiter.Stop()
	}

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           newRouter(h, issuer, limiter, origins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			slog.String("addr", server.Addr),
			slog.Bool("tls", cfg.Server.EnableTLS),
			slog.String("database", cfg.Database.Path),
			slog.Bool("redis", cfg.Redis.Enabled))

		var err error
		if cfg.Server.EnableTLS {
			err = server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)

wait:
	for {
		select {
		case err := <-errc:
			if err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-sighup:
			reloadFeatures(configFile, flags, logger)
		case sig := <-sigint:
			logger.Info("shutting down server", slog.String("signal", sig.String()))
			break wait
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("error closing server", slog.Any("error", err))
	}
	bus.Shutdown()
	if err := tracing.Shutdown(ctx); err != nil {
		logger.Error("error flushing traces", slog.Any("error", err))
	}
	return nil
}

// newRouter builds the API router. limiter may be nil.
func newRouter(h *handler.Handler, issuer *auth.Issuer, limiter *middleware.RateLimiter, origins []string) http.Handler {
	r := chi.NewRouter()

	// Middleware (order matters)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.TracingMiddleware(tracing.DefaultServiceName))
	r.Use(cors.Handler(corsOptions(origins)))

	var rateLimit func(http.Handler) http.Handler
	if limiter != nil {
		rateLimit = middleware.RateLimitMiddleware(limiter)
	}
	h.Routes(r, middleware.AuthMiddleware(issuer), rateLimit)
	return r
}

// corsOptions never combines credentials with a wildcard origin.
func corsOptions(origins []string) cors.Options {
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: !slices.Contains(origins, "*"),
		MaxAge:           300,
	}
}

func featureSettings(cfg *config.Config) features.Settings {
	return features.Settings{
		TradePreview:      cfg.Features.TradePreview,
		ButtonAffordances: cfg.Features.ButtonAffordances,
		EventHooks:        cfg.Features.EventHooks,
		DevTokens:         cfg.Features.DevTokens,
	}
}

// reloadFeatures re-reads the config and applies its feature flags. Other
// settings need a restart.
func reloadFeatures(configFile string, flags *features.Manager, logger *slog.Logger) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		logger.Error("config reload failed", slog.Any("error", err))
		return
	}
	flags.Apply(featureSettings(cfg))
	logger.Info("feature flags reloaded",
		slog.Bool("trade_preview", cfg.Features.TradePreview),
		slog.Bool("button_affordances", cfg.Features.ButtonAffordances),
		slog.Bool("event_hooks", cfg.Features.EventHooks),
		slog.Bool("dev_tokens", cfg.Features.DevTokens))
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// newSessionCache returns the session backend and a function releasing it.
func newSessionCache(cfg config.RedisConfig) (cache.Cache, func(), error) {
	if !cfg.Enabled {
		return cache.NewInMemoryCache(), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rc, err := cache.NewRedisCache(ctx, cfg.Addr, cfg.Password, cfg.DB, cfg.Prefix)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rc, func() { rc.Close() }, nil
}

// logEvents subscribes a structured log line to every domain event.
func logEvents(bus *events.Manager, logger *slog.Logger) {
	bus.Subscribe(events.EventDecisionRecorded, func(ctx context.Context, e events.Event) error {
		d := e.Data.(events.DecisionRecordedData)
		logger.Info("decision recorded",
			slog.String("deck_id", d.DeckID),
			slog.String("viewer_id", d.Decision.ViewerID),
			slog.String("candidate_id", d.Decision.CandidateID),
			slog.String("direction", string(d.Decision.Direction)))
		return nil
	})
	bus.Subscribe(events.EventTradePublished, func(ctx context.Context, e events.Event) error {
		d := e.Data.(events.TradePublishedData)
		logger.Info("trade published",
			slog.String("trade_id", d.Trade.ID),
			slog.String("owner_id", d.Trade.OwnerID),
			slog.String("category", d.Trade.Category))
		return nil
	})
	bus.Subscribe(events.EventOnboardingCompleted, func(ctx context.Context, e events.Event) error {
		d := e.Data.(events.OnboardingCompletedData)
		logger.Info("onboarding completed",
			slog.String("session_id", d.SessionID),
			slog.String("user_id", d.Profile.UserID),
			slog.String("trade_id", d.TradeID))
		return nil
	})
	bus.Subscribe(events.EventReviewCreated, func(ctx context.Context, e events.Event) error {
		d := e.Data.(events.ReviewCreatedData)
		logger.Info("review created",
			slog.String("user_id", d.Review.UserID),
			slog.Int("rating", d.Review.Rating))
		return nil
	})
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		out = []string{"*"}
	}
	return out
}
