package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"trockle-api/internal/cache"
	"trockle-api/internal/database"
	"trockle-api/internal/events"
	"trockle-api/internal/features"
	"trockle-api/internal/swipe"
	"trockle-api/internal/tracing"
)

var (
	// ErrSessionNotFound is returned for unknown, expired, or foreign sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrFeatureDisabled is returned when the requested affordance is switched off.
	ErrFeatureDisabled = errors.New("feature disabled")
)

// Deps holds the collaborators shared by the services.
type Deps struct {
	DB         *database.DB
	Sessions   cache.Cache
	SessionTTL time.Duration
	Events     *events.Manager
	Features   *features.Manager
	Swipe      swipe.Config
	Logger     *slog.Logger
	Now        func() time.Time
}

// Service groups the business logic of the API.
type Service struct {
	Decks      *DeckService
	Onboarding *OnboardingService
	Trades     *TradeService
	Reviews    *ReviewService
	Profiles   *ProfileService
}

// NewService creates a new service instance.
func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Events == nil {
		d.Events = events.NewManager(false, d.Logger)
	}
	if d.Features == nil {
		d.Features = features.NewDefaultManager(features.Settings{
			TradePreview:      true,
			ButtonAffordances: true,
		})
	}

	trades := &TradeService{db: d.DB, events: d.Events, logger: d.Logger, now: d.Now}
	return &Service{
		Decks: &DeckService{
			db:       d.DB,
			sessions: cache.NewSessionStore(d.Sessions, "deck", d.SessionTTL),
			events:   d.Events,
			features: d.Features,
			cfg:      d.Swipe,
			logger:   d.Logger.With(slog.String("component", "decks")),
			now:      d.Now,
		},
		Onboarding: &OnboardingService{
			db:       d.DB,
			sessions: cache.NewSessionStore(d.Sessions, "onboarding", d.SessionTTL),
			events:   d.Events,
			features: d.Features,
			logger:   d.Logger.With(slog.String("component", "onboarding")),
			now:      d.Now,
		},
		Trades: trades,
		Reviews: &ReviewService{
			db:     d.DB,
			events: d.Events,
			now:    d.Now,
		},
		Profiles: &ProfileService{db: d.DB},
	}
}

// startSpan opens a service span tagged with the acting user.
func startSpan(ctx context.Context, name, userID string) (context.Context, trace.Span) {
	ctx, span := tracing.GetTracer().StartSpan(ctx, name)
	if userID != "" {
		span.SetAttributes(attribute.String("enduser.id", userID))
	}
	return ctx, span
}

// endSpan records err on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// sessionErr maps a missing cache entry to ErrSessionNotFound.
func sessionErr(err error) error {
	if errors.Is(err, cache.ErrNotFound) {
		return ErrSessionNotFound
	}
	return err
}
