package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"trockle-api/internal/cache"
	"trockle-api/internal/catalog"
	"trockle-api/internal/database"
	"trockle-api/internal/events"
	"trockle-api/internal/features"
	"trockle-api/internal/models"
	"trockle-api/internal/swipe"
	"trockle-api/internal/validation"
)

const (
	DefaultDeckSize = 20
	MaxDeckSize     = 100
	// upcomingShown is how many cards are stacked behind the top card.
	upcomingShown = 2
)

// DeckSession is the stored snapshot of a swipe deck.
type DeckSession struct {
	ID         string         `json:"id"`
	ViewerID   string         `json:"viewer_id"`
	Config     swipe.Config   `json:"config"`
	Candidates []models.Trade `json:"candidates"`
	State      swipe.State    `json:"state"`
	CreatedAt  time.Time      `json:"created_at"`
}

// DeckView is what clients render after every deck interaction.
type DeckView struct {
	ID        string            `json:"id"`
	Frame     swipe.Frame       `json:"frame"`
	Current   *models.Trade     `json:"current,omitempty"`
	Upcoming  []models.Trade    `json:"upcoming"`
	Effects   []swipe.Effect    `json:"effects,omitempty"`
	Decisions []models.Decision `json:"decisions,omitempty"`
}

// DeckService opens swipe decks over the candidate feed and records the
// decisions they produce.
type DeckService struct {
	db       *database.DB
	sessions *cache.SessionStore
	events   *events.Manager
	features *features.Manager
	cfg      swipe.Config
	logger   *slog.Logger
	now      func() time.Time
}

// Start opens a deck for viewerID over the current candidate feed.
func (s *DeckService) Start(ctx context.Context, viewerID string, req models.StartDeckRequest) (view DeckView, err error) {
	ctx, span := startSpan(ctx, "decks.start", viewerID)
	defer func() { endSpan(span, err) }()

	if req.Category != "" && !catalog.HasCategory(req.Category) {
		return DeckView{}, &validation.ValidationError{Field: "category", Message: "is not a known category"}
	}
	if req.Limit < 0 || req.Limit > MaxDeckSize {
		return DeckView{}, &validation.ValidationError{
			Field:   "limit",
			Message: fmt.Sprintf("must be between 0 and %d", MaxDeckSize),
		}
	}
	if req.ScreenWidth < 0 {
		return DeckView{}, &validation.ValidationError{Field: "screen_width", Message: "must not be negative"}
	}
	limit := req.Limit
	if limit == 0 {
		limit = DefaultDeckSize
	}

	candidates, err := s.db.ListCandidates(ctx, database.CandidateFilter{
		ViewerID: viewerID,
		Category: req.Category,
		Limit:    limit,
	})
	if err != nil {
		return DeckView{}, fmt.Errorf("failed to list candidates: %w", err)
	}

	cfg := s.cfg
	if req.ScreenWidth > 0 {
		cfg.ScreenWidth = req.ScreenWidth
	}

	deck := swipe.NewDeck(candidates, swipe.Handlers{}, swipe.WithConfig(cfg))
	sess := DeckSession{
		ID:         uuid.New().String(),
		ViewerID:   viewerID,
		Config:     cfg,
		Candidates: deck.Candidates(),
		State:      deck.State(),
		CreatedAt:  s.now(),
	}
	if err := s.sessions.Save(ctx, sess.ID, sess); err != nil {
		return DeckView{}, err
	}

	s.logger.Info("deck started",
		slog.String("deck_id", sess.ID),
		slog.String("viewer_id", viewerID),
		slog.Int("candidates", len(candidates)))

	return viewOf(sess.ID, deck), nil
}

// Get returns the current view of a deck.
func (s *DeckService) Get(ctx context.Context, viewerID, deckID string) (DeckView, error) {
	var sess DeckSession
	if err := s.sessions.Load(ctx, deckID, &sess); err != nil {
		return DeckView{}, sessionErr(err)
	}
	if sess.ViewerID != viewerID {
		return DeckView{}, ErrSessionNotFound
	}
	return viewOf(sess.ID, s.restore(sess, swipe.Handlers{})), nil
}

// Decisions lists the decisions of viewerID in the order they were made,
// optionally only likes or only skips.
func (s *DeckService) Decisions(ctx context.Context, viewerID string, direction models.Direction) ([]models.Decision, error) {
	if direction != "" && direction != models.DirectionLike && direction != models.DirectionSkip {
		return nil, &validation.ValidationError{Field: "direction", Message: "must be like or skip"}
	}
	decisions, err := s.db.ListDecisions(ctx, viewerID, direction)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	if decisions == nil {
		decisions = []models.Decision{}
	}
	return decisions, nil
}

// Drag reports the visual feedback for an in-progress drag.
func (s *DeckService) Drag(ctx context.Context, viewerID, deckID string, dx, dy float64) (swipe.Frame, error) {
	var frame swipe.Frame
	_, err := s.mutate(ctx, "decks.drag", viewerID, deckID, func(d *swipe.Deck) ([]swipe.Effect, error) {
		f, err := d.Drag(dx, dy)
		frame = f
		return nil, err
	})
	return frame, err
}

// Release ends a drag at (dx, dy). Past the threshold the top card is
// decided; inside it the card snaps back and nothing is recorded.
func (s *DeckService) Release(ctx context.Context, viewerID, deckID string, dx, dy float64) (DeckView, error) {
	return s.mutate(ctx, "decks.release", viewerID, deckID, func(d *swipe.Deck) ([]swipe.Effect, error) {
		return d.Release(dx, dy)
	})
}

// Like decides the top card as a like without a gesture.
func (s *DeckService) Like(ctx context.Context, viewerID, deckID string) (DeckView, error) {
	if !s.features.IsEnabled(features.FeatureButtonAffordances) {
		return DeckView{}, ErrFeatureDisabled
	}
	return s.mutate(ctx, "decks.like", viewerID, deckID, (*swipe.Deck).Like)
}

// Skip decides the top card as a skip without a gesture.
func (s *DeckService) Skip(ctx context.Context, viewerID, deckID string) (DeckView, error) {
	if !s.features.IsEnabled(features.FeatureButtonAffordances) {
		return DeckView{}, ErrFeatureDisabled
	}
	return s.mutate(ctx, "decks.skip", viewerID, deckID, (*swipe.Deck).Skip)
}

// mutate rebuilds the deck from its snapshot, applies op, persists the
// decisions it emitted, and stores the new snapshot. Nothing is stored when
// op or persistence fails.
func (s *DeckService) mutate(ctx context.Context, name, viewerID, deckID string, op func(*swipe.Deck) ([]swipe.Effect, error)) (view DeckView, err error) {
	ctx, span := startSpan(ctx, name, viewerID)
	defer func() { endSpan(span, err) }()

	var sess DeckSession
	err = s.sessions.Update(ctx, deckID, &sess, func() error {
		if sess.ViewerID != viewerID {
			return ErrSessionNotFound
		}

		var decided []swipe.Decision
		record := func(d swipe.Decision) { decided = append(decided, d) }
		deck := s.restore(sess, swipe.Handlers{OnLike: record, OnSkip: record})

		effects, err := op(deck)
		if err != nil {
			return err
		}

		decisions, err := s.record(ctx, sess, decided)
		if err != nil {
			return err
		}

		sess.State = deck.State()
		view = viewOf(sess.ID, deck)
		view.Effects = effects
		view.Decisions = decisions
		return nil
	})
	if err != nil {
		return DeckView{}, sessionErr(err)
	}
	return view, nil
}

func (s *DeckService) restore(sess DeckSession, h swipe.Handlers) *swipe.Deck {
	return swipe.NewDeck(sess.Candidates, h,
		swipe.WithConfig(sess.Config),
		swipe.WithState(sess.State),
		swipe.WithClock(s.now),
	)
}

// record persists decisions. A pair already decided through another deck is
// kept as decided and not reported again.
func (s *DeckService) record(ctx context.Context, sess DeckSession, decided []swipe.Decision) ([]models.Decision, error) {
	var out []models.Decision
	for _, d := range decided {
		decision := models.Decision{
			ID:          uuid.New().String(),
			ViewerID:    sess.ViewerID,
			CandidateID: d.CandidateID,
			Direction:   d.Direction,
			DecidedAt:   d.At,
		}
		if err := s.db.InsertDecision(ctx, decision); err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				s.logger.Warn("decision already recorded",
					slog.String("deck_id", sess.ID),
					slog.String("trade_id", d.CandidateID))
				continue
			}
			return nil, fmt.Errorf("failed to record decision: %w", err)
		}

		s.logger.Debug("decision recorded",
			slog.String("deck_id", sess.ID),
			slog.String("trade_id", d.CandidateID),
			slog.String("direction", string(d.Direction)))
		s.events.PublishDecisionRecorded(ctx, sess.ID, decision)
		out = append(out, decision)
	}
	return out, nil
}

func viewOf(id string, d *swipe.Deck) DeckView {
	view := DeckView{
		ID:       id,
		Frame:    d.Frame(),
		Upcoming: []models.Trade{},
	}
	if cur, ok := d.Current(); ok {
		view.Current = &cur
	}
	up := d.Upcoming()
	if len(up) > upcomingShown {
		up = up[:upcomingShown]
	}
	view.Upcoming = append(view.Upcoming, up...)
	return view
}
