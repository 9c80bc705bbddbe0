package database

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"trockle-api/internal/models"
)

func setupTestDB(t *testing.T) (*DB, func()) {
	dbPath := "./test_db_" + uuid.New().String() + ".db"
	db, err := NewDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}

	return db, cleanup
}

func newTrade(owner string, createdAt time.Time) models.Trade {
	return models.Trade{
		ID:           uuid.New().String(),
		OwnerID:      owner,
		Category:     "Books",
		Title:        "Paperbacks",
		Description:  "A box of novels",
		Photos:       []string{"photo://a", "photo://b"},
		ReturnOffer:  "Anything",
		Availability: models.Availability{Day: "Friday", Time: "17:00"},
		Location:     "Yaba",
		CreatedAt:    createdAt,
	}
}

func TestTradeRoundTrip(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	trade := newTrade(uuid.New().String(), time.Date(2026, 1, 2, 3, 4, 5, 600, time.UTC))
	if err := db.InsertTrade(ctx, trade); err != nil {
		t.Fatalf("Failed to insert trade: %v", err)
	}

	got, err := db.GetTrade(ctx, trade.ID)
	if err != nil {
		t.Fatalf("Failed to get trade: %v", err)
	}
	if got.Title != trade.Title || got.OwnerID != trade.OwnerID {
		t.Errorf("Expected %+v, got %+v", trade, got)
	}
	if len(got.Photos) != 2 || got.Photos[1] != "photo://b" {
		t.Errorf("Expected photos to keep their order, got %v", got.Photos)
	}
	if !got.CreatedAt.Equal(trade.CreatedAt) {
		t.Errorf("Expected created_at %v, got %v", trade.CreatedAt, got.CreatedAt)
	}
	if got.Status != models.TradeAvailable {
		t.Errorf("Expected a new trade to be available, got %q", got.Status)
	}

	if err := db.InsertTrade(ctx, trade); !errors.Is(err, ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}
}

func TestGetTrade_NotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := db.GetTrade(context.Background(), uuid.New().String())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListCandidates(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	viewer := uuid.New().String()
	other := uuid.New().String()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	own := newTrade(viewer, base)
	older := newTrade(other, base.Add(time.Minute))
	newer := newTrade(other, base.Add(2*time.Minute))
	decided := newTrade(other, base.Add(3*time.Minute))
	tools := newTrade(other, base.Add(500*time.Millisecond))
	tools.Category = "Tools"

	for _, tr := range []models.Trade{own, older, newer, decided, tools} {
		if err := db.InsertTrade(ctx, tr); err != nil {
			t.Fatalf("Failed to insert trade: %v", err)
		}
	}
	if err := db.InsertDecision(ctx, models.Decision{
		ID:          uuid.New().String(),
		ViewerID:    viewer,
		CandidateID: decided.ID,
		Direction:   models.DirectionSkip,
		DecidedAt:   base,
	}); err != nil {
		t.Fatalf("Failed to insert decision: %v", err)
	}

	got, err := db.ListCandidates(ctx, CandidateFilter{ViewerID: viewer})
	if err != nil {
		t.Fatalf("Failed to list candidates: %v", err)
	}
	want := []string{newer.ID, older.ID, tools.ID}
	if len(got) != len(want) {
		t.Fatalf("Expected %d candidates, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("Candidate %d: expected %s, got %s", i, want[i], got[i].ID)
		}
	}

	got, err = db.ListCandidates(ctx, CandidateFilter{ViewerID: viewer, Category: "Tools"})
	if err != nil {
		t.Fatalf("Failed to list candidates: %v", err)
	}
	if len(got) != 1 || got[0].ID != tools.ID {
		t.Errorf("Expected only the tools trade, got %v", got)
	}

	got, err = db.ListCandidates(ctx, CandidateFilter{ViewerID: viewer, Limit: 1})
	if err != nil {
		t.Fatalf("Failed to list candidates: %v", err)
	}
	if len(got) != 1 || got[0].ID != newer.ID {
		t.Errorf("Expected the newest trade, got %v", got)
	}
}

func TestInsertDecision_Duplicate(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	trade := newTrade(uuid.New().String(), time.Now())
	if err := db.InsertTrade(ctx, trade); err != nil {
		t.Fatalf("Failed to insert trade: %v", err)
	}

	viewer := uuid.New().String()
	d := models.Decision{ID: uuid.New().String(), ViewerID: viewer, CandidateID: trade.ID, Direction: models.DirectionLike, DecidedAt: time.Now()}
	if err := db.InsertDecision(ctx, d); err != nil {
		t.Fatalf("Failed to insert decision: %v", err)
	}

	d.ID = uuid.New().String()
	if err := db.InsertDecision(ctx, d); !errors.Is(err, ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}

	decisions, err := db.ListDecisions(ctx, viewer, "")
	if err != nil {
		t.Fatalf("Failed to list decisions: %v", err)
	}
	if len(decisions) != 1 || decisions[0].Direction != models.DirectionLike {
		t.Errorf("Expected one like decision, got %v", decisions)
	}

	decisions, err = db.ListDecisions(ctx, viewer, models.DirectionSkip)
	if err != nil {
		t.Fatalf("Failed to list decisions: %v", err)
	}
	if len(decisions) != 0 {
		t.Errorf("Expected no skips, got %v", decisions)
	}
}

func TestMarkTraded(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	owner := uuid.New().String()
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	first := newTrade(owner, base)
	second := newTrade(owner, base.Add(time.Hour))
	for _, tr := range []models.Trade{first, second} {
		if err := db.InsertTrade(ctx, tr); err != nil {
			t.Fatalf("Failed to insert trade: %v", err)
		}
	}

	if err := db.MarkTraded(ctx, first.ID, uuid.New().String(), base); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a foreign trade, got %v", err)
	}
	if err := db.MarkTraded(ctx, uuid.New().String(), owner, base); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for an unknown trade, got %v", err)
	}

	tradedAt := base.Add(48 * time.Hour)
	if err := db.MarkTraded(ctx, first.ID, owner, tradedAt); err != nil {
		t.Fatalf("Failed to mark trade: %v", err)
	}
	if err := db.MarkTraded(ctx, first.ID, owner, tradedAt); !errors.Is(err, ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate on a second mark, got %v", err)
	}

	trades, err := db.ListTradesByOwner(ctx, owner)
	if err != nil {
		t.Fatalf("Failed to list trades: %v", err)
	}
	if len(trades) != 2 || trades[0].ID != second.ID {
		t.Fatalf("Expected newest first, got %v", trades)
	}
	if trades[0].Status != models.TradeAvailable || trades[0].TradedAt != nil {
		t.Errorf("Expected the second trade to stay available, got %+v", trades[0])
	}
	if trades[1].Status != models.TradeTraded || trades[1].TradedAt == nil || !trades[1].TradedAt.Equal(tradedAt) {
		t.Errorf("Expected the first trade to be traded at %v, got %+v", tradedAt, trades[1])
	}

	candidates, err := db.ListCandidates(ctx, CandidateFilter{ViewerID: uuid.New().String()})
	if err != nil {
		t.Fatalf("Failed to list candidates: %v", err)
	}
	if len(candidates) != 1 || candidates[0].ID != second.ID {
		t.Errorf("Expected traded trades to leave the feed, got %v", candidates)
	}
}

func TestPublishOnboarding(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	user := uuid.New().String()
	profile := models.UserProfile{
		UserID:       user,
		Location:     "2",
		Profile:      models.Profile{PhoneNumber: "+2348012345678", Username: "ada"},
		Preferences:  []string{"1", "4", "7"},
		SwapDistance: 3,
		OnboardedAt:  time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
	}
	trade := newTrade(user, profile.OnboardedAt)

	if err := db.PublishOnboarding(ctx, profile, trade); err != nil {
		t.Fatalf("Failed to publish onboarding: %v", err)
	}

	got, err := db.GetProfile(ctx, user)
	if err != nil {
		t.Fatalf("Failed to get profile: %v", err)
	}
	if got.SwapDistance != 3 || len(got.Preferences) != 3 || got.Preferences[2] != "7" {
		t.Errorf("Unexpected profile: %+v", got)
	}
	if _, err := db.GetTrade(ctx, trade.ID); err != nil {
		t.Errorf("Expected trade to be stored, got %v", err)
	}

	// A second publish with the same trade id rolls back the profile change.
	profile.SwapDistance = 5
	if err := db.PublishOnboarding(ctx, profile, trade); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("Expected ErrDuplicate, got %v", err)
	}
	got, err = db.GetProfile(ctx, user)
	if err != nil {
		t.Fatalf("Failed to get profile: %v", err)
	}
	if got.SwapDistance != 3 {
		t.Errorf("Expected rollback to keep swap distance 3, got %d", got.SwapDistance)
	}
}

func TestGetProfile_NotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := db.GetProfile(context.Background(), uuid.New().String())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestReviews(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	user := uuid.New().String()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, rating := range []int{5, 4, 5, 2} {
		r := models.Review{
			ID:         uuid.New().String(),
			UserID:     user,
			ReviewerID: uuid.New().String(),
			Rating:     rating,
			Comment:    "ok",
			ItemName:   "Drill",
			CreatedAt:  base.Add(time.Duration(i) * time.Hour),
		}
		if err := db.InsertReview(ctx, r); err != nil {
			t.Fatalf("Failed to insert review: %v", err)
		}
	}

	all, err := db.ListReviews(ctx, user, 0)
	if err != nil {
		t.Fatalf("Failed to list reviews: %v", err)
	}
	if len(all) != 4 || all[0].Rating != 2 {
		t.Errorf("Expected 4 reviews newest first, got %v", all)
	}

	fives, err := db.ListReviews(ctx, user, 5)
	if err != nil {
		t.Fatalf("Failed to list reviews: %v", err)
	}
	if len(fives) != 2 {
		t.Errorf("Expected 2 five-star reviews, got %d", len(fives))
	}

	hist, err := db.RatingHistogram(ctx, user)
	if err != nil {
		t.Fatalf("Failed to get histogram: %v", err)
	}
	if hist != [5]int{0, 1, 0, 1, 2} {
		t.Errorf("Unexpected histogram %v", hist)
	}
}
