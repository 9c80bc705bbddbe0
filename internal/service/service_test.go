package service

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trockle-api/internal/cache"
	"trockle-api/internal/database"
	"trockle-api/internal/events"
	"trockle-api/internal/features"
	"trockle-api/internal/models"
	"trockle-api/internal/swipe"
	"trockle-api/internal/validation"
	"trockle-api/internal/wizard"
)

type fixture struct {
	svc    *Service
	db     *database.DB
	events *events.Manager
	flags  *features.Manager
	now    time.Time
}

func setupTestService(t *testing.T) *fixture {
	t.Helper()

	dbPath := "./test_" + uuid.New().String() + ".db"
	db, err := database.NewDB(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
		os.Remove(dbPath)
	})

	f := &fixture{
		db:     db,
		events: events.NewManager(true, nil),
		flags:  features.NewDefaultManager(features.Settings{TradePreview: true, ButtonAffordances: true, EventHooks: true}),
		now:    time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(Deps{
		DB:         db,
		Sessions:   cache.NewInMemoryCache(),
		SessionTTL: time.Hour,
		Events:     f.events,
		Features:   f.flags,
		Swipe:      swipe.DefaultConfig(),
		Now:        func() time.Time { return f.now },
	})
	return f
}

func ptr[T any](v T) *T { return &v }

func draftTrade() models.Trade {
	return models.Trade{
		Category:     "Tools",
		Title:        "Cordless drill",
		Description:  "Barely used",
		Photos:       []string{"photo://drill"},
		ReturnOffer:  "Garden hose",
		Availability: models.Availability{Day: "Saturday", Time: "10:00"},
		Location:     "Yaba",
	}
}

// seedTrades stores n trades owned by owner, oldest first.
func seedTrades(t *testing.T, f *fixture, owner string, n int) []models.Trade {
	t.Helper()
	var out []models.Trade
	for i := 0; i < n; i++ {
		f.now = f.now.Add(time.Minute)
		tr, err := f.svc.Trades.Create(context.Background(), owner, draftTrade())
		require.NoError(t, err)
		out = append(out, tr)
	}
	return out
}

func TestTradeService_CreateAndGet(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	var mu sync.Mutex
	var published []string
	f.events.Subscribe(events.EventTradePublished, func(ctx context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		published = append(published, e.Data.(events.TradePublishedData).Trade.ID)
		return nil
	})

	in := draftTrade()
	in.ID = "client-chosen"
	in.Title = "  Cordless drill  "
	created, err := f.svc.Trades.Create(ctx, "owner-1", in)
	require.NoError(t, err)
	assert.NotEqual(t, "client-chosen", created.ID)
	assert.Equal(t, "owner-1", created.OwnerID)
	assert.Equal(t, "Cordless drill", created.Title)

	got, err := f.svc.Trades.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Title, got.Title)

	f.events.Wait()
	assert.Equal(t, []string{created.ID}, published)
}

func TestTradeService_CreateInvalid(t *testing.T) {
	f := setupTestService(t)

	in := draftTrade()
	in.Photos = nil
	_, err := f.svc.Trades.Create(context.Background(), "owner-1", in)

	var ve *validation.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "photos", ve.Field)
}

func TestTradeService_GetErrors(t *testing.T) {
	f := setupTestService(t)

	_, err := f.svc.Trades.Get(context.Background(), "not-a-uuid")
	var ve *validation.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = f.svc.Trades.Get(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestDeckService_SwipeScenario(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	trades := seedTrades(t, f, "owner", 3)
	// Candidates come newest first.
	a, b, c := trades[2], trades[1], trades[0]

	view, err := f.svc.Decks.Start(ctx, "viewer", models.StartDeckRequest{})
	require.NoError(t, err)
	require.NotNil(t, view.Current)
	assert.Equal(t, a.ID, view.Current.ID)
	assert.Equal(t, 3, view.Frame.Total)
	assert.Len(t, view.Upcoming, 2)

	frame, err := f.svc.Decks.Drag(ctx, "viewer", view.ID, 60, 5)
	require.NoError(t, err)
	assert.Equal(t, swipe.PhaseDragging, frame.Phase)
	assert.InDelta(t, 0.5, frame.LikeOpacity, 1e-9)

	// Inside the threshold: snap back, nothing recorded.
	view, err = f.svc.Decks.Release(ctx, "viewer", view.ID, 119, 0)
	require.NoError(t, err)
	require.Len(t, view.Effects, 1)
	assert.Equal(t, swipe.EffectSnapBack, view.Effects[0].Kind)
	assert.Empty(t, view.Decisions)
	assert.Equal(t, 0, view.Frame.Cursor)

	view, err = f.svc.Decks.Release(ctx, "viewer", view.ID, 150, 0)
	require.NoError(t, err)
	require.Len(t, view.Decisions, 1)
	assert.Equal(t, a.ID, view.Decisions[0].CandidateID)
	assert.Equal(t, models.DirectionLike, view.Decisions[0].Direction)
	assert.Equal(t, 1, view.Frame.Cursor)
	assert.Equal(t, b.ID, view.Current.ID)

	view, err = f.svc.Decks.Release(ctx, "viewer", view.ID, -200, 0)
	require.NoError(t, err)
	require.Len(t, view.Decisions, 1)
	assert.Equal(t, models.DirectionSkip, view.Decisions[0].Direction)

	view, err = f.svc.Decks.Like(ctx, "viewer", view.ID)
	require.NoError(t, err)
	require.Len(t, view.Decisions, 1)
	assert.Equal(t, c.ID, view.Decisions[0].CandidateID)
	assert.Nil(t, view.Current)
	assert.Equal(t, swipe.PhaseExhausted, view.Frame.Phase)

	kinds := make([]swipe.EffectKind, 0, len(view.Effects))
	for _, e := range view.Effects {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []swipe.EffectKind{swipe.EffectAnimateOut, swipe.EffectCommit, swipe.EffectExhausted}, kinds)

	_, err = f.svc.Decks.Skip(ctx, "viewer", view.ID)
	assert.ErrorIs(t, err, swipe.ErrExhausted)

	decisions, err := f.db.ListDecisions(ctx, "viewer", "")
	require.NoError(t, err)
	assert.Len(t, decisions, 3)

	// Everything is decided, so a new deck is empty.
	view, err = f.svc.Decks.Start(ctx, "viewer", models.StartDeckRequest{})
	require.NoError(t, err)
	assert.Nil(t, view.Current)
	assert.Equal(t, swipe.PhaseExhausted, view.Frame.Phase)
}

func TestDeckService_ExcludesOwnTrades(t *testing.T) {
	f := setupTestService(t)
	seedTrades(t, f, "viewer", 2)

	view, err := f.svc.Decks.Start(context.Background(), "viewer", models.StartDeckRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, view.Frame.Total)
}

func TestDeckService_ScreenWidthOverride(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()
	seedTrades(t, f, "owner", 1)

	view, err := f.svc.Decks.Start(ctx, "viewer", models.StartDeckRequest{ScreenWidth: 200})
	require.NoError(t, err)

	frame, err := f.svc.Decks.Drag(ctx, "viewer", view.ID, 100, 0)
	require.NoError(t, err)
	assert.InDelta(t, 10, frame.Rotation, 1e-9)

	view, err = f.svc.Decks.Release(ctx, "viewer", view.ID, 130, 0)
	require.NoError(t, err)
	require.NotEmpty(t, view.Effects)
	assert.InDelta(t, 300, view.Effects[0].ToX, 1e-9)
}

func TestDeckService_StartValidation(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	var ve *validation.ValidationError
	_, err := f.svc.Decks.Start(ctx, "viewer", models.StartDeckRequest{Category: "Spaceships"})
	assert.ErrorAs(t, err, &ve)

	_, err = f.svc.Decks.Start(ctx, "viewer", models.StartDeckRequest{Limit: MaxDeckSize + 1})
	assert.ErrorAs(t, err, &ve)
}

func TestDeckService_SessionOwnership(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()
	seedTrades(t, f, "owner", 1)

	view, err := f.svc.Decks.Start(ctx, "viewer", models.StartDeckRequest{})
	require.NoError(t, err)

	_, err = f.svc.Decks.Get(ctx, "intruder", view.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.svc.Decks.Like(ctx, "intruder", view.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.svc.Decks.Get(ctx, "viewer", uuid.New().String())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDeckService_ButtonsDisabled(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()
	seedTrades(t, f, "owner", 1)
	f.flags.Set(features.FeatureButtonAffordances, false)

	view, err := f.svc.Decks.Start(ctx, "viewer", models.StartDeckRequest{})
	require.NoError(t, err)

	_, err = f.svc.Decks.Like(ctx, "viewer", view.ID)
	assert.ErrorIs(t, err, ErrFeatureDisabled)

	got, err := f.svc.Decks.Get(ctx, "viewer", view.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Frame.Cursor)
}

func TestDeckService_DecisionAlreadyRecordedElsewhere(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()
	seedTrades(t, f, "owner", 1)

	first, err := f.svc.Decks.Start(ctx, "viewer", models.StartDeckRequest{})
	require.NoError(t, err)
	second, err := f.svc.Decks.Start(ctx, "viewer", models.StartDeckRequest{})
	require.NoError(t, err)

	_, err = f.svc.Decks.Like(ctx, "viewer", first.ID)
	require.NoError(t, err)

	view, err := f.svc.Decks.Skip(ctx, "viewer", second.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Decisions)
	assert.Equal(t, 1, view.Frame.Cursor)

	decisions, err := f.db.ListDecisions(ctx, "viewer", "")
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, models.DirectionLike, decisions[0].Direction)
}

// completeOnboarding walks a session through every step.
func completeOnboarding(t *testing.T, f *fixture, user, id string) OnboardingView {
	t.Helper()
	ctx := context.Background()
	o := f.svc.Onboarding

	_, err := o.Update(ctx, user, id, wizard.Patch{Location: ptr("2")})
	require.NoError(t, err)
	_, err = o.Continue(ctx, user, id)
	require.NoError(t, err)

	_, err = o.Update(ctx, user, id, wizard.Patch{Profile: &models.Profile{PhoneNumber: "+2348012345678", Username: "ada"}})
	require.NoError(t, err)
	_, err = o.Continue(ctx, user, id)
	require.NoError(t, err)

	for _, pref := range []string{"2", "3", "7"} {
		res, err := o.TogglePreference(ctx, user, id, pref)
		require.NoError(t, err)
		require.True(t, res.Toggled)
	}
	_, err = o.Continue(ctx, user, id)
	require.NoError(t, err)

	_, err = o.Update(ctx, user, id, wizard.Patch{SwapDistance: ptr(2)})
	require.NoError(t, err)
	_, err = o.Continue(ctx, user, id)
	require.NoError(t, err)

	_, err = o.Update(ctx, user, id, wizard.Patch{Trade: ptr(draftTrade())})
	require.NoError(t, err)
	view, err := o.Continue(ctx, user, id)
	require.NoError(t, err)
	return view
}

func TestOnboardingService_FullFlowWithPreview(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	var mu sync.Mutex
	completed := 0
	f.events.Subscribe(events.EventOnboardingCompleted, func(ctx context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		completed++
		return nil
	})

	view, err := f.svc.Onboarding.Start(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "location", view.Step)
	assert.Equal(t, wizard.Progress{Current: 0, Total: 5, Phase: wizard.PhaseStep}, view.Progress)
	assert.InDelta(t, 0.2, view.Fraction, 1e-9)
	assert.False(t, view.CanContinue)
	assert.Equal(t, wizard.DefaultSwapDistance, view.Data.SwapDistance)

	view = completeOnboarding(t, f, "user-1", view.ID)
	assert.Equal(t, wizard.PhasePreview, view.Progress.Phase)
	assert.Equal(t, 4, view.Progress.Current)

	view, err = f.svc.Onboarding.CancelPreview(ctx, "user-1", view.ID)
	require.NoError(t, err)
	assert.Equal(t, wizard.PhaseStep, view.Progress.Phase)
	assert.Equal(t, "trade", view.Step)

	view, err = f.svc.Onboarding.Continue(ctx, "user-1", view.ID)
	require.NoError(t, err)
	view, err = f.svc.Onboarding.Publish(ctx, "user-1", view.ID)
	require.NoError(t, err)
	assert.Equal(t, wizard.PhaseSuccess, view.Progress.Phase)
	require.NotEmpty(t, view.TradeID)

	profile, err := f.db.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "2", profile.Location)
	assert.Equal(t, []string{"2", "3", "7"}, profile.Preferences)
	assert.Equal(t, 2, profile.SwapDistance)

	trade, err := f.db.GetTrade(ctx, view.TradeID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", trade.OwnerID)
	assert.Equal(t, "Cordless drill", trade.Title)

	// Success is terminal.
	_, err = f.svc.Onboarding.Publish(ctx, "user-1", view.ID)
	assert.ErrorIs(t, err, wizard.ErrFinished)
	_, err = f.svc.Onboarding.Continue(ctx, "user-1", view.ID)
	assert.ErrorIs(t, err, wizard.ErrFinished)
	_, err = f.svc.Onboarding.Update(ctx, "user-1", view.ID, wizard.Patch{Location: ptr("1")})
	assert.ErrorIs(t, err, wizard.ErrFinished)

	f.events.Wait()
	assert.Equal(t, 1, completed)
}

func TestOnboardingService_WithoutPreviewPublishesOnContinue(t *testing.T) {
	f := setupTestService(t)
	f.flags.Set(features.FeatureTradePreview, false)
	ctx := context.Background()

	view, err := f.svc.Onboarding.Start(ctx, "user-2")
	require.NoError(t, err)

	// The preview setting is fixed when the session starts.
	f.flags.Set(features.FeatureTradePreview, true)

	view = completeOnboarding(t, f, "user-2", view.ID)
	assert.Equal(t, wizard.PhaseSuccess, view.Progress.Phase)
	assert.NotEmpty(t, view.TradeID)

	_, err = f.db.GetProfile(ctx, "user-2")
	assert.NoError(t, err)
}

func TestOnboardingService_ContinueRules(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()
	o := f.svc.Onboarding

	view, err := o.Start(ctx, "user-3")
	require.NoError(t, err)

	_, err = o.Continue(ctx, "user-3", view.ID)
	assert.ErrorIs(t, err, wizard.ErrIncomplete)

	_, err = o.Update(ctx, "user-3", view.ID, wizard.Patch{Location: ptr("99")})
	var ve *validation.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = o.Update(ctx, "user-3", view.ID, wizard.Patch{SwapDistance: ptr(3)})
	assert.ErrorIs(t, err, wizard.ErrWrongStep)

	_, err = o.Update(ctx, "user-3", view.ID, wizard.Patch{Location: ptr("1")})
	require.NoError(t, err)
	view, err = o.Continue(ctx, "user-3", view.ID)
	require.NoError(t, err)
	assert.Equal(t, "profile", view.Step)

	// Non-blank but malformed phone numbers pass the predicate and fail validation.
	view, err = o.Update(ctx, "user-3", view.ID, wizard.Patch{Profile: &models.Profile{PhoneNumber: "12345"}})
	require.NoError(t, err)
	assert.True(t, view.CanContinue)
	_, err = o.Continue(ctx, "user-3", view.ID)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "phone_number", ve.Field)

	got, err := o.Get(ctx, "user-3", view.ID)
	require.NoError(t, err)
	assert.Equal(t, "profile", got.Step)

	_, err = o.Publish(ctx, "user-3", view.ID)
	assert.ErrorIs(t, err, wizard.ErrNotInPreview)
}

func TestOnboardingService_PreferenceCap(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()
	o := f.svc.Onboarding

	view, err := o.Start(ctx, "user-4")
	require.NoError(t, err)
	_, err = o.Update(ctx, "user-4", view.ID, wizard.Patch{Location: ptr("1")})
	require.NoError(t, err)
	_, err = o.Continue(ctx, "user-4", view.ID)
	require.NoError(t, err)
	_, err = o.Update(ctx, "user-4", view.ID, wizard.Patch{Profile: &models.Profile{PhoneNumber: "+2349012345678"}})
	require.NoError(t, err)
	_, err = o.Continue(ctx, "user-4", view.ID)
	require.NoError(t, err)

	for _, id := range []string{"1", "2", "3"} {
		res, err := o.TogglePreference(ctx, "user-4", view.ID, id)
		require.NoError(t, err)
		require.True(t, res.Toggled)
	}

	res, err := o.TogglePreference(ctx, "user-4", view.ID, "4")
	require.NoError(t, err)
	assert.False(t, res.Toggled)
	assert.Equal(t, 3, wizard.SelectedCount(res.Data.Preferences))

	res, err = o.TogglePreference(ctx, "user-4", view.ID, "2")
	require.NoError(t, err)
	assert.True(t, res.Toggled)
	assert.False(t, res.CanContinue)

	res, err = o.TogglePreference(ctx, "user-4", view.ID, "4")
	require.NoError(t, err)
	assert.True(t, res.Toggled)
	assert.Equal(t, []string{"1", "3", "4"}, wizard.SelectedIDs(res.Data.Preferences))
}

func TestOnboardingService_UnknownPreference(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	view, err := f.svc.Onboarding.Start(ctx, "user-6")
	require.NoError(t, err)

	_, err = f.svc.Onboarding.TogglePreference(ctx, "user-6", view.ID, "13")
	var verr *validation.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "preference_id", verr.Field)
}

func TestOnboardingService_Ownership(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	view, err := f.svc.Onboarding.Start(ctx, "user-5")
	require.NoError(t, err)

	_, err = f.svc.Onboarding.Get(ctx, "someone-else", view.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.svc.Onboarding.Continue(ctx, "someone-else", view.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestOnboardingService_PublishFailureKeepsPreview(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	view, err := f.svc.Onboarding.Start(ctx, "user-6")
	require.NoError(t, err)
	view = completeOnboarding(t, f, "user-6", view.ID)
	require.Equal(t, wizard.PhasePreview, view.Progress.Phase)

	require.NoError(t, f.db.Close())

	_, err = f.svc.Onboarding.Publish(ctx, "user-6", view.ID)
	require.Error(t, err)
	assert.False(t, errors.Is(err, wizard.ErrFinished))

	got, err := f.svc.Onboarding.Get(ctx, "user-6", view.ID)
	require.NoError(t, err)
	assert.Equal(t, wizard.PhasePreview, got.Progress.Phase)
	assert.Empty(t, got.TradeID)
}

func TestReviewService(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	for i, rating := range []int{5, 4, 4} {
		f.now = f.now.Add(time.Hour)
		_, err := f.svc.Reviews.Create(ctx, uuid.New().String(), "seller", models.CreateReviewRequest{
			Rating:   rating,
			Comment:  "smooth swap",
			ItemName: "Drill",
		})
		require.NoError(t, err, "review %d", i)
	}

	reviews, err := f.svc.Reviews.List(ctx, "seller", 4)
	require.NoError(t, err)
	assert.Len(t, reviews, 2)

	reviews, err = f.svc.Reviews.List(ctx, "nobody", 0)
	require.NoError(t, err)
	assert.NotNil(t, reviews)
	assert.Empty(t, reviews)

	summary, err := f.svc.Reviews.Summary(ctx, "seller")
	require.NoError(t, err)
	assert.Equal(t, "4.3", summary.Average)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, [5]int{0, 0, 0, 2, 1}, summary.Histogram)
}

func TestReviewService_Rejections(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	var ve *validation.ValidationError
	_, err := f.svc.Reviews.Create(ctx, "seller", "seller", models.CreateReviewRequest{Rating: 5, ItemName: "Drill"})
	assert.ErrorAs(t, err, &ve)

	_, err = f.svc.Reviews.Create(ctx, "buyer", "seller", models.CreateReviewRequest{Rating: 6, ItemName: "Drill"})
	assert.ErrorAs(t, err, &ve)

	_, err = f.svc.Reviews.List(ctx, "seller", 9)
	assert.ErrorAs(t, err, &ve)
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		hist [5]int
		want string
	}{
		{"no reviews", [5]int{}, "0.0"},
		{"single five", [5]int{0, 0, 0, 0, 1}, "5.0"},
		{"rounds half up", [5]int{0, 0, 0, 3, 1}, "4.3"}, // 4.25
		{"repeating decimal", [5]int{1, 0, 0, 0, 2}, "3.7"}, // 3.666...
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize("u", tt.hist)
			assert.Equal(t, tt.want, got.Average)
		})
	}
}

func TestTradeService_MarkTraded(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	trade := seedTrades(t, f, "owner", 1)[0]

	_, err := f.svc.Trades.MarkTraded(ctx, "owner", "not-a-uuid")
	var verr *validation.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = f.svc.Trades.MarkTraded(ctx, "viewer", trade.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)

	f.now = f.now.Add(time.Hour)
	got, err := f.svc.Trades.MarkTraded(ctx, "owner", trade.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TradeTraded, got.Status)
	require.NotNil(t, got.TradedAt)
	assert.True(t, got.TradedAt.Equal(f.now))

	_, err = f.svc.Trades.MarkTraded(ctx, "owner", trade.ID)
	assert.ErrorIs(t, err, database.ErrDuplicate)
}

func TestDeckService_Decisions(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	seedTrades(t, f, "owner", 2)
	view, err := f.svc.Decks.Start(ctx, "viewer", models.StartDeckRequest{})
	require.NoError(t, err)
	_, err = f.svc.Decks.Like(ctx, "viewer", view.ID)
	require.NoError(t, err)
	f.now = f.now.Add(time.Minute)
	_, err = f.svc.Decks.Skip(ctx, "viewer", view.ID)
	require.NoError(t, err)

	all, err := f.svc.Decks.Decisions(ctx, "viewer", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	skips, err := f.svc.Decks.Decisions(ctx, "viewer", models.DirectionSkip)
	require.NoError(t, err)
	require.Len(t, skips, 1)
	assert.Equal(t, all[1].CandidateID, skips[0].CandidateID)

	none, err := f.svc.Decks.Decisions(ctx, "someone-else", "")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	_, err = f.svc.Decks.Decisions(ctx, "viewer", models.Direction("up"))
	var verr *validation.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestProfileService_Get(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	_, err := f.svc.Profiles.Get(ctx, "user-5")
	assert.ErrorIs(t, err, database.ErrNotFound)

	view, err := f.svc.Onboarding.Start(ctx, "user-5")
	require.NoError(t, err)
	view = completeOnboarding(t, f, "user-5", view.ID)
	view, err = f.svc.Onboarding.Publish(ctx, "user-5", view.ID)
	require.NoError(t, err)
	require.NotEmpty(t, view.TradeID)

	_, err = f.svc.Reviews.Create(ctx, "buyer", "user-5", models.CreateReviewRequest{Rating: 4, ItemName: "Drill"})
	require.NoError(t, err)

	profile, err := f.svc.Profiles.Get(ctx, "user-5")
	require.NoError(t, err)
	assert.Equal(t, "ada", profile.Username)
	assert.Equal(t, "Yaba", profile.Location)
	assert.Equal(t, []string{"Books", "Tools", "Tutoring"}, profile.Preferences)
	assert.Equal(t, 1, profile.Rating.Total)
	require.Len(t, profile.Available, 1)
	assert.Equal(t, view.TradeID, profile.Available[0].ID)
	assert.Empty(t, profile.Traded)

	_, err = f.svc.Trades.MarkTraded(ctx, "user-5", view.TradeID)
	require.NoError(t, err)

	profile, err = f.svc.Profiles.Get(ctx, "user-5")
	require.NoError(t, err)
	assert.NotNil(t, profile.Available)
	assert.Empty(t, profile.Available)
	require.Len(t, profile.Traded, 1)
	assert.Equal(t, models.TradeTraded, profile.Traded[0].Status)
}
