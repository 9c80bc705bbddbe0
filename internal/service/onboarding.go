package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"trockle-api/internal/cache"
	"trockle-api/internal/catalog"
	"trockle-api/internal/database"
	"trockle-api/internal/events"
	"trockle-api/internal/features"
	"trockle-api/internal/models"
	"trockle-api/internal/validation"
	"trockle-api/internal/wizard"
)

// OnboardingSession is the stored snapshot of an onboarding wizard.
type OnboardingSession struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Preview   bool         `json:"preview"`
	State     wizard.State `json:"state"`
	TradeID   string       `json:"trade_id,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// OnboardingView is what clients render for an onboarding session.
type OnboardingView struct {
	ID          string          `json:"id"`
	Step        string          `json:"step"`
	Slice       wizard.Slice    `json:"slice"`
	Progress    wizard.Progress `json:"progress"`
	Fraction    float64         `json:"fraction"`
	CanContinue bool            `json:"can_continue"`
	Data        wizard.Data     `json:"data"`
	TradeID     string          `json:"trade_id,omitempty"`
}

// ToggleResult reports whether a preference toggle was honored. A refused
// toggle is not an error.
type ToggleResult struct {
	OnboardingView
	Toggled bool `json:"toggled"`
}

// OnboardingService drives the onboarding wizard and publishes its result.
type OnboardingService struct {
	db       *database.DB
	sessions *cache.SessionStore
	events   *events.Manager
	features *features.Manager
	logger   *slog.Logger
	now      func() time.Time
}

// Start opens an onboarding session on the first step. Whether the flow ends
// in a preview is fixed for the session's lifetime.
func (s *OnboardingService) Start(ctx context.Context, userID string) (view OnboardingView, err error) {
	ctx, span := startSpan(ctx, "onboarding.start", userID)
	defer func() { endSpan(span, err) }()

	sess := OnboardingSession{
		ID:        uuid.New().String(),
		UserID:    userID,
		Preview:   s.features.IsEnabled(features.FeatureTradePreview),
		CreatedAt: s.now(),
	}

	w, err := s.restore(sess, wizard.Callbacks{}, true)
	if err != nil {
		return OnboardingView{}, err
	}
	sess.State = w.State()

	if err := s.sessions.Save(ctx, sess.ID, sess); err != nil {
		return OnboardingView{}, err
	}

	s.logger.Info("onboarding started",
		slog.String("session_id", sess.ID),
		slog.String("user_id", userID),
		slog.Bool("preview", sess.Preview))

	return viewOfWizard(sess, w), nil
}

// Get returns the current view of a session.
func (s *OnboardingService) Get(ctx context.Context, userID, sessionID string) (OnboardingView, error) {
	var sess OnboardingSession
	if err := s.sessions.Load(ctx, sessionID, &sess); err != nil {
		return OnboardingView{}, sessionErr(err)
	}
	if sess.UserID != userID {
		return OnboardingView{}, ErrSessionNotFound
	}
	w, err := s.restore(sess, wizard.Callbacks{}, false)
	if err != nil {
		return OnboardingView{}, err
	}
	return viewOfWizard(sess, w), nil
}

// Update merges draft data into the active step.
func (s *OnboardingService) Update(ctx context.Context, userID, sessionID string, p wizard.Patch) (OnboardingView, error) {
	return s.mutate(ctx, "onboarding.update", userID, sessionID, func(w *wizard.Wizard) error {
		if err := validateDraft(&p); err != nil {
			return err
		}
		return w.Update(p)
	})
}

// TogglePreference toggles a preference tag under the selection cap.
func (s *OnboardingService) TogglePreference(ctx context.Context, userID, sessionID, preferenceID string) (ToggleResult, error) {
	if !catalog.HasPreference(preferenceID) {
		return ToggleResult{}, &validation.ValidationError{Field: "preference_id", Message: "is not a known preference"}
	}

	var toggled bool
	view, err := s.mutate(ctx, "onboarding.toggle_preference", userID, sessionID, func(w *wizard.Wizard) error {
		var err error
		toggled, err = w.TogglePreference(preferenceID)
		return err
	})
	if err != nil {
		return ToggleResult{}, err
	}
	return ToggleResult{OnboardingView: view, Toggled: toggled}, nil
}

// Continue advances past the active step once its data is complete and valid.
func (s *OnboardingService) Continue(ctx context.Context, userID, sessionID string) (OnboardingView, error) {
	return s.mutate(ctx, "onboarding.continue", userID, sessionID, func(w *wizard.Wizard) error {
		if w.CanContinue() {
			if err := validateStep(w.Active().Slice, w.Data(), userID); err != nil {
				return err
			}
		}
		return w.Continue()
	})
}

// CancelPreview returns from the preview to the trade step.
func (s *OnboardingService) CancelPreview(ctx context.Context, userID, sessionID string) (OnboardingView, error) {
	return s.mutate(ctx, "onboarding.cancel_preview", userID, sessionID, (*wizard.Wizard).CancelPreview)
}

// Publish confirms the preview, persisting the profile and the trade.
func (s *OnboardingService) Publish(ctx context.Context, userID, sessionID string) (OnboardingView, error) {
	return s.mutate(ctx, "onboarding.publish", userID, sessionID, (*wizard.Wizard).Publish)
}

// mutate rebuilds the wizard from its snapshot and applies op. When op
// finishes the flow the result is persisted before the snapshot is stored,
// so a failed publish leaves the session where it was.
func (s *OnboardingService) mutate(ctx context.Context, name, userID, sessionID string, op func(*wizard.Wizard) error) (view OnboardingView, err error) {
	ctx, span := startSpan(ctx, name, userID)
	defer func() { endSpan(span, err) }()

	var sess OnboardingSession
	err = s.sessions.Update(ctx, sessionID, &sess, func() error {
		if sess.UserID != userID {
			return ErrSessionNotFound
		}

		var finished *wizard.Data
		w, err := s.restore(sess, wizard.Callbacks{
			OnFinish: func(d wizard.Data) { finished = &d },
		}, false)
		if err != nil {
			return err
		}

		if err := op(w); err != nil {
			return err
		}

		if finished != nil {
			tradeID, err := s.publish(ctx, sess, *finished)
			if err != nil {
				return err
			}
			sess.TradeID = tradeID
		}

		sess.State = w.State()
		view = viewOfWizard(sess, w)
		return nil
	})
	if err != nil {
		return OnboardingView{}, sessionErr(err)
	}
	return view, nil
}

// restore builds the onboarding wizard for sess. fresh starts from the
// initial data instead of the snapshot.
func (s *OnboardingService) restore(sess OnboardingSession, cb wizard.Callbacks, fresh bool) (*wizard.Wizard, error) {
	var opts []wizard.Option
	if !fresh {
		opts = append(opts, wizard.WithState(sess.State))
	}
	if !sess.Preview {
		opts = append(opts, wizard.WithoutPreview())
	}
	w, err := wizard.New(wizard.OnboardingSteps(), wizard.NewData(), cb, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to restore onboarding session %s: %w", sess.ID, err)
	}
	return w, nil
}

func (s *OnboardingService) publish(ctx context.Context, sess OnboardingSession, data wizard.Data) (string, error) {
	now := s.now()

	trade := data.TradeFor(sess.UserID)
	trade.ID = uuid.New().String()
	trade.CreatedAt = now

	profile := models.UserProfile{
		UserID:       sess.UserID,
		Location:     data.Location,
		Profile:      data.Profile,
		Preferences:  wizard.SelectedIDs(data.Preferences),
		SwapDistance: data.SwapDistance,
		OnboardedAt:  now,
	}

	if err := s.db.PublishOnboarding(ctx, profile, trade); err != nil {
		return "", fmt.Errorf("failed to publish onboarding: %w", err)
	}

	s.events.PublishTradePublished(ctx, trade)
	s.events.PublishOnboardingCompleted(ctx, sess.ID, profile, trade.ID)

	s.logger.Info("onboarding completed",
		slog.String("session_id", sess.ID),
		slog.String("user_id", sess.UserID),
		slog.String("trade_id", trade.ID))

	return trade.ID, nil
}

func viewOfWizard(sess OnboardingSession, w *wizard.Wizard) OnboardingView {
	progress := w.Progress()
	return OnboardingView{
		ID:          sess.ID,
		Step:        w.Active().Name,
		Slice:       w.Active().Slice,
		Progress:    progress,
		Fraction:    progress.Fraction(),
		CanContinue: w.CanContinue(),
		Data:        w.Data(),
		TradeID:     sess.TradeID,
	}
}

// validateDraft sanitizes a patch and rejects values no later edit could
// make valid. Missing required fields are left to the step predicates.
func validateDraft(p *wizard.Patch) error {
	if p.Location != nil && *p.Location != "" {
		if err := validation.ValidateLocation(*p.Location); err != nil {
			return err
		}
	}

	if p.Profile != nil {
		validation.SanitizeProfile(p.Profile)
		if validation.CountWords(p.Profile.Bio) > validation.MaxBioWords {
			return &validation.ValidationError{
				Field:   "bio",
				Message: fmt.Sprintf("cannot exceed %d words", validation.MaxBioWords),
			}
		}
	}

	if p.SwapDistance != nil {
		if d := *p.SwapDistance; d < wizard.MinSwapDistance || d > wizard.MaxSwapDistance {
			return &validation.ValidationError{
				Field:   "swap_distance",
				Message: fmt.Sprintf("must be between %d and %d", wizard.MinSwapDistance, wizard.MaxSwapDistance),
			}
		}
	}

	if p.Trade != nil {
		t := p.Trade
		t.Photos = append([]string(nil), t.Photos...)
		validation.SanitizeTrade(t)
		if t.Category != "" && !catalog.HasCategory(t.Category) {
			return &validation.ValidationError{Field: "category", Message: "is not a known category"}
		}
		if utf8.RuneCountInString(t.Title) > validation.MaxTitleLength {
			return &validation.ValidationError{
				Field:   "title",
				Message: fmt.Sprintf("cannot exceed %d characters", validation.MaxTitleLength),
			}
		}
		if utf8.RuneCountInString(t.Description) > validation.MaxDescriptionLength {
			return &validation.ValidationError{
				Field:   "description",
				Message: fmt.Sprintf("cannot exceed %d characters", validation.MaxDescriptionLength),
			}
		}
		if len(t.Photos) > validation.MaxPhotos {
			return &validation.ValidationError{
				Field:   "photos",
				Message: fmt.Sprintf("cannot contain more than %d photos", validation.MaxPhotos),
			}
		}
	}

	return nil
}

// validateStep applies the full field rules of a step before leaving it.
func validateStep(slice wizard.Slice, d wizard.Data, userID string) error {
	switch slice {
	case wizard.SliceLocation:
		return validation.ValidateLocation(d.Location)
	case wizard.SliceProfile:
		return validation.ValidateProfile(d.Profile)
	case wizard.SliceTrade:
		return validation.ValidateTrade(d.TradeFor(userID))
	}
	return nil
}
