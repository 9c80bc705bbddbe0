package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"trockle-api/internal/auth"
	"trockle-api/internal/catalog"
	"trockle-api/internal/database"
	"trockle-api/internal/features"
	"trockle-api/internal/middleware"
	"trockle-api/internal/models"
	"trockle-api/internal/service"
	"trockle-api/internal/swipe"
	"trockle-api/internal/validation"
	"trockle-api/internal/wizard"
)

// Handler provides HTTP handlers for the API.
type Handler struct {
	service     *service.Service
	issuer      *auth.Issuer
	features    *features.Manager
	logger      *slog.Logger
	maxBodySize int64
	upgrader    websocket.Upgrader
}

// NewHandlerOptions holds options for creating a handler.
type NewHandlerOptions struct {
	MaxBodySize int64
	// AllowedOrigins restricts websocket upgrades; "*" allows any origin.
	AllowedOrigins []string
	Logger         *slog.Logger
}

// DefaultHandlerOptions returns default handler options.
func DefaultHandlerOptions() NewHandlerOptions {
	return NewHandlerOptions{
		MaxBodySize:    10 << 20, // 10MB default
		AllowedOrigins: []string{"*"},
	}
}

// NewHandler creates a new handler instance.
func NewHandler(svc *service.Service, issuer *auth.Issuer, flags *features.Manager) *Handler {
	return NewHandlerWithOptions(svc, issuer, flags, DefaultHandlerOptions())
}

// NewHandlerWithOptions creates a new handler instance with custom options.
func NewHandlerWithOptions(svc *service.Service, issuer *auth.Issuer, flags *features.Manager, opts NewHandlerOptions) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		service:     svc,
		issuer:      issuer,
		features:    flags,
		logger:      logger,
		maxBodySize: opts.MaxBodySize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(opts.AllowedOrigins),
		},
	}
}

// Routes registers every endpoint on r. Everything except health, catalog,
// features and token issuing goes through requireAuth. rateLimit may be nil;
// otherwise it runs on the public routes keyed by client address and behind
// requireAuth on the rest, where it sees the authenticated user.
func (h *Handler) Routes(r chi.Router, requireAuth, rateLimit func(http.Handler) http.Handler) {
	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		if rateLimit != nil {
			r.Use(rateLimit)
		}
		r.Get("/catalog", h.GetCatalog)
		r.Get("/features", h.ListFeatures)
		r.Post("/auth/token", h.IssueToken)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		if rateLimit != nil {
			r.Use(rateLimit)
		}

		r.Route("/trades", func(r chi.Router) {
			r.Post("/", h.CreateTrade)
			r.Get("/{trade_id}", h.GetTrade)
			r.Post("/{trade_id}/traded", h.MarkTraded)
		})

		r.Get("/decisions", h.ListDecisions)

		r.Route("/decks", func(r chi.Router) {
			r.Post("/", h.StartDeck)
			r.Route("/{deck_id}", func(r chi.Router) {
				r.Get("/", h.GetDeck)
				r.Post("/drag", h.DragDeck)
				r.Post("/release", h.ReleaseDeck)
				r.Post("/like", h.LikeDeck)
				r.Post("/skip", h.SkipDeck)
				r.Get("/stream", h.StreamDeck)
			})
		})

		r.Route("/onboarding", func(r chi.Router) {
			r.Post("/", h.StartOnboarding)
			r.Route("/{session_id}", func(r chi.Router) {
				r.Get("/", h.GetOnboarding)
				r.Patch("/", h.UpdateOnboarding)
				r.Post("/preferences/{preference_id}/toggle", h.TogglePreference)
				r.Post("/continue", h.ContinueOnboarding)
				r.Post("/preview/cancel", h.CancelPreview)
				r.Post("/publish", h.PublishOnboarding)
			})
		})

		r.Route("/users/{user_id}", func(r chi.Router) {
			r.Get("/profile", h.GetProfile)
			r.Post("/reviews", h.CreateReview)
			r.Get("/reviews", h.ListReviews)
			r.Get("/rating", h.GetRating)
		})
	})
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// GetCatalog handles GET /catalog
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, catalog.All())
}

// ListFeatures handles GET /features
func (h *Handler) ListFeatures(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.features.GetAll())
}

// IssueToken handles POST /auth/token. It exists for development and is
// hidden unless the dev_tokens flag is on.
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	if !h.features.IsEnabled(features.FeatureDevTokens) {
		h.respondError(w, http.StatusNotFound, "not found")
		return
	}

	var req models.TokenRequest
	if !h.decodeJSON(w, r, &req, false) {
		return
	}
	req.UserID = validation.SanitizeString(req.UserID)
	if req.UserID == "" {
		h.respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	token, expiresAt, err := h.issuer.Issue(req.UserID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, models.TokenResponse{AccessToken: token, ExpiresAt: expiresAt})
}

// CreateTrade handles POST /trades
func (h *Handler) CreateTrade(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req models.Trade
	if !h.decodeJSON(w, r, &req, false) {
		return
	}

	trade, err := h.service.Trades.Create(r.Context(), userID, req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, trade)
}

// GetTrade handles GET /trades/{trade_id}
func (h *Handler) GetTrade(w http.ResponseWriter, r *http.Request) {
	tradeID := validation.SanitizeString(chi.URLParam(r, "trade_id"))

	trade, err := h.service.Trades.Get(r.Context(), tradeID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, trade)
}

// MarkTraded handles POST /trades/{trade_id}/traded
func (h *Handler) MarkTraded(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	tradeID := validation.SanitizeString(chi.URLParam(r, "trade_id"))
	trade, err := h.service.Trades.MarkTraded(r.Context(), userID, tradeID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, trade)
}

// ListDecisions handles GET /decisions?direction=like|skip
func (h *Handler) ListDecisions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	direction := models.Direction(validation.SanitizeString(r.URL.Query().Get("direction")))
	decisions, err := h.service.Decks.Decisions(r.Context(), userID, direction)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, decisions)
}

// StartDeck handles POST /decks. The body is optional.
func (h *Handler) StartDeck(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req models.StartDeckRequest
	if !h.decodeJSON(w, r, &req, true) {
		return
	}
	req.Category = validation.SanitizeString(req.Category)

	view, err := h.service.Decks.Start(r.Context(), userID, req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, view)
}

// GetDeck handles GET /decks/{deck_id}
func (h *Handler) GetDeck(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	view, err := h.service.Decks.Get(r.Context(), userID, chi.URLParam(r, "deck_id"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, view)
}

// DragDeck handles POST /decks/{deck_id}/drag
func (h *Handler) DragDeck(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req models.GestureRequest
	if !h.decodeJSON(w, r, &req, false) {
		return
	}

	frame, err := h.service.Decks.Drag(r.Context(), userID, chi.URLParam(r, "deck_id"), req.DX, req.DY)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, frame)
}

// ReleaseDeck handles POST /decks/{deck_id}/release
func (h *Handler) ReleaseDeck(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req models.GestureRequest
	if !h.decodeJSON(w, r, &req, false) {
		return
	}

	view, err := h.service.Decks.Release(r.Context(), userID, chi.URLParam(r, "deck_id"), req.DX, req.DY)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, view)
}

// LikeDeck handles POST /decks/{deck_id}/like
func (h *Handler) LikeDeck(w http.ResponseWriter, r *http.Request) {
	h.press(w, r, h.service.Decks.Like)
}

// SkipDeck handles POST /decks/{deck_id}/skip
func (h *Handler) SkipDeck(w http.ResponseWriter, r *http.Request) {
	h.press(w, r, h.service.Decks.Skip)
}

func (h *Handler) press(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, userID, deckID string) (service.DeckView, error)) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	view, err := fn(r.Context(), userID, chi.URLParam(r, "deck_id"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, view)
}

// StartOnboarding handles POST /onboarding
func (h *Handler) StartOnboarding(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	view, err := h.service.Onboarding.Start(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, view)
}

// GetOnboarding handles GET /onboarding/{session_id}
func (h *Handler) GetOnboarding(w http.ResponseWriter, r *http.Request) {
	h.onboarding(w, r, h.service.Onboarding.Get)
}

// UpdateOnboarding handles PATCH /onboarding/{session_id}
func (h *Handler) UpdateOnboarding(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var patch wizard.Patch
	if !h.decodeJSON(w, r, &patch, false) {
		return
	}

	view, err := h.service.Onboarding.Update(r.Context(), userID, chi.URLParam(r, "session_id"), patch)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, view)
}

// TogglePreference handles POST /onboarding/{session_id}/preferences/{preference_id}/toggle
func (h *Handler) TogglePreference(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	res, err := h.service.Onboarding.TogglePreference(r.Context(), userID,
		chi.URLParam(r, "session_id"), chi.URLParam(r, "preference_id"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, res)
}

// ContinueOnboarding handles POST /onboarding/{session_id}/continue
func (h *Handler) ContinueOnboarding(w http.ResponseWriter, r *http.Request) {
	h.onboarding(w, r, h.service.Onboarding.Continue)
}

// CancelPreview handles POST /onboarding/{session_id}/preview/cancel
func (h *Handler) CancelPreview(w http.ResponseWriter, r *http.Request) {
	h.onboarding(w, r, h.service.Onboarding.CancelPreview)
}

// PublishOnboarding handles POST /onboarding/{session_id}/publish
func (h *Handler) PublishOnboarding(w http.ResponseWriter, r *http.Request) {
	h.onboarding(w, r, h.service.Onboarding.Publish)
}

func (h *Handler) onboarding(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, userID, sessionID string) (service.OnboardingView, error)) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	view, err := fn(r.Context(), userID, chi.URLParam(r, "session_id"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, view)
}

// CreateReview handles POST /users/{user_id}/reviews
func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req models.CreateReviewRequest
	if !h.decodeJSON(w, r, &req, false) {
		return
	}

	userID := validation.SanitizeString(chi.URLParam(r, "user_id"))
	review, err := h.service.Reviews.Create(r.Context(), reviewerID, userID, req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, review)
}

// ListReviews handles GET /users/{user_id}/reviews?stars=N
func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	stars := 0
	if s := r.URL.Query().Get("stars"); s != "" {
		n, err := strconv.Atoi(validation.SanitizeString(s))
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid 'stars' parameter, must be an integer between 1 and 5")
			return
		}
		stars = n
	}

	userID := validation.SanitizeString(chi.URLParam(r, "user_id"))
	reviews, err := h.service.Reviews.List(r.Context(), userID, stars)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, reviews)
}

// GetProfile handles GET /users/{user_id}/profile
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := validation.SanitizeString(chi.URLParam(r, "user_id"))

	profile, err := h.service.Profiles.Get(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, profile)
}

// GetRating handles GET /users/{user_id}/rating
func (h *Handler) GetRating(w http.ResponseWriter, r *http.Request) {
	userID := validation.SanitizeString(chi.URLParam(r, "user_id"))

	summary, err := h.service.Reviews.Summary(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, summary)
}

// userID returns the authenticated user, responding 401 when absent.
func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.UserID(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return id, true
}

// decodeJSON decodes the request body into dst. An empty body is accepted
// only when optional is set. It responds on failure.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, optional bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			if optional {
				return true
			}
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return false
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return false
	}
	return true
}

// respondServiceError maps domain errors to HTTP status codes.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusOf(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", chimw.GetReqID(r.Context())),
			slog.Any("error", err))
	}
	h.respondError(w, status, message)
}

func statusOf(err error) (int, string) {
	var ve *validation.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, service.ErrFeatureDisabled):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, swipe.ErrExhausted),
		errors.Is(err, swipe.ErrBusy),
		errors.Is(err, wizard.ErrIncomplete),
		errors.Is(err, wizard.ErrWrongStep),
		errors.Is(err, wizard.ErrInPreview),
		errors.Is(err, wizard.ErrNotInPreview),
		errors.Is(err, wizard.ErrFinished),
		errors.Is(err, database.ErrDuplicate):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
