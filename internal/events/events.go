package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"trockle-api/internal/models"
)

// EventType represents the type of event.
type EventType string

const (
	// EventDecisionRecorded is emitted when a swipe decision is persisted
	EventDecisionRecorded EventType = "decision.recorded"
	// EventTradePublished is emitted when a trade becomes visible to other users
	EventTradePublished EventType = "trade.published"
	// EventOnboardingCompleted is emitted once per finished onboarding session
	EventOnboardingCompleted EventType = "onboarding.completed"
	// EventReviewCreated is emitted when a user is reviewed
	EventReviewCreated EventType = "review.created"
)

// Event represents an event in the system.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

type DecisionRecordedData struct {
	Decision models.Decision
	DeckID   string
}

type TradePublishedData struct {
	Trade models.Trade
}

type OnboardingCompletedData struct {
	Profile   models.UserProfile
	TradeID   string
	SessionID string
}

type ReviewCreatedData struct {
	Review models.Review
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager manages event handlers and event publishing.
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	enabled  bool
	gate     func() bool
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewManager creates a new event manager. A nil logger discards handler
// failures.
func NewManager(enabled bool, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
		logger:   logger,
	}
}

// Gate makes publishing conditional on fn, consulted on every Publish.
func (m *Manager) Gate(fn func() bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gate = fn
}

// Subscribe subscribes a handler to a specific event type.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled {
		return
	}
	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish publishes an event to all subscribed handlers. Handlers run
// asynchronously and detached from the request's cancellation.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data interface{}) {
	m.mu.RLock()
	if !m.enabled {
		m.mu.RUnlock()
		return
	}
	handlers := append([]Handler(nil), m.handlers[eventType]...)
	gate := m.gate
	m.mu.RUnlock()

	if len(handlers) == 0 || (gate != nil && !gate()) {
		return
	}

	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
	hctx := context.WithoutCancel(ctx)

	for _, handler := range handlers {
		m.wg.Add(1)
		go func(h Handler) {
			defer m.wg.Done()
			if err := h(hctx, event); err != nil {
				m.logger.Error("event handler failed",
					slog.String("event", string(event.Type)),
					slog.Any("error", err))
			}
		}(handler)
	}
}

func (m *Manager) PublishDecisionRecorded(ctx context.Context, deckID string, decision models.Decision) {
	m.Publish(ctx, EventDecisionRecorded, DecisionRecordedData{Decision: decision, DeckID: deckID})
}

func (m *Manager) PublishTradePublished(ctx context.Context, trade models.Trade) {
	m.Publish(ctx, EventTradePublished, TradePublishedData{Trade: trade})
}

func (m *Manager) PublishOnboardingCompleted(ctx context.Context, sessionID string, profile models.UserProfile, tradeID string) {
	m.Publish(ctx, EventOnboardingCompleted, OnboardingCompletedData{
		Profile:   profile,
		TradeID:   tradeID,
		SessionID: sessionID,
	})
}

func (m *Manager) PublishReviewCreated(ctx context.Context, review models.Review) {
	m.Publish(ctx, EventReviewCreated, ReviewCreatedData{Review: review})
}

// Wait blocks until all in-flight handlers have returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Shutdown stops accepting events and waits for in-flight handlers.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.enabled = false
	m.handlers = make(map[EventType][]Handler)
	m.mu.Unlock()

	m.wg.Wait()
}
