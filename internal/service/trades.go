package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"trockle-api/internal/database"
	"trockle-api/internal/events"
	"trockle-api/internal/models"
	"trockle-api/internal/validation"
)

// TradeService manages trades outside the onboarding flow.
type TradeService struct {
	db     *database.DB
	events *events.Manager
	logger *slog.Logger
	now    func() time.Time
}

// Create publishes a trade owned by ownerID. Client supplied ids and
// timestamps are ignored.
func (s *TradeService) Create(ctx context.Context, ownerID string, trade models.Trade) (created models.Trade, err error) {
	ctx, span := startSpan(ctx, "trades.create", ownerID)
	defer func() { endSpan(span, err) }()

	trade.Photos = append([]string(nil), trade.Photos...)
	validation.SanitizeTrade(&trade)
	trade.ID = uuid.New().String()
	trade.OwnerID = ownerID
	trade.CreatedAt = s.now()
	trade.Status = models.TradeAvailable
	trade.TradedAt = nil

	if err := validation.ValidateTrade(trade); err != nil {
		return models.Trade{}, err
	}

	if err := s.db.InsertTrade(ctx, trade); err != nil {
		return models.Trade{}, fmt.Errorf("failed to create trade: %w", err)
	}

	s.events.PublishTradePublished(ctx, trade)
	s.logger.Info("trade published",
		slog.String("trade_id", trade.ID),
		slog.String("owner_id", ownerID),
		slog.String("category", trade.Category))

	return trade, nil
}

// Get returns a trade by id.
func (s *TradeService) Get(ctx context.Context, id string) (models.Trade, error) {
	if err := validation.ValidateUUID(id, "trade_id"); err != nil {
		return models.Trade{}, err
	}
	return s.db.GetTrade(ctx, id)
}

// MarkTraded closes a trade of ownerID so it leaves every candidate feed.
func (s *TradeService) MarkTraded(ctx context.Context, ownerID, id string) (trade models.Trade, err error) {
	ctx, span := startSpan(ctx, "trades.mark_traded", ownerID)
	defer func() { endSpan(span, err) }()

	if err := validation.ValidateUUID(id, "trade_id"); err != nil {
		return models.Trade{}, err
	}
	if err := s.db.MarkTraded(ctx, id, ownerID, s.now()); err != nil {
		return models.Trade{}, err
	}

	s.logger.Info("trade closed", slog.String("trade_id", id), slog.String("owner_id", ownerID))
	return s.db.GetTrade(ctx, id)
}
