package service

import (
	"context"
	"fmt"

	"trockle-api/internal/catalog"
	"trockle-api/internal/database"
	"trockle-api/internal/models"
)

// ProfileService assembles the public profile of a trader.
type ProfileService struct {
	db *database.DB
}

// Get returns the profile of userID. Users who never finished onboarding
// have no profile and yield database.ErrNotFound.
func (s *ProfileService) Get(ctx context.Context, userID string) (profile models.TraderProfile, err error) {
	ctx, span := startSpan(ctx, "profiles.get", userID)
	defer func() { endSpan(span, err) }()

	p, err := s.db.GetProfile(ctx, userID)
	if err != nil {
		return models.TraderProfile{}, err
	}

	hist, err := s.db.RatingHistogram(ctx, userID)
	if err != nil {
		return models.TraderProfile{}, fmt.Errorf("failed to load ratings: %w", err)
	}

	trades, err := s.db.ListTradesByOwner(ctx, userID)
	if err != nil {
		return models.TraderProfile{}, fmt.Errorf("failed to list trades: %w", err)
	}

	profile = models.TraderProfile{
		UserID:      userID,
		Username:    p.Profile.Username,
		Location:    catalog.LocationName(p.Location),
		Bio:         p.Profile.Bio,
		Photo:       p.Profile.Photo,
		Preferences: catalog.PreferenceNames(p.Preferences),
		Rating:      Summarize(userID, hist),
		Available:   []models.Trade{},
		Traded:      []models.Trade{},
	}
	for _, t := range trades {
		if t.Status == models.TradeTraded {
			profile.Traded = append(profile.Traded, t)
		} else {
			profile.Available = append(profile.Available, t)
		}
	}
	return profile, nil
}
