package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"trockle-api/internal/database"
	"trockle-api/internal/events"
	"trockle-api/internal/models"
	"trockle-api/internal/validation"
)

// ReviewService records and aggregates user reviews.
type ReviewService struct {
	db     *database.DB
	events *events.Manager
	now    func() time.Time
}

// Create records a review of userID written by reviewerID.
func (s *ReviewService) Create(ctx context.Context, reviewerID, userID string, req models.CreateReviewRequest) (review models.Review, err error) {
	ctx, span := startSpan(ctx, "reviews.create", reviewerID)
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(userID) == "" {
		return models.Review{}, &validation.ValidationError{Field: "user_id", Message: "is required"}
	}
	if userID == reviewerID {
		return models.Review{}, &validation.ValidationError{Field: "user_id", Message: "cannot review yourself"}
	}

	req.Comment = validation.SanitizeString(req.Comment)
	req.ItemName = validation.SanitizeString(req.ItemName)
	if err := validation.ValidateReview(req); err != nil {
		return models.Review{}, err
	}

	review = models.Review{
		ID:         uuid.New().String(),
		UserID:     userID,
		ReviewerID: reviewerID,
		Rating:     req.Rating,
		Comment:    req.Comment,
		ItemName:   req.ItemName,
		CreatedAt:  s.now(),
	}
	if err := s.db.InsertReview(ctx, review); err != nil {
		return models.Review{}, fmt.Errorf("failed to create review: %w", err)
	}

	s.events.PublishReviewCreated(ctx, review)
	return review, nil
}

// List returns the reviews of userID, newest first. stars of zero returns
// every rating.
func (s *ReviewService) List(ctx context.Context, userID string, stars int) ([]models.Review, error) {
	if stars < 0 || stars > 5 {
		return nil, &validation.ValidationError{Field: "stars", Message: "must be between 1 and 5"}
	}
	reviews, err := s.db.ListReviews(ctx, userID, stars)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	return reviews, nil
}

// Summary aggregates the ratings of userID. The average is rounded half up
// to one decimal place.
func (s *ReviewService) Summary(ctx context.Context, userID string) (models.RatingSummary, error) {
	hist, err := s.db.RatingHistogram(ctx, userID)
	if err != nil {
		return models.RatingSummary{}, fmt.Errorf("failed to load ratings: %w", err)
	}
	return Summarize(userID, hist), nil
}

// Summarize derives a rating summary from a star histogram where index 0
// holds the 1-star count.
func Summarize(userID string, hist [5]int) models.RatingSummary {
	total, sum := 0, 0
	for i, n := range hist {
		total += n
		sum += (i + 1) * n
	}

	avg := decimal.Zero
	if total > 0 {
		avg = decimal.NewFromInt(int64(sum)).Div(decimal.NewFromInt(int64(total)))
	}

	return models.RatingSummary{
		UserID:    userID,
		Average:   avg.StringFixed(1),
		Total:     total,
		Histogram: hist,
	}
}
