package models

import "time"

// Availability is the slot in which the owner can meet for a swap.
type Availability struct {
	Day  string `json:"day"`  // e.g. "Monday"
	Time string `json:"time"` // free text, e.g. "10:00 - 12:00"
}

// Trade represents a barter listing shown in the discovery feed.
type Trade struct {
	ID                 string       `json:"id"`       // uuid
	OwnerID            string       `json:"owner_id"` // uuid
	Category           string       `json:"category"`
	Title              string       `json:"title"`
	Description        string       `json:"description"`
	Photos             []string     `json:"photos"` // ordered photo references
	ReturnOffer        string       `json:"return_offer"`
	Availability       Availability `json:"availability"`
	Location           string       `json:"location"`
	UseCurrentLocation bool         `json:"use_current_location"`
	Status             TradeStatus  `json:"status"`
	CreatedAt          time.Time    `json:"created_at"`
	TradedAt           *time.Time   `json:"traded_at,omitempty"`
}

// TradeStatus tells whether a trade is still on offer.
type TradeStatus string

const (
	TradeAvailable TradeStatus = "available"
	TradeTraded    TradeStatus = "traded"
)

// Profile holds the user details collected during onboarding.
type Profile struct {
	PhoneNumber string `json:"phone_number"`
	Username    string `json:"username"`
	Bio         string `json:"bio"`
	Photo       string `json:"photo,omitempty"`
}

// Preference is a category tag a user can select during onboarding.
type Preference struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Selected bool   `json:"selected"`
}

// Location is a selectable local area.
type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Direction is the outcome of a completed swipe.
type Direction string

const (
	DirectionLike Direction = "like"
	DirectionSkip Direction = "skip"
)

// Decision is produced once per completed swipe.
type Decision struct {
	ID          string    `json:"id"`
	ViewerID    string    `json:"viewer_id"`
	CandidateID string    `json:"candidate_id"`
	Direction   Direction `json:"direction"`
	DecidedAt   time.Time `json:"decided_at"`
}

// UserProfile is the persisted result of a completed onboarding.
type UserProfile struct {
	UserID       string    `json:"user_id"`
	Location     string    `json:"location"`
	Profile      Profile   `json:"profile"`
	Preferences  []string  `json:"preferences"` // selected preference ids
	SwapDistance int       `json:"swap_distance"`
	OnboardedAt  time.Time `json:"onboarded_at"`
}

// Review is a rating left by one user for another after a swap.
type Review struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`     // reviewed user
	ReviewerID string    `json:"reviewer_id"` // author
	Rating     int       `json:"rating"`      // 1..5
	Comment    string    `json:"comment"`
	ItemName   string    `json:"item_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// RatingSummary aggregates the reviews of a user.
type RatingSummary struct {
	UserID    string `json:"user_id"`
	Average   string `json:"average"` // one decimal place, e.g. "4.3"
	Total     int    `json:"total"`
	Histogram [5]int `json:"histogram"` // index 0 holds 1-star count
}

// CreateReviewRequest represents the request body for leaving a review.
type CreateReviewRequest struct {
	Rating   int    `json:"rating"`
	Comment  string `json:"comment"`
	ItemName string `json:"item_name"`
}

// TokenRequest asks the development issuer for a bearer token.
type TokenRequest struct {
	UserID string `json:"user_id"`
}

// TokenResponse carries a signed bearer token.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// StartDeckRequest represents the request body for opening a deck.
type StartDeckRequest struct {
	Category    string  `json:"category,omitempty"`
	Limit       int     `json:"limit,omitempty"`
	ScreenWidth float64 `json:"screen_width,omitempty"`
}

// GestureRequest carries a drag delta.
type GestureRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// Catalog lists the static choices offered to clients.
type Catalog struct {
	Locations   []Location   `json:"locations"`
	Preferences []Preference `json:"preferences"`
	Categories  []string     `json:"categories"`
	Days        []string     `json:"days"`
}

// TraderProfile is the public profile of a user: onboarding details with
// names resolved, the rating summary and the listed trades.
type TraderProfile struct {
	UserID      string        `json:"user_id"`
	Username    string        `json:"username"`
	Location    string        `json:"location"`
	Bio         string        `json:"bio"`
	Photo       string        `json:"photo,omitempty"`
	Preferences []string      `json:"preferences"`
	Rating      RatingSummary `json:"rating"`
	Available   []Trade       `json:"available"`
	Traded      []Trade       `json:"traded"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
