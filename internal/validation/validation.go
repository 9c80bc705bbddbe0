package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"trockle-api/internal/catalog"
	"trockle-api/internal/models"
)

var (
	uuidRegex  = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	phoneRegex = regexp.MustCompile(`^\+234[7-9][0-1]\d{8}$`)
)

const (
	MaxTitleLength       = 140
	MaxDescriptionLength = 340
	MaxReturnOfferLength = 140
	MaxBioWords          = 150
	MaxPhotos            = 5
	MaxCommentLength     = 1000
	MinUsernameLength    = 2
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// ValidateTrade checks a trade draft before it is published.
func ValidateTrade(trade models.Trade) error {
	if trade.Category == "" {
		return &ValidationError{Field: "category", Message: "is required"}
	}
	if !catalog.HasCategory(trade.Category) {
		return &ValidationError{Field: "category", Message: "is not a known category"}
	}

	if strings.TrimSpace(trade.Title) == "" {
		return &ValidationError{Field: "title", Message: "is required"}
	}
	if utf8.RuneCountInString(trade.Title) > MaxTitleLength {
		return &ValidationError{
			Field:   "title",
			Message: fmt.Sprintf("cannot exceed %d characters", MaxTitleLength),
		}
	}

	if utf8.RuneCountInString(trade.Description) > MaxDescriptionLength {
		return &ValidationError{
			Field:   "description",
			Message: fmt.Sprintf("cannot exceed %d characters", MaxDescriptionLength),
		}
	}

	if utf8.RuneCountInString(trade.ReturnOffer) > MaxReturnOfferLength {
		return &ValidationError{
			Field:   "return_offer",
			Message: fmt.Sprintf("cannot exceed %d characters", MaxReturnOfferLength),
		}
	}

	if len(trade.Photos) == 0 {
		return &ValidationError{Field: "photos", Message: "at least one photo is required"}
	}
	if len(trade.Photos) > MaxPhotos {
		return &ValidationError{
			Field:   "photos",
			Message: fmt.Sprintf("cannot contain more than %d photos", MaxPhotos),
		}
	}
	seen := make(map[string]bool)
	for i, photo := range trade.Photos {
		if strings.TrimSpace(photo) == "" {
			return &ValidationError{Field: fmt.Sprintf("photos[%d]", i), Message: "is empty"}
		}
		if seen[photo] {
			return &ValidationError{Field: "photos", Message: fmt.Sprintf("duplicate photo: %s", photo)}
		}
		seen[photo] = true
	}

	if trade.Availability.Day == "" {
		return &ValidationError{Field: "availability.day", Message: "is required"}
	}
	if !catalog.HasDay(trade.Availability.Day) {
		return &ValidationError{Field: "availability.day", Message: "must be a weekday name"}
	}

	if !trade.UseCurrentLocation && strings.TrimSpace(trade.Location) == "" {
		return &ValidationError{Field: "location", Message: "is required unless use_current_location is set"}
	}

	return nil
}

// ValidateProfile checks the profile step. The phone number is required;
// username and bio are optional but bounded.
func ValidateProfile(p models.Profile) error {
	if err := ValidatePhoneNumber(p.PhoneNumber); err != nil {
		return err
	}

	if p.Username != "" && utf8.RuneCountInString(strings.TrimSpace(p.Username)) < MinUsernameLength {
		return &ValidationError{
			Field:   "username",
			Message: fmt.Sprintf("must be at least %d characters", MinUsernameLength),
		}
	}

	if CountWords(p.Bio) > MaxBioWords {
		return &ValidationError{
			Field:   "bio",
			Message: fmt.Sprintf("cannot exceed %d words", MaxBioWords),
		}
	}

	return nil
}

func ValidateLocation(id string) error {
	if id == "" {
		return &ValidationError{Field: "location", Message: "is required"}
	}
	if !catalog.HasLocation(id) {
		return &ValidationError{Field: "location", Message: "is not a known location"}
	}
	return nil
}

func ValidateReview(req models.CreateReviewRequest) error {
	if req.Rating < 1 || req.Rating > 5 {
		return &ValidationError{Field: "rating", Message: "must be between 1 and 5"}
	}
	if utf8.RuneCountInString(req.Comment) > MaxCommentLength {
		return &ValidationError{
			Field:   "comment",
			Message: fmt.Sprintf("cannot exceed %d characters", MaxCommentLength),
		}
	}
	if strings.TrimSpace(req.ItemName) == "" {
		return &ValidationError{Field: "item_name", Message: "is required"}
	}
	return nil
}

// ValidatePhoneNumber accepts Nigerian mobile numbers in +234 form.
func ValidatePhoneNumber(phone string) error {
	phone = SanitizeString(phone)
	if phone == "" {
		return &ValidationError{Field: "phone_number", Message: "is required"}
	}
	if !phoneRegex.MatchString(phone) {
		return &ValidationError{
			Field:   "phone_number",
			Message: "must be a valid Nigerian phone number (+234XXXXXXXXXX)",
		}
	}
	return nil
}

// CountWords counts whitespace-separated words.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}

// SanitizeTrade sanitizes every free-text field of a trade in place.
func SanitizeTrade(t *models.Trade) {
	t.ID = SanitizeString(t.ID)
	t.OwnerID = SanitizeString(t.OwnerID)
	t.Category = SanitizeString(t.Category)
	t.Title = SanitizeString(t.Title)
	t.Description = SanitizeString(t.Description)
	t.ReturnOffer = SanitizeString(t.ReturnOffer)
	t.Location = SanitizeString(t.Location)
	t.Availability.Day = SanitizeString(t.Availability.Day)
	t.Availability.Time = SanitizeString(t.Availability.Time)
	for i := range t.Photos {
		t.Photos[i] = SanitizeString(t.Photos[i])
	}
}

// SanitizeProfile sanitizes every field of a profile in place.
func SanitizeProfile(p *models.Profile) {
	p.PhoneNumber = SanitizeString(p.PhoneNumber)
	p.Username = SanitizeString(p.Username)
	p.Bio = SanitizeString(p.Bio)
	p.Photo = SanitizeString(p.Photo)
}

func ValidateUUID(id, fieldName string) error {
	if id == "" {
		return &ValidationError{
			Field:   fieldName,
			Message: "is required",
		}
	}

	id = SanitizeString(id)

	if !uuidRegex.MatchString(strings.ToLower(id)) {
		return &ValidationError{
			Field:   fieldName,
			Message: "must be a valid UUID v4",
		}
	}

	return nil
}
