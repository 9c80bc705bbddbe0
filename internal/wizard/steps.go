package wizard

import (
	"strings"

	"trockle-api/internal/catalog"
	"trockle-api/internal/models"
)

// Slice names the part of Data a step owns.
type Slice string

const (
	SliceLocation     Slice = "location"
	SliceProfile      Slice = "profile"
	SlicePreferences  Slice = "preferences"
	SliceSwapDistance Slice = "swap_distance"
	SliceTrade        Slice = "trade"
)

const (
	MinSwapDistance     = 1
	MaxSwapDistance     = 5
	DefaultSwapDistance = 4
)

// Data is the union of everything collected across the steps.
type Data struct {
	Location     string              `json:"location"`
	Profile      models.Profile      `json:"profile"`
	Preferences  []models.Preference `json:"preferences"`
	SwapDistance int                 `json:"swap_distance"`
	Trade        models.Trade        `json:"trade"`
}

// NewData returns the starting data of the onboarding flow.
func NewData() Data {
	return Data{
		Preferences:  catalog.Preferences(),
		SwapDistance: DefaultSwapDistance,
	}
}

// Patch carries partial step data. Nil fields are left untouched.
// Preferences are changed through TogglePreference only.
type Patch struct {
	Location     *string         `json:"location,omitempty"`
	Profile      *models.Profile `json:"profile,omitempty"`
	SwapDistance *int            `json:"swap_distance,omitempty"`
	Trade        *models.Trade   `json:"trade,omitempty"`
}

// slices lists the parts of Data the patch writes.
func (p Patch) slices() []Slice {
	var out []Slice
	if p.Location != nil {
		out = append(out, SliceLocation)
	}
	if p.Profile != nil {
		out = append(out, SliceProfile)
	}
	if p.SwapDistance != nil {
		out = append(out, SliceSwapDistance)
	}
	if p.Trade != nil {
		out = append(out, SliceTrade)
	}
	return out
}

func (p Patch) apply(d *Data) {
	if p.Location != nil {
		d.Location = *p.Location
	}
	if p.Profile != nil {
		d.Profile = *p.Profile
	}
	if p.SwapDistance != nil {
		d.SwapDistance = *p.SwapDistance
	}
	if p.Trade != nil {
		d.Trade = *p.Trade
	}
}

// Step is one page of the wizard with its own completion predicate.
type Step struct {
	Name     string
	Slice    Slice
	Complete func(Data) bool
}

// OnboardingSteps returns the post-account onboarding flow:
// Location, Profile, Preferences, Distance, Trade.
func OnboardingSteps() []Step {
	return []Step{
		{Name: "location", Slice: SliceLocation, Complete: LocationComplete},
		{Name: "profile", Slice: SliceProfile, Complete: ProfileComplete},
		{Name: "preferences", Slice: SlicePreferences, Complete: PreferencesComplete},
		{Name: "distance", Slice: SliceSwapDistance, Complete: SwapDistanceComplete},
		{Name: "trade", Slice: SliceTrade, Complete: TradeComplete},
	}
}

func LocationComplete(d Data) bool {
	return strings.TrimSpace(d.Location) != ""
}

func ProfileComplete(d Data) bool {
	return strings.TrimSpace(d.Profile.PhoneNumber) != ""
}

func PreferencesComplete(d Data) bool {
	return SelectedCount(d.Preferences) >= catalog.MaxPreferences
}

func SwapDistanceComplete(d Data) bool {
	return d.SwapDistance >= MinSwapDistance && d.SwapDistance <= MaxSwapDistance
}

// TradeComplete requires a category, a title, at least one photo and an
// availability day.
func TradeComplete(d Data) bool {
	t := d.Trade
	return strings.TrimSpace(t.Category) != "" &&
		strings.TrimSpace(t.Title) != "" &&
		len(t.Photos) > 0 &&
		strings.TrimSpace(t.Availability.Day) != ""
}
