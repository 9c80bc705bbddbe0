// Package catalog holds the static choices shown during onboarding and
// trade creation.
package catalog

import "trockle-api/internal/models"

// MaxPreferences is the number of preference tags a user may select.
const MaxPreferences = 3

var locations = []models.Location{
	{ID: "1", Name: "Ikeja, Lagos"},
	{ID: "2", Name: "Yaba"},
	{ID: "3", Name: "VI"},
	{ID: "4", Name: "Surulere"},
	{ID: "5", Name: "Lekki"},
	{ID: "6", Name: "Ikoyi"},
	{ID: "7", Name: "Ajah"},
}

var preferences = []models.Preference{
	{ID: "1", Name: "Bike repair"},
	{ID: "2", Name: "Books"},
	{ID: "3", Name: "Tools"},
	{ID: "4", Name: "Clothes"},
	{ID: "5", Name: "PC repair"},
	{ID: "6", Name: "Babysitting"},
	{ID: "7", Name: "Tutoring"},
	{ID: "8", Name: "Cleaning"},
	{ID: "9", Name: "Surplus"},
	{ID: "10", Name: "Homemade dishes"},
	{ID: "11", Name: "Dry goods"},
	{ID: "12", Name: "Small appliances"},
}

var categories = []string{
	"Books",
	"Tools",
	"Clothes",
	"Small appliances",
	"Babysitting",
	"Film music",
	"Film repair",
	"Cleaning",
	"Homemade delicacy",
	"Surplus",
	"Dry goods",
}

var days = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Locations returns a copy of the selectable locations.
func Locations() []models.Location {
	return append([]models.Location(nil), locations...)
}

// Preferences returns a fresh, fully deselected preference list.
func Preferences() []models.Preference {
	return append([]models.Preference(nil), preferences...)
}

// Categories returns a copy of the trade categories.
func Categories() []string {
	return append([]string(nil), categories...)
}

// Days returns a copy of the weekday names.
func Days() []string {
	return append([]string(nil), days...)
}

func HasLocation(id string) bool {
	for _, l := range locations {
		if l.ID == id {
			return true
		}
	}
	return false
}

func HasPreference(id string) bool {
	for _, p := range preferences {
		if p.ID == id {
			return true
		}
	}
	return false
}

func HasCategory(name string) bool {
	for _, c := range categories {
		if c == name {
			return true
		}
	}
	return false
}

func HasDay(day string) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

// LocationName resolves a location id. Unknown ids resolve to themselves.
func LocationName(id string) string {
	for _, l := range locations {
		if l.ID == id {
			return l.Name
		}
	}
	return id
}

// PreferenceNames resolves preference ids, keeping their order and
// dropping unknown ids.
func PreferenceNames(ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		for _, p := range preferences {
			if p.ID == id {
				names = append(names, p.Name)
				break
			}
		}
	}
	return names
}

// All returns the complete catalog.
func All() models.Catalog {
	return models.Catalog{
		Locations:   Locations(),
		Preferences: Preferences(),
		Categories:  Categories(),
		Days:        Days(),
	}
}
