package catalog

import "testing"

func TestLookups(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string) bool
		in   string
		want bool
	}{
		{"location", HasLocation, "1", true},
		{"location by name", HasLocation, "Yaba", false},
		{"preference", HasPreference, "12", true},
		{"unknown preference", HasPreference, "13", false},
		{"category", HasCategory, "Tools", true},
		{"category is case sensitive", HasCategory, "tools", false},
		{"day", HasDay, "Sunday", true},
		{"abbreviated day", HasDay, "Sun", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.in); got != tt.want {
				t.Errorf("lookup(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNames(t *testing.T) {
	if got := LocationName("2"); got != "Yaba" {
		t.Errorf("LocationName(2) = %q, want Yaba", got)
	}
	if got := LocationName("Ogudu"); got != "Ogudu" {
		t.Errorf("Expected unknown ids to pass through, got %q", got)
	}

	got := PreferenceNames([]string{"5", "99", "1"})
	if len(got) != 2 || got[0] != "PC repair" || got[1] != "Bike repair" {
		t.Errorf("Unexpected preference names: %v", got)
	}
}

func TestPreferencesAreFresh(t *testing.T) {
	prefs := Preferences()
	prefs[0].Selected = true

	if Preferences()[0].Selected {
		t.Error("Expected each call to return an unselected copy")
	}
	for _, p := range prefs[1:] {
		if p.Selected {
			t.Errorf("Expected %s to start unselected", p.ID)
		}
	}
}

func TestAll(t *testing.T) {
	c := All()

	if len(c.Locations) != 7 {
		t.Errorf("Expected 7 locations, got %d", len(c.Locations))
	}
	if len(c.Preferences) != 12 {
		t.Errorf("Expected 12 preferences, got %d", len(c.Preferences))
	}
	if len(c.Days) != 7 || c.Days[0] != "Monday" {
		t.Errorf("Unexpected days: %v", c.Days)
	}

	c.Categories[0] = "Changed"
	if !HasCategory("Books") {
		t.Error("Expected All to return copies")
	}
}
