package wizard

import "trockle-api/internal/models"

// SelectedCount returns the number of selected preferences.
func SelectedCount(prefs []models.Preference) int {
	n := 0
	for _, p := range prefs {
		if p.Selected {
			n++
		}
	}
	return n
}

// SelectedIDs returns the ids of the selected preferences in list order.
func SelectedIDs(prefs []models.Preference) []string {
	ids := make([]string, 0, len(prefs))
	for _, p := range prefs {
		if p.Selected {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// Toggle flips the selection of the preference with the given id and returns
// the new list. Deselecting always succeeds; selecting succeeds only while
// fewer than limit are selected. An unknown id or a refused selection returns
// the list unchanged with toggled == false. The input slice is not modified.
func Toggle(prefs []models.Preference, id string, limit int) (out []models.Preference, toggled bool) {
	idx := -1
	for i, p := range prefs {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return prefs, false
	}
	if !prefs[idx].Selected && SelectedCount(prefs) >= limit {
		return prefs, false
	}

	out = append([]models.Preference(nil), prefs...)
	out[idx].Selected = !out[idx].Selected
	return out, true
}
