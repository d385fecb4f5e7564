package recommend

import "fmt"

var moodNames = map[string]string{
	"energetic":   "Energizing",
	"relaxed":     "Chill",
	"focused":     "Focus",
	"melancholic": "Reflective",
	"happy":       "Upbeat",
}

var activityNames = map[string]string{
	"working":    "Work",
	"exercising": "Workout",
	"relaxing":   "Relaxation",
	"commuting":  "Commute",
	"partying":   "Party",
}

var tempoDescriptions = map[string]string{
	"energetic": "high-energy",
	"moderate":  "mid-tempo",
	"slow":      "downtempo",
	"varied":    "dynamic",
}

// PlaylistName returns the generated name for a mood and activity, e.g.
// "Upbeat Work". Unknown values fall back to "Custom" and "Mix".
func PlaylistName(mood, activity string) string {
	m, ok := moodNames[mood]
	if !ok {
		m = "Custom"
	}
	a, ok := activityNames[activity]
	if !ok {
		a = "Mix"
	}
	return m + " " + a
}

// Description returns the generated description for a recommendation.
func Description(mood, activity, tempo string) string {
	t, ok := tempoDescriptions[tempo]
	if !ok {
		t = "custom"
	}
	return fmt.Sprintf("A %s playlist designed for %s when you're feeling %s.", t, activity, mood)
}
