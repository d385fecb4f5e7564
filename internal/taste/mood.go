package taste

// Thresholds splitting a liked-song cluster into energy/valence quadrants.
const (
	highEnergyAbove   = 0.6
	highValenceAbove  = 0.5
	acousticAbove     = 0.6
	acousticMoodLabel = " (Acoustic)"
)

type moodQuadrant struct {
	name        string
	description string
}

// moodQuadrants is indexed by quadrantIndex.
var moodQuadrants = [4]moodQuadrant{
	{"Reflective & Melancholy", "Slow, low-valence songs you saved for quiet listening"},
	{"Chill & Happy", "Calm but bright songs from your library, easy background picks"},
	{"Intense & Dark", "Loud, driving songs with a heavier emotional edge"},
	{"Upbeat Party", "Energetic, feel-good songs you keep coming back to for dancing"},
}

func quadrantIndex(energy, valence float64) int {
	i := 0
	if energy > highEnergyAbove {
		i |= 2
	}
	if valence > highValenceAbove {
		i |= 1
	}
	return i
}

// moodName labels a liked-song cluster by its centroid's quadrant.
func moodName(centroid map[string]float64) string {
	name := moodQuadrants[quadrantIndex(centroid["energy"], centroid["valence"])].name
	if centroid["acousticness"] > acousticAbove {
		return name + acousticMoodLabel
	}
	return name
}

// MoodCategory describes the shared mood of a liked-song cluster.
type MoodCategory struct {
	Name        string  `json:"name"`
	Energy      float64 `json:"energy"`
	Valence     float64 `json:"valence"`
	Description string  `json:"description"`
}

// GetMoodCategory classifies a cluster centroid.
func GetMoodCategory(centroid map[string]float64) MoodCategory {
	energy, valence := centroid["energy"], centroid["valence"]
	return MoodCategory{
		Name:        moodName(centroid),
		Energy:      energy,
		Valence:     valence,
		Description: moodQuadrants[quadrantIndex(energy, valence)].description,
	}
}
