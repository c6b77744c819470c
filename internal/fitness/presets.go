package fitness

import "strings"

// SessionPreset is a build-time template used to pre-fill a session form.
type SessionPreset struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Title       string    `json:"title"`
	Duration    int       `json:"duration"`
	Calories    float64   `json:"calories"`
	Intensity   Intensity `json:"intensity"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
}

var sessionPresets = []SessionPreset{
	{
		ID:          "hiit30",
		Label:       "HIIT 30 — intense intervals",
		Title:       "HIIT Group Blast",
		Duration:    30,
		Calories:    350,
		Intensity:   IntensityIntense,
		Description: "Explosive intervals with minimal rest. Ideal for small group classes focused on speed and power.",
		Source:      "Coach program",
	},
	{
		ID:          "strength45",
		Label:       "Strength 45 — barbell circuit",
		Title:       "Strength Circuit",
		Duration:    45,
		Calories:    420,
		Intensity:   IntensityModerate,
		Description: "Partner-based lifts covering push, pull, and core. Includes timed stations and finisher.",
		Source:      "Gym template",
	},
	{
		ID:          "conditioning60",
		Label:       "Conditioning 60 — endurance team",
		Title:       "Conditioning Crew",
		Duration:    60,
		Calories:    500,
		Intensity:   IntensityModerate,
		Description: "Mixed cardio blocks with sled pushes, rowers, and agility ladders for the whole squad.",
		Source:      "Conditioning board",
	},
}

// Presets returns the catalog in display order.
func Presets() []SessionPreset {
	return append([]SessionPreset(nil), sessionPresets...)
}

func FindPreset(id string) (SessionPreset, bool) {
	for _, p := range sessionPresets {
		if p.ID == id {
			return p, true
		}
	}
	return SessionPreset{}, false
}

// MatchPresetForSession finds the preset a stored session was most likely
// created from. Title and intensity compare case-insensitively, duration
// exactly; an empty intensity is not compared at all. The result is only a
// hint for the edit form.
func MatchPresetForSession(title string, duration int, intensity string) (SessionPreset, bool) {
	for _, p := range sessionPresets {
		if !strings.EqualFold(p.Title, title) || p.Duration != duration {
			continue
		}
		if intensity != "" && !strings.EqualFold(string(p.Intensity), intensity) {
			continue
		}
		return p, true
	}
	return SessionPreset{}, false
}
