package forms

import (
	"strings"
	"time"

	"github.com/2beens/fitlog/internal/fitness"
)

const (
	// NoPreset is the selector value before anything was chosen.
	NoPreset = ""
	// CustomPreset is the selector value for an entry explicitly not based
	// on any preset.
	CustomPreset = "custom"
)

const defaultDuration = 60

// SessionForm is the editable state behind the new/edit session screens.
type SessionForm struct {
	SelectedPreset string `json:"selectedPreset"`
	Title          string `json:"title"`
	Date           string `json:"date"`
	Duration       int    `json:"duration"`
	Description    string `json:"description"`
	Calories       string `json:"calories"`
	Intensity      string `json:"intensity"`
	Source         string `json:"source"`
	OtherSource    string `json:"otherSource"`
}

func NewSessionForm(today time.Time) SessionForm {
	return SessionForm{
		SelectedPreset: NoPreset,
		Date:           today.Format(fitness.DateLayout),
		Duration:       defaultDuration,
		Intensity:      string(fitness.DefaultIntensity),
		Source:         fitness.SourceManualEntry,
	}
}

// SessionFormFromRecord fills the edit form from a stored session and
// re-detects the preset it was most likely created from.
func SessionFormFromRecord(s fitness.Session) SessionForm {
	form := SessionForm{
		SelectedPreset: NoPreset,
		Title:          s.Title,
		Date:           s.Date,
		Duration:       s.Duration,
		Calories:       formatOptionalNumber(s.CaloriesBurned),
		Intensity:      string(fitness.DefaultIntensity),
	}
	if s.Description != nil {
		form.Description = *s.Description
	}

	storedIntensity := ""
	if s.Intensity != nil {
		storedIntensity = *s.Intensity
		if i, ok := fitness.ParseIntensity(storedIntensity); ok {
			form.Intensity = string(i)
		} else if storedIntensity != "" {
			form.Intensity = storedIntensity
		}
	}

	form.Source, form.OtherSource = splitChoice(
		s.Source, fitness.SourceOptions(), fitness.SourceOther, fitness.SourceManualEntry,
	)

	if p, found := fitness.MatchPresetForSession(s.Title, s.Duration, storedIntensity); found {
		form.SelectedPreset = p.ID
	}

	return form
}

// ApplyPreset overwrites every preset-backed field at once. An unknown id is
// recorded as the selection but leaves the fields untouched.
func (f *SessionForm) ApplyPreset(id string) bool {
	f.SelectedPreset = id
	p, found := fitness.FindPreset(id)
	if !found {
		return false
	}

	source := p.Source
	f.Title = p.Title
	f.Duration = p.Duration
	f.Calories = formatNumber(p.Calories)
	f.Intensity = string(p.Intensity)
	f.Description = p.Description
	f.Source, f.OtherSource = splitChoice(
		&source, fitness.SourceOptions(), fitness.SourceOther, fitness.SourceManualEntry,
	)
	return true
}

// SelectPreset handles the preset selector. Going back to no preset only
// clears the selection; choosing "custom" resets the form to its defaults,
// keeping the date.
func (f *SessionForm) SelectPreset(id string) bool {
	switch id {
	case NoPreset:
		f.SelectedPreset = NoPreset
		return true
	case CustomPreset:
	default:
		return f.ApplyPreset(id)
	}
	date := f.Date
	*f = SessionForm{
		SelectedPreset: CustomPreset,
		Date:           date,
		Duration:       defaultDuration,
		Intensity:      string(fitness.DefaultIntensity),
		Source:         fitness.SourceManualEntry,
	}
	return true
}

// ToInput normalizes the form into the persisted shape and validates it.
func (f SessionForm) ToInput() (fitness.SessionInput, error) {
	in := fitness.SessionInput{
		Title:          strings.TrimSpace(f.Title),
		Date:           strings.TrimSpace(f.Date),
		Duration:       f.Duration,
		Description:    f.Description,
		CaloriesBurned: nonNegative(ParseOptionalNumber(f.Calories)).Ptr(),
		Source:         ResolveChoice(f.Source, fitness.SourceOther, f.OtherSource).Ptr(),
	}

	if intensity := strings.TrimSpace(f.Intensity); intensity != "" {
		if i, ok := fitness.ParseIntensity(intensity); ok {
			intensity = string(i)
		}
		in.Intensity = &intensity
	}

	if err := in.Validate(); err != nil {
		return fitness.SessionInput{}, err
	}
	return in, nil
}
