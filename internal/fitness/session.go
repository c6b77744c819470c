package fitness

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO 8601 calendar date used for Session.Date.
const DateLayout = "2006-01-02"

var (
	ErrInvalidSession  = errors.New("invalid session")
	ErrInvalidProfile  = errors.New("invalid profile")
	ErrSessionNotFound = errors.New("session not found")
)

// Session is a persisted workout session row.
type Session struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Title          string     `json:"title"`
	Date           string     `json:"date"`
	Duration       int        `json:"duration"`
	Description    *string    `json:"description,omitempty"`
	CaloriesBurned *float64   `json:"calories_burned,omitempty"`
	Intensity      *string    `json:"intensity,omitempty"`
	Source         *string    `json:"source,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
}

// SessionInput is the writable part of a session. Nil pointers are sent as
// JSON null, so a submitted form always overwrites the whole record.
type SessionInput struct {
	Title          string   `json:"title"`
	Date           string   `json:"date"`
	Duration       int      `json:"duration"`
	Description    string   `json:"description"`
	CaloriesBurned *float64 `json:"calories_burned"`
	Intensity      *string  `json:"intensity"`
	Source         *string  `json:"source"`
}

func (in SessionInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is empty", ErrInvalidSession)
	}
	if in.Duration <= 0 {
		return fmt.Errorf("%w: duration must be a positive number of minutes", ErrInvalidSession)
	}
	if _, err := time.Parse(DateLayout, in.Date); err != nil {
		return fmt.Errorf("%w: date [%s] is not a calendar date", ErrInvalidSession, in.Date)
	}
	if in.CaloriesBurned != nil && *in.CaloriesBurned < 0 {
		return fmt.Errorf("%w: calories must not be negative", ErrInvalidSession)
	}
	if in.Intensity != nil {
		if _, ok := ParseIntensity(*in.Intensity); !ok {
			return fmt.Errorf("%w: unknown intensity [%s]", ErrInvalidSession, *in.Intensity)
		}
	}
	return nil
}

// ParseDate parses a session date in loc. Full timestamps are accepted too,
// since older rows may carry them.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(DateLayout, value, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse session date [%s]: %w", value, err)
	}
	return t, nil
}

type Intensity string

const (
	IntensityLight    Intensity = "Light"
	IntensityModerate Intensity = "Moderate"
	IntensityIntense  Intensity = "Intense"

	DefaultIntensity = IntensityModerate
)

var intensities = []Intensity{IntensityLight, IntensityModerate, IntensityIntense}

func Intensities() []Intensity {
	return append([]Intensity(nil), intensities...)
}

// ParseIntensity matches case-insensitively and returns the canonical spelling.
func ParseIntensity(value string) (Intensity, bool) {
	for _, i := range intensities {
		if strings.EqualFold(string(i), strings.TrimSpace(value)) {
			return i, true
		}
	}
	return "", false
}
