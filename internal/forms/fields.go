package forms

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/2beens/fitlog/internal/fitness"
)

// ParseOptionalNumber reads a numeric input field. A blank field is empty,
// anything that does not parse as a finite number is absent.
func ParseOptionalNumber(s string) fitness.Optional[float64] {
	s = strings.TrimSpace(s)
	if s == "" {
		return fitness.Empty[float64]()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fitness.Absent[float64]()
	}
	return fitness.Some(v)
}

// nonNegative clamps a set value to zero from below.
func nonNegative(o fitness.Optional[float64]) fitness.Optional[float64] {
	if v, ok := o.Get(); ok && v < 0 {
		return fitness.Some(0.0)
	}
	return o
}

// ResolveChoice maps a selector and its free-text companion to the stored
// value. The escape choice takes the companion text verbatim, and an empty
// result is stored as empty.
func ResolveChoice(choice, escape, companion string) fitness.Optional[string] {
	value := choice
	if choice == escape {
		value = companion
	}
	if value == "" {
		return fitness.Empty[string]()
	}
	return fitness.Some(value)
}

// splitChoice is the reverse of ResolveChoice: a known option selects
// itself, an unknown value selects escape with the value as companion, and
// nothing stored selects fallback.
func splitChoice(value *string, options []string, escape, fallback string) (choice, companion string) {
	if value == nil || *value == "" {
		return fallback, ""
	}
	if slices.Contains(options, *value) {
		return *value, ""
	}
	return escape, *value
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptionalNumber(v *float64) string {
	if v == nil {
		return ""
	}
	return formatNumber(*v)
}
