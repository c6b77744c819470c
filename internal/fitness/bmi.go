package fitness

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type BMICategory string

const (
	BMIUnderweight BMICategory = "Underweight"
	BMINormal      BMICategory = "Normal"
	BMIOverweight  BMICategory = "Overweight"
	BMIObese       BMICategory = "Obese"
)

type BMI struct {
	// Value is rounded to one decimal place.
	Value    float64     `json:"value"`
	Display  string      `json:"display"`
	Category BMICategory `json:"category"`
}

// ComputeBMI returns weight / (height in meters)^2. The category is taken
// from the unrounded value, lower bounds inclusive.
func ComputeBMI(heightCM, weightKG float64) (BMI, bool) {
	if !finite(heightCM) || !finite(weightKG) || heightCM <= 0 || weightKG < 0 {
		return BMI{}, false
	}

	heightM := heightCM / 100
	bmi := weightKG / (heightM * heightM)

	var category BMICategory
	switch {
	case bmi < 18.5:
		category = BMIUnderweight
	case bmi < 25:
		category = BMINormal
	case bmi < 30:
		category = BMIOverweight
	default:
		category = BMIObese
	}

	rounded := math.Round(bmi*10) / 10
	return BMI{
		Value:    rounded,
		Display:  fmt.Sprintf("%.1f", rounded),
		Category: category,
	}, true
}

// ComputeBMIFromStrings works on raw form input; empty or non-numeric
// values yield no result.
func ComputeBMIFromStrings(height, weight string) (BMI, bool) {
	h, ok := parseNumber(height)
	if !ok {
		return BMI{}, false
	}
	w, ok := parseNumber(weight)
	if !ok {
		return BMI{}, false
	}
	return ComputeBMI(h, w)
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(v) {
		return 0, false
	}
	return v, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
