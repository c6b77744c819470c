package fitness

import "slices"

const (
	SourceManualEntry = "Manual entry"
	SourceOther       = "Other"

	GoalMaintainFitness = "Maintain fitness"
	GoalCustom          = "Custom"
)

var sourceOptions = []string{
	SourceManualEntry,
	"Apple Health",
	"Fitbit",
	"Garmin",
	"Trainer plan",
	"Coach program",
	"Gym template",
	"Conditioning board",
	SourceOther,
}

var goalOptions = []string{
	"Lose weight",
	"Build muscle",
	"Improve endurance",
	"Increase flexibility",
	GoalMaintainFitness,
	"Rehab / recovery",
	GoalCustom,
}

var (
	durationQuickPicks = []int{30, 45, 60, 75, 90}
	calorieQuickPicks  = []int{250, 350, 450, 550, 650}
)

// SourceOptions lists the session source selector values, "Other" last.
func SourceOptions() []string { return slices.Clone(sourceOptions) }

// GoalOptions lists the profile goal selector values, "Custom" last.
func GoalOptions() []string { return slices.Clone(goalOptions) }

func IsSourceOption(v string) bool { return slices.Contains(sourceOptions, v) }

func IsGoalOption(v string) bool { return slices.Contains(goalOptions, v) }

func DurationQuickPicks() []int { return slices.Clone(durationQuickPicks) }

func CalorieQuickPicks() []int { return slices.Clone(calorieQuickPicks) }
