package forms

import "github.com/2beens/fitlog/internal/fitness"

// ProfileForm is the editable state of the profile screen. Height and
// weight stay raw strings so the BMI preview can follow keystrokes.
type ProfileForm struct {
	Height     string `json:"height"`
	Weight     string `json:"weight"`
	GoalChoice string `json:"goalChoice"`
	CustomGoal string `json:"customGoal"`
}

func NewProfileForm() ProfileForm {
	return ProfileForm{GoalChoice: fitness.GoalMaintainFitness}
}

// ProfileFormFromRecord fills the form from a stored profile; nil means the
// user has none yet.
func ProfileFormFromRecord(p *fitness.Profile) ProfileForm {
	if p == nil {
		return NewProfileForm()
	}
	form := ProfileForm{
		Height: formatOptionalNumber(p.HeightCM),
		Weight: formatOptionalNumber(p.WeightKG),
	}
	form.GoalChoice, form.CustomGoal = splitChoice(
		p.Goal, fitness.GoalOptions(), fitness.GoalCustom, fitness.GoalMaintainFitness,
	)
	return form
}

func (f ProfileForm) ToInput() (fitness.ProfileInput, error) {
	in := fitness.ProfileInput{
		HeightCM: nonNegative(ParseOptionalNumber(f.Height)).Ptr(),
		WeightKG: nonNegative(ParseOptionalNumber(f.Weight)).Ptr(),
		Goal:     ResolveChoice(f.GoalChoice, fitness.GoalCustom, f.CustomGoal).Ptr(),
	}
	if err := in.Validate(); err != nil {
		return fitness.ProfileInput{}, err
	}
	return in, nil
}

// BMI previews the index from the current, possibly unsaved, input.
func (f ProfileForm) BMI() (fitness.BMI, bool) {
	return fitness.ComputeBMIFromStrings(f.Height, f.Weight)
}
