package fitness

import (
	"fmt"
	"time"
)

// Profile holds the body measurements and training goal of one user.
// There is at most one profile per owner.
type Profile struct {
	UserID    string     `json:"user_id"`
	HeightCM  *float64   `json:"height_cm,omitempty"`
	WeightKG  *float64   `json:"weight_kg,omitempty"`
	Goal      *string    `json:"goal,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type ProfileInput struct {
	HeightCM *float64 `json:"height_cm"`
	WeightKG *float64 `json:"weight_kg"`
	Goal     *string  `json:"goal"`
}

func (in ProfileInput) Validate() error {
	if in.HeightCM != nil && *in.HeightCM < 0 {
		return fmt.Errorf("%w: height must not be negative", ErrInvalidProfile)
	}
	if in.WeightKG != nil && *in.WeightKG < 0 {
		return fmt.Errorf("%w: weight must not be negative", ErrInvalidProfile)
	}
	return nil
}
