package identity

import (
	"context"
	"fmt"
	"time"
)

// expirySkew refreshes tokens slightly before they run out.
const expirySkew = time.Minute

// User is a signed-in account. Values are not mutated; a refresh yields a
// new User.
type User struct {
	UID          string    `json:"uid" yaml:"uid"`
	Email        string    `json:"email" yaml:"email"`
	IDToken      string    `json:"-" yaml:"id_token"`
	RefreshToken string    `json:"-" yaml:"refresh_token"`
	ExpiresAt    time.Time `json:"expiresAt" yaml:"expires_at"`
}

type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*User, error)
}

func (u *User) Valid(now time.Time) bool {
	return u != nil && u.IDToken != "" && now.Add(expirySkew).Before(u.ExpiresAt)
}

// Fresh returns u while its ID token is valid, otherwise the refreshed user.
func (u *User) Fresh(ctx context.Context, r Refresher, now time.Time) (*User, error) {
	if u.Valid(now) {
		return u, nil
	}
	if u.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	refreshed, err := r.Refresh(ctx, u.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("refresh token for %s: %w", u.UID, err)
	}
	if refreshed.UID != u.UID {
		return nil, ErrTokenMismatch
	}
	if refreshed.Email == "" {
		refreshed.Email = u.Email
	}
	return refreshed, nil
}
