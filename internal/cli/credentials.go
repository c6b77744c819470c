package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/2beens/fitlog/internal/identity"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// CredentialsFile persists the signed-in user between CLI runs.
type CredentialsFile struct {
	path string
}

func NewCredentialsFile(path string) *CredentialsFile {
	return &CredentialsFile{path: path}
}

// Load returns nil when nobody is signed in.
func (f *CredentialsFile) Load() (*identity.User, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	user := &identity.User{}
	if err := yaml.Unmarshal(data, user); err != nil {
		return nil, fmt.Errorf("parse credentials %s: %w", f.path, err)
	}
	if user.UID == "" {
		return nil, nil
	}
	return user, nil
}

// Save writes u with owner-only permissions. A nil user removes the file.
func (f *CredentialsFile) Save(u *identity.User) error {
	if u == nil {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove credentials: %w", err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	data, err := yaml.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// Subscriber is meant for identity.Cell.Subscribe.
func (f *CredentialsFile) Subscriber() func(*identity.User) {
	return func(u *identity.User) {
		if err := f.Save(u); err != nil {
			log.Errorf("persist credentials: %s", err)
		}
	}
}
