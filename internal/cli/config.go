package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	configDirName       = "fitlog"
	configFileName      = "config.yaml"
	credentialsFileName = "credentials.yaml"

	defaultIdentityToolkitURL = "https://identitytoolkit.googleapis.com/v1"
	defaultSecureTokenURL     = "https://securetoken.googleapis.com/v1"
)

// Config is ~/.config/fitlog/config.yaml. FITLOG_* environment variables
// override the file.
type Config struct {
	SupabaseURL        string `yaml:"supabase_url"`
	SupabaseAnonKey    string `yaml:"supabase_anon_key"`
	// send the anon key instead of the ID token, for projects without
	// Firebase as a third-party auth provider
	SupabaseAnonBearer bool   `yaml:"supabase_anon_bearer"`
	FirebaseAPIKey     string `yaml:"firebase_api_key"`
	IdentityToolkitURL string `yaml:"identity_toolkit_url"`
	SecureTokenURL     string `yaml:"secure_token_url"`
}

// DefaultDir is the per-user directory holding the CLI config and the
// stored credentials.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(base, configDirName), nil
}

// LoadConfig reads path; a missing file is not an error since everything
// can come from the environment.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	overrideFromEnv(&cfg.SupabaseURL, "FITLOG_SUPABASE_URL")
	overrideFromEnv(&cfg.SupabaseAnonKey, "FITLOG_SUPABASE_ANON_KEY")
	overrideFromEnv(&cfg.FirebaseAPIKey, "FITLOG_FIREBASE_API_KEY")
	overrideFromEnv(&cfg.IdentityToolkitURL, "FITLOG_IDENTITY_TOOLKIT_URL")
	overrideFromEnv(&cfg.SecureTokenURL, "FITLOG_SECURE_TOKEN_URL")

	if cfg.IdentityToolkitURL == "" {
		cfg.IdentityToolkitURL = defaultIdentityToolkitURL
	}
	if cfg.SecureTokenURL == "" {
		cfg.SecureTokenURL = defaultSecureTokenURL
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.SupabaseURL == "" {
		return errors.New("supabase url not set (supabase_url or FITLOG_SUPABASE_URL)")
	}
	if c.FirebaseAPIKey == "" {
		return errors.New("firebase api key not set (firebase_api_key or FITLOG_FIREBASE_API_KEY)")
	}
	return nil
}

func overrideFromEnv(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}
