package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"

	// BearerIDToken forwards the caller's Firebase ID token to Supabase. The
	// project must list Firebase as a third-party auth provider.
	BearerIDToken = "id_token"
	// BearerAnonKey sends the anon key; rows are scoped by the user_id
	// filter only.
	BearerAnonKey = "anon_key"

	// DefaultIDTokenKeysURL serves the JWK set Firebase signs ID tokens with.
	DefaultIDTokenKeysURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"
)

type Config struct {
	Environment string `toml:"environment"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`

	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// redis, used for refresh tokens and rate limiting
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`

	// persistence
	PersistenceBackend string `toml:"persistence_backend"`
	SupabaseURL        string `toml:"supabase_url"`
	SupabaseBearer     string `toml:"supabase_bearer"`
	PostgresHost       string `toml:"postgres_host"`
	PostgresPort       string `toml:"postgres_port"`
	PostgresDBName     string `toml:"postgres_db_name"`
	PostgresUser       string `toml:"postgres_user"`

	// identity
	FirebaseProjectID  string `toml:"firebase_project_id"`
	IdentityToolkitURL string `toml:"identity_toolkit_url"`
	SecureTokenURL     string `toml:"secure_token_url"`
	IDTokenKeysURL     string `toml:"id_token_keys_url"`
	TokenCacheSizeMB   int    `toml:"token_cache_size_mb"`

	// http
	AllowedOrigins             []string `toml:"allowed_origins"`
	AuthRateLimitAllowedPerMin int      `toml:"auth_rate_limit_allowed_per_min"`
	CookieMaxAgeSeconds        int      `toml:"cookie_max_age_seconds"`
	SecureCookies              bool     `toml:"secure_cookies"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

// Load reads the TOML file at path and returns the table for env with
// defaults applied.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file [%s]: %w", path, err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("config for env [%s] not found in [%s]", env, path)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 9000
	}
	if c.PrometheusMetricsPort == "" {
		c.PrometheusMetricsPort = "2112"
	}
	if c.PersistenceBackend == "" {
		c.PersistenceBackend = BackendSupabase
	}
	if c.IdentityToolkitURL == "" {
		c.IdentityToolkitURL = "https://identitytoolkit.googleapis.com/v1"
	}
	if c.SecureTokenURL == "" {
		c.SecureTokenURL = "https://securetoken.googleapis.com/v1"
	}
	if c.IDTokenKeysURL == "" {
		c.IDTokenKeysURL = DefaultIDTokenKeysURL
	}
	if c.SupabaseBearer == "" {
		c.SupabaseBearer = BearerIDToken
	}
	if c.TokenCacheSizeMB == 0 {
		c.TokenCacheSizeMB = 10
	}
	if c.CookieMaxAgeSeconds == 0 {
		c.CookieMaxAgeSeconds = 3600
	}
	if c.AuthRateLimitAllowedPerMin == 0 {
		c.AuthRateLimitAllowedPerMin = 10
	}
}

func (c *Config) Validate() error {
	if c.FirebaseProjectID == "" {
		return errors.New("firebase_project_id must be set")
	}

	switch c.PersistenceBackend {
	case BackendSupabase:
		if c.SupabaseURL == "" {
			return errors.New("supabase_url must be set for the supabase backend")
		}
		if c.SupabaseBearer != BearerIDToken && c.SupabaseBearer != BearerAnonKey {
			return fmt.Errorf("unknown supabase bearer: %s", c.SupabaseBearer)
		}
	case BackendPostgres:
		if c.PostgresHost == "" || c.PostgresDBName == "" {
			return errors.New("postgres_host and postgres_db_name must be set for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown persistence backend: %s", c.PersistenceBackend)
	}
	return nil
}
