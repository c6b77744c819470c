package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/2beens/fitlog/internal/fitness"
	"github.com/2beens/fitlog/internal/identity"
	"github.com/2beens/fitlog/internal/supabase"

	log "github.com/sirupsen/logrus"
)

var ErrNotSignedIn = errors.New("not signed in, run: fitlog signin")

type identityProvider interface {
	SignIn(ctx context.Context, email, password string) (*identity.User, error)
	SignUp(ctx context.Context, email, password string) (*identity.User, error)
	Refresh(ctx context.Context, refreshToken string) (*identity.User, error)
}

type fitnessStore interface {
	ListSessions(ctx context.Context, uid string) ([]fitness.Session, error)
	GetSession(ctx context.Context, uid, id string) (*fitness.Session, error)
	CreateSession(ctx context.Context, uid string, in fitness.SessionInput) (*fitness.Session, error)
	UpdateSession(ctx context.Context, uid, id string, in fitness.SessionInput) (*fitness.Session, error)
	DeleteSession(ctx context.Context, uid, id string) error
	GetProfile(ctx context.Context, uid string) (*fitness.Profile, error)
	UpsertProfile(ctx context.Context, uid string, in fitness.ProfileInput) (*fitness.Profile, error)
}

// Backends builds the remote collaborators from the loaded config.
type Backends func(cfg *Config) (identityProvider, fitnessStore, error)

// RemoteBackends talks to the Firebase identity REST API and Supabase.
func RemoteBackends(cfg *Config) (identityProvider, fitnessStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	httpClient := &http.Client{Timeout: 30 * time.Second}
	provider := identity.NewProvider(cfg.IdentityToolkitURL, cfg.SecureTokenURL, cfg.FirebaseAPIKey, httpClient)
	var opts []supabase.Option
	if cfg.SupabaseAnonBearer {
		opts = append(opts, supabase.WithAnonKeyBearer())
	}
	store := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, httpClient, nil, opts...)
	return provider, store, nil
}

// App is the state shared by all commands of one CLI run.
type App struct {
	backends Backends
	now      func() time.Time

	configDir string

	provider    identityProvider
	store       fitnessStore
	cell        *identity.Cell
	tokenCache  *identity.TokenCache
	unsubscribe []func()
}

func NewApp(backends Backends) *App {
	return &App{
		backends: backends,
		now:      time.Now,
	}
}

// open loads config and stored credentials and subscribes the credentials
// file and the token cache to the current-user cell.
func (a *App) open() error {
	if a.cell != nil {
		return nil
	}

	dir := a.configDir
	if dir == "" {
		defaultDir, err := DefaultDir()
		if err != nil {
			return err
		}
		dir = defaultDir
	}

	cfg, err := LoadConfig(filepath.Join(dir, configFileName))
	if err != nil {
		return err
	}
	provider, store, err := a.backends(cfg)
	if err != nil {
		return err
	}

	credentialsFile := NewCredentialsFile(filepath.Join(dir, credentialsFileName))
	user, err := credentialsFile.Load()
	if err != nil {
		log.Warnf("ignoring stored credentials: %s", err)
		user = nil
	}

	a.provider = provider
	a.store = store
	a.tokenCache = identity.NewTokenCache(1)
	a.cell = identity.NewCell(user)
	a.unsubscribe = append(a.unsubscribe,
		a.cell.Subscribe(credentialsFile.Subscriber()),
		a.cell.Subscribe(a.tokenCache.Track(user)),
	)
	if user != nil {
		if err := a.tokenCache.Put(user.UID, user.IDToken, user.ExpiresAt); err != nil {
			log.Debugf("cache stored token: %s", err)
		}
	}
	return nil
}

// Close detaches the cell subscribers.
func (a *App) Close() {
	for _, unsubscribe := range a.unsubscribe {
		unsubscribe()
	}
	a.unsubscribe = nil
	if a.cell != nil {
		a.cell.Close()
	}
}

// authorized returns a context carrying valid credentials of the current
// user, refreshing the ID token first when needed.
func (a *App) authorized(ctx context.Context) (context.Context, string, error) {
	current := a.cell.Current()
	if current == nil {
		return nil, "", ErrNotSignedIn
	}

	if token, ok := a.tokenCache.Get(current.UID); ok && current.Valid(a.now()) {
		return identity.WithCredentials(ctx, current.UID, token), current.UID, nil
	}

	fresh, err := current.Fresh(ctx, a.provider, a.now())
	if err != nil {
		if errors.Is(err, identity.ErrNoRefreshToken) || errors.Is(err, identity.ErrTokenMismatch) {
			a.cell.Set(nil)
			return nil, "", ErrNotSignedIn
		}
		return nil, "", fmt.Errorf("refresh session: %w", err)
	}
	if fresh != current {
		a.cell.Set(fresh)
	}
	return identity.WithCredentials(ctx, fresh.UID, fresh.IDToken), fresh.UID, nil
}
