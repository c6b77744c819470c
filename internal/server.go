package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/multierr"

	"github.com/2beens/fitlog/internal/auth"
	"github.com/2beens/fitlog/internal/config"
	"github.com/2beens/fitlog/internal/fitness"
	"github.com/2beens/fitlog/internal/identity"
	"github.com/2beens/fitlog/internal/middleware"
	"github.com/2beens/fitlog/internal/pages"
	"github.com/2beens/fitlog/internal/postgres"
	"github.com/2beens/fitlog/internal/profile"
	"github.com/2beens/fitlog/internal/sessions"
	"github.com/2beens/fitlog/internal/supabase"
	"github.com/2beens/fitlog/internal/telemetry/metrics"
	"github.com/2beens/fitlog/internal/telemetry/tracing"
	"github.com/2beens/fitlog/pkg"
)

// fitnessStore is implemented by both persistence backends.
type fitnessStore interface {
	ListSessions(ctx context.Context, uid string) ([]fitness.Session, error)
	GetSession(ctx context.Context, uid, id string) (*fitness.Session, error)
	CreateSession(ctx context.Context, uid string, in fitness.SessionInput) (*fitness.Session, error)
	UpdateSession(ctx context.Context, uid, id string, in fitness.SessionInput) (*fitness.Session, error)
	DeleteSession(ctx context.Context, uid, id string) error
	GetProfile(ctx context.Context, uid string) (*fitness.Profile, error)
	UpsertProfile(ctx context.Context, uid string, in fitness.ProfileInput) (*fitness.Profile, error)
}

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config *config.Config
	dbPool *pgxpool.Pool // only set for the postgres backend
	store  fitnessStore

	redisClient    *redis.Client
	authService    *auth.Service
	stopKeyRefresh context.CancelFunc

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	SupabaseAnonKey         string
	FirebaseAPIKey          string
	RedisPassword           string
	PostgresPassword        string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "fitlog-backend", rdb)
	if err != nil {
		return nil, err
	}

	tracedHttpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   30 * time.Second,
	}

	s := &Server{
		config:       cfg,
		versionInfo:  params.VersionInfo,
		redisClient:  rdb,
		otelShutdown: otelShutdown,
	}

	var extraCollectors []prometheus.Collector
	if cfg.PersistenceBackend == config.BackendPostgres {
		dbPool, err := postgres.NewPool(ctx, postgres.NewPoolParams{
			Host:           cfg.PostgresHost,
			Port:           cfg.PostgresPort,
			DBName:         cfg.PostgresDBName,
			User:           cfg.PostgresUser,
			Password:       params.PostgresPassword,
			TracingEnabled: params.HoneycombTracingEnabled,
		})
		if err != nil {
			return nil, fmt.Errorf("new db pool: %w", err)
		}
		if err := dbPool.Ping(ctx); err != nil {
			log.Warnf("failed to ping db: %s", err)
		}
		s.dbPool = dbPool
		extraCollectors = append(extraCollectors, postgres.NewPoolCollector(dbPool, cfg.PostgresDBName))
	}

	s.promRegistry = metrics.SetupPrometheus(extraCollectors...)
	s.metricsManager = metrics.NewManager("backend", "main", s.promRegistry)
	s.metricsManager.GaugeLifeSignal.Set(0)

	switch cfg.PersistenceBackend {
	case config.BackendPostgres:
		store := postgres.NewStore(s.dbPool, s.metricsManager)
		if err := store.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate postgres schema: %w", err)
		}
		s.store = store
	default:
		var opts []supabase.Option
		if cfg.SupabaseBearer == config.BearerAnonKey {
			opts = append(opts, supabase.WithAnonKeyBearer())
		}
		s.store = supabase.NewClient(cfg.SupabaseURL, params.SupabaseAnonKey, tracedHttpClient, s.metricsManager, opts...)
	}
	log.Infof("persistence backend: %s", cfg.PersistenceBackend)

	keysCtx, stopKeyRefresh := context.WithCancel(context.Background())
	keys, err := identity.NewRemoteKeys(keysCtx, cfg.IDTokenKeysURL)
	if err != nil {
		stopKeyRefresh()
		return nil, err
	}
	s.stopKeyRefresh = stopKeyRefresh

	s.authService = auth.NewService(
		identity.NewProvider(cfg.IdentityToolkitURL, cfg.SecureTokenURL, params.FirebaseAPIKey, tracedHttpClient),
		identity.NewVerifier(cfg.FirebaseProjectID, keys),
		identity.NewRefreshStore(rdb, identity.DefaultRefreshTTL),
		identity.NewTokenCache(cfg.TokenCacheSizeMB),
		s.metricsManager,
	)

	return s, nil
}

func (s *Server) cookieSettings() auth.CookieSettings {
	return auth.CookieSettings{
		MaxAge: s.config.CookieMaxAgeSeconds,
		Secure: s.config.SecureCookies,
	}
}

func (s *Server) routerSetup() (*mux.Router, error) {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	r.HandleFunc("/", s.handleRoot).Methods("GET").Name("root")

	authRouter := r.PathPrefix("/a").Subrouter()
	authRouter.Use(middleware.RateLimit(
		redis_rate.NewLimiter(s.redisClient),
		"auth",
		s.config.AuthRateLimitAllowedPerMin,
		s.metricsManager,
	))
	auth.NewHandler(s.authService, s.cookieSettings()).SetupRoutes(authRouter)

	sessions.NewHandler(s.store, s.metricsManager).SetupRoutes(r)
	profile.NewHandler(s.store).SetupRoutes(r)

	pagesHandler, err := pages.NewHandler(s.store, s.store)
	if err != nil {
		return nil, fmt.Errorf("pages handler: %w", err)
	}
	pagesHandler.SetupRoutes(r)

	// CORS preflight for any path; the CORS middleware sets the headers
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Name("preflight")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "DELETE").Name("unknown")

	sessionGate := middleware.NewSessionGate(s.authService, s.cookieSettings())

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	r.Use(sessionGate.Handler())
	r.Use(middleware.LimitAndDrainRequest(middleware.DefaultMaxBodyBytes))

	return r, nil
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, fmt.Sprintf("fitlog ok [%s]", s.versionInfo))
}

func (s *Server) Serve(host string, port int) {
	router, err := s.routerSetup()
	if err != nil {
		log.Fatalf("failed to setup router: %s", err)
	}

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.InstrumentMetricHandler(
		s.promRegistry,
		promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}),
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:              metricsAddr,
		Handler:           metricsRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

// GracefulShutdown stops accepting requests, waits up to 15s for in-flight
// ones, then releases Redis, the DB pool and flushes Sentry.
func (s *Server) GracefulShutdown() error {
	log.Debug("graceful shutdown initiated ...")
	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	var errs error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("shutdown http server: %w", err))
		}
		log.Warnln("server shut down")
	}
	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("shutdown metrics http server: %w", err))
		}
		log.Warnln("metrics server shut down")
	}

	if s.otelShutdown != nil {
		s.otelShutdown()
		log.Trace("otel shut down ...")
	}

	if s.stopKeyRefresh != nil {
		s.stopKeyRefresh()
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close redis client: %w", err))
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	return errs
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeOpenConnections.Inc()
	case http.StateClosed:
		s.metricsManager.GaugeOpenConnections.Dec()
	default:
		// do nothing
	}
}
