package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/2beens/edgetrack/internal/achievements"
	"github.com/2beens/edgetrack/internal/analytics"
	"github.com/2beens/edgetrack/internal/auth"
	"github.com/2beens/edgetrack/internal/checkpoint"
	"github.com/2beens/edgetrack/internal/clock"
	"github.com/2beens/edgetrack/internal/config"
	"github.com/2beens/edgetrack/internal/db"
	"github.com/2beens/edgetrack/internal/middleware"
	"github.com/2beens/edgetrack/internal/misc"
	"github.com/2beens/edgetrack/internal/sessions"
	"github.com/2beens/edgetrack/internal/telemetry/metrics"
	"github.com/2beens/edgetrack/internal/telemetry/tracing"
	"github.com/2beens/edgetrack/internal/timer"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config      *config.Config
	dbPool      *pgxpool.Pool
	redisClient *redis.Client
	checker     *auth.SecretChecker

	sessionsRepo     *sessions.Repo
	achievementsRepo *achievements.Repo
	analyticsService *analytics.Service
	timers           *timer.Registry

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	AppSecret               string
	DBPassword              string
	RedisPassword           string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         cfg.PostgresHost,
		DBPort:         cfg.PostgresPort,
		DBName:         cfg.PostgresDBName,
		DBUser:         cfg.PostgresUser,
		DBPassword:     params.DBPassword,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, dbPool); err != nil {
			return nil, fmt.Errorf("migrate db: %w", err)
		}
		log.Debugln("db schema migrated")
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": cfg.PostgresDBName},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("edgetrack", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})
	if params.HoneycombTracingEnabled {
		rdb.AddHook(redisotel.NewTracingHook())
	}

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "edgetrack-service")
	if err != nil {
		return nil, err
	}

	streakLocation, err := cfg.StreakLocation()
	if err != nil {
		return nil, fmt.Errorf("streak timezone: %w", err)
	}

	sessionsRepo := sessions.NewRepo(dbPool)
	achievementsRepo := achievements.NewRepo(dbPool)

	if added, err := achievements.EnsureCatalog(ctx, achievementsRepo); err != nil {
		log.Errorf("ensure achievement catalog: %s", err)
	} else if added > 0 {
		log.Debugf("achievement catalog: %d added", added)
	}

	systemClock := clock.System{}
	analyticsService := analytics.NewService(analytics.ServiceParams{
		Sessions:     sessionsRepo,
		Achievements: achievementsRepo,
		Clock:        systemClock,
		Metrics:      metricsManager,
		CacheSizeMB:  cfg.AnalyticsCacheSizeMB,
		CacheTTL:     cfg.AnalyticsRefreshInterval.Duration,
		HistoryLimit: cfg.HistoryLimit,
		Location:     streakLocation,
	})
	evaluator := achievements.NewEvaluator(achievementsRepo, sessionsRepo, systemClock, metricsManager)

	checkpointStore := checkpoint.NewStore(rdb, cfg.CheckpointTTL.Duration)
	timers := timer.NewRegistry(timer.RegistryParams{
		Store: sessionsRepo,
		CheckpointFor: func(userID string) timer.Checkpoint {
			return checkpointStore.ForUser(userID)
		},
		Clock:      systemClock,
		Metrics:    metricsManager,
		OnFinished: evaluator.Notices,
		OnChange:   analyticsService.Invalidate,
	})

	return &Server{
		config:           cfg,
		versionInfo:      params.VersionInfo,
		dbPool:           dbPool,
		redisClient:      rdb,
		checker:          auth.NewSecretChecker(params.AppSecret),
		sessionsRepo:     sessionsRepo,
		achievementsRepo: achievementsRepo,
		analyticsService: analyticsService,
		timers:           timers,

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

type routerParams struct {
	miscHandler         *misc.Handler
	timerHandler        *timer.Handler
	sessionsHandler     *sessions.Handler
	analyticsHandler    *analytics.Handler
	achievementsHandler *achievements.Handler

	checker        *auth.SecretChecker
	rateLimiter    middleware.RequestRateLimiter
	metricsManager *metrics.Manager
	allowedOrigins []string
	mutationsLimit int
}

func (s *Server) routerSetup() *mux.Router {
	return newRouter(routerParams{
		miscHandler: misc.NewHandler(s.versionInfo, map[string]misc.Pinger{
			"postgres": s.dbPool.Ping,
			"redis": func(ctx context.Context) error {
				return s.redisClient.Ping(ctx).Err()
			},
		}),
		timerHandler:        timer.NewHandler(s.timers),
		sessionsHandler:     sessions.NewHandler(s.sessionsRepo, s.analyticsService, s.config.HistoryLimit),
		analyticsHandler:    analytics.NewHandler(s.analyticsService),
		achievementsHandler: achievements.NewHandler(s.achievementsRepo),
		checker:             s.checker,
		rateLimiter:         redis_rate.NewLimiter(s.redisClient),
		metricsManager:      s.metricsManager,
		allowedOrigins:      s.config.AllowedOrigins,
		mutationsLimit:      s.config.MutationsAllowedPerMin,
	})
}

func newRouter(params routerParams) *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("edgetrack-router"))

	params.miscHandler.SetupRoutes(r)

	r.HandleFunc("/timer", params.timerHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-timer")
	timerRouter := r.PathPrefix("/timer").Subrouter()
	timerRouter.HandleFunc("/start", params.timerHandler.HandleStart).Methods("POST", "OPTIONS").Name("start-session")
	timerRouter.HandleFunc("/edge/start", params.timerHandler.HandleEdgeStart).Methods("POST", "OPTIONS").Name("start-edge")
	timerRouter.HandleFunc("/edge/end", params.timerHandler.HandleEdgeEnd).Methods("POST", "OPTIONS").Name("end-edge")
	timerRouter.HandleFunc("/finish", params.timerHandler.HandleFinish).Methods("POST", "OPTIONS").Name("finish-session")
	timerRouter.HandleFunc("/reset", params.timerHandler.HandleReset).Methods("POST", "OPTIONS").Name("reset-timer")
	timerRouter.HandleFunc("/abort", params.timerHandler.HandleAbort).Methods("POST", "OPTIONS").Name("abort-timer")
	timerRouter.Use(middleware.RateLimit(params.rateLimiter, "timer", params.mutationsLimit, params.metricsManager))

	r.HandleFunc("/sessions/list/limit/{limit}", params.sessionsHandler.HandleList).Methods("GET", "OPTIONS").Name("list-sessions")
	r.HandleFunc("/sessions/{id}", params.sessionsHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-session")

	r.HandleFunc("/analytics", params.analyticsHandler.HandleAnalytics).Methods("GET", "OPTIONS").Name("analytics")
	r.HandleFunc("/analytics/coaching", params.analyticsHandler.HandleCoaching).Methods("GET", "OPTIONS").Name("coaching")
	r.HandleFunc("/analytics/streak", params.analyticsHandler.HandleStreak).Methods("GET", "OPTIONS").Name("streak")
	r.HandleFunc("/level", params.analyticsHandler.HandleLevel).Methods("GET", "OPTIONS").Name("level")

	r.HandleFunc("/achievements", params.achievementsHandler.HandleList).Methods("GET", "OPTIONS").Name("achievements")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "DELETE", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(params.checker)

	r.Use(middleware.PanicRecovery(params.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(params.metricsManager))
	r.Use(middleware.Cors(params.allowedOrigins))
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) Serve(host string, port int) {
	router := s.routerSetup()

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
		Addr:    metricsAddr,
		Handler: metricsRouter,
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

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	// stop taking requests first, the timers and their stores must outlive them
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	// checkpoints stay in redis, running sessions resume on the next start
	s.timers.Close()

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
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

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
