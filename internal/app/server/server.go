package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"facultyleave/internal/domain/audit"
	"facultyleave/internal/domain/auth"
	"facultyleave/internal/domain/balance"
	"facultyleave/internal/domain/ccl"
	"facultyleave/internal/domain/faculty"
	"facultyleave/internal/domain/leave"
	"facultyleave/internal/platform/cache"
	"facultyleave/internal/platform/config"
	"facultyleave/internal/platform/db"
	"facultyleave/internal/platform/metrics"
	"facultyleave/internal/transport/http/api"
	audithandler "facultyleave/internal/transport/http/handlers/audit"
	balancehandler "facultyleave/internal/transport/http/handlers/balance"
	cclhandler "facultyleave/internal/transport/http/handlers/ccl"
	facultyhandler "facultyleave/internal/transport/http/handlers/faculty"
	leavehandler "facultyleave/internal/transport/http/handlers/leave"
	"facultyleave/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	DB      *db.Pool
	Redis   *cache.Redis
	Metrics *metrics.Collector
	Router  http.Handler
}

// Deps is everything the router needs. Idempotency may be nil, which disables replay.
type Deps struct {
	Leave       *leave.Service
	CCL         *ccl.Service
	Faculty     *faculty.Service
	Balances    balancehandler.Service
	Audit       audithandler.Service
	Perms       middleware.PermissionStore
	Idempotency middleware.IdempotencyCache
	Metrics     *metrics.Collector
	Ready       func(ctx context.Context) error
}

// New connects the backends, prepares the schema and builds the router.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	approvers, err := cfg.Approvers()
	if err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	redisCache, err := cache.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if redisCache == nil {
		slog.Info("redis not configured; faculty cache and idempotent replay disabled")
	}

	collector := metrics.New()

	facultySvc := faculty.NewService(faculty.NewStore(pool), nil, cfg.FacultyCacheTTL)
	balanceSvc := balance.NewService(balance.NewStore(pool))
	deps := Deps{
		Faculty:  facultySvc,
		Balances: balanceSvc,
		Audit:    audit.New(pool),
		Perms:    auth.StaticPermissions{},
		Metrics:  collector,
	}
	// Interfaces only get the cache when it exists; a nil *cache.Redis is not a nil interface.
	if redisCache != nil {
		facultySvc.Cache = redisCache
		deps.Idempotency = redisCache
	}

	leaveSvc := leave.NewService(
		leave.NewStore(pool),
		balanceSvc,
		facultySvc,
		facultySvc,
		leave.NewWorkflow(approvers, time.Now),
		leave.Limits{BackdateDays: cfg.LeaveBackdateDays, MaxSpanDays: cfg.LeaveMaxSpanDays},
	)
	leaveSvc.Institution = cfg.LetterInstitutionName
	leaveSvc.Observer = collector
	deps.Leave = leaveSvc

	cclSvc := ccl.NewService(ccl.NewStore(pool), approvers, cfg.CCLWorkCreditDays)
	cclSvc.Observer = collector
	deps.CCL = cclSvc

	deps.Ready = func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("db: %w", err)
		}
		if redisCache != nil {
			if err := redisCache.Ping(ctx); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	}

	return &App{
		Config:  cfg,
		DB:      pool,
		Redis:   redisCache,
		Metrics: collector,
		Router:  NewRouter(cfg, deps),
	}, nil
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			slog.Warn("redis close failed", "err", err)
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

func NewRouter(cfg config.Config, deps Deps) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(deps.Metrics))
	router.Use(chimw.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-Match", "X-Request-ID", middleware.IdempotencyHeader},
		ExposedHeaders:   []string{"X-Request-ID", "X-Total-Count", "Idempotent-Replay", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if deps.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Ready(ctx); err != nil {
				slog.Warn("readiness check failed", "err", err)
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		if deps.Metrics == nil {
			api.Success(w, map[string]any{}, middleware.GetRequestID(r.Context()))
			return
		}
		api.Success(w, deps.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.WorkflowMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.Idempotency(deps.Idempotency, cfg.IdempotencyTTL))

		leavehandler.NewHandler(deps.Leave, deps.Perms).RegisterRoutes(r)
		cclhandler.NewHandler(deps.CCL, deps.Perms).RegisterRoutes(r)
		facultyhandler.NewHandler(deps.Faculty, deps.Perms).RegisterRoutes(r)
		balancehandler.NewHandler(deps.Balances, deps.Faculty, deps.Perms).RegisterRoutes(r)
		audithandler.NewHandler(deps.Audit, deps.Perms).RegisterRoutes(r)
	})

	return router
}

// Run serves until SIGINT or SIGTERM, then drains in-flight requests.
func Run() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("shutdown failed", "err", err)
		}
	}()

	slog.Info("facultyleave server listening", "addr", cfg.Addr, "env", cfg.Environment)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server failed: %v", err)
	}
}
