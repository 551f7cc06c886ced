package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/patternops/governor/internal/api/handlers"
	mw "github.com/patternops/governor/internal/api/middleware"
	"github.com/patternops/governor/internal/buildconfig"
	"github.com/patternops/governor/internal/config"
	"github.com/patternops/governor/internal/domain"
	"github.com/patternops/governor/internal/service"
	"github.com/patternops/governor/internal/store"
	"go.uber.org/zap"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router       *chi.Mux
	Projector    *service.KillSwitchService
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	// Stores
	patternStore := store.NewPatternStore(db)
	transitionStore := store.NewTransitionStore(db)
	attributionStore := store.NewAttributionStore(db)
	eventStore := store.NewDisableEventStore(db)

	gates := service.GateConfig{
		ProvisionalTierFloor:    domain.EvidenceTier(config.ProvisionalTierFloor()),
		ValidatedTierFloor:      domain.EvidenceTier(config.ValidatedTierFloor()),
		ProvisionalQualityFloor: config.ProvisionalQualityFloor(),
		ValidatedQualityFloor:   config.ValidatedQualityFloor(),
		MinDistinctDays:         config.MinDistinctDays(),
		FailureCeiling:          config.FailureCeiling(),
		DecayQualityFloor:       config.DecayQualityFloor(),
		DecayMinResolved:        config.DecayMinResolved(),
	}

	// Services
	lifecycleSvc := service.NewLifecycleService(patternStore, transitionStore, gates, logger)
	metricsSvc := service.NewMetricsService(patternStore, lifecycleSvc, logger)
	lineageSvc := service.NewLineageService(patternStore, logger)
	attributionSvc := service.NewAttributionService(attributionStore, patternStore, lifecycleSvc, service.NewHeuristicTierPolicy(), logger)
	killSwitchSvc := service.NewKillSwitchService(eventStore, logger)
	killSwitchSvc.SetInterval(config.ProjectorInterval())
	eligibilitySvc := service.NewEligibilityService(patternStore, killSwitchSvc)
	patternSvc := service.NewPatternService(patternStore, logger)

	// Handlers
	patternHandler := handlers.NewPatternHandler(patternSvc, lifecycleSvc, lineageSvc)
	outcomeHandler := handlers.NewOutcomeHandler(metricsSvc)
	attributionHandler := handlers.NewAttributionHandler(attributionSvc)
	killSwitchHandler := handlers.NewKillSwitchHandler(killSwitchSvc)
	eligibilityHandler := handlers.NewEligibilityHandler(eligibilitySvc)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Projector: killSwitchSvc,
		startTime: time.Now(),
	}

	counter := mw.NewRequestCounter(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(counter.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	// Health (no auth)
	r.Get("/health", healthHandler(db))

	// Metrics (no auth)
	r.Get("/metrics", app.metricsHandler())

	// Authenticated routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(config.APIKey()))

		r.Route("/patterns", func(r chi.Router) {
			r.Post("/", patternHandler.Register)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", patternHandler.GetByID)
				r.Delete("/", patternHandler.Delete)
				r.Post("/versions", patternHandler.CreateVersion)
				r.Get("/transitions", patternHandler.Transitions)
			})
		})

		r.Post("/outcomes", outcomeHandler.RecordOutcome)
		r.Post("/injections", outcomeHandler.RecordInjection)

		r.Route("/attributions", func(r chi.Router) {
			r.Post("/", attributionHandler.Bind)
			r.Post("/recompute", attributionHandler.RecomputeTier)
		})

		r.Route("/killswitch", func(r chi.Router) {
			r.Post("/events", killSwitchHandler.Append)
			r.Get("/state", killSwitchHandler.State)
		})

		r.Get("/eligible", eligibilityHandler.List)
	})

	return app
}

// NewRouter returns just the chi.Mux for callers that manage no workers.
func NewRouter(db *pgxpool.Pool, logger *zap.Logger) *chi.Mux {
	return NewApp(db, logger).Router
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
			"build":      buildconfig.VersionInfo(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores satisfy the domain interfaces at compile time.
var (
	_ domain.PatternStore      = (*store.PatternStore)(nil)
	_ domain.TransitionStore   = (*store.TransitionStore)(nil)
	_ domain.AttributionStore  = (*store.AttributionStore)(nil)
	_ domain.DisableEventStore = (*store.DisableEventStore)(nil)
)
