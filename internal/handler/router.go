package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/budget-sync-go/internal/budget"
	"github.com/boddenberg/budget-sync-go/internal/infra/cache"
	"github.com/boddenberg/budget-sync-go/internal/infra/observability"
	"github.com/boddenberg/budget-sync-go/internal/syncengine"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
// Every /v1 route is JWT-protected; the authenticated subject selects
// the per-user session.
func NewRouter(sessions *syncengine.Manager, jwtSecret string, claims *cache.InMemory[string], metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(JWTAuthMiddleware(jwtSecret, claims, metrics, logger))

		r.Route("/budget", func(r chi.Router) {
			r.Get("/", getBudgetHandler(sessions, logger))

			r.Route("/months/{month}", func(r chi.Router) {
				r.Get("/", getMonthHandler(sessions, logger))

				r.Route("/incomes", func(r chi.Router) {
					r.Post("/", addEntryHandler(sessions, budget.ListIncomes, logger))
					r.Put("/order", reorderEntriesHandler(sessions, budget.ListIncomes, logger))
					r.Put("/{id}", editEntryHandler(sessions, budget.ListIncomes, logger))
					r.Delete("/{id}", deleteEntryHandler(sessions, budget.ListIncomes, logger))
				})
				r.Route("/expenses", func(r chi.Router) {
					r.Post("/", addEntryHandler(sessions, budget.ListExpenses, logger))
					r.Put("/order", reorderEntriesHandler(sessions, budget.ListExpenses, logger))
					r.Put("/{id}", editEntryHandler(sessions, budget.ListExpenses, logger))
					r.Delete("/{id}", deleteEntryHandler(sessions, budget.ListExpenses, logger))
				})
			})

			r.Route("/subscriptions", func(r chi.Router) {
				r.Post("/", addSubscriptionHandler(sessions, logger))
				r.Delete("/{id}", deleteSubscriptionHandler(sessions, logger))
			})

			r.Route("/categories", func(r chi.Router) {
				r.Post("/", addCategoryHandler(sessions, logger))
				r.Put("/{id}", editCategoryHandler(sessions, logger))
				r.Delete("/{id}", deleteCategoryHandler(sessions, logger))
				r.Post("/{id}/toggle/{month}", toggleCategoryHandler(sessions, logger))
			})

			r.Route("/dynamic-expenses", func(r chi.Router) {
				r.Post("/", addDynamicExpenseHandler(sessions, logger))
				r.Put("/{id}", editDynamicExpenseHandler(sessions, logger))
				r.Delete("/{id}", deleteDynamicExpenseHandler(sessions, logger))
			})
		})

		r.Post("/session/signout", signoutHandler(sessions, logger))
	})

	return r
}

// ============================================================
// Probes
// ============================================================

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":    "healthy",
			"checkedAt": time.Now().Format(time.RFC3339),
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
