/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address behind proxies
  3. Logger:     Request logging through zap
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/quotas/*          Quotas, schedules, payments, credit usages
  /api/credit-usages/*   Credit usage deletion
  /api/indices/*         Correction index table
  /api/administrators/*  Administrators
  /api/companies/*       Companies
  /api/reports/*         Dashboard and reports
  /api/scenarios/*       Demo portfolios (dev only)
  /healthz               Liveness

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/consorcio/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// DefaultAllowedOrigins is used when no origins are configured.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = DefaultAllowedOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/quotas", func(r chi.Router) {
			r.Get("/", h.ListQuotas)
			r.Post("/", h.CreateQuota)
			r.Get("/{id}", h.GetQuota)
			r.Put("/{id}", h.UpdateQuota)
			r.Delete("/{id}", h.DeleteQuota)
			r.Get("/{id}/schedule", h.GetSchedule)
			r.Get("/{id}/credit-value", h.GetCreditValue)
			r.Put("/{id}/payments/{n}", h.RecordPayment)
			r.Delete("/{id}/payments/{n}", h.ClearPayment)
			r.Get("/{id}/credit-usages", h.ListCreditUsages)
			r.Post("/{id}/credit-usages", h.AddCreditUsage)
		})

		r.Route("/credit-usages", func(r chi.Router) {
			r.Delete("/{id}", h.DeleteCreditUsage)
		})

		r.Route("/indices", func(r chi.Router) {
			r.Get("/", h.ListIndices)
			r.Post("/", h.CreateIndex)
			r.Put("/{id}", h.UpdateIndex)
			r.Delete("/{id}", h.DeleteIndex)
		})

		r.Route("/administrators", func(r chi.Router) {
			r.Get("/", h.ListAdministrators)
			r.Post("/", h.CreateAdministrator)
			r.Delete("/{id}", h.DeleteAdministrator)
		})

		r.Route("/companies", func(r chi.Router) {
			r.Get("/", h.ListCompanies)
			r.Post("/", h.CreateCompany)
			r.Delete("/{id}", h.DeleteCompany)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/dashboard", h.GetDashboard)
			r.Get("/monthly", h.GetMonthlyReport)
			r.Get("/credit", h.GetCreditReport)
			r.Get("/credit-usage", h.GetCreditUsageReport)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}

// requestLogger logs one line per request at Info, or Warn for 5xx.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				fields := []zap.Field{
					zap.String("op", "api.request"),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				}
				if ww.Status() >= http.StatusInternalServerError {
					logger.Warn("request", fields...)
					return
				}
				logger.Info("request", fields...)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
