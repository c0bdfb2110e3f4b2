package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/otd-engine/internal/domain"
	"github.com/boddenberg/otd-engine/internal/infra/observability"
	"github.com/boddenberg/otd-engine/internal/infra/resilience"
	"github.com/boddenberg/otd-engine/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Options tunes the router.
type Options struct {
	CORSOrigins    []string
	MaxConcurrency int
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(quoteSvc *service.QuoteService, taxSvc *service.TaxService, admin *service.AdminAuth, metrics *observability.Metrics, opts Options, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(taxSvc, logger))
	r.Get("/readyz", readyzHandler(taxSvc, logger))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(ConcurrencyLimitMiddleware(resilience.NewBulkhead(opts.MaxConcurrency), logger))

		r.Get("/catalog", catalogHandler(quoteSvc, logger))
		r.Get("/tax/{zip}", taxLookupHandler(quoteSvc, logger))

		r.Post("/quotes/otd", quoteHandler(quoteSvc, logger))
		r.Post("/quotes/decision", decisionHandler(quoteSvc, logger))
		r.Post("/quotes/decision/compare", compareHandler(quoteSvc, logger))

		r.Get("/loans/payment", loanPaymentHandler(quoteSvc, logger))
		r.Get("/loans/schedule", loanScheduleHandler(quoteSvc, logger))

		r.Get("/metrics/engine", engineMetricsHandler(metrics, logger))

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(admin, logger))
			r.Get("/admin/tax-table", taxTableStatusHandler(taxSvc, logger))
			r.Post("/admin/tax-table/reload", taxTableReloadHandler(taxSvc, logger))
		})
	})

	return r
}

// ============================================================
// Operational handlers
// ============================================================

func healthzHandler(taxSvc *service.TaxService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: observability.ServiceName, Status: "healthy", LastChecked: now},
		}

		overall := "healthy"
		if taxSvc != nil {
			st := taxSvc.Status()
			tax := domain.ServiceHealth{Name: "tax-table", Status: "healthy", Detail: st.Source, LastChecked: now}
			if !st.Loaded {
				tax.Status = "degraded"
				tax.Detail = "estimating with statewide rate"
				overall = "degraded"
			}
			services = append(services, tax)
		}

		writeJSON(w, logger, http.StatusOK, domain.HealthStatus{
			Status:   overall,
			Services: services,
		})
	}
}

// readyzHandler always reports ready: without a tax table the engine still
// quotes, flagging every result as an estimate.
func readyzHandler(taxSvc *service.TaxService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{"status": "ready"}
		if taxSvc != nil {
			st := taxSvc.Status()
			if !st.Loaded {
				resp["status"] = "degraded"
			}
			resp["taxTable"] = st
		}
		writeJSON(w, logger, http.StatusOK, resp)
	}
}

func engineMetricsHandler(metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, metrics.GetEngineSnapshot())
	}
}
