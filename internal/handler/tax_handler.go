package handler

import (
	"net/http"

	"github.com/boddenberg/otd-engine/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

func taxLookupHandler(svc *service.QuoteService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/tax/{zip}")
		defer span.End()

		res, err := svc.ResolveTax(ctx, chi.URLParam(r, "zip"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("match", string(res.Match)))
		writeJSON(w, logger, http.StatusOK, res)
	}
}

func taxTableStatusHandler(taxSvc *service.TaxService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, taxSvc.Status())
	}
}

// taxTableReloadHandler forces a tax table refresh. A failed refresh keeps
// serving the previous table, so the current status is returned alongside
// the error.
func taxTableReloadHandler(taxSvc *service.TaxService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/tax-table/reload")
		defer span.End()

		logger.Info("tax table reload requested",
			zap.String("subject", AdminSubjectFromContext(ctx)),
		)

		st, err := taxSvc.Load(ctx)
		if err != nil {
			logger.Warn("tax table reload failed", zap.Error(err))
			writeJSON(w, logger, http.StatusServiceUnavailable, map[string]any{
				"error":    err.Error(),
				"taxTable": st,
			})
			return
		}
		writeJSON(w, logger, http.StatusOK, st)
	}
}
