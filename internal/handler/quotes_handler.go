package handler

import (
	"net/http"

	"github.com/boddenberg/otd-engine/internal/domain"
	"github.com/boddenberg/otd-engine/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Quotes
// ============================================================

func catalogHandler(svc *service.QuoteService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, svc.Catalog())
	}
}

func quoteHandler(svc *service.QuoteService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/quotes/otd")
		defer span.End()

		var req domain.QuoteRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("zip", req.ZIP))

		quote, err := svc.Quote(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, logger, http.StatusOK, quote)
	}
}

func decisionHandler(svc *service.QuoteService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/quotes/decision")
		defer span.End()

		var req domain.DecisionRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("zip", req.ZIP))

		quote, err := svc.Decide(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("verdict", string(quote.Decision.Verdict)))
		writeJSON(w, logger, http.StatusOK, quote)
	}
}

func compareHandler(svc *service.QuoteService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/quotes/decision/compare")
		defer span.End()

		var req domain.DecisionRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		quote, err := svc.Compare(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, logger, http.StatusOK, quote)
	}
}

// ============================================================
// Loans
// ============================================================

func loanRequest(r *http.Request) (domain.LoanRequest, error) {
	principal, err := queryFloat(r, "principal")
	if err != nil {
		return domain.LoanRequest{}, err
	}
	rate, err := queryFloat(r, "rate")
	if err != nil {
		return domain.LoanRequest{}, err
	}
	term, err := queryInt(r, "term")
	if err != nil {
		return domain.LoanRequest{}, err
	}
	return domain.LoanRequest{Principal: principal, RatePct: rate, TermMonths: term}, nil
}

func loanPaymentHandler(svc *service.QuoteService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/loans/payment")
		defer span.End()

		req, err := loanRequest(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		summary, err := svc.LoanPayment(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, logger, http.StatusOK, summary)
	}
}

func loanScheduleHandler(svc *service.QuoteService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/loans/schedule")
		defer span.End()

		req, err := loanRequest(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		rows, err := svc.LoanSchedule(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, logger, http.StatusOK, map[string]any{
			"principal":  req.Principal,
			"ratePct":    req.RatePct,
			"termMonths": req.TermMonths,
			"schedule":   rows,
		})
	}
}
