package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/boddenberg/otd-engine/internal/amortization"
	"github.com/boddenberg/otd-engine/internal/catalog"
	"github.com/boddenberg/otd-engine/internal/decision"
	"github.com/boddenberg/otd-engine/internal/domain"
	"github.com/boddenberg/otd-engine/internal/infra/observability"
	"github.com/boddenberg/otd-engine/internal/money"
	"github.com/boddenberg/otd-engine/internal/port"
	"github.com/boddenberg/otd-engine/internal/pricing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var quoteTracer = otel.Tracer("service/quote")

// QuoteService turns API requests into transaction snapshots and runs the
// pricing, amortization and decision engines over them.
type QuoteService struct {
	catalog *catalog.Catalog
	tax     port.TaxResolver
	pricer  *pricing.Engine
	decider *decision.Engine
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewQuoteService creates a quote service over cat.
func NewQuoteService(cat *catalog.Catalog, tax port.TaxResolver, metrics *observability.Metrics, logger *zap.Logger) *QuoteService {
	pricer := pricing.NewEngine(cat.Fees, cat.Terms, cat.RateCard())
	return &QuoteService{
		catalog: cat,
		tax:     tax,
		pricer:  pricer,
		decider: decision.New(tax, pricer),
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Catalog returns the active catalog.
func (s *QuoteService) Catalog() *catalog.Catalog {
	return s.catalog
}

// ResolveTax resolves zip after checking it looks like a ZIP code.
func (s *QuoteService) ResolveTax(ctx context.Context, zip string) (domain.TaxResult, error) {
	_, span := quoteTracer.Start(ctx, "QuoteService.ResolveTax")
	defer span.End()
	span.SetAttributes(attribute.String("zip", zip))

	zip = strings.TrimSpace(zip)
	if zip == "" || len(zip) > 10 {
		return domain.TaxResult{}, &domain.ErrValidation{Field: "zip", Message: "must be a 5-digit ZIP code"}
	}
	return s.tax.Resolve(zip), nil
}

// Quote computes the OTD breakdown with the per-term payment table.
func (s *QuoteService) Quote(ctx context.Context, req *domain.QuoteRequest) (*domain.Quote, error) {
	_, span := quoteTracer.Start(ctx, "QuoteService.Quote")
	defer span.End()
	start := time.Now()

	tx, err := s.Snapshot(req)
	if err != nil {
		return nil, err
	}

	otd := s.pricer.Quote(tx, s.tax.Resolve(tx.ZIP))

	s.metrics.IncrQuote(observability.QuoteKindOTD)
	s.metrics.RecordQuoteDuration("otd", time.Since(start))
	span.SetAttributes(
		attribute.String("tax.match", string(otd.Tax.Match)),
		attribute.Float64("otd", otd.OutTheDoor),
	)

	return &domain.Quote{QuoteID: uuid.NewString(), CreatedAt: s.now().UTC(), OTD: otd}, nil
}

// Decide computes the OTD breakdown and the financing decision for the
// selected term.
func (s *QuoteService) Decide(ctx context.Context, req *domain.DecisionRequest) (*domain.DecisionQuote, error) {
	_, span := quoteTracer.Start(ctx, "QuoteService.Decide")
	defer span.End()
	start := time.Now()

	tx, err := s.Snapshot(&req.QuoteRequest)
	if err != nil {
		return nil, err
	}
	params, err := s.Params(req, tx.SelectedTerm)
	if err != nil {
		return nil, err
	}

	otd, d := s.decider.Decide(tx, params)

	s.metrics.IncrQuote(observability.QuoteKindDecision)
	s.metrics.IncrVerdict(d.Verdict)
	s.metrics.RecordQuoteDuration("decision", time.Since(start))
	span.SetAttributes(
		attribute.Int("term", d.TermMonths),
		attribute.String("verdict", string(d.Verdict)),
	)

	s.logger.Debug("decision computed",
		zap.Int("term", d.TermMonths),
		zap.String("verdict", string(d.Verdict)),
		zap.Float64("advantage", d.FinancingAdvantage),
	)

	return &domain.DecisionQuote{
		QuoteID:   uuid.NewString(),
		CreatedAt: s.now().UTC(),
		OTD:       otd,
		Decision:  d,
	}, nil
}

// Compare computes a decision for every requested term (or every catalog
// term) and marks the one with the best net position.
func (s *QuoteService) Compare(ctx context.Context, req *domain.DecisionRequest) (*domain.ComparisonQuote, error) {
	_, span := quoteTracer.Start(ctx, "QuoteService.Compare")
	defer span.End()
	start := time.Now()

	tx, err := s.Snapshot(&req.QuoteRequest)
	if err != nil {
		return nil, err
	}

	terms := req.Terms
	if len(terms) == 0 {
		terms = s.catalog.Terms
	}
	seen := make(map[int]bool, len(terms))
	for _, t := range terms {
		if err := s.checkTerm("terms", t, tx.SpecialAPRs); err != nil {
			return nil, err
		}
		if seen[t] {
			return nil, &domain.ErrValidation{Field: "terms", Message: fmt.Sprintf("duplicate term %d", t)}
		}
		seen[t] = true
	}

	params, err := s.Params(req, tx.SelectedTerm)
	if err != nil {
		return nil, err
	}

	otd, cmp := s.decider.Compare(tx, params, terms)

	s.metrics.IncrQuote(observability.QuoteKindCompare)
	s.metrics.RecordQuoteDuration("compare", time.Since(start))
	span.SetAttributes(attribute.Int("terms", len(terms)), attribute.Int("best_term", cmp.BestTerm))

	return &domain.ComparisonQuote{
		QuoteID:    uuid.NewString(),
		CreatedAt:  s.now().UTC(),
		OTD:        otd,
		Comparison: cmp,
	}, nil
}

// LoanPayment computes a standalone loan summary.
func (s *QuoteService) LoanPayment(ctx context.Context, req domain.LoanRequest) (domain.LoanSummary, error) {
	_, span := quoteTracer.Start(ctx, "QuoteService.LoanPayment")
	defer span.End()

	if err := validateLoan(req); err != nil {
		return domain.LoanSummary{}, err
	}
	s.metrics.IncrQuote(observability.QuoteKindLoan)
	return amortization.Summarize(req.Principal, req.RatePct, req.TermMonths), nil
}

// LoanSchedule computes the month-by-month amortization schedule.
func (s *QuoteService) LoanSchedule(ctx context.Context, req domain.LoanRequest) ([]domain.Installment, error) {
	_, span := quoteTracer.Start(ctx, "QuoteService.LoanSchedule")
	defer span.End()

	if err := validateLoan(req); err != nil {
		return nil, err
	}
	s.metrics.IncrQuote(observability.QuoteKindLoan)
	return amortization.Schedule(req.Principal, req.RatePct, req.TermMonths), nil
}

// Snapshot normalizes a request into a transaction snapshot. Catalog add-ons
// and discounts are referenced by id; custom items are appended after them.
func (s *QuoteService) Snapshot(req *domain.QuoteRequest) (domain.TransactionSnapshot, error) {
	tx := domain.TransactionSnapshot{
		VehiclePrice: req.VehiclePrice.Float(),
		ZIP:          strings.TrimSpace(req.ZIP),
		TradeValue:   req.TradeValue.Float(),
		TradeOwed:    req.TradeOwed.Float(),
		CreditTier:   strings.ToLower(strings.TrimSpace(req.CreditTier)),
		DownPayment:  req.DownPayment.Float(),
		SelectedTerm: req.SelectedTerm,
	}
	if tx.CreditTier == "" {
		tx.CreditTier = s.catalog.CreditTiers.DefaultTier
	}
	for _, a := range []struct {
		field string
		v     float64
	}{
		{"vehiclePrice", tx.VehiclePrice},
		{"tradeValue", tx.TradeValue},
		{"tradeOwed", tx.TradeOwed},
		{"downPayment", tx.DownPayment},
	} {
		if err := checkAmount(a.field, a.v); err != nil {
			return tx, err
		}
	}

	var err error
	if tx.Addons, err = s.lineItems("addonIds", req.AddonIDs, req.CustomAddons, s.catalog.Addon, true); err != nil {
		return tx, err
	}
	if tx.Discounts, err = s.lineItems("discountIds", req.DiscountIDs, req.CustomDiscounts, s.catalog.Discount, false); err != nil {
		return tx, err
	}

	terms := make(map[int]bool, len(req.SpecialAPRs))
	for i, sp := range req.SpecialAPRs {
		field := fmt.Sprintf("specialAprs[%d]", i)
		if sp.TermMonths <= 0 || sp.TermMonths > amortization.MaxTermMonths {
			return tx, &domain.ErrValidation{Field: field, Message: fmt.Sprintf("termMonths must be between 1 and %d", amortization.MaxTermMonths)}
		}
		if terms[sp.TermMonths] {
			return tx, &domain.ErrValidation{Field: field, Message: fmt.Sprintf("duplicate special for term %d", sp.TermMonths)}
		}
		terms[sp.TermMonths] = true
		if sp.RatePct.Float() > 100 {
			return tx, &domain.ErrValidation{Field: field, Message: "ratePct must be between 0 and 100"}
		}
		tx.SpecialAPRs = append(tx.SpecialAPRs, domain.SpecialAPR{TermMonths: sp.TermMonths, RatePct: sp.RatePct.Float()})
	}

	if tx.SelectedTerm == 0 {
		tx.SelectedTerm = s.defaultTerm()
	}
	if err := s.checkTerm("selectedTerm", tx.SelectedTerm, tx.SpecialAPRs); err != nil {
		return tx, err
	}
	return tx, nil
}

// Params fills decision parameters from the request, falling back to the
// catalog defaults.
func (s *QuoteService) Params(req *domain.DecisionRequest, term int) (domain.DecisionParams, error) {
	def := s.catalog.Decision
	p := domain.DecisionParams{
		SelectedTerm:        term,
		InvestmentReturn:    def.InvestmentReturn,
		CapitalGainsTaxRate: def.CapitalGainsTaxRate,
		ResidualPct:         money.Ptr(req.ResidualPct),
		ResidualByTerm:      def.ResidualByTerm,
		MaintenanceByYear:   def.MaintenanceByYear,
	}
	if req.InvestmentReturn != nil {
		p.InvestmentReturn = req.InvestmentReturn.Float()
	}
	if req.CapitalGainsTaxRate != nil {
		p.CapitalGainsTaxRate = req.CapitalGainsTaxRate.Float()
	}
	if len(req.MaintenanceByYear) > 0 {
		p.MaintenanceByYear = make([]float64, len(req.MaintenanceByYear))
		for i, m := range req.MaintenanceByYear {
			if err := checkAmount(fmt.Sprintf("maintenanceByYear[%d]", i), m.Float()); err != nil {
				return p, err
			}
			p.MaintenanceByYear[i] = m.Float()
		}
	}

	if p.InvestmentReturn > 1 {
		return p, &domain.ErrValidation{Field: "investmentReturn", Message: "must be a decimal rate such as 0.07"}
	}
	if p.CapitalGainsTaxRate > 1 {
		return p, &domain.ErrValidation{Field: "capitalGainsTaxRate", Message: "must be between 0 and 1"}
	}
	if p.ResidualPct != nil && *p.ResidualPct > 1 {
		return p, &domain.ErrValidation{Field: "residualPct", Message: "must be between 0 and 1"}
	}
	return p, nil
}

func (s *QuoteService) lineItems(field string, ids []string, custom []domain.LineItemRequest, lookup func(string) (domain.LineItem, bool), taxable bool) ([]domain.LineItem, error) {
	items := make([]domain.LineItem, 0, len(ids)+len(custom))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if seen[id] {
			return nil, &domain.ErrValidation{Field: field, Message: fmt.Sprintf("duplicate id %q", id)}
		}
		seen[id] = true
		it, ok := lookup(id)
		if !ok {
			return nil, &domain.ErrValidation{Field: field, Message: fmt.Sprintf("unknown id %q", id)}
		}
		items = append(items, it)
	}
	for i, c := range custom {
		if err := checkAmount(fmt.Sprintf("%s[%d].amount", customField(field), i), c.Amount.Float()); err != nil {
			return nil, err
		}
		items = append(items, domain.LineItem{
			ID:      fmt.Sprintf("custom-%d", i+1),
			Name:    c.Name,
			Amount:  c.Amount.Float(),
			Taxable: taxable && c.Taxable,
		})
	}
	return items, nil
}

// checkTerm accepts catalog terms and terms covered by a per-transaction special.
func (s *QuoteService) checkTerm(field string, term int, specials []domain.SpecialAPR) error {
	if term <= 0 || term > amortization.MaxTermMonths {
		return &domain.ErrValidation{Field: field, Message: fmt.Sprintf("must be between 1 and %d months", amortization.MaxTermMonths)}
	}
	if s.catalog.HasTerm(term) {
		return nil
	}
	for _, sp := range specials {
		if sp.TermMonths == term {
			return nil
		}
	}
	return &domain.ErrValidation{Field: field, Message: fmt.Sprintf("term %d is not offered", term)}
}

// defaultTerm is the median offered term.
func (s *QuoteService) defaultTerm() int {
	if len(s.catalog.Terms) == 0 {
		return 0
	}
	return s.catalog.Terms[len(s.catalog.Terms)/2]
}

func customField(idsField string) string {
	if idsField == "discountIds" {
		return "customDiscounts"
	}
	return "customAddons"
}

func checkAmount(field string, v float64) error {
	if !money.InRange(v) {
		return &domain.ErrValidation{Field: field, Message: fmt.Sprintf("must be between 0 and %.0f", money.MaxAmount)}
	}
	return nil
}

func validateLoan(req domain.LoanRequest) error {
	if err := checkAmount("principal", req.Principal); err != nil {
		return err
	}
	if math.IsNaN(req.RatePct) || req.RatePct < 0 || req.RatePct > 100 {
		return &domain.ErrValidation{Field: "rate", Message: "must be between 0 and 100"}
	}
	if req.TermMonths <= 0 || req.TermMonths > amortization.MaxTermMonths {
		return &domain.ErrValidation{Field: "term", Message: fmt.Sprintf("must be between 1 and %d months", amortization.MaxTermMonths)}
	}
	return nil
}
