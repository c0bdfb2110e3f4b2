// Package service provides the business logic layer (use cases): tax table
// lifecycle, quote orchestration and the scheduled refresh.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/boddenberg/otd-engine/internal/domain"
	"github.com/boddenberg/otd-engine/internal/infra/observability"
	"github.com/boddenberg/otd-engine/internal/port"
	"github.com/boddenberg/otd-engine/internal/taxrate"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var taxTracer = otel.Tracer("service/tax")

// maxLoggedProblems bounds how many document problems are logged per load.
const maxLoggedProblems = 10

// TaxService owns the active tax table. Lookups never block: until the first
// load completes every ZIP resolves to the statewide estimate. A failed
// refresh keeps the last good table.
type TaxService struct {
	fetcher  port.TaxDocumentFetcher
	cache    port.Cache[[]byte]
	prefixes map[string]string
	metrics  *observability.Metrics
	logger   *zap.Logger

	resolver atomic.Pointer[taxrate.Resolver]
	status   atomic.Pointer[domain.TaxTableStatus]
	group    singleflight.Group
}

// NewTaxService creates a tax service backed by the empty table.
func NewTaxService(fetcher port.TaxDocumentFetcher, cache port.Cache[[]byte], metrics *observability.Metrics, logger *zap.Logger) *TaxService {
	s := &TaxService{
		fetcher:  fetcher,
		cache:    cache,
		prefixes: taxrate.IllinoisPrefixes(),
		metrics:  metrics,
		logger:   logger,
	}
	s.resolver.Store(taxrate.NewResolver(taxrate.EmptyIndex()))
	s.status.Store(&domain.TaxTableStatus{Source: fetcher.Name()})
	return s
}

// Resolve returns the tax rate for zip from the active table.
func (s *TaxService) Resolve(zip string) domain.TaxResult {
	res := s.resolver.Load().Resolve(zip)
	s.metrics.IncrTaxLookup(res.Match)
	return res
}

// Status describes the active table.
func (s *TaxService) Status() domain.TaxTableStatus {
	return *s.status.Load()
}

// Ready reports whether a table has been loaded at least once.
func (s *TaxService) Ready() bool {
	return s.status.Load().Loaded
}

// Load fetches, parses and activates the tax document. Concurrent calls share
// one fetch. When the source fails the cached document is used; when that is
// missing too an *domain.ErrDataUnavailable is returned and the current
// table stays active.
func (s *TaxService) Load(ctx context.Context) (domain.TaxTableStatus, error) {
	v, err, _ := s.group.Do("load", func() (any, error) {
		return s.load(ctx)
	})
	if err != nil {
		return s.Status(), err
	}
	return v.(domain.TaxTableStatus), nil
}

// Run implements the scheduler job interface.
func (s *TaxService) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	_, err := s.Load(ctx)
	return err
}

// Name implements the scheduler job interface.
func (s *TaxService) Name() string { return "tax-table-refresh" }

func (s *TaxService) load(ctx context.Context) (domain.TaxTableStatus, error) {
	ctx, span := taxTracer.Start(ctx, "TaxService.Load")
	defer span.End()
	span.SetAttributes(attribute.String("tax.source", s.fetcher.Name()))

	key := "taxdoc:" + s.fetcher.Name()

	data, err := s.fetcher.Fetch(ctx)
	var doc taxrate.Document
	var problems []string
	if err == nil {
		doc, problems, err = taxrate.ParseDocument(data)
		if err != nil {
			err = fmt.Errorf("parse tax document: %w", err)
		}
	} else {
		s.metrics.IncrExternalError("tax-source")
	}

	fromCache := false
	if err != nil {
		s.logger.Warn("tax source failed, trying cache",
			zap.String("source", s.fetcher.Name()),
			zap.Error(err),
		)
		doc, problems, fromCache = s.fromCache(key)
		if !fromCache {
			span.RecordError(err)
			return s.fail(err)
		}
	} else {
		s.cache.Set(key, data)
	}

	idx, indexProblems := taxrate.NewIndex(doc, s.prefixes)
	problems = append(problems, indexProblems...)
	s.logProblems(problems)

	s.resolver.Store(taxrate.NewResolver(idx))

	st := domain.TaxTableStatus{
		Loaded:      true,
		Source:      s.fetcher.Name(),
		FromCache:   fromCache,
		ChicagoZIPs: idx.ChicagoZIPs(),
		MappedZIPs:  idx.MappedZIPs(),
		Counties:    idx.Counties(),
		LoadedAt:    time.Now().UTC(),
	}
	s.status.Store(&st)

	s.metrics.SetTaxTableSize(st.ChicagoZIPs, st.MappedZIPs, st.Counties)
	if fromCache {
		s.metrics.IncrTaxLoad(observability.LoadCacheFallback)
	} else {
		s.metrics.IncrTaxLoad(observability.LoadSuccess)
	}

	s.logger.Info("tax table loaded",
		zap.String("source", st.Source),
		zap.Bool("from_cache", fromCache),
		zap.Int("chicago_zips", st.ChicagoZIPs),
		zap.Int("mapped_zips", st.MappedZIPs),
		zap.Int("counties", st.Counties),
		zap.Int("problems", len(problems)),
	)
	return st, nil
}

func (s *TaxService) fromCache(key string) (taxrate.Document, []string, bool) {
	data, ok := s.cache.Get(key)
	if !ok {
		s.metrics.IncrCacheMiss("taxdoc")
		return taxrate.Document{}, nil, false
	}
	doc, problems, err := taxrate.ParseDocument(data)
	if err != nil {
		s.metrics.IncrCacheMiss("taxdoc")
		s.cache.Delete(key)
		return taxrate.Document{}, nil, false
	}
	s.metrics.IncrCacheHit("taxdoc")
	return doc, problems, true
}

func (s *TaxService) fail(cause error) (domain.TaxTableStatus, error) {
	s.metrics.IncrTaxLoad(observability.LoadFailure)

	prev := s.Status()
	st := prev
	st.LastError = cause.Error()
	s.status.Store(&st)

	if prev.Loaded {
		s.logger.Error("tax table refresh failed, keeping previous table",
			zap.String("source", s.fetcher.Name()),
			zap.Time("loaded_at", prev.LoadedAt),
			zap.Error(cause),
		)
	} else {
		s.logger.Error("tax table unavailable, resolving every ZIP to the statewide estimate",
			zap.String("source", s.fetcher.Name()),
			zap.Error(cause),
		)
	}

	var dataErr *domain.ErrDataUnavailable
	if errors.As(cause, &dataErr) {
		return st, cause
	}
	return st, &domain.ErrDataUnavailable{Source: s.fetcher.Name(), Err: cause}
}

func (s *TaxService) logProblems(problems []string) {
	for i, p := range problems {
		if i == maxLoggedProblems {
			s.logger.Warn("more tax document problems omitted", zap.Int("total", len(problems)))
			return
		}
		s.logger.Warn("tax document problem", zap.String("problem", p))
	}
}
