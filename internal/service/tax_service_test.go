package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/otd-engine/internal/domain"
	"github.com/boddenberg/otd-engine/internal/infra/cache"
	"github.com/boddenberg/otd-engine/internal/infra/observability"
	"github.com/boddenberg/otd-engine/internal/service"
	"github.com/boddenberg/otd-engine/internal/taxrate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- Mocks ---

type stubFetcher struct {
	mu    sync.Mutex
	data  []byte
	err   error
	calls atomic.Int32
	gate  chan struct{}
	enter chan struct{}
}

func (f *stubFetcher) Name() string { return "stub" }

func (f *stubFetcher) Fetch(ctx context.Context) ([]byte, error) {
	f.calls.Add(1)
	if f.enter != nil {
		f.enter <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data, f.err
}

func (f *stubFetcher) set(data []byte, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data, f.err = data, err
}

func newTaxService(f *stubFetcher) (*service.TaxService, *cache.InMemory[[]byte], *observability.Metrics) {
	c := cache.New[[]byte](0)
	m := observability.NewMetrics()
	return service.NewTaxService(f, c, m, zap.NewNop()), c, m
}

// --- Tests ---

func TestTaxService_EstimatesBeforeLoad(t *testing.T) {
	svc, _, _ := newTaxService(&stubFetcher{})

	res := svc.Resolve("60601")
	assert.True(t, res.IsEstimate)
	assert.Equal(t, taxrate.DefaultStatewideRate, res.Rate)
	assert.False(t, svc.Ready())
	assert.Equal(t, "stub", svc.Status().Source)
}

func TestTaxService_Load(t *testing.T) {
	svc, c, m := newTaxService(&stubFetcher{data: taxrate.DefaultDocumentBytes()})

	st, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Loaded)
	assert.False(t, st.FromCache)
	assert.Positive(t, st.ChicagoZIPs)
	assert.Positive(t, st.Counties)
	assert.True(t, svc.Ready())

	chicago := svc.Resolve("60601")
	assert.Equal(t, 0.095, chicago.Rate)
	assert.False(t, chicago.IsEstimate)

	cook := svc.Resolve("60025")
	assert.Equal(t, 0.0825, cook.Rate)
	assert.Equal(t, "COOK", cook.County)

	_, cached := c.Get("taxdoc:stub")
	assert.True(t, cached)
	assert.Equal(t, int64(2), m.GetEngineSnapshot().TaxLookups)
}

func TestTaxService_FirstLoadFailureDegradesToEstimates(t *testing.T) {
	svc, _, m := newTaxService(&stubFetcher{err: errors.New("connection refused")})

	_, err := svc.Load(context.Background())

	var dataErr *domain.ErrDataUnavailable
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, "stub", dataErr.Source)
	assert.False(t, svc.Ready())
	assert.Contains(t, svc.Status().LastError, "connection refused")
	assert.True(t, svc.Resolve("60025").IsEstimate)
	assert.Equal(t, int64(1), m.GetEngineSnapshot().TaxLoadErrors)
}

func TestTaxService_MalformedDocumentIsAFailure(t *testing.T) {
	svc, _, _ := newTaxService(&stubFetcher{data: []byte("not json")})

	_, err := svc.Load(context.Background())
	var dataErr *domain.ErrDataUnavailable
	assert.ErrorAs(t, err, &dataErr)
	assert.True(t, svc.Resolve("60601").IsEstimate)
}

func TestTaxService_FallsBackToCache(t *testing.T) {
	f := &stubFetcher{err: errors.New("timeout")}
	svc, c, m := newTaxService(f)
	c.Set("taxdoc:stub", taxrate.DefaultDocumentBytes())

	st, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, st.FromCache)
	assert.Equal(t, 0.095, svc.Resolve("60601").Rate)
	assert.Equal(t, 1.0, m.GetEngineSnapshot().CacheHitRate)
}

func TestTaxService_FailedRefreshKeepsLastGoodTable(t *testing.T) {
	f := &stubFetcher{data: taxrate.DefaultDocumentBytes()}
	svc, c, _ := newTaxService(f)

	_, err := svc.Load(context.Background())
	require.NoError(t, err)
	loadedAt := svc.Status().LoadedAt

	c.Delete("taxdoc:stub")
	f.set(nil, errors.New("503"))

	_, err = svc.Load(context.Background())
	require.Error(t, err)

	st := svc.Status()
	assert.True(t, st.Loaded)
	assert.Equal(t, loadedAt, st.LoadedAt)
	assert.Contains(t, st.LastError, "503")
	assert.Equal(t, 0.095, svc.Resolve("60601").Rate)
}

func TestTaxService_ConcurrentLoadsShareOneFetch(t *testing.T) {
	f := &stubFetcher{
		data:  taxrate.DefaultDocumentBytes(),
		gate:  make(chan struct{}),
		enter: make(chan struct{}, 16),
	}
	svc, _, _ := newTaxService(f)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Load(context.Background())
		}()
	}

	<-f.enter
	time.Sleep(50 * time.Millisecond)
	close(f.gate)
	wg.Wait()

	assert.Equal(t, int32(1), f.calls.Load())
	assert.True(t, svc.Ready())
}

func TestTaxService_ResolveDuringReload(t *testing.T) {
	f := &stubFetcher{data: taxrate.DefaultDocumentBytes()}
	svc, _, _ := newTaxService(f)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ctx.Err() == nil {
			_, _ = svc.Load(ctx)
		}
	}()

	for i := 0; i < 2000; i++ {
		res := svc.Resolve("62701")
		require.GreaterOrEqual(t, res.Rate, 0.0)
		require.LessOrEqual(t, res.Rate, 1.0)
	}
	cancel()
	wg.Wait()
}

func TestTaxService_RunAsJob(t *testing.T) {
	svc, _, _ := newTaxService(&stubFetcher{data: taxrate.DefaultDocumentBytes()})
	assert.Equal(t, "tax-table-refresh", svc.Name())
	require.NoError(t, svc.Run())
	assert.True(t, svc.Ready())
}
