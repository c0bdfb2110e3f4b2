package taxsource_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/otd-engine/internal/domain"
	"github.com/boddenberg/otd-engine/internal/infra/resilience"
	"github.com/boddenberg/otd-engine/internal/infra/taxsource"
	"github.com/boddenberg/otd-engine/internal/taxrate"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fastRetry = resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond}

const sampleDoc = `{"chicagoZips":["60601"],"countyRates":{"COOK":0.0825},"defaultRate":0.0625}`

func TestNew_SelectsSource(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		source string
		name   string
	}{
		{"", "embedded"},
		{"embedded", "embedded"},
		{"https://example.com/il.json", "https://example.com/il.json"},
		{"/etc/otd/il.json", "file:/etc/otd/il.json"},
		{"file:///etc/otd/il.json", "file:/etc/otd/il.json"},
	}
	for _, tt := range tests {
		f, err := taxsource.New(ctx, tt.source, taxsource.Options{Logger: zap.NewNop()})
		require.NoError(t, err, tt.source)
		assert.Equal(t, tt.name, f.Name())
	}
}

func TestNew_RejectsBadS3Location(t *testing.T) {
	for _, source := range []string{"s3://", "s3://bucket", "s3://bucket/"} {
		_, err := taxsource.New(context.Background(), source, taxsource.Options{})
		assert.Error(t, err, source)
	}
}

func TestEmbedded(t *testing.T) {
	data, err := taxsource.Embedded{}.Fetch(context.Background())
	require.NoError(t, err)

	doc, problems, err := taxrate.ParseDocument(data)
	require.NoError(t, err)
	assert.Empty(t, problems)
	assert.NotEmpty(t, doc.ChicagoZIPs)
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "il.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDoc), 0o600))

	data, err := taxsource.File{Path: path}.Fetch(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, sampleDoc, string(data))

	_, err = taxsource.File{Path: path + ".missing"}.Fetch(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFile_RejectsOversizedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.json")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte(" "), 8<<20+1), 0o600))

	_, err := taxsource.File{Path: path}.Fetch(context.Background())
	assert.ErrorIs(t, err, taxsource.ErrDocumentTooLarge)
}

func TestHTTP_OversizedDocumentIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write(bytes.Repeat([]byte(" "), 8<<20+1))
	}))
	defer srv.Close()

	f := taxsource.NewHTTP(srv.Client(), srv.URL, resilience.NewCircuitBreaker("test", zap.NewNop()), fastRetry)
	_, err := f.Fetch(context.Background())

	assert.ErrorIs(t, err, taxsource.ErrDocumentTooLarge)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTP_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleDoc))
	}))
	defer srv.Close()

	f := taxsource.NewHTTP(srv.Client(), srv.URL, resilience.NewCircuitBreaker("test", zap.NewNop()), fastRetry)
	data, err := f.Fetch(context.Background())

	require.NoError(t, err)
	assert.JSONEq(t, sampleDoc, string(data))
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTP_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := taxsource.NewHTTP(srv.Client(), srv.URL, resilience.NewCircuitBreaker("test", zap.NewNop()), fastRetry)
	_, err := f.Fetch(context.Background())

	var extErr *domain.ErrExternalService
	require.ErrorAs(t, err, &extErr)
	var nf *domain.ErrNotFound
	assert.ErrorAs(t, err, &nf)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTP_BreakerOpens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := taxsource.NewHTTP(srv.Client(), srv.URL, resilience.NewCircuitBreaker("test", zap.NewNop()), resilience.Config{})
	for i := 0; i < 5; i++ {
		_, _ = f.Fetch(context.Background())
	}

	_, err := f.Fetch(context.Background())
	var open *domain.ErrCircuitOpen
	assert.ErrorAs(t, err, &open)
}

type fakeS3 struct {
	body  string
	err   error
	calls int
	input *s3.GetObjectInput
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.calls++
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewBufferString(f.body))}, nil
}

func TestS3_Fetch(t *testing.T) {
	client := &fakeS3{body: sampleDoc}
	f := taxsource.NewS3WithClient(client, "rates", "il/2026.json", resilience.NewCircuitBreaker("test", zap.NewNop()), fastRetry)

	data, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, sampleDoc, string(data))
	assert.Equal(t, "s3://rates/il/2026.json", f.Name())
	assert.Equal(t, "rates", *client.input.Bucket)
	assert.Equal(t, "il/2026.json", *client.input.Key)
}

func TestS3_MissingKeyIsNotRetried(t *testing.T) {
	client := &fakeS3{err: &types.NoSuchKey{}}
	f := taxsource.NewS3WithClient(client, "rates", "missing.json", resilience.NewCircuitBreaker("test", zap.NewNop()), fastRetry)

	_, err := f.Fetch(context.Background())
	var nf *domain.ErrNotFound
	assert.ErrorAs(t, err, &nf)
	assert.Equal(t, 1, client.calls)
}

func TestS3_TransientErrorsAreRetried(t *testing.T) {
	client := &fakeS3{err: errors.New("connection reset")}
	f := taxsource.NewS3WithClient(client, "rates", "il.json", resilience.NewCircuitBreaker("test", zap.NewNop()), fastRetry)

	_, err := f.Fetch(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 3, client.calls)
}
