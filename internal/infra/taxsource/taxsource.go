// Package taxsource fetches the raw tax-rate document. Supported sources are
// the embedded default, a local file, an HTTP(S) URL and an S3 object.
package taxsource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/boddenberg/otd-engine/internal/infra/resilience"
	"github.com/boddenberg/otd-engine/internal/port"
	"github.com/boddenberg/otd-engine/internal/taxrate"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("taxsource")

// maxDocumentBytes caps tax documents from every source.
const maxDocumentBytes = 8 << 20

// ErrDocumentTooLarge is returned for documents over the size cap.
var ErrDocumentTooLarge = fmt.Errorf("tax document exceeds %d bytes", maxDocumentBytes)

// readDocument reads r up to the size cap.
func readDocument(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxDocumentBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxDocumentBytes {
		return nil, ErrDocumentTooLarge
	}
	return data, nil
}

// Options configures remote sources.
type Options struct {
	HTTPClient *http.Client
	Breaker    *gobreaker.CircuitBreaker
	Retry      resilience.Config
	AWSRegion  string
	Logger     *zap.Logger
}

// New selects a fetcher from source: "" or "embedded", "http(s)://...",
// "s3://bucket/key", or a file path (optionally prefixed with "file://").
func New(ctx context.Context, source string, opts Options) (port.TaxDocumentFetcher, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Breaker == nil {
		opts.Breaker = resilience.NewCircuitBreaker("tax-source", opts.Logger)
	}

	source = strings.TrimSpace(source)
	switch {
	case source == "" || source == "embedded":
		return Embedded{}, nil
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return NewHTTP(opts.HTTPClient, source, opts.Breaker, opts.Retry), nil
	case strings.HasPrefix(source, "s3://"):
		bucket, key, err := parseS3URL(source)
		if err != nil {
			return nil, err
		}
		return NewS3(ctx, bucket, key, opts)
	default:
		return File{Path: strings.TrimPrefix(source, "file://")}, nil
	}
}

// Embedded serves the document compiled into the binary.
type Embedded struct{}

func (Embedded) Name() string { return "embedded" }

func (Embedded) Fetch(context.Context) ([]byte, error) {
	return taxrate.DefaultDocumentBytes(), nil
}

// File reads the document from the local filesystem.
type File struct {
	Path string
}

func (f File) Name() string { return "file:" + f.Path }

func (f File) Fetch(ctx context.Context) ([]byte, error) {
	_, span := tracer.Start(ctx, "taxsource.File.Fetch")
	defer span.End()

	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read tax document: %w", err)
	}
	defer file.Close()

	data, err := readDocument(file)
	if err != nil {
		return nil, fmt.Errorf("read tax document: %w", err)
	}
	return data, nil
}

func parseS3URL(raw string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(raw, "s3://")
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid S3 location %q: want s3://bucket/key", raw)
	}
	return bucket, key, nil
}
