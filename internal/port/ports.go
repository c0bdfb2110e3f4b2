// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service layer
// from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/otd-engine/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// TaxDocumentFetcher retrieves the raw tax-rate document from its source
// (embedded, file, HTTP or S3).
type TaxDocumentFetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
	// Name identifies the source in logs, metrics and cache keys.
	Name() string
}

// TaxResolver resolves a ZIP code to its sales-tax rate. Implementations are total.
type TaxResolver interface {
	Resolve(zip string) domain.TaxResult
}
