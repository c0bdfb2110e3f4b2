package taxsource

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/boddenberg/otd-engine/internal/domain"
	"github.com/boddenberg/otd-engine/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
)

// HTTP downloads the document with retry and a circuit breaker.
type HTTP struct {
	httpClient *http.Client
	url        string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewHTTP creates an HTTP fetcher.
func NewHTTP(httpClient *http.Client, url string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *HTTP {
	return &HTTP{httpClient: httpClient, url: url, cb: cb, cfg: cfg}
}

func (c *HTTP) Name() string { return c.url }

// Fetch GETs the document. A 404 is not retried.
func (c *HTTP) Fetch(ctx context.Context) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "taxsource.HTTP.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("http.url", c.url))

	result, err := c.cb.Execute(func() (any, error) {
		var body []byte
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
			if err != nil {
				return resilience.Permanent(err)
			}
			req.Header.Set("Accept", "application/json")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound {
				return resilience.Permanent(&domain.ErrNotFound{Resource: "tax document", ID: c.url})
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("tax source returned status %d", resp.StatusCode)
			}

			body, err = readDocument(resp.Body)
			if errors.Is(err, ErrDocumentTooLarge) {
				return resilience.Permanent(err)
			}
			return err
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return body, nil
	})

	if err != nil {
		span.RecordError(err)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &domain.ErrCircuitOpen{Service: "tax-source"}
		}
		return nil, &domain.ErrExternalService{Service: "tax-source", Err: err}
	}

	return result.([]byte), nil
}
