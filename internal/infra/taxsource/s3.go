package taxsource

import (
	"context"
	"errors"
	"fmt"

	"github.com/boddenberg/otd-engine/internal/domain"
	"github.com/boddenberg/otd-engine/internal/infra/resilience"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
)

// ObjectGetter is the subset of the S3 client used here.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 reads the document from an S3 object.
type S3 struct {
	client ObjectGetter
	bucket string
	key    string
	cb     *gobreaker.CircuitBreaker
	cfg    resilience.Config
}

// NewS3 builds an S3 fetcher from the default AWS credential chain.
func NewS3(ctx context.Context, bucket, key string, opts Options) (*S3, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.AWSRegion != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.AWSRegion))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewS3WithClient(s3.NewFromConfig(awsCfg), bucket, key, opts.Breaker, opts.Retry), nil
}

// NewS3WithClient creates an S3 fetcher around an existing client.
func NewS3WithClient(client ObjectGetter, bucket, key string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *S3 {
	return &S3{client: client, bucket: bucket, key: key, cb: cb, cfg: cfg}
}

func (s *S3) Name() string { return "s3://" + s.bucket + "/" + s.key }

// Fetch downloads the object. A missing key is not retried.
func (s *S3) Fetch(ctx context.Context) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "taxsource.S3.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("s3.bucket", s.bucket), attribute.String("s3.key", s.key))

	result, err := s.cb.Execute(func() (any, error) {
		var body []byte
		innerErr := resilience.RetryWithBackoff(ctx, s.cfg, func() error {
			out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    aws.String(s.key),
			})
			if err != nil {
				var noKey *types.NoSuchKey
				if errors.As(err, &noKey) {
					return resilience.Permanent(&domain.ErrNotFound{Resource: "tax document", ID: s.Name()})
				}
				return err
			}
			defer out.Body.Close()

			body, err = readDocument(out.Body)
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
