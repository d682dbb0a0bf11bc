// Package storage uploads generated artifacts to S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/helixir/integrations-worker/internal/domain"
	"github.com/helixir/integrations-worker/internal/observability"
)

// ErrMissingBucket is returned when no destination bucket is configured.
var ErrMissingBucket = errors.New("storage: bucket is required")

// Config holds uploader settings.
type Config struct {
	// Endpoint overrides the S3 endpoint, e.g. an R2 account URL.
	Endpoint string
	// Region is the signing region. R2 uses "auto".
	Region string
	// Bucket is the destination bucket.
	Bucket string
	// PublicBaseURL prefixes returned object URLs.
	// Empty means https://<bucket>.s3.amazonaws.com.
	PublicBaseURL   string
	AccessKeyID     string
	SecretAccessKey string
}

// ObjectPutter is the subset of the S3 client used by Uploader.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader writes objects to a single bucket.
type Uploader struct {
	client  ObjectPutter
	bucket  string
	baseURL string
	metrics *observability.Metrics
}

// New builds an S3 client from cfg. Static credentials are used when both
// keys are set; otherwise the default AWS credential chain applies. A custom
// endpoint switches to path-style addressing.
func New(ctx context.Context, cfg Config, metrics *observability.Metrics) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, ErrMissingBucket
	}
	if cfg.Region == "" {
		cfg.Region = "auto"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithClient(client, cfg.Bucket, cfg.PublicBaseURL, metrics), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client ObjectPutter, bucket, publicBaseURL string, metrics *observability.Metrics) *Uploader {
	if publicBaseURL == "" {
		publicBaseURL = fmt.Sprintf("https://%s.s3.amazonaws.com", bucket)
	}
	return &Uploader{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		metrics: metrics,
	}
}

// Bucket returns the destination bucket.
func (u *Uploader) Bucket() string { return u.bucket }

// Upload stores body under key and returns where it can be fetched.
func (u *Uploader) Upload(ctx context.Context, key string, body []byte, contentType string) (*domain.PDFUpload, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" || path.Clean(key) != key {
		return nil, domain.NewFieldError("key", fmt.Sprintf("%q is not a clean object key", key))
	}

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return nil, fmt.Errorf("put s3://%s/%s: %w", u.bucket, key, err)
	}

	u.metrics.RecordUpload(prefixOf(key), int64(len(body)))
	return &domain.PDFUpload{
		Bucket:    u.bucket,
		Key:       key,
		URL:       u.URL(key),
		SizeBytes: int64(len(body)),
	}, nil
}

// URL returns the public URL of key.
func (u *Uploader) URL(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return u.baseURL + "/" + strings.Join(segments, "/")
}

// ObjectKey joins a prefix and a file name into an object key with the given
// extension, e.g. ObjectKey("pdfs", "report", ".pdf") == "pdfs/report.pdf".
// Names with no usable base become "untitled".
func ObjectKey(prefix, name, ext string) string {
	name = strings.Trim(path.Base("/"+name), "/")
	if name == "" || name == "." || name == ".." || name == ext {
		name = untitledObject
	}
	if !strings.HasSuffix(name, ext) {
		name += ext
	}
	return path.Join(prefix, name)
}

const untitledObject = "untitled"

func prefixOf(key string) string {
	if i := strings.IndexByte(key, '/'); i > 0 {
		return key[:i]
	}
	return ""
}
