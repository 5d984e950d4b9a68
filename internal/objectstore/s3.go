package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"drive-go/internal/drive"
)

// S3Config configures an S3Store.
type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string // MinIO, Localstack, ...
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	PublicBaseURL   string // overrides the bucket URL in PublicURL
	MaxRetries      int
}

// S3Store keeps objects in an S3 bucket and hands out presigned GET URLs.
type S3Store struct {
	client   *s3.Client
	presign  *s3.PresignClient
	uploader *manager.Uploader
	bucket   string
	prefix   string
	baseURL  string
}

// NewS3Store builds the AWS client described by cfg.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 store: bucket is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error
	if cfg.Region != "" {
		configOptions = append(configOptions, awsConfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 5
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3Store(client, cfg), nil
}

func newS3Store(client *s3.Client, cfg S3Config) *S3Store {
	base := strings.TrimSuffix(cfg.PublicBaseURL, "/")
	if base == "" {
		base = bucketURL(cfg)
	}
	return &S3Store{
		client:   client,
		presign:  s3.NewPresignClient(client),
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		prefix:   strings.Trim(cfg.Prefix, "/"),
		baseURL:  base,
	}
}

func bucketURL(cfg S3Config) string {
	if cfg.Endpoint != "" {
		return strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
}

func (s *S3Store) objectKey(path string) string {
	if s.prefix == "" {
		return path
	}
	return s.prefix + "/" + path
}

// Put uploads the content under key. The upload is conditional on the key
// being absent, so an existing object is reported as a conflict.
func (s *S3Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err == nil {
		return "", fmt.Errorf("%w: object %s already exists", drive.ErrConflict, key)
	}
	if !isNotFoundError(err) {
		return "", fmt.Errorf("failed to check object %s: %w", key, err)
	}

	counted := &countingReader{r: io.LimitReader(r, size+1)}
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        counted,
		ContentType: aws.String(contentType),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		if isPreconditionFailed(err) {
			return "", fmt.Errorf("%w: object %s already exists", drive.ErrConflict, key)
		}
		return "", fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	if counted.n != size {
		_ = s.Delete(ctx, key)
		return "", fmt.Errorf("%w: size mismatch: expected %d bytes, got %d", drive.ErrBadRequest, size, counted.n)
	}
	return key, nil
}

// Delete removes the object. S3 treats a missing key as success.
func (s *S3Store) Delete(ctx context.Context, path string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(path)),
	})
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete object %s: %w", path, err)
	}
	return nil
}

func (s *S3Store) PublicURL(path string) string {
	segments := strings.Split(s.objectKey(path), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/" + strings.Join(segments, "/")
}

func (s *S3Store) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(path)),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign object %s: %w", path, err)
	}
	return req.URL, nil
}

// ValidateSetup checks that the bucket exists and is reachable.
func (s *S3Store) ValidateSetup(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("failed to access bucket %s: %w", s.bucket, err)
	}
	return nil
}

// isNotFoundError returns true if the error indicates the object doesn't exist.
func isNotFoundError(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound" || code == "404"
	}
	return false
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "PreconditionFailed" || code == "ConditionalRequestConflict"
	}
	return false
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Compile-time check that S3Store implements drive.ObjectStore interface
var _ drive.ObjectStore = (*S3Store)(nil)
