// Package export uploads account spreadsheets to an S3-compatible object
// store. Any provider with an S3 API works (AWS, MinIO, iDrive e2, R2); the
// endpoint override and path-style switch cover the non-AWS cases.
package export

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Sinfolonokojo/mt5-monitor/internal/config"
)

// Store wraps the S3 SDK client with the configured bucket.
type Store struct {
	s3     *s3.Client
	bucket string
}

// NewStore builds the S3 client from the export config section.
func NewStore(ctx context.Context, cfg config.ExportConfig) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("export: bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("export: region is required")
	}

	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("export: load aws config: %w", err)
	}

	var opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := normaliseEndpoint(cfg.Endpoint, cfg.UseSSL)
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if cfg.ForcePathStyle {
		opts = append(opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &Store{
		s3:     s3.NewFromConfig(awsCfg, opts...),
		bucket: cfg.Bucket,
	}, nil
}

// Health verifies bucket connectivity and permissions.
func (s *Store) Health(ctx context.Context) error {
	_, err := s.s3.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("export: bucket %s unreachable: %w", s.bucket, err)
	}
	return nil
}

// put uploads one object through the upload manager, which splits large
// payloads into concurrent parts transparently.
func (s *Store) put(ctx context.Context, key string, body io.Reader, contentType string) error {
	uploader := manager.NewUploader(s.s3)
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("export: upload %s: %w", key, err)
	}
	return nil
}

// normaliseEndpoint prepends a scheme when the configured endpoint lacks one.
func normaliseEndpoint(endpoint string, useSSL bool) string {
	parsed, err := url.Parse(endpoint)
	if err == nil && parsed.Scheme != "" {
		return endpoint
	}
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return scheme + "://" + endpoint
}
