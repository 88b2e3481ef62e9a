package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/couchcryptid/grib-catalog/internal/domain"
)

// S3Config configures an S3Store.
type S3Config struct {
	Bucket string
	Region string
	// Endpoint overrides the S3 endpoint, for S3-compatible stores. It
	// switches the client to path-style addressing.
	Endpoint string
	// AccessKeyID and SecretAccessKey, when both set, replace the default
	// credential chain.
	AccessKeyID     string
	SecretAccessKey string
	// SkipSignature sends unsigned requests, for public buckets.
	SkipSignature bool
}

// S3Store reads objects from an S3 bucket.
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store builds a client from cfg and the ambient AWS configuration.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	switch {
	case cfg.SkipSignature:
		opts = append(opts, awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}))
	case cfg.AccessKeyID != "" && cfg.SecretAccessKey != "":
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
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
	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

// List streams every key under prefix, one ListObjectsV2 page at a time.
func (s *S3Store) List(ctx context.Context, prefix string) iter.Seq2[domain.ObjectMeta, error] {
	return func(yield func(domain.ObjectMeta, error) bool) {
		p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
			Bucket: aws.String(s.bucket),
			Prefix: aws.String(prefix),
		})
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				yield(domain.ObjectMeta{}, fmt.Errorf("list objects s3://%s/%s: %w", s.bucket, prefix, err))
				return
			}
			for _, o := range page.Contents {
				if !yield(domain.ObjectMeta{Path: aws.ToString(o.Key), Size: aws.ToInt64(o.Size)}, nil) {
					return
				}
			}
		}
	}
}

// ListDir returns one level of the bucket below prefix.
func (s *S3Store) ListDir(ctx context.Context, prefix string) (domain.Listing, error) {
	var l domain.Listing
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return domain.Listing{}, fmt.Errorf("list prefixes s3://%s/%s: %w", s.bucket, prefix, err)
		}
		for _, cp := range page.CommonPrefixes {
			l.Prefixes = append(l.Prefixes, aws.ToString(cp.Prefix))
		}
		for _, o := range page.Contents {
			l.Objects = append(l.Objects, domain.ObjectMeta{Path: aws.ToString(o.Key), Size: aws.ToInt64(o.Size)})
		}
	}
	return l, nil
}

// Fetch reads a whole object.
func (s *S3Store) Fetch(ctx context.Context, path string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound") {
			return nil, fmt.Errorf("s3://%s/%s: %w", s.bucket, path, ErrNotFound)
		}
		return nil, fmt.Errorf("get object s3://%s/%s: %w", s.bucket, path, err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object s3://%s/%s: %w", s.bucket, path, err)
	}
	return b, nil
}
