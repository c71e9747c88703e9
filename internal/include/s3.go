package include

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config configures an S3-compatible bucket holding shared includes.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string // key prefix inside the bucket
	UseSSL    bool
}

// S3Fetcher serves names from an S3 bucket. Missing keys are misses.
type S3Fetcher struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewS3Fetcher validates cfg and creates the client. No request is made.
func NewS3Fetcher(cfg S3Config) (*S3Fetcher, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	opts := &minio.Options{Secure: cfg.UseSSL, Region: region}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	switch {
	case access != "" && secret != "":
		opts.Creds = credentials.NewStaticV4(access, secret, "")
	case access == "" && secret == "":
		// Public bucket.
		opts.Creds = credentials.NewStaticV4("", "", "")
	default:
		return nil, fmt.Errorf("s3 access key and secret key must be set together")
	}

	client, err := minio.New(endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Fetcher{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
	}, nil
}

func (f *S3Fetcher) objectKey(name string) string {
	name = strings.TrimLeft(name, "/")
	if f.prefix == "" {
		return name
	}
	return f.prefix + "/" + name
}

func (f *S3Fetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	key := f.objectKey(name)
	obj, err := f.client.GetObject(ctx, f.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classifyS3(key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, classifyS3(key, err)
	}
	return data, nil
}

func classifyS3(key string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("s3 %s: %w", key, ErrNotFound)
	}
	return err
}
