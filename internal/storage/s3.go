package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/leasecheck/backend/internal/models"
)

// S3API is the subset of *s3.Client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Options configures the S3 client. Endpoint and path-style addressing
// allow S3-compatible servers such as MinIO.
type S3Options struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// NewS3Client builds an S3 client. Static keys are used when configured;
// otherwise credentials and region come from the default AWS chain
// (environment, shared config files, instance roles).
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = opts.UsePathStyle
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	}), nil
}

// S3Store keeps document bytes in a bucket and metadata in memory.
type S3Store struct {
	client  S3API
	bucket  string
	prefix  string
	timeout time.Duration
	index   *index
}

// NewS3Store creates a store writing objects under prefix in bucket.
func NewS3Store(client S3API, bucket, prefix string) *S3Store {
	return &S3Store{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		timeout: 30 * time.Second,
		index:   newIndex(),
	}
}

func (s *S3Store) key(id string) string {
	return s.prefix + id
}

// Save uploads r as one object.
func (s *S3Store) Save(name, contentType string, r io.Reader) (*models.FileInfo, error) {
	var buf bytes.Buffer
	size, err := io.Copy(&buf, r)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}

	info := newFileInfo(name, contentType, size)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(info.ID)),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		Metadata: map[string]string{
			"original-filename": name,
			"upload-time":       info.UploadedAt.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("s3 upload failed: %w", err)
	}

	s.index.put(info)
	copied := *info
	return &copied, nil
}

// Get retrieves file metadata by ID.
func (s *S3Store) Get(id string) (*models.FileInfo, error) {
	info, ok := s.index.get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return info, nil
}

// List returns the most recent files.
func (s *S3Store) List(limit int) ([]*models.FileInfo, error) {
	return s.index.list(limit), nil
}

// Open streams the object body.
func (s *S3Store) Open(id string) (io.ReadCloser, error) {
	if _, ok := s.index.get(id); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	out, err := s.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("s3 download failed: %w", err)
	}
	return out.Body, nil
}

// SetStatus records the intake outcome for a file.
func (s *S3Store) SetStatus(id, status string) (*models.FileInfo, error) {
	info, ok := s.index.setStatus(id, status)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return info, nil
}

// Delete removes the object and its metadata.
func (s *S3Store) Delete(id string) error {
	if _, ok := s.index.get(id); !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	}); err != nil {
		return fmt.Errorf("s3 delete failed: %w", err)
	}

	s.index.remove(id)
	return nil
}

var (
	_ Store = (*S3Store)(nil)
	_ S3API = (*s3.Client)(nil)
)
