package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/ruteri/diplomachain/interfaces"
)

// S3Backend keeps values as objects under a prefix of one bucket. Without
// credentials it can only read public objects.
type S3Backend struct {
	client      *s3.S3
	bucket      string
	prefix      string
	anonymous   bool
	locationURI string
	log         *slog.Logger
}

// NewS3Backend creates an S3 backend. A custom endpoint (MinIO and other
// S3-compatible stores) switches to path-style bucket addressing.
func NewS3Backend(bucket, prefix, region, endpoint, accessKey, secretKey string, log *slog.Logger) (*S3Backend, error) {
	cfg := aws.NewConfig().WithRegion(region)
	if endpoint != "" {
		cfg = cfg.WithEndpoint(endpoint).WithS3ForcePathStyle(true)
	}

	anonymous := accessKey == "" || secretKey == ""
	if anonymous {
		cfg = cfg.WithCredentials(credentials.AnonymousCredentials)
		log.Warn("No S3 credentials, backend can only read public objects", "bucket", bucket)
	} else {
		cfg = cfg.WithCredentials(credentials.NewStaticCredentials(accessKey, secretKey, ""))
	}

	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	prefix = strings.Trim(prefix, "/")
	uri := fmt.Sprintf("s3://%s/%s?region=%s", bucket, prefix, region)
	if endpoint != "" {
		uri += "&endpoint=" + endpoint
	}

	return &S3Backend{
		client:      s3.New(sess),
		bucket:      bucket,
		prefix:      prefix,
		anonymous:   anonymous,
		locationURI: uri,
		log:         log,
	}, nil
}

func (b *S3Backend) Fetch(ctx context.Context, key string) ([]byte, error) {
	objectKey, err := b.objectKey(key)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(objectKey),
	})
	if isS3NotFound(err) {
		return nil, interfaces.ErrContentNotFound
	}
	if err != nil {
		b.log.Warn("S3 get failed", "bucket", b.bucket, "key", objectKey, "err", err)
		return nil, fmt.Errorf("%w: s3 get %s: %v", interfaces.ErrBackendUnavailable, objectKey, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: s3 read %s: %v", interfaces.ErrBackendUnavailable, objectKey, err)
	}

	b.log.Debug("S3 get", "key", objectKey, "size", len(data), "duration", time.Since(start))
	return data, nil
}

func (b *S3Backend) Store(ctx context.Context, key string, data []byte) error {
	objectKey, err := b.objectKey(key)
	if err != nil {
		return err
	}

	_, err = b.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(objectKey),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		if b.anonymous {
			return fmt.Errorf("%w: s3 put %s without credentials: %v", interfaces.ErrBackendUnavailable, objectKey, err)
		}
		return fmt.Errorf("%w: s3 put %s: %v", interfaces.ErrBackendUnavailable, objectKey, err)
	}

	b.log.Debug("S3 put", "key", objectKey, "size", len(data))
	return nil
}

// Available heads the bucket.
func (b *S3Backend) Available(ctx context.Context) bool {
	_, err := b.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.bucket)})
	if err != nil {
		b.log.Warn("S3 backend unavailable", "bucket", b.bucket, "err", err)
		return false
	}
	return true
}

func (b *S3Backend) Name() string {
	return "s3-" + b.bucket
}

func (b *S3Backend) LocationURI() string {
	return b.locationURI
}

func (b *S3Backend) objectKey(key string) (string, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return path.Join(b.prefix, clean), nil
}

func isS3NotFound(err error) bool {
	if err == nil {
		return false
	}
	var failure awserr.RequestFailure
	if errors.As(err, &failure) && failure.StatusCode() == http.StatusNotFound {
		return true
	}
	var coded awserr.Error
	return errors.As(err, &coded) && coded.Code() == s3.ErrCodeNoSuchKey
}
