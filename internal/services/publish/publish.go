// Package publish uploads the rendered site to S3.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/j-veylop/comment-archive/internal/logger"
)

// ErrNoBucket is returned when publishing without a bucket.
var ErrNoBucket = errors.New("publish bucket not configured")

// PutObjectAPI is the subset of the S3 client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Publisher uploads a directory tree to a bucket.
type Publisher struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// New creates a publisher using the default AWS configuration chain.
func New(ctx context.Context, bucket, prefix string) (*Publisher, error) {
	if bucket == "" {
		return nil, ErrNoBucket
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return NewWithClient(s3.NewFromConfig(cfg), bucket, prefix), nil
}

// NewWithClient creates a publisher with a custom S3 client.
func NewWithClient(client PutObjectAPI, bucket, prefix string) *Publisher {
	return &Publisher{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// Bucket returns the destination bucket.
func (p *Publisher) Bucket() string {
	return p.bucket
}

// Key maps a path relative to the site root to its object key.
func (p *Publisher) Key(rel string) string {
	rel = filepath.ToSlash(rel)
	if p.prefix == "" {
		return rel
	}
	return path.Join(p.prefix, rel)
}

// Publish uploads every regular file under dir and returns how many were
// uploaded. Hidden files are skipped.
func (p *Publisher) Publish(ctx context.Context, dir string) (int, error) {
	if _, err := os.Stat(dir); err != nil {
		return 0, fmt.Errorf("failed to read output directory: %w", err)
	}

	uploaded := 0
	err := filepath.WalkDir(dir, func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && file != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(dir, file)
		if err != nil {
			return err
		}
		if err := p.upload(ctx, file, p.Key(rel)); err != nil {
			return err
		}
		uploaded++
		return nil
	})
	if err != nil {
		return uploaded, err
	}

	logger.Info("published site", "bucket", p.bucket, "prefix", p.prefix, "objects", uploaded)
	return uploaded, nil
}

func (p *Publisher) upload(ctx context.Context, file, key string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open %s: %w", file, err)
	}
	defer func() { _ = f.Close() }()

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(p.bucket),
		Key:          aws.String(key),
		Body:         f,
		ContentType:  aws.String(ContentType(file)),
		CacheControl: aws.String(cacheControl(file)),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", p.bucket, key, err)
	}

	logger.Debug("uploaded object", "key", key)
	return nil
}

// ContentType guesses a file's MIME type from its extension.
func ContentType(file string) string {
	ext := strings.ToLower(filepath.Ext(file))
	switch ext {
	case ".html":
		return "text/html; charset=utf-8"
	case ".parquet":
		return "application/vnd.apache.parquet"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

func cacheControl(file string) string {
	if strings.HasSuffix(file, ".html") {
		return "public, max-age=300"
	}
	return "public, max-age=3600"
}
