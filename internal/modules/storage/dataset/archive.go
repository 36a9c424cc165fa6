package dataset

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appcfg "github.com/reviewinsight/server/internal/config"
)

// StoredBaseName is the fixed name every upload is saved under; each upload
// replaces the previous one.
const StoredBaseName = "stored_excel_file"

// Mirror receives a copy of the stored upload.
type Mirror interface {
	Put(ctx context.Context, key string, payload []byte, contentType string) error
}

// SaveLocal writes payload to <dir>/stored_excel_file<ext>, replacing any earlier upload.
func SaveLocal(dir, ext string, payload []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, StoredBaseName+ext)
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return path, nil
}

// S3Mirror copies the stored upload to an S3 compatible bucket.
type S3Mirror struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3Mirror(cfg appcfg.S3Config) (*S3Mirror, error) {
	if cfg.Bucket == "" || cfg.Region == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("incomplete s3 config: bucket/region/access_key_id/secret_access_key are required")
	}

	opts := s3.Options{
		Region:      cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		// Custom endpoints (MinIO, R2) generally need path-style addressing.
		UsePathStyle: cfg.PathStyle || cfg.Endpoint != "",
	}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		opts.BaseEndpoint = aws.String(endpoint)
	}
	return &S3Mirror{client: s3.New(opts), bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (m *S3Mirror) Put(ctx context.Context, key string, payload []byte, contentType string) error {
	objectKey := normalizeObjectKey(m.prefix + "/" + key)
	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", objectKey, err)
	}
	return nil
}

func normalizeObjectKey(raw string) string {
	key := strings.ReplaceAll(raw, "\\", "/")
	for strings.Contains(key, "//") {
		key = strings.ReplaceAll(key, "//", "/")
	}
	return strings.Trim(key, "/")
}
