package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

// Bucket stores chat attachments in a single GCS bucket.
type Bucket interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error
	DeleteObjects(ctx context.Context, keys []string) error
	PublicURL(key string) string
	// GCSURI is the gs:// form the analysis APIs read from.
	GCSURI(key string) string
	Close() error
}

type bucket struct {
	log    *logger.Logger
	client *storage.Client
	cfg    StorageConfig
}

func NewBucket(ctx context.Context, cfg StorageConfig, log *logger.Logger) (Bucket, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := newStorageClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	b := &bucket{log: log.With("service", "MediaBucket"), client: client, cfg: cfg}
	b.log.Info("Object storage initialized", "mode", cfg.Mode, "bucket", cfg.Bucket, "public_base_url", cfg.PublicBaseURL)
	return b, nil
}

func newStorageClient(ctx context.Context, cfg StorageConfig) (*storage.Client, error) {
	if cfg.IsEmulator() {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", cfg.EmulatorHost)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	}
	opts := append(ClientOptionsFromEnv(), option.WithScopes(storage.ScopeReadWrite))
	return storage.NewClient(ctx, opts...)
}

func (b *bucket) Close() error { return b.client.Close() }

func (b *bucket) Upload(ctx context.Context, key string, r io.Reader, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := b.client.Bucket(b.cfg.Bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if w.ContentType == "" {
		w.ContentType = ContentTypeForKey(key)
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gcs object %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close gcs writer %q: %w", key, err)
	}
	return nil
}

// DeleteObjects removes every key, treating already-missing objects as
// deleted, and joins the remaining failures.
func (b *bucket) DeleteObjects(ctx context.Context, keys []string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var errs []error
	for _, key := range keys {
		if key == "" {
			continue
		}
		err := b.client.Bucket(b.cfg.Bucket).Object(key).Delete(ctx)
		if err == nil || errors.Is(err, storage.ErrObjectNotExist) {
			continue
		}
		errs = append(errs, fmt.Errorf("delete gcs object %q: %w", key, err))
	}
	if len(errs) > 0 {
		b.log.Warn("Media delete incomplete", "failed", len(errs), "requested", len(keys))
	}
	return errors.Join(errs...)
}

func (b *bucket) GCSURI(key string) string {
	return fmt.Sprintf("gs://%s/%s", b.cfg.Bucket, strings.TrimLeft(key, "/"))
}

func (b *bucket) PublicURL(key string) string {
	return PublicURL(b.cfg, key)
}

// PublicURL resolves the URL clients use to fetch key: CDN first, then the
// emulator media endpoint, then an explicit public base, then GCS itself.
func PublicURL(cfg StorageConfig, key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	switch {
	case cfg.CDNDomain != "":
		return fmt.Sprintf("https://%s/%s", cfg.CDNDomain, key)
	case cfg.IsEmulator():
		base := cfg.PublicBaseURL
		if base == "" {
			base = cfg.EmulatorHost
		}
		return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", base, url.PathEscape(cfg.Bucket), url.PathEscape(key))
	case cfg.PublicBaseURL != "":
		return fmt.Sprintf("%s/%s/%s", cfg.PublicBaseURL, cfg.Bucket, key)
	default:
		return fmt.Sprintf("https://storage.googleapis.com/%s/%s", cfg.Bucket, key)
	}
}

func ContentTypeForKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".flac":
		return "audio/flac"
	case ".ogg", ".opus":
		return "audio/ogg"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
