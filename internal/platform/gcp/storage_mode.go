package gcp

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/yungbote/cookgpt-backend/internal/platform/envutil"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

type StorageMode string

const (
	StorageModeGCS         StorageMode = "gcs"
	StorageModeGCSEmulator StorageMode = "gcs_emulator"
)

// StorageConfig selects the media bucket and how objects are reached.
type StorageConfig struct {
	Mode          StorageMode
	Bucket        string
	EmulatorHost  string
	PublicBaseURL string
	CDNDomain     string
}

func (c StorageConfig) IsEmulator() bool { return c.Mode == StorageModeGCSEmulator }

// LoadStorageConfig reads MEDIA_BUCKET, OBJECT_STORAGE_MODE,
// STORAGE_EMULATOR_HOST, OBJECT_STORAGE_PUBLIC_BASE_URL and MEDIA_CDN_DOMAIN.
// An unset mode falls back to the emulator when an emulator host is present.
func LoadStorageConfig(log *logger.Logger) (StorageConfig, error) {
	cfg := StorageConfig{
		Bucket:        envutil.String("MEDIA_BUCKET", "", log),
		EmulatorHost:  strings.TrimRight(envutil.String("STORAGE_EMULATOR_HOST", "", log), "/"),
		PublicBaseURL: strings.TrimRight(envutil.String("OBJECT_STORAGE_PUBLIC_BASE_URL", "", log), "/"),
		CDNDomain:     envutil.String("MEDIA_CDN_DOMAIN", "", log),
	}
	raw := strings.ToLower(envutil.String("OBJECT_STORAGE_MODE", "", log))
	switch StorageMode(raw) {
	case "":
		cfg.Mode = StorageModeGCS
		if cfg.EmulatorHost != "" {
			cfg.Mode = StorageModeGCSEmulator
		}
	case StorageModeGCS, StorageModeGCSEmulator:
		cfg.Mode = StorageMode(raw)
	default:
		return cfg, fmt.Errorf("invalid OBJECT_STORAGE_MODE=%q (allowed: %q, %q)", raw, StorageModeGCS, StorageModeGCSEmulator)
	}
	return cfg, cfg.Validate()
}

func (c StorageConfig) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("missing env var MEDIA_BUCKET")
	}
	if c.PublicBaseURL != "" && !absoluteURL(c.PublicBaseURL) {
		return fmt.Errorf("invalid OBJECT_STORAGE_PUBLIC_BASE_URL=%q; expected absolute URL", c.PublicBaseURL)
	}
	if !c.IsEmulator() {
		return nil
	}
	if c.EmulatorHost == "" {
		return fmt.Errorf("OBJECT_STORAGE_MODE=%q requires STORAGE_EMULATOR_HOST", StorageModeGCSEmulator)
	}
	if !absoluteURL(c.EmulatorHost) {
		return fmt.Errorf("invalid STORAGE_EMULATOR_HOST=%q; expected absolute URL like http://fake-gcs:4443", c.EmulatorHost)
	}
	return nil
}

func absoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}
