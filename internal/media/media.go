package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/cookgpt-backend/internal/domain"
	"github.com/yungbote/cookgpt-backend/internal/platform/gcp"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

// File is an attachment as received from the client.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type Config struct {
	MaxEdge     int
	JPEGQuality int
}

// Service uploads chat attachments and describes them.
type Service struct {
	log        *logger.Logger
	storage    Storage
	describers map[types.MediaType]Describer
	cfg        Config
}

func NewService(storage Storage, describers map[types.MediaType]Describer, cfg Config, baseLog *logger.Logger) *Service {
	if describers == nil {
		describers = map[types.MediaType]Describer{}
	}
	return &Service{
		log:        baseLog.With("service", "MediaService"),
		storage:    storage,
		describers: describers,
		cfg:        cfg,
	}
}

// Classify maps a content type (sniffed when absent) to a media type.
func Classify(contentType string, data []byte) (types.MediaType, string, error) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(data)
	}
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch {
	case strings.HasPrefix(ct, "image/"):
		return types.MediaTypeImage, ct, nil
	case strings.HasPrefix(ct, "audio/"):
		return types.MediaTypeAudio, ct, nil
	case strings.HasPrefix(ct, "video/"):
		return types.MediaTypeVideo, ct, nil
	case ct == "application/pdf", strings.HasPrefix(ct, "text/"):
		return types.MediaTypeDocument, ct, nil
	default:
		return "", ct, fmt.Errorf("unsupported attachment type %q", ct)
	}
}

// Upload stores file under the chat's prefix and returns the unsaved
// media row. Images are normalized to JPEG first.
func (s *Service) Upload(ctx context.Context, chatID uuid.UUID, file File) (*types.ChatMedia, []byte, error) {
	if len(file.Data) == 0 {
		return nil, nil, fmt.Errorf("empty attachment")
	}
	kind, ct, err := Classify(file.ContentType, file.Data)
	if err != nil {
		return nil, nil, err
	}
	data := file.Data
	ext := strings.ToLower(path.Ext(file.Name))
	if kind == types.MediaTypeImage {
		norm, err := NormalizeImage(data, s.cfg.MaxEdge, s.cfg.JPEGQuality)
		if err != nil {
			return nil, nil, err
		}
		data, ct, ext = norm, "image/jpeg", ".jpg"
	}

	key := fmt.Sprintf("chat/%s/%s%s", chatID, uuid.NewString(), ext)
	if err := s.storage.Upload(ctx, key, bytes.NewReader(data), ct); err != nil {
		return nil, nil, fmt.Errorf("upload attachment: %w", err)
	}
	return &types.ChatMedia{
		ChatID:    chatID,
		Type:      kind,
		URL:       s.storage.PublicURL(key),
		ObjectKey: key,
		MimeType:  ct,
	}, data, nil
}

// Describe runs the describer for m's type. Failures are logged and yield
// an empty description.
func (s *Service) Describe(ctx context.Context, m *types.ChatMedia, data []byte) (string, datatypes.JSON) {
	d, ok := s.describers[m.Type]
	if !ok {
		return "", nil
	}
	res, err := d.Describe(ctx, Item{Type: m.Type, MimeType: m.MimeType, Data: data, URI: s.storage.GCSURI(m.ObjectKey)})
	if err != nil {
		s.log.Warn("Media description failed", "media_type", m.Type, "object_key", m.ObjectKey, "error", err)
		return "", nil
	}
	if res == nil {
		return "", nil
	}
	return strings.TrimSpace(res.Text), labelsJSON(res)
}

func labelsJSON(res *gcp.Analysis) datatypes.JSON {
	if len(res.Labels) == 0 {
		return nil
	}
	raw, err := json.Marshal(map[string]any{"provider": res.Provider, "labels": res.Labels})
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func (s *Service) DeleteObjects(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.storage.DeleteObjects(ctx, keys)
}
