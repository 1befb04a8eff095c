package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/cookgpt-backend/internal/domain"
	"github.com/yungbote/cookgpt-backend/internal/platform/gcp"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.NRGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFitWithin(t *testing.T) {
	cases := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{800, 600, 1600, 800, 600},
		{3200, 1600, 1600, 1600, 800},
		{1000, 4000, 1000, 250, 1000},
		{5000, 1, 100, 100, 1},
	}
	for _, tc := range cases {
		w, h := fitWithin(tc.w, tc.h, tc.max)
		assert.Equal(t, tc.wantW, w)
		assert.Equal(t, tc.wantH, h)
	}
}

func TestNormalizeImageDownscalesToJPEG(t *testing.T) {
	out, err := NormalizeImage(pngBytes(t, 400, 200), 100, 0)
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
}

func TestNormalizeImageRejectsGarbage(t *testing.T) {
	_, err := NormalizeImage([]byte("not an image"), 100, 80)
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	kind, ct, err := Classify("image/png; charset=binary", nil)
	require.NoError(t, err)
	assert.Equal(t, types.MediaTypeImage, kind)
	assert.Equal(t, "image/png", ct)

	kind, _, err = Classify("", []byte("%PDF-1.7 ..."))
	require.NoError(t, err)
	assert.Equal(t, types.MediaTypeDocument, kind)

	kind, _, err = Classify("audio/mpeg", nil)
	require.NoError(t, err)
	assert.Equal(t, types.MediaTypeAudio, kind)

	_, _, err = Classify("application/zip", nil)
	assert.Error(t, err)
}

func TestUploadNormalizesImagesAndStoresUnderChatPrefix(t *testing.T) {
	store := NewMemoryStorage()
	svc := NewService(store, nil, Config{MaxEdge: 64}, logger.NewNop())
	chatID := uuid.New()

	m, data, err := svc.Upload(context.Background(), chatID, File{Name: "dish.png", ContentType: "image/png", Data: pngBytes(t, 128, 128)})
	require.NoError(t, err)

	assert.Equal(t, types.MediaTypeImage, m.Type)
	assert.Equal(t, "image/jpeg", m.MimeType)
	assert.Equal(t, chatID, m.ChatID)
	assert.Regexp(t, `^chat/`+chatID.String()+`/[0-9a-f-]{36}\.jpg$`, m.ObjectKey)
	assert.Equal(t, "memory://media/"+m.ObjectKey, m.URL)

	stored, ok := store.Object(m.ObjectKey)
	require.True(t, ok)
	assert.Equal(t, data, stored)
	_, err = jpeg.Decode(bytes.NewReader(stored))
	assert.NoError(t, err)
}

func TestUploadKeepsNonImageBytes(t *testing.T) {
	store := NewMemoryStorage()
	svc := NewService(store, nil, Config{}, logger.NewNop())

	m, data, err := svc.Upload(context.Background(), uuid.New(), File{Name: "Note.MP3", ContentType: "audio/mpeg", Data: []byte("ID3....")})
	require.NoError(t, err)
	assert.Equal(t, types.MediaTypeAudio, m.Type)
	assert.Equal(t, []byte("ID3...."), data)
	assert.Contains(t, m.ObjectKey, ".mp3")
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	svc := NewService(NewMemoryStorage(), nil, Config{}, logger.NewNop())
	_, _, err := svc.Upload(context.Background(), uuid.New(), File{Name: "x.png"})
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	ok := DescriberFunc(func(ctx context.Context, item Item) (*gcp.Analysis, error) {
		return &gcp.Analysis{Provider: "test", Text: " Shows pasta. ", Labels: []gcp.Label{{Name: "Pasta", Score: 0.9}}}, nil
	})
	failing := DescriberFunc(func(ctx context.Context, item Item) (*gcp.Analysis, error) {
		return nil, errors.New("quota")
	})
	svc := NewService(NewMemoryStorage(), map[types.MediaType]Describer{
		types.MediaTypeImage: ok,
		types.MediaTypeAudio: failing,
	}, Config{}, logger.NewNop())
	ctx := context.Background()

	desc, labels := svc.Describe(ctx, &types.ChatMedia{Type: types.MediaTypeImage}, nil)
	assert.Equal(t, "Shows pasta.", desc)
	assert.JSONEq(t, `{"provider":"test","labels":[{"name":"Pasta","score":0.9}]}`, string(labels))

	desc, labels = svc.Describe(ctx, &types.ChatMedia{Type: types.MediaTypeAudio}, nil)
	assert.Empty(t, desc)
	assert.Nil(t, labels)

	desc, _ = svc.Describe(ctx, &types.ChatMedia{Type: types.MediaTypeVideo}, nil)
	assert.Empty(t, desc)
}

func TestDeleteObjects(t *testing.T) {
	store := NewMemoryStorage()
	svc := NewService(store, nil, Config{}, logger.NewNop())
	ctx := context.Background()
	require.NoError(t, store.Upload(ctx, "a", bytes.NewReader([]byte("1")), ""))
	require.NoError(t, store.Upload(ctx, "b", bytes.NewReader([]byte("2")), ""))

	require.NoError(t, svc.DeleteObjects(ctx, []string{"a"}))
	assert.Equal(t, 1, store.Len())
}
