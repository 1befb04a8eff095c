package gcp

import (
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	vipb "cloud.google.com/go/videointelligence/apiv1/videointelligencepb"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicURL(t *testing.T) {
	cases := []struct {
		name string
		cfg  StorageConfig
		want string
	}{
		{"gcs default", StorageConfig{Mode: StorageModeGCS, Bucket: "media"}, "https://storage.googleapis.com/media/chat/a.jpg"},
		{"cdn wins", StorageConfig{Mode: StorageModeGCSEmulator, Bucket: "media", CDNDomain: "cdn.cookgpt.dev", EmulatorHost: "http://gcs:4443"}, "https://cdn.cookgpt.dev/chat/a.jpg"},
		{"emulator", StorageConfig{Mode: StorageModeGCSEmulator, Bucket: "media", EmulatorHost: "http://gcs:4443"}, "http://gcs:4443/storage/v1/b/media/o/chat%2Fa.jpg?alt=media"},
		{"emulator public base", StorageConfig{Mode: StorageModeGCSEmulator, Bucket: "media", EmulatorHost: "http://gcs:4443", PublicBaseURL: "http://localhost:4443"}, "http://localhost:4443/storage/v1/b/media/o/chat%2Fa.jpg?alt=media"},
		{"public base", StorageConfig{Mode: StorageModeGCS, Bucket: "media", PublicBaseURL: "https://files.example.com"}, "https://files.example.com/media/chat/a.jpg"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PublicURL(tc.cfg, "/chat/a.jpg"))
		})
	}
}

func TestLoadStorageConfig(t *testing.T) {
	t.Run("emulator host implies emulator mode", func(t *testing.T) {
		t.Setenv("MEDIA_BUCKET", "media")
		t.Setenv("OBJECT_STORAGE_MODE", "")
		t.Setenv("STORAGE_EMULATOR_HOST", "http://fake-gcs:4443/")
		cfg, err := LoadStorageConfig(nil)
		require.NoError(t, err)
		assert.Equal(t, StorageModeGCSEmulator, cfg.Mode)
		assert.Equal(t, "http://fake-gcs:4443", cfg.EmulatorHost)
	})
	t.Run("invalid mode", func(t *testing.T) {
		t.Setenv("MEDIA_BUCKET", "media")
		t.Setenv("OBJECT_STORAGE_MODE", "s3")
		_, err := LoadStorageConfig(nil)
		assert.ErrorContains(t, err, "invalid OBJECT_STORAGE_MODE")
	})
	t.Run("bucket required", func(t *testing.T) {
		t.Setenv("MEDIA_BUCKET", "")
		t.Setenv("OBJECT_STORAGE_MODE", "gcs")
		t.Setenv("STORAGE_EMULATOR_HOST", "")
		_, err := LoadStorageConfig(nil)
		assert.ErrorContains(t, err, "MEDIA_BUCKET")
	})
	t.Run("emulator needs host", func(t *testing.T) {
		err := StorageConfig{Mode: StorageModeGCSEmulator, Bucket: "media"}.Validate()
		assert.ErrorContains(t, err, "STORAGE_EMULATOR_HOST")
	})
}

func TestContentTypeForKey(t *testing.T) {
	assert.Equal(t, "image/jpeg", ContentTypeForKey("a/b.JPG"))
	assert.Equal(t, "audio/mpeg", ContentTypeForKey("note.mp3"))
	assert.Equal(t, "application/octet-stream", ContentTypeForKey("blob"))
}

func TestVisionAnalysisOrdersLabelsAndQuotesText(t *testing.T) {
	got := visionAnalysis([]*visionpb.EntityAnnotation{
		{Description: "Tomato", Score: 0.7},
		{Description: "Pasta", Score: 0.95},
		{Description: " ", Score: 0.99},
	}, "Barilla\nSpaghetti  n.5")

	require.Len(t, got.Labels, 2)
	assert.Equal(t, "Pasta", got.Labels[0].Name)
	assert.Equal(t, `Shows pasta, tomato. Text: "Barilla Spaghetti n.5".`, got.Text)
}

func TestVideoAnalysisKeepsBestConfidencePerLabel(t *testing.T) {
	got := videoAnalysis(&vipb.VideoAnnotationResults{
		SegmentLabelAnnotations: []*vipb.LabelAnnotation{
			{Entity: &vipb.Entity{Description: "Frying"}, Segments: []*vipb.LabelSegment{{Confidence: 0.4}, {Confidence: 0.8}}},
		},
		ShotLabelAnnotations: []*vipb.LabelAnnotation{
			{Entity: &vipb.Entity{Description: "Frying"}, Segments: []*vipb.LabelSegment{{Confidence: 0.6}}},
			{Entity: &vipb.Entity{Description: "Pan"}, Segments: []*vipb.LabelSegment{{Confidence: 0.9}}},
		},
	})
	require.Len(t, got.Labels, 2)
	assert.Equal(t, Label{Name: "Pan", Score: float64(float32(0.9))}, got.Labels[0])
	assert.InDelta(t, 0.8, got.Labels[1].Score, 1e-6)
	assert.Equal(t, "Video shows pan, frying.", got.Text)
}

func TestTranscriptJoinsFirstAlternatives(t *testing.T) {
	got := transcript([]*speechpb.SpeechRecognitionResult{
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "how long do I boil"}}},
		{},
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: " an egg "}}},
	})
	assert.Equal(t, "Transcript: how long do I boil an egg", got)
	assert.Equal(t, "", transcript(nil))
}

func TestSpeechEncoding(t *testing.T) {
	assert.Equal(t, speechpb.RecognitionConfig_MP3, speechEncoding("audio/mpeg", ""))
	assert.Equal(t, speechpb.RecognitionConfig_OGG_OPUS, speechEncoding("", "note.opus"))
	assert.Equal(t, speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, speechEncoding("audio/aac", ""))
}

func TestDocumentAnalysis(t *testing.T) {
	got := documentAnalysis(&documentaipb.Document{
		Text:     "Pancakes\n\n2 eggs  200g flour",
		Entities: []*documentaipb.Document_Entity{{Type: "ingredient", MentionText: "2 eggs", Confidence: 0.5}},
	})
	assert.Equal(t, "Document: Pancakes 2 eggs 200g flour", got.Text)
	require.Len(t, got.Labels, 1)
	assert.Equal(t, "ingredient: 2 eggs", got.Labels[0].Name)
}
