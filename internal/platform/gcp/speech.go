package gcp

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

// Speech transcribes spoken questions and voice notes.
type Speech interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (*Analysis, error)
	Close() error
}

type speechService struct {
	log          *logger.Logger
	client       *speech.Client
	languageCode string
	maxRetries   int
}

func NewSpeech(ctx context.Context, languageCode string, log *logger.Logger) (Speech, error) {
	c, err := speech.NewClient(ctx, ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	if languageCode == "" {
		languageCode = "en-US"
	}
	return &speechService{
		log:          log.With("service", "gcp.Speech"),
		client:       c,
		languageCode: languageCode,
		maxRetries:   3,
	}, nil
}

func (s *speechService) Close() error { return s.client.Close() }

func (s *speechService) Transcribe(ctx context.Context, audio []byte, mimeType string) (*Analysis, error) {
	if len(audio) == 0 {
		return &Analysis{Provider: "gcp_speech"}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	req := &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			LanguageCode:               s.languageCode,
			EnableAutomaticPunctuation: true,
			Encoding:                   speechEncoding(mimeType, ""),
		},
		Audio: &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: audio}},
	}
	resp, err := withRetry(ctx, s.maxRetries, func() (*speechpb.LongRunningRecognizeResponse, error) {
		op, err := s.client.LongRunningRecognize(ctx, req)
		if err != nil {
			return nil, err
		}
		return op.Wait(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("speech LongRunningRecognize: %w", err)
	}
	return &Analysis{Provider: "gcp_speech", Text: transcript(resp.GetResults())}, nil
}

func transcript(results []*speechpb.SpeechRecognitionResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if r == nil || len(r.Alternatives) == 0 || r.Alternatives[0] == nil {
			continue
		}
		if t := strings.TrimSpace(r.Alternatives[0].Transcript); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "Transcript: " + collapseWhitespace(strings.Join(parts, " "))
}

func speechEncoding(mimeType, name string) speechpb.RecognitionConfig_AudioEncoding {
	m := strings.ToLower(strings.TrimSpace(mimeType))
	ext := strings.ToLower(path.Ext(name))
	switch {
	case strings.Contains(m, "wav") || ext == ".wav":
		return speechpb.RecognitionConfig_LINEAR16
	case strings.Contains(m, "flac") || ext == ".flac":
		return speechpb.RecognitionConfig_FLAC
	case strings.Contains(m, "mpeg") || strings.Contains(m, "mp3") || ext == ".mp3":
		return speechpb.RecognitionConfig_MP3
	case strings.Contains(m, "webm") || ext == ".webm":
		return speechpb.RecognitionConfig_WEBM_OPUS
	case strings.Contains(m, "ogg") || strings.Contains(m, "opus") || ext == ".ogg" || ext == ".opus":
		return speechpb.RecognitionConfig_OGG_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}
