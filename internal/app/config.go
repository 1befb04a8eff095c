package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/cookgpt-backend/internal/platform/envutil"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
	"github.com/yungbote/cookgpt-backend/internal/services"
)

const (
	BackendOpenAI = "openai"
	BackendFake   = "fake"

	QueueLocal    = "local"
	QueueTemporal = "temporal"

	DescriberOpenAI = "openai"
	DescriberVision = "vision"
	DescriberNone   = "none"
)

type Config struct {
	HTTPAddr      string
	ShutdownDrain time.Duration

	Auth     services.AuthConfig
	CacheTTL time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	StreamTTL     time.Duration
	StreamPoll    time.Duration
	StreamTimeout time.Duration

	LLMBackend  string
	PromptsPath string

	TaskQueue         string
	LocalWorkers      int
	TaskTimeout       time.Duration
	WorkerConcurrency int
	// EmbeddedWorker runs the Temporal worker inside `serve`.
	EmbeddedWorker bool

	ImageDescriber   string
	MediaAnalysis    bool
	SpeechLanguage   string
	ImageMaxEdge     int
	ImageJPEGQuality int
	MaxUploadBytes   int64

	MetricsEnabled bool
	CORSOrigins    []string
	LoginRateLimit string
}

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		HTTPAddr:      envutil.String("HTTP_ADDR", ":8080", log),
		ShutdownDrain: envutil.Duration("HTTP_SHUTDOWN_DRAIN", 15*time.Second, log),

		Auth: services.AuthConfig{
			Secret:             envutil.String("JWT_SECRET_KEY", "", log),
			AccessTTL:          envutil.Duration("ACCESS_TOKEN_TTL", time.Hour, log),
			RefreshTTL:         envutil.Duration("REFRESH_TOKEN_TTL", 24*time.Hour, log),
			AccessLeeway:       envutil.Duration("ACCESS_TOKEN_LEEWAY", 5*time.Minute, log),
			DefaultMaxChatCost: envutil.Int("MAX_CHAT_COST", 100000, log),
		},
		CacheTTL: envutil.Duration("CACHE_TTL", 10*time.Minute, log),

		RedisAddr:     envutil.String("REDIS_ADDR", "", log),
		RedisPassword: envutil.String("REDIS_PASSWORD", "", log),
		RedisDB:       envutil.Int("REDIS_DB", 0, log),

		StreamTTL:     envutil.Duration("STREAM_TTL", time.Hour, log),
		StreamPoll:    envutil.Duration("STREAM_POLL_INTERVAL", 100*time.Millisecond, log),
		StreamTimeout: envutil.Duration("STREAM_READ_TIMEOUT", 5*time.Minute, log),

		LLMBackend:  strings.ToLower(envutil.String("LLM_BACKEND", BackendOpenAI, log)),
		PromptsPath: envutil.String("PROMPTS_PATH", "", log),

		TaskQueue:         strings.ToLower(envutil.String("TASK_QUEUE_MODE", QueueLocal, log)),
		LocalWorkers:      envutil.Int("LOCAL_QUEUE_WORKERS", 4, log),
		TaskTimeout:       envutil.Duration("TASK_TIMEOUT", 10*time.Minute, log),
		WorkerConcurrency: envutil.Int("WORKER_CONCURRENCY", 8, log),
		EmbeddedWorker:    envutil.Bool("EMBEDDED_WORKER", false, log),

		ImageDescriber:   strings.ToLower(envutil.String("IMAGE_DESCRIBER", DescriberOpenAI, log)),
		MediaAnalysis:    envutil.Bool("MEDIA_ANALYSIS_ENABLED", false, log),
		SpeechLanguage:   envutil.String("SPEECH_LANGUAGE", "en-US", log),
		ImageMaxEdge:     envutil.Int("IMAGE_MAX_EDGE", 1024, log),
		ImageJPEGQuality: envutil.Int("IMAGE_JPEG_QUALITY", 85, log),
		MaxUploadBytes:   int64(envutil.Int("MAX_UPLOAD_BYTES", 10<<20, log)),

		MetricsEnabled: envutil.Bool("METRICS_ENABLED", true, log),
		CORSOrigins:    envutil.List("CORS_ORIGINS", log),
		LoginRateLimit: envutil.String("LOGIN_RATE_LIMIT", "20-M", log),
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Auth.Secret == "" {
		return fmt.Errorf("missing env var JWT_SECRET_KEY")
	}
	switch c.LLMBackend {
	case BackendOpenAI, BackendFake:
	default:
		return fmt.Errorf("invalid LLM_BACKEND=%q (allowed: %q, %q)", c.LLMBackend, BackendOpenAI, BackendFake)
	}
	switch c.TaskQueue {
	case QueueLocal, QueueTemporal:
	default:
		return fmt.Errorf("invalid TASK_QUEUE_MODE=%q (allowed: %q, %q)", c.TaskQueue, QueueLocal, QueueTemporal)
	}
	switch c.ImageDescriber {
	case DescriberOpenAI, DescriberVision, DescriberNone:
	default:
		return fmt.Errorf("invalid IMAGE_DESCRIBER=%q (allowed: %q, %q, %q)", c.ImageDescriber, DescriberOpenAI, DescriberVision, DescriberNone)
	}
	if c.Auth.RefreshTTL <= c.Auth.AccessTTL {
		return fmt.Errorf("REFRESH_TOKEN_TTL (%s) must exceed ACCESS_TOKEN_TTL (%s)", c.Auth.RefreshTTL, c.Auth.AccessTTL)
	}
	return nil
}

// NeedsOpenAI reports whether any component talks to the OpenAI API.
func (c Config) NeedsOpenAI() bool {
	return c.LLMBackend == BackendOpenAI || c.ImageDescriber == DescriberOpenAI
}
