package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "s3cret")

	cfg, err := LoadConfig(logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, cfg.StreamPoll)
	assert.Equal(t, 5*time.Minute, cfg.StreamTimeout)
	assert.Equal(t, QueueLocal, cfg.TaskQueue)
	assert.Equal(t, BackendOpenAI, cfg.LLMBackend)
	assert.True(t, cfg.NeedsOpenAI())
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret": {"JWT_SECRET_KEY": ""},
		"backend":        {"LLM_BACKEND": "llama"},
		"queue":          {"TASK_QUEUE_MODE": "kafka"},
		"describer":      {"IMAGE_DESCRIBER": "tesseract"},
		"token ttls":     {"ACCESS_TOKEN_TTL": "2h", "REFRESH_TOKEN_TTL": "1h"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("JWT_SECRET_KEY", "s3cret")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig(logger.NewNop())
			assert.Error(t, err)
		})
	}
}

func TestFakeBackendWithoutOpenAI(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "s3cret")
	t.Setenv("LLM_BACKEND", "fake")
	t.Setenv("IMAGE_DESCRIBER", "none")

	cfg, err := LoadConfig(logger.NewNop())
	require.NoError(t, err)
	assert.False(t, cfg.NeedsOpenAI())

	b, err := wireBackend(logger.NewNop(), cfg, &Clients{})
	require.NoError(t, err)
	assert.Equal(t, "fake", b.Name())
}
