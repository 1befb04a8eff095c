package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/yungbote/cookgpt-backend/internal/platform/ctxutil"
	"github.com/yungbote/cookgpt-backend/internal/platform/envutil"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

// Roles accepted by ChatMessage.
const (
	RoleSystem    = goopenai.ChatMessageRoleSystem
	RoleUser      = goopenai.ChatMessageRoleUser
	RoleAssistant = goopenai.ChatMessageRoleAssistant
)

type ChatMessage struct {
	Role    string
	Content string
}

// ImageInput is an https URL or a data:image/...;base64 URL.
type ImageInput struct {
	URL    string
	Detail string // "low" | "high" | "auto"
}

// StreamResult is the outcome of a streamed completion. Token counts are
// zero when the provider does not report usage.
type StreamResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Client is the OpenAI-compatible API client used by the generation and
// media layers.
type Client interface {
	StreamChat(ctx context.Context, messages []ChatMessage, onDelta func(delta string) error) (StreamResult, error)
	DescribeImage(ctx context.Context, prompt string, image ImageInput) (string, error)
	Model() string
}

type client struct {
	log         *logger.Logger
	api         *goopenai.Client
	model       string
	visionModel string
	temperature float32
	maxTokens   int
	maxRetries  int
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	apiKey := envutil.String("OPENAI_API_KEY", "", log)
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}

	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL := envutil.String("OPENAI_BASE_URL", "", log); baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if org := envutil.String("OPENAI_ORG_ID", "", log); org != "" {
		cfg.OrgID = org
	}
	timeout := envutil.Duration("OPENAI_TIMEOUT", 180*time.Second, log)
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	model := envutil.String("OPENAI_MODEL", "gpt-4o-mini", log)
	return &client{
		log:         log.With("service", "OpenAIClient"),
		api:         goopenai.NewClientWithConfig(cfg),
		model:       model,
		visionModel: envutil.String("OPENAI_VISION_MODEL", model, log),
		temperature: float32(envutil.Int("OPENAI_TEMPERATURE_PCT", 70, log)) / 100,
		maxTokens:   envutil.Int("OPENAI_MAX_TOKENS", 0, log),
		maxRetries:  envutil.Int("OPENAI_MAX_RETRIES", 3, log),
	}, nil
}

func (c *client) Model() string { return c.model }

func (c *client) StreamChat(ctx context.Context, messages []ChatMessage, onDelta func(delta string) error) (StreamResult, error) {
	ctx = ctxutil.Default(ctx)
	req := goopenai.ChatCompletionRequest{
		Model:         c.model,
		Messages:      toAPIMessages(messages),
		Temperature:   c.temperature,
		Stream:        true,
		StreamOptions: &goopenai.StreamOptions{IncludeUsage: true},
	}
	if c.maxTokens > 0 {
		req.MaxTokens = c.maxTokens
	}

	var stream *goopenai.ChatCompletionStream
	err := c.retry(ctx, "stream_chat", func() error {
		var err error
		stream, err = c.api.CreateChatCompletionStream(ctx, req)
		return err
	})
	if err != nil {
		return StreamResult{}, fmt.Errorf("openai stream: %w", err)
	}
	defer stream.Close()

	var (
		out strings.Builder
		res StreamResult
	)
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			res.Text = out.String()
			return res, fmt.Errorf("openai stream recv: %w", err)
		}
		if chunk.Usage != nil {
			res.PromptTokens = chunk.Usage.PromptTokens
			res.CompletionTokens = chunk.Usage.CompletionTokens
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		out.WriteString(delta)
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				res.Text = out.String()
				return res, err
			}
		}
	}
	res.Text = out.String()
	return res, nil
}

func (c *client) DescribeImage(ctx context.Context, prompt string, image ImageInput) (string, error) {
	ctx = ctxutil.Default(ctx)
	if strings.TrimSpace(image.URL) == "" {
		return "", fmt.Errorf("missing image url")
	}
	detail := goopenai.ImageURLDetailLow
	switch image.Detail {
	case "high":
		detail = goopenai.ImageURLDetailHigh
	case "auto":
		detail = goopenai.ImageURLDetailAuto
	}
	req := goopenai.ChatCompletionRequest{
		Model: c.visionModel,
		Messages: []goopenai.ChatCompletionMessage{{
			Role: goopenai.ChatMessageRoleUser,
			MultiContent: []goopenai.ChatMessagePart{
				{Type: goopenai.ChatMessagePartTypeText, Text: prompt},
				{Type: goopenai.ChatMessagePartTypeImageURL, ImageURL: &goopenai.ChatMessageImageURL{URL: image.URL, Detail: detail}},
			},
		}},
	}

	var resp goopenai.ChatCompletionResponse
	err := c.retry(ctx, "describe_image", func() error {
		var err error
		resp, err = c.api.CreateChatCompletion(ctx, req)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("openai describe image: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *client) retry(ctx context.Context, op string, fn func() error) error {
	backoff := 500 * time.Millisecond
	var err error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err = fn(); err == nil || !retryable(err) {
			return err
		}
		c.log.Warn("OpenAI call failed, retrying", "op", op, "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}

func retryable(err error) bool {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return false
}

func toAPIMessages(in []ChatMessage) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(in))
	for _, m := range in {
		out = append(out, goopenai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
