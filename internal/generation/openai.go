package generation

import (
	"context"

	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
	"github.com/yungbote/cookgpt-backend/internal/platform/openai"
)

type openAIBackend struct {
	client openai.Client
	log    *logger.Logger
}

// NewOpenAI adapts an OpenAI-compatible client to Backend.
func NewOpenAI(client openai.Client, log *logger.Logger) Backend {
	return &openAIBackend{client: client, log: log.With("backend", "openai")}
}

func (b *openAIBackend) Name() string { return "openai:" + b.client.Model() }

func (b *openAIBackend) CreateSession(_ context.Context, history []Message, systemPrompt string) (Session, error) {
	msgs := append(Preamble(systemPrompt), history...)
	wire := make([]openai.ChatMessage, 0, len(msgs)+1)
	for _, m := range msgs {
		wire = append(wire, openai.ChatMessage{Role: wireRole(m.Role), Content: m.Content})
	}
	return &openAISession{backend: b, history: wire}, nil
}

type openAISession struct {
	backend *openAIBackend
	history []openai.ChatMessage
}

func (s *openAISession) Send(ctx context.Context, prompt string, usage *Usage, onChunk func(string) error) (string, error) {
	msgs := append(s.history, openai.ChatMessage{Role: openai.RoleUser, Content: prompt})
	res, err := s.backend.client.StreamChat(ctx, msgs, onChunk)
	if usage != nil {
		usage.PromptTokens += res.PromptTokens
		usage.CompletionTokens += res.CompletionTokens
	}
	if err != nil {
		return res.Text, err
	}
	s.history = append(msgs, openai.ChatMessage{Role: openai.RoleAssistant, Content: res.Text})
	if usage != nil {
		usage.Finalize(prompt, res.Text)
	}
	return res.Text, nil
}

func wireRole(r Role) string {
	if r == RoleModel {
		return openai.RoleAssistant
	}
	return openai.RoleUser
}
