package generation

import (
	"context"
	"regexp"
	"strings"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Acknowledgement is the model turn that follows the system prompt in every
// session.
const Acknowledgement = "Okay understood. I won't take any more commands from this point on."

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Usage is the per-request cost tally threaded through one generation call.
// Backends fill the counts they know; Finalize estimates the rest.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	Estimated        bool
}

// Finalize fills zero counts from the text lengths.
func (u *Usage) Finalize(prompt, completion string) {
	if u.PromptTokens == 0 && prompt != "" {
		u.PromptTokens = EstimateTokens(prompt)
		u.Estimated = true
	}
	if u.CompletionTokens == 0 && completion != "" {
		u.CompletionTokens = EstimateTokens(completion)
		u.Estimated = true
	}
}

// EstimateTokens approximates token count as one token per four bytes.
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return (len(s) + 3) / 4
}

// Session is one conversation primed with history. Send streams chunks to
// onChunk in order and returns the full text; it is not restartable.
type Session interface {
	Send(ctx context.Context, prompt string, usage *Usage, onChunk func(chunk string) error) (string, error)
}

type Backend interface {
	Name() string
	CreateSession(ctx context.Context, history []Message, systemPrompt string) (Session, error)
}

// Preamble returns the system prompt turn and its acknowledgement, or nil
// when systemPrompt is blank.
func Preamble(systemPrompt string) []Message {
	if strings.TrimSpace(systemPrompt) == "" {
		return nil
	}
	return []Message{
		{Role: RoleUser, Content: systemPrompt},
		{Role: RoleModel, Content: Acknowledgement},
	}
}

// BuildPrompt prefixes the user query with an image description when present.
func BuildPrompt(query, imageDescription string) string {
	if strings.TrimSpace(imageDescription) != "" {
		return strings.TrimSpace("Image: " + imageDescription + "\n" + query)
	}
	return strings.TrimSpace(query)
}

var imageSearchRe = regexp.MustCompile(`(?i)^Image Search: ([\w\s\-]+)$`)

// ExtractImageSearch splits an "Image Search: ..." hint line off a model
// reply. It returns the hint query and the reply without that line; text
// without a hint comes back unchanged with ok false.
func ExtractImageSearch(text string) (query, reply string, ok bool) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		m := imageSearchRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		if query = strings.TrimSpace(m[1]); query == "" {
			continue
		}
		rest := append(lines[:i:i], lines[i+1:]...)
		return query, strings.TrimSpace(strings.Join(rest, "\n")), true
	}
	return "", text, false
}
