package generation

import (
	"context"
	"strings"
	"sync"
)

const DefaultFakeReply = "Sure! Rinse the rice, toast it in oil, add stock and simmer for eighteen minutes."

// Fake is a deterministic backend for tests and offline development. Each
// Send replies with the next canned response, split into word chunks.
type Fake struct {
	mu        sync.Mutex
	replies   []string
	next      int
	err       error
	sessions  []*FakeSession
	chunkSize int
}

func NewFake(replies ...string) *Fake {
	if len(replies) == 0 {
		replies = []string{DefaultFakeReply}
	}
	return &Fake{replies: replies, chunkSize: 1}
}

// FailWith makes every subsequent Send return err before emitting chunks.
func (f *Fake) FailWith(err error) *Fake {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
	return f
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) CreateSession(_ context.Context, history []Message, systemPrompt string) (Session, error) {
	s := &FakeSession{
		backend: f,
		History: append(Preamble(systemPrompt), history...),
	}
	f.mu.Lock()
	f.sessions = append(f.sessions, s)
	f.mu.Unlock()
	return s, nil
}

// Sessions returns every session created so far.
func (f *Fake) Sessions() []*FakeSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeSession(nil), f.sessions...)
}

func (f *Fake) reply() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	r := f.replies[f.next%len(f.replies)]
	f.next++
	return r, nil
}

type FakeSession struct {
	backend *Fake
	History []Message
	Prompts []string
}

func (s *FakeSession) Send(ctx context.Context, prompt string, usage *Usage, onChunk func(string) error) (string, error) {
	s.Prompts = append(s.Prompts, prompt)
	reply, err := s.backend.reply()
	if err != nil {
		return "", err
	}
	var out strings.Builder
	for _, chunk := range wordChunks(reply) {
		if err := ctx.Err(); err != nil {
			return out.String(), err
		}
		out.WriteString(chunk)
		if onChunk != nil {
			if err := onChunk(chunk); err != nil {
				return out.String(), err
			}
		}
	}
	if usage != nil {
		usage.Finalize(prompt, out.String())
	}
	return out.String(), nil
}

// wordChunks splits s into words that keep their trailing space, so joining
// the chunks reproduces s exactly.
func wordChunks(s string) []string {
	var chunks []string
	for len(s) > 0 {
		i := strings.IndexByte(s, ' ')
		if i < 0 {
			chunks = append(chunks, s)
			break
		}
		chunks = append(chunks, s[:i+1])
		s = s[i+1:]
	}
	return chunks
}
