package chat

import (
	"iter"

	types "github.com/yungbote/cookgpt-backend/internal/domain"
)

// History is the cost-bounded context of a thread: the longest suffix of its
// non-empty chats whose summed cost fits the budget. Query/response pairs
// are not kept together, so a window may open on a response.
type History struct {
	chats []*types.Chat
	start int
}

func newHistory(chats []*types.Chat, maxLength int) *History {
	filled := make([]*types.Chat, 0, len(chats))
	for _, c := range chats {
		if c.Content != "" {
			filled = append(filled, c)
		}
	}
	return &History{chats: filled, start: windowStart(filled, maxLength)}
}

func windowStart(chats []*types.Chat, maxLength int) int {
	start := len(chats)
	if maxLength <= 0 {
		return start
	}
	total := 0
	for i := len(chats) - 1; i >= 0; i-- {
		total += chats[i].Cost
		if total > maxLength {
			break
		}
		start = i
	}
	return start
}

// All yields the window in chronological order. Each call starts over.
func (h *History) All() iter.Seq[*types.Chat] {
	return func(yield func(*types.Chat) bool) {
		for _, c := range h.chats[h.start:] {
			if !yield(c) {
				return
			}
		}
	}
}

func (h *History) Window() []*types.Chat {
	return h.chats[h.start:]
}

// At indexes the thread's non-empty chats, not just the window. ok is false
// when i is outside [0, Len()).
func (h *History) At(i int) (*types.Chat, bool) {
	if i < 0 || i >= len(h.chats) {
		return nil, false
	}
	return h.chats[i], true
}

func (h *History) Len() int { return len(h.chats) }

func (h *History) Cost() int {
	total := 0
	for _, c := range h.Window() {
		total += c.Cost
	}
	return total
}
