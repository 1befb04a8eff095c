package chat

import (
	"context"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/cookgpt-backend/internal/domain"
)

type MediaView struct {
	Type        types.MediaType `json:"type"`
	URL         string          `json:"url"`
	Description string          `json:"description"`
}

type ChatView struct {
	ID             uuid.UUID      `json:"id"`
	Content        string         `json:"content"`
	ChatType       types.ChatType `json:"chat_type"`
	Cost           int            `json:"cost"`
	PreviousChatID *uuid.UUID     `json:"previous_chat_id"`
	NextChatID     *uuid.UUID     `json:"next_chat_id"`
	SentTime       time.Time      `json:"sent_time"`
	ThreadID       uuid.UUID      `json:"thread_id"`
	Media          []MediaView    `json:"media"`
}

type ThreadView struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	ChatCount int       `json:"chat_count"`
	Cost      int       `json:"cost"`
	Closed    bool      `json:"closed"`
}

// DummyView is the unpersisted placeholder returned when a thread is over
// budget. It links to nothing and costs nothing.
func DummyView(threadID uuid.UUID, content string) ChatView {
	if threadID == uuid.Nil {
		threadID = uuid.New()
	}
	return ChatView{
		ID:       uuid.New(),
		Content:  content,
		ChatType: types.ChatTypeResponse,
		SentTime: time.Now().UTC(),
		ThreadID: threadID,
		Media:    []MediaView{},
	}
}

func (s *Store) ChatView(ctx context.Context, chat *types.Chat) (ChatView, error) {
	views, err := s.ChatViews(ctx, []*types.Chat{chat})
	if err != nil {
		return ChatView{}, err
	}
	return views[0], nil
}

// ChatViews renders chats with their successor ids and media in two
// queries, whatever the number of chats.
func (s *Store) ChatViews(ctx context.Context, chats []*types.Chat) ([]ChatView, error) {
	ids := make([]uuid.UUID, 0, len(chats))
	for _, c := range chats {
		ids = append(ids, c.ID)
	}
	next, err := s.Successors(ctx, ids...)
	if err != nil {
		return nil, err
	}
	media, err := s.Media(ctx, ids...)
	if err != nil {
		return nil, err
	}
	byChat := make(map[uuid.UUID][]MediaView, len(media))
	for _, m := range media {
		byChat[m.ChatID] = append(byChat[m.ChatID], MediaView{Type: m.Type, URL: m.URL, Description: m.Description})
	}

	out := make([]ChatView, 0, len(chats))
	for _, c := range chats {
		v := ChatView{
			ID:             c.ID,
			Content:        c.Content,
			ChatType:       c.ChatType,
			Cost:           c.Cost,
			PreviousChatID: c.PreviousChatID,
			SentTime:       c.SentTime,
			ThreadID:       c.ThreadID,
			Media:          byChat[c.ID],
		}
		if id, ok := next[c.ID]; ok {
			v.NextChatID = &id
		}
		if v.Media == nil {
			v.Media = []MediaView{}
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Store) ThreadView(ctx context.Context, thread *types.Thread) (ThreadView, error) {
	views, err := s.ThreadViews(ctx, []*types.Thread{thread})
	if err != nil {
		return ThreadView{}, err
	}
	return views[0], nil
}

func (s *Store) ThreadViews(ctx context.Context, threads []*types.Thread) ([]ThreadView, error) {
	ids := make([]uuid.UUID, 0, len(threads))
	for _, t := range threads {
		ids = append(ids, t.ID)
	}
	stats, err := s.Stats(ctx, ids...)
	if err != nil {
		return nil, err
	}
	out := make([]ThreadView, 0, len(threads))
	for _, t := range threads {
		st := stats[t.ID]
		out = append(out, ThreadView{ID: t.ID, Title: t.Title, ChatCount: st.ChatCount, Cost: st.Cost, Closed: t.Closed})
	}
	return out, nil
}
