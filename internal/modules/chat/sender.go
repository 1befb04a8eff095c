package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/cookgpt-backend/internal/data/repos"
	types "github.com/yungbote/cookgpt-backend/internal/domain"
	"github.com/yungbote/cookgpt-backend/internal/generation"
	"github.com/yungbote/cookgpt-backend/internal/generation/prompts"
	"github.com/yungbote/cookgpt-backend/internal/modules/chat/stream"
	"github.com/yungbote/cookgpt-backend/internal/pkg/dbctx"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

// SendQueryTask is the task name the queue registers SendQuery under.
const SendQueryTask = "chatbot.send_query"

type SendQueryArgs struct {
	QueryID          uuid.UUID `json:"query_id"`
	ResponseID       uuid.UUID `json:"response_id"`
	ThreadID         uuid.UUID `json:"thread_id"`
	UserQuery        string    `json:"user_query"`
	ImageDescription string    `json:"image_description,omitempty"`
}

type GenerationObserver interface {
	ObserveGeneration(backend string, took time.Duration, usage generation.Usage, err error)
}

type SenderDeps struct {
	Store   *Store
	Users   repos.UserRepo
	Backend generation.Backend
	Prompts *prompts.Set
	Streams stream.Store
	Log     *logger.Logger

	// Optional.
	Observer GenerationObserver
}

// Sender runs the generation for one pending query/response pair and fills
// both chats in place.
type Sender struct {
	deps SenderDeps
	log  *logger.Logger
}

func NewSender(deps SenderDeps) *Sender {
	return &Sender{deps: deps, log: deps.Log.With("component", "ChatSender")}
}

// SendQuery marks the response stream STARTED, streams every generated
// chunk into it and writes the final content and cost back. The stream is
// marked COMPLETED on every exit path so readers stop polling.
func (s *Sender) SendQuery(ctx context.Context, args SendQueryArgs) error {
	log := s.log.With("query_id", args.QueryID, "response_id", args.ResponseID, "thread_id", args.ThreadID)

	query, err := s.deps.Store.Chat(ctx, args.QueryID)
	if err != nil {
		return fmt.Errorf("query for task: %w", err)
	}
	response, err := s.deps.Store.Chat(ctx, args.ResponseID)
	if err != nil {
		return fmt.Errorf("response for task: %w", err)
	}
	threadID := args.ThreadID
	if threadID == uuid.Nil {
		threadID = response.ThreadID
	}
	thread, err := s.deps.Store.Thread(ctx, threadID)
	if err != nil {
		return fmt.Errorf("thread for task: %w", err)
	}
	user, err := s.deps.Users.GetByID(dbctx.Context{Ctx: ctx}, thread.UserID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("user %s for thread %s does not exist", thread.UserID, thread.ID)
	}

	if err := s.deps.Streams.SetStatus(ctx, response.ID, stream.StatusStarted); err != nil {
		log.Warn("Could not mark stream started", "error", err)
	}
	defer func() {
		if err := s.deps.Streams.SetStatus(context.WithoutCancel(ctx), response.ID, stream.StatusCompleted); err != nil {
			log.Warn("Could not mark stream completed", "error", err)
		}
	}()

	history, err := s.History(ctx, thread, user)
	if err != nil {
		return err
	}
	system := ""
	if s.deps.Prompts != nil {
		if system, err = s.deps.Prompts.System(user.Name()); err != nil {
			return err
		}
	}
	session, err := s.deps.Backend.CreateSession(ctx, history, system)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	prompt := generation.BuildPrompt(args.UserQuery, args.ImageDescription)
	queryTime := time.Now().UTC()
	var usage generation.Usage
	appendFailed := false
	started := time.Now()
	text, err := session.Send(ctx, prompt, &usage, func(chunk string) error {
		if err := s.deps.Streams.Append(ctx, response.ID, chunk); err != nil && !appendFailed {
			appendFailed = true
			log.Warn("Stream append failed, continuing without live tokens", "error", err)
		}
		return nil
	})
	if s.deps.Observer != nil {
		s.deps.Observer.ObserveGeneration(s.deps.Backend.Name(), time.Since(started), usage, err)
	}
	if err != nil {
		log.Error("Generation failed, response left pending", "error", err)
		return fmt.Errorf("generate: %w", err)
	}
	usage.Finalize(prompt, text)
	if hint, reply, ok := generation.ExtractImageSearch(text); ok {
		log.Info("Reply carried an image search hint", "image_search", hint)
		text = reply
	}
	responseTime := time.Now().UTC()

	err = s.deps.Store.Transaction(ctx, func(tx *Store) error {
		if err := tx.UpdateChat(ctx, query, ChatUpdate{
			Content:  &args.UserQuery,
			Cost:     &usage.PromptTokens,
			SentTime: &queryTime,
		}); err != nil {
			return err
		}
		return tx.UpdateChat(ctx, response, ChatUpdate{
			Content:  &text,
			Cost:     &usage.CompletionTokens,
			SentTime: &responseTime,
		})
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			log.Warn("Chats were already filled", "error", err)
		}
		return fmt.Errorf("write back: %w", err)
	}
	log.Info("Query answered",
		"prompt_tokens", usage.PromptTokens,
		"completion_tokens", usage.CompletionTokens,
		"estimated", usage.Estimated,
	)
	return nil
}

// History turns the cost-bounded window of thread into session turns.
// Chats with a described attachment are prefixed with the description.
func (s *Sender) History(ctx context.Context, thread *types.Thread, user *types.User) ([]generation.Message, error) {
	window, err := s.deps.Store.History(ctx, thread.ID, user.MaxChatCost)
	if err != nil {
		return nil, err
	}
	chats := window.Window()
	ids := make([]uuid.UUID, 0, len(chats))
	for _, c := range chats {
		ids = append(ids, c.ID)
	}
	media, err := s.deps.Store.Media(ctx, ids...)
	if err != nil {
		return nil, fmt.Errorf("load history media: %w", err)
	}
	descs := map[uuid.UUID][]string{}
	for _, m := range media {
		if d := strings.TrimSpace(m.Description); d != "" {
			descs[m.ChatID] = append(descs[m.ChatID], d)
		}
	}

	out := make([]generation.Message, 0, len(chats))
	for c := range window.All() {
		role := generation.RoleUser
		if c.ChatType == types.ChatTypeResponse {
			role = generation.RoleModel
		}
		var b strings.Builder
		for _, d := range descs[c.ID] {
			b.WriteString("Image: ")
			b.WriteString(d)
			b.WriteString("\n")
		}
		b.WriteString(c.Content)
		out = append(out, generation.Message{Role: role, Content: b.String()})
	}
	return out, nil
}
