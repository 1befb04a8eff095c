package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/cookgpt-backend/internal/cache"
	"github.com/yungbote/cookgpt-backend/internal/data/repos"
	types "github.com/yungbote/cookgpt-backend/internal/domain"
	"github.com/yungbote/cookgpt-backend/internal/media"
	"github.com/yungbote/cookgpt-backend/internal/modules/chat"
	"github.com/yungbote/cookgpt-backend/internal/modules/chat/stream"
	"github.com/yungbote/cookgpt-backend/internal/platform/apierr"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
	"github.com/yungbote/cookgpt-backend/internal/tasks"
)

// NewChatThreadTitle names the thread opened by a chat sent without one.
const NewChatThreadTitle = "New Chat"

// BudgetExceededMessage is the content of the placeholder returned when a
// thread has used up its owner's chat budget.
const BudgetExceededMessage = "This thread has reached its maximum cost. Start a new thread to keep cooking."

var (
	errChatNotFound   = errors.New("Chat not found")
	errStreamNotFound = errors.New("Chat does not exist.")
	errEmptyQuery     = errors.New("query is required")
)

type PostChatInput struct {
	Query       string
	ThreadID    *uuid.UUID
	Attachments []media.File
	Stream      bool
}

type PostChatResult struct {
	Chat      chat.ChatView `json:"chat"`
	Streaming bool          `json:"streaming"`
	// Dummy is set when the budget blocked the request and nothing was saved.
	Dummy bool `json:"-"`
}

type ChatService interface {
	Post(ctx context.Context, in PostChatInput) (*PostChatResult, error)
	Get(ctx context.Context, chatID uuid.UUID) (*chat.ChatView, error)
	List(ctx context.Context, threadID uuid.UUID) ([]chat.ChatView, error)
	Delete(ctx context.Context, chatID uuid.UUID) error
	Clear(ctx context.Context, threadID uuid.UUID) error
	// ReadStream emits the response text of chatID as it is generated.
	ReadStream(ctx context.Context, chatID uuid.UUID, emit func(string) error) error
}

// QuerySender runs a generation in the request goroutine.
type QuerySender interface {
	SendQuery(ctx context.Context, args chat.SendQueryArgs) error
}

type ChatServiceDeps struct {
	Log     *logger.Logger
	Users   repos.UserRepo
	Store   *chat.Store
	Sender  QuerySender
	Queue   tasks.Queue
	Streams stream.Store
	Tailer  *stream.Tailer

	// Optional. Without Media, attachments are rejected.
	Media *media.Service

	Cache    cache.Store
	CacheTTL time.Duration

	// Optional.
	Budget BudgetObserver
}

// BudgetObserver counts submissions answered with the budget placeholder.
type BudgetObserver interface {
	IncBudgetPlaceholder()
}

type chatService struct {
	deps ChatServiceDeps
	log  *logger.Logger
}

func NewChatService(deps ChatServiceDeps) ChatService {
	if deps.Cache == nil {
		deps.Cache = cache.NewMemoryStore()
	}
	return &chatService{deps: deps, log: deps.Log.With("service", "ChatService")}
}

func (cs *chatService) owner(ctx context.Context) (*chat.Owner, error) {
	u, err := currentUser(ctx, cs.deps.Users)
	if err != nil {
		return nil, err
	}
	return cs.deps.Store.ForUser(u), nil
}

type attachment struct {
	file media.File
	kind types.MediaType
}

func (cs *chatService) classify(files []media.File) ([]attachment, error) {
	out := make([]attachment, 0, len(files))
	for _, f := range files {
		if len(f.Data) == 0 {
			continue
		}
		if cs.deps.Media == nil {
			return nil, apierr.Unprocessable("attachments_disabled", errors.New("attachments are not enabled"))
		}
		kind, _, err := media.Classify(f.ContentType, f.Data)
		if err != nil {
			return nil, apierr.Unprocessable("unsupported_attachment", err)
		}
		out = append(out, attachment{file: f, kind: kind})
	}
	return out, nil
}

func (cs *chatService) Post(ctx context.Context, in PostChatInput) (*PostChatResult, error) {
	o, err := cs.owner(ctx)
	if err != nil {
		return nil, err
	}
	user := o.User()
	in.Query = strings.TrimSpace(in.Query)
	if in.Query == "" {
		return nil, apierr.Unprocessable("missing_query", errEmptyQuery)
	}
	files, err := cs.classify(in.Attachments)
	if err != nil {
		return nil, err
	}

	var thread *types.Thread
	cost := 0
	if in.ThreadID != nil {
		if thread, err = o.Thread(ctx, *in.ThreadID); err != nil {
			return nil, chat.APIError(err)
		}
		stats, err := cs.deps.Store.ThreadStats(ctx, thread.ID)
		if err != nil {
			return nil, err
		}
		cost = stats.Cost
	}
	if cost >= user.MaxChatCost {
		threadID := uuid.Nil
		if thread != nil {
			threadID = thread.ID
		}
		if cs.deps.Budget != nil {
			cs.deps.Budget.IncBudgetPlaceholder()
		}
		cs.log.Info("Chat budget reached, returning placeholder", "user_id", user.ID, "thread_id", threadID, "cost", cost, "max_chat_cost", user.MaxChatCost)
		return &PostChatResult{Chat: chat.DummyView(threadID, BudgetExceededMessage), Dummy: true}, nil
	}
	// The implicit thread and the query/response pair commit or roll back
	// together.
	var query, response *types.Chat
	err = cs.deps.Store.Transaction(ctx, func(tx *chat.Store) error {
		t := thread
		if t == nil {
			created, err := tx.ForUser(user).CreateThread(ctx, NewChatThreadTitle)
			if err != nil {
				return err
			}
			t = created
		}
		q, err := tx.AddQuery(ctx, t, "", 0, nil)
		if err != nil {
			return err
		}
		r, err := tx.Reply(ctx, q, "", 0)
		if err != nil {
			return err
		}
		thread, query, response = t, q, r
		return nil
	})
	if err != nil {
		return nil, chat.APIError(err)
	}
	log := cs.log.With("thread_id", thread.ID, "query_id", query.ID, "response_id", response.ID)

	args := chat.SendQueryArgs{
		QueryID:          query.ID,
		ResponseID:       response.ID,
		ThreadID:         thread.ID,
		UserQuery:        in.Query,
		ImageDescription: cs.attach(ctx, log, query, files),
	}

	if in.Stream {
		h, err := cs.deps.Queue.SendQuery(ctx, args)
		if err != nil {
			return nil, err
		}
		if err := cs.deps.Streams.SetTaskID(ctx, response.ID, h.ID()); err != nil {
			log.Warn("Could not record task id", "task_id", h.ID(), "error", err)
		}
		log.Info("Query dispatched", "task_id", h.ID())
	} else if err := cs.deps.Sender.SendQuery(ctx, args); err != nil {
		log.Error("Foreground generation failed", "error", err)
	}

	if response, err = cs.deps.Store.Chat(ctx, response.ID); err != nil {
		return nil, chat.APIError(err)
	}
	view, err := cs.deps.Store.ChatView(ctx, response)
	if err != nil {
		return nil, err
	}
	return &PostChatResult{Chat: view, Streaming: in.Stream}, nil
}

// attach uploads and describes each file against the query chat. Failures
// are logged and skipped. It returns the first image description.
func (cs *chatService) attach(ctx context.Context, log *logger.Logger, query *types.Chat, files []attachment) string {
	imageDesc := ""
	for _, a := range files {
		m, data, err := cs.deps.Media.Upload(ctx, query.ID, a.file)
		if err != nil {
			log.Warn("Attachment upload failed", "name", a.file.Name, "error", err)
			continue
		}
		if err := cs.deps.Store.AttachMedia(ctx, query, m); err != nil {
			log.Warn("Attachment not saved", "object_key", m.ObjectKey, "error", err)
			_ = cs.deps.Media.DeleteObjects(context.WithoutCancel(ctx), []string{m.ObjectKey})
			continue
		}
		desc, labels := cs.deps.Media.Describe(ctx, m, data)
		if desc == "" {
			continue
		}
		if err := cs.deps.Store.DescribeMedia(ctx, query, m.ID, desc, labels); err != nil {
			log.Warn("Attachment description not saved", "media_id", m.ID, "error", err)
		}
		if a.kind == types.MediaTypeImage && imageDesc == "" {
			imageDesc = desc
		}
	}
	return imageDesc
}

func (cs *chatService) Get(ctx context.Context, chatID uuid.UUID) (*chat.ChatView, error) {
	o, err := cs.owner(ctx)
	if err != nil {
		return nil, err
	}
	cached, err := cache.Load(ctx, cs.deps.Cache, cache.ChatKey(chatID), cs.deps.CacheTTL, func() (owned[chat.ChatView], error) {
		c, err := cs.deps.Store.Chat(ctx, chatID)
		if err != nil {
			return owned[chat.ChatView]{}, err
		}
		t, err := cs.deps.Store.Thread(ctx, c.ThreadID)
		if err != nil {
			return owned[chat.ChatView]{}, err
		}
		v, err := cs.deps.Store.ChatView(ctx, c)
		return owned[chat.ChatView]{UserID: t.UserID, View: v}, err
	})
	if err != nil {
		return nil, notFoundAs(err, errChatNotFound)
	}
	if cached.UserID != o.User().ID {
		return nil, apierr.NotFound("chat_not_found", errChatNotFound)
	}
	v := cached.View
	// Appending a chat leaves its predecessor's key in place.
	if v.NextChatID == nil {
		next, err := cs.deps.Store.Successors(ctx, v.ID)
		if err != nil {
			return nil, err
		}
		if id, ok := next[v.ID]; ok {
			v.NextChatID = &id
		}
	}
	return &v, nil
}

func (cs *chatService) List(ctx context.Context, threadID uuid.UUID) ([]chat.ChatView, error) {
	o, err := cs.owner(ctx)
	if err != nil {
		return nil, err
	}
	cached, err := cache.Load(ctx, cs.deps.Cache, cache.ChatsKey(threadID), cs.deps.CacheTTL, func() (owned[[]chat.ChatView], error) {
		t, err := cs.deps.Store.Thread(ctx, threadID)
		if err != nil {
			return owned[[]chat.ChatView]{}, err
		}
		chats, err := cs.deps.Store.Chats(ctx, threadID)
		if err != nil {
			return owned[[]chat.ChatView]{}, err
		}
		views, err := cs.deps.Store.ChatViews(ctx, chats)
		return owned[[]chat.ChatView]{UserID: t.UserID, View: views}, err
	})
	if err != nil {
		return nil, chat.APIError(err)
	}
	return checkOwner(cached, o.User())
}

func (cs *chatService) Delete(ctx context.Context, chatID uuid.UUID) error {
	o, err := cs.owner(ctx)
	if err != nil {
		return err
	}
	c, err := o.Chat(ctx, chatID)
	if err != nil {
		return notFoundAs(err, errChatNotFound)
	}
	n, err := cs.deps.Store.DeleteChat(ctx, c)
	if err != nil {
		return chat.APIError(err)
	}
	cs.log.Info("Chat deleted", "chat_id", c.ID, "thread_id", c.ThreadID, "removed", n)
	return nil
}

func (cs *chatService) Clear(ctx context.Context, threadID uuid.UUID) error {
	o, err := cs.owner(ctx)
	if err != nil {
		return err
	}
	n, err := o.ClearChats(ctx, threadID)
	if err != nil {
		return chat.APIError(err)
	}
	cs.log.Info("Thread cleared", "thread_id", threadID, "removed", n)
	return nil
}

func (cs *chatService) ReadStream(ctx context.Context, chatID uuid.UUID, emit func(string) error) error {
	o, err := cs.owner(ctx)
	if err != nil {
		return err
	}
	c, err := o.Chat(ctx, chatID)
	if err != nil {
		return notFoundAs(err, errStreamNotFound)
	}
	return cs.deps.Tailer.Tail(ctx, c.ID, c.Content, emit)
}

// notFoundAs reports a missing or foreign chat as a 404 carrying msg.
func notFoundAs(err, msg error) error {
	if errors.Is(err, chat.ErrChatNotFound) || errors.Is(err, chat.ErrThreadNotFound) || errors.Is(err, chat.ErrThreadNotOwned) {
		return apierr.NotFound("chat_not_found", msg)
	}
	return chat.APIError(err)
}
