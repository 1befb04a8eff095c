package app

import (
	"fmt"

	"github.com/yungbote/cookgpt-backend/internal/cache"
	types "github.com/yungbote/cookgpt-backend/internal/domain"
	"github.com/yungbote/cookgpt-backend/internal/generation"
	"github.com/yungbote/cookgpt-backend/internal/generation/prompts"
	"github.com/yungbote/cookgpt-backend/internal/media"
	"github.com/yungbote/cookgpt-backend/internal/modules/chat/stream"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
	"github.com/yungbote/cookgpt-backend/internal/services"
	"github.com/yungbote/cookgpt-backend/internal/tasks"
)

type Services struct {
	Auth   services.AuthService
	User   services.UserService
	Thread services.ThreadService
	Chat   services.ChatService

	cache   cache.Store
	streams stream.Store
	media   *media.Service
}

func wireServices(a *App) (Services, error) {
	log, cfg := a.Log, a.Cfg
	log.Info("Wiring services...")
	s := a.Services

	tailer := stream.NewTailer(s.streams, tasks.Checker(a.Queue), stream.TailerConfig{
		PollInterval: cfg.StreamPoll,
		ReadTimeout:  cfg.StreamTimeout,
	}, log)

	s.Auth = services.NewAuthService(a.DB, log, a.Repos.User, a.Repos.UserToken, cfg.Auth)
	s.User = services.NewUserService(a.DB, log, a.Repos.User, a.Repos.UserToken, a.Store)
	s.Thread = services.NewThreadService(log, a.Repos.User, a.Store, s.cache, cfg.CacheTTL)

	deps := services.ChatServiceDeps{
		Log:      log,
		Users:    a.Repos.User,
		Store:    a.Store,
		Sender:   a.Sender,
		Queue:    a.Queue,
		Streams:  s.streams,
		Tailer:   tailer,
		Media:    s.media,
		Cache:    s.cache,
		CacheTTL: cfg.CacheTTL,
	}
	if a.Metrics != nil {
		deps.Budget = a.Metrics
	}
	s.Chat = services.NewChatService(deps)
	return s, nil
}

func wireBackend(log *logger.Logger, cfg Config, c *Clients) (generation.Backend, error) {
	switch cfg.LLMBackend {
	case BackendFake:
		log.Warn("LLM_BACKEND=fake; responses are canned")
		return generation.NewFake(), nil
	case BackendOpenAI:
		if c.OpenAI == nil {
			return nil, fmt.Errorf("LLM_BACKEND=%q requires an OpenAI client", BackendOpenAI)
		}
		return generation.NewOpenAI(c.OpenAI, log), nil
	default:
		return nil, fmt.Errorf("unknown LLM_BACKEND %q", cfg.LLMBackend)
	}
}

// wireMedia picks a describer per media type. Types without one are stored
// but never described.
func wireMedia(log *logger.Logger, cfg Config, c *Clients, set *prompts.Set) *media.Service {
	describers := map[types.MediaType]media.Describer{}
	switch {
	case cfg.ImageDescriber == DescriberOpenAI && c.OpenAI != nil:
		describers[types.MediaTypeImage] = media.OpenAIImageDescriber(c.OpenAI, set.Image())
	case cfg.ImageDescriber == DescriberVision && c.Vision != nil:
		describers[types.MediaTypeImage] = media.VisionDescriber(c.Vision)
	}
	if c.Speech != nil {
		describers[types.MediaTypeAudio] = media.SpeechDescriber(c.Speech)
	}
	if c.Video != nil {
		describers[types.MediaTypeVideo] = media.VideoDescriber(c.Video)
	}
	if c.Document != nil {
		describers[types.MediaTypeDocument] = media.DocumentDescriber(c.Document)
	}

	var storage media.Storage = media.NewMemoryStorage()
	if c.Bucket != nil {
		storage = c.Bucket
	}
	return media.NewService(storage, describers, media.Config{
		MaxEdge:     cfg.ImageMaxEdge,
		JPEGQuality: cfg.ImageJPEGQuality,
	}, log)
}
