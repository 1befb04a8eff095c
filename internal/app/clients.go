package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/cookgpt-backend/internal/platform/envutil"
	"github.com/yungbote/cookgpt-backend/internal/platform/gcp"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
	"github.com/yungbote/cookgpt-backend/internal/platform/openai"
	"github.com/yungbote/cookgpt-backend/internal/temporalx"
)

// Clients holds the external connections. Every field may be nil when the
// matching feature is disabled.
type Clients struct {
	Redis    goredis.UniversalClient
	Temporal temporalsdkclient.Client
	OpenAI   openai.Client

	Bucket   gcp.Bucket
	Vision   gcp.Vision
	Speech   gcp.Speech
	Video    gcp.Video
	Document gcp.Document
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config, tcfg temporalx.Config) (_ *Clients, err error) {
	log.Info("Wiring clients...")
	c := &Clients{}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	// Redis
	if cfg.RedisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:        cfg.RedisAddr,
			Password:    cfg.RedisPassword,
			DB:          cfg.RedisDB,
			DialTimeout: 5 * time.Second,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		c.Redis = rdb
	} else {
		log.Warn("REDIS_ADDR not set; cache, streams and rate limits stay in process")
	}

	// Temporal
	if cfg.TaskQueue == QueueTemporal {
		tc, err := temporalx.NewClient(ctx, tcfg, log)
		if err != nil {
			return nil, fmt.Errorf("init temporal client: %w", err)
		}
		if tc == nil {
			return nil, fmt.Errorf("TASK_QUEUE_MODE=%q requires TEMPORAL_ADDRESS", QueueTemporal)
		}
		c.Temporal = tc
	}

	// OpenAI
	if cfg.NeedsOpenAI() {
		oc, err := openai.NewClient(log)
		if err != nil {
			return nil, fmt.Errorf("init openai client: %w", err)
		}
		c.OpenAI = oc
	}

	// Gcs
	if envutil.String("MEDIA_BUCKET", "", log) != "" {
		scfg, err := gcp.LoadStorageConfig(log)
		if err != nil {
			return nil, err
		}
		b, err := gcp.NewBucket(ctx, scfg, log)
		if err != nil {
			return nil, fmt.Errorf("init bucket client: %w", err)
		}
		c.Bucket = b
	} else {
		log.Warn("MEDIA_BUCKET not set; attachments are kept in memory")
	}

	// Gcp analysis
	if cfg.ImageDescriber == DescriberVision {
		v, err := gcp.NewVision(ctx, log)
		if err != nil {
			return nil, fmt.Errorf("init vision client: %w", err)
		}
		c.Vision = v
	}
	if cfg.MediaAnalysis {
		s, err := gcp.NewSpeech(ctx, cfg.SpeechLanguage, log)
		if err != nil {
			return nil, fmt.Errorf("init speech client: %w", err)
		}
		c.Speech = s
		if c.Bucket != nil {
			v, err := gcp.NewVideo(ctx, log)
			if err != nil {
				return nil, fmt.Errorf("init video client: %w", err)
			}
			c.Video = v
		}
		if dcfg := gcp.LoadDocumentConfig(log); dcfg.Enabled() {
			d, err := gcp.NewDocument(ctx, dcfg, log)
			if err != nil {
				return nil, fmt.Errorf("init document client: %w", err)
			}
			c.Document = d
		}
	}
	return c, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Document != nil {
		_ = c.Document.Close()
	}
	if c.Video != nil {
		_ = c.Video.Close()
	}
	if c.Speech != nil {
		_ = c.Speech.Close()
	}
	if c.Vision != nil {
		_ = c.Vision.Close()
	}
	if c.Bucket != nil {
		_ = c.Bucket.Close()
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
