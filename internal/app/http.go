package app

import (
	"context"
	"fmt"

	apphttp "github.com/yungbote/cookgpt-backend/internal/http"
	httpH "github.com/yungbote/cookgpt-backend/internal/http/handlers"
	httpMW "github.com/yungbote/cookgpt-backend/internal/http/middleware"
)

func wireServer(a *App) (*apphttp.Server, error) {
	log, cfg := a.Log, a.Cfg
	log.Info("Wiring handlers...")

	limiter, err := httpMW.RateLimit(httpMW.RateLimitConfig{Rate: cfg.LoginRateLimit, Redis: a.Clients.Redis}, log)
	if err != nil {
		return nil, fmt.Errorf("login rate limit: %w", err)
	}

	var streams httpH.StreamObserver
	if a.Metrics != nil {
		streams = a.Metrics
	}

	checks := map[string]httpH.Pinger{
		"database": func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if a.Clients.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.Clients.Redis.Ping(ctx).Err() }
	}

	return apphttp.NewServer(apphttp.RouterConfig{
		Log:                log,
		ServiceName:        a.Otel.ServiceName,
		Tracing:            a.Otel.Enabled,
		AllowedOrigins:     cfg.CORSOrigins,
		MaxMultipartMemory: cfg.MaxUploadBytes,

		AuthMiddleware: httpMW.NewAuthMiddleware(log, a.Services.Auth),
		LoginLimiter:   limiter,
		Metrics:        a.Metrics,

		AuthHandler:   httpH.NewAuthHandler(a.Services.Auth),
		UserHandler:   httpH.NewUserHandler(a.Services.User),
		ChatHandler:   httpH.NewChatHandler(log, a.Services.Chat, cfg.MaxUploadBytes, streams),
		ThreadHandler: httpH.NewThreadHandler(a.Services.Thread),
		HealthHandler: httpH.NewHealthHandler(checks),
	}), nil
}
