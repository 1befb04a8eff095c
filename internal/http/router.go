package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/cookgpt-backend/internal/http/handlers"
	httpMW "github.com/yungbote/cookgpt-backend/internal/http/middleware"
	"github.com/yungbote/cookgpt-backend/internal/observability"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string
	// MaxMultipartMemory bounds in-memory multipart parsing.
	MaxMultipartMemory int64

	AuthMiddleware *httpMW.AuthMiddleware
	// LoginLimiter throttles the public auth routes. Optional.
	LoginLimiter gin.HandlerFunc
	Metrics      *observability.Metrics
	Tracing      bool

	AuthHandler   *httpH.AuthHandler
	UserHandler   *httpH.UserHandler
	ChatHandler   *httpH.ChatHandler
	ThreadHandler *httpH.ThreadHandler
	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.MaxMultipartMemory > 0 {
		r.MaxMultipartMemory = cfg.MaxMultipartMemory
	}
	if cfg.Tracing {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")

	// Auth (public)
	if cfg.AuthHandler != nil {
		public := api.Group("/auth")
		if cfg.LoginLimiter != nil {
			public.Use(cfg.LoginLimiter)
		}
		public.POST("/signup", cfg.AuthHandler.Signup)
		public.POST("/login", cfg.AuthHandler.Login)
		if cfg.AuthMiddleware != nil {
			api.POST("/auth/refresh", cfg.AuthMiddleware.RequireRefresh(), cfg.AuthHandler.Refresh)
		}
	}

	protected := api.Group("")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}

	if cfg.AuthHandler != nil {
		protected.POST("/auth/logout", cfg.AuthHandler.Logout)
	}

	// User
	if cfg.UserHandler != nil {
		protected.GET("/user", cfg.UserHandler.GetMe)
		protected.PATCH("/user", cfg.UserHandler.Update)
		protected.DELETE("/user", cfg.UserHandler.Delete)
	}

	// Chat
	if cfg.ChatHandler != nil {
		protected.POST("/chat", cfg.ChatHandler.Post)
		protected.GET("/chat/all", cfg.ChatHandler.List)
		protected.DELETE("/chat/all", cfg.ChatHandler.Clear)
		protected.GET("/chat/stream/:chat_id", cfg.ChatHandler.ReadStream)
		protected.GET("/chat/:chat_id", cfg.ChatHandler.Get)
		protected.DELETE("/chat/:chat_id", cfg.ChatHandler.Delete)
	}

	// Thread
	if cfg.ThreadHandler != nil {
		protected.POST("/thread", cfg.ThreadHandler.Create)
		protected.GET("/thread/:thread_id", cfg.ThreadHandler.Get)
		protected.PATCH("/thread/:thread_id", cfg.ThreadHandler.Update)
		protected.DELETE("/thread/:thread_id", cfg.ThreadHandler.Delete)
		protected.GET("/threads", cfg.ThreadHandler.List)
		protected.DELETE("/threads", cfg.ThreadHandler.DeleteAll)
	}

	return r
}
