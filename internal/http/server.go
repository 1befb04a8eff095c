package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

type Server struct {
	Engine *gin.Engine
	log    *logger.Logger
}

func NewServer(cfg RouterConfig) *Server {
	return &Server{Engine: NewRouter(cfg), log: cfg.Log.With("component", "HTTPServer")}
}

// Run serves on address until ctx is cancelled, then drains in-flight
// requests for up to drain.
func (s *Server) Run(ctx context.Context, address string, drain time.Duration) error {
	srv := &http.Server{
		Addr:              address,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "addr", address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), drain)
	defer cancel()
	s.log.Info("HTTP server shutting down", "drain", drain.String())
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
