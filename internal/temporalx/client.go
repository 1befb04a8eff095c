package temporalx

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

// NewClient dials Temporal, retrying until cfg.DialMaxWait elapses. It
// returns nil, nil when no address is configured.
func NewClient(ctx context.Context, cfg Config, log *logger.Logger) (temporalsdkclient.Client, error) {
	if cfg.Address == "" {
		log.Warn("TEMPORAL_ADDRESS not set; Temporal disabled")
		return nil, nil
	}
	opts, err := clientOptions(cfg, log, true)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(cfg.DialMaxWait)
	for attempt := 1; ; attempt++ {
		dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
		c, err := temporalsdkclient.DialContext(dialCtx, opts)
		cancel()
		if err == nil {
			if attempt > 1 {
				log.Info("Connected to Temporal", "address", cfg.Address, "namespace", cfg.Namespace, "attempts", attempt)
			}
			if cfg.AutoRegisterNamespace {
				if err := EnsureNamespace(ctx, cfg, log); err != nil {
					c.Close()
					return nil, err
				}
			}
			return c, nil
		}
		if cfg.DialMaxWait <= 0 || time.Now().After(deadline) {
			return nil, fmt.Errorf("temporal dial failed (address=%s namespace=%s): %w", cfg.Address, cfg.Namespace, err)
		}
		log.Warn("Temporal not reachable; retrying", "address", cfg.Address, "attempt", attempt, "error", err)
		if err := sleep(ctx, Backoff(cfg.Backoff, cfg.BackoffMax, attempt)); err != nil {
			return nil, err
		}
	}
}

// EnsureNamespace creates the configured namespace when it does not exist.
// Meant for self-hosted Temporal; managed namespaces should be provisioned
// ahead of time.
func EnsureNamespace(ctx context.Context, cfg Config, log *logger.Logger) error {
	if cfg.Address == "" || cfg.Namespace == "" {
		return nil
	}
	// The namespace client carries no namespace header, so it can register
	// one that does not exist yet.
	opts, err := clientOptions(cfg, log, false)
	if err != nil {
		return err
	}
	nsClient, err := temporalsdkclient.NewNamespaceClient(opts)
	if err != nil {
		return fmt.Errorf("temporal namespace client: %w", err)
	}
	defer nsClient.Close()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for attempt := 1; ; attempt++ {
		_, err := nsClient.Describe(ctx, cfg.Namespace)
		if err == nil {
			return nil
		}
		var notFound *serviceerror.NamespaceNotFound
		if errors.As(err, &notFound) {
			days := cfg.RetentionDays
			if days < 1 || days > 365 {
				days = 3
			}
			err = nsClient.Register(ctx, &workflowservice.RegisterNamespaceRequest{
				Namespace:                        cfg.Namespace,
				Description:                      "cookgpt chat generation",
				WorkflowExecutionRetentionPeriod: durationpb.New(time.Duration(days) * 24 * time.Hour),
			})
			var exists *serviceerror.NamespaceAlreadyExists
			if err == nil || errors.As(err, &exists) {
				log.Info("Temporal namespace ready", "namespace", cfg.Namespace, "retention_days", days)
				return nil
			}
		}
		if !retryableRPC(err) {
			return fmt.Errorf("temporal namespace %s: %w", cfg.Namespace, err)
		}
		log.Warn("Temporal namespace check retrying", "namespace", cfg.Namespace, "attempt", attempt, "error", err)
		if err := sleep(ctx, Backoff(cfg.Backoff, cfg.BackoffMax, attempt)); err != nil {
			return fmt.Errorf("temporal namespace %s: %w", cfg.Namespace, err)
		}
	}
}

func clientOptions(cfg Config, log *logger.Logger, withNamespace bool) (temporalsdkclient.Options, error) {
	opts := temporalsdkclient.Options{HostPort: cfg.Address, Logger: log}
	if withNamespace {
		opts.Namespace = cfg.Namespace
	}
	if cfg.mTLS() {
		tlsCfg, err := loadTLSConfig(cfg)
		if err != nil {
			return opts, err
		}
		opts.ConnectionOptions.TLS = tlsCfg
	}
	return opts, nil
}

func loadTLSConfig(cfg Config) (*tls.Config, error) {
	if cfg.ClientCertPath == "" || cfg.ClientKeyPath == "" {
		return nil, fmt.Errorf("temporal tls: TEMPORAL_CLIENT_CERT_PATH and TEMPORAL_CLIENT_KEY_PATH are both required")
	}
	cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
	if err != nil {
		return nil, fmt.Errorf("temporal tls: load client cert/key: %w", err)
	}
	tlsCfg := &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	if cfg.ClientCAPath != "" {
		pem, err := os.ReadFile(cfg.ClientCAPath)
		if err != nil {
			return nil, fmt.Errorf("temporal tls: read CA: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("temporal tls: invalid CA pem")
		}
		tlsCfg.RootCAs = pool
	}
	return tlsCfg, nil
}

// Backoff doubles base per attempt, capped at max.
func Backoff(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if max > 0 && d >= max {
			return max
		}
	}
	return d
}

func retryableRPC(err error) bool {
	if err == nil {
		return false
	}
	s, ok := status.FromError(err)
	if !ok {
		return errors.Is(err, context.DeadlineExceeded)
	}
	switch s.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
