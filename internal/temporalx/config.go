package temporalx

import (
	"time"

	"github.com/yungbote/cookgpt-backend/internal/platform/envutil"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	AutoRegisterNamespace bool
	RetentionDays         int

	DialTimeout time.Duration
	DialMaxWait time.Duration
	Backoff     time.Duration
	BackoffMax  time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Address:   envutil.String("TEMPORAL_ADDRESS", "", log),
		Namespace: envutil.String("TEMPORAL_NAMESPACE", "cookgpt", log),
		TaskQueue: envutil.String("TEMPORAL_TASK_QUEUE", "cookgpt-chat", log),

		ClientCertPath: envutil.String("TEMPORAL_CLIENT_CERT_PATH", "", log),
		ClientKeyPath:  envutil.String("TEMPORAL_CLIENT_KEY_PATH", "", log),
		ClientCAPath:   envutil.String("TEMPORAL_CLIENT_CA_PATH", "", log),

		AutoRegisterNamespace: envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false, log),
		RetentionDays:         envutil.Int("TEMPORAL_NAMESPACE_RETENTION_DAYS", 3, log),

		DialTimeout: envutil.Duration("TEMPORAL_DIAL_TIMEOUT", 5*time.Second, log),
		DialMaxWait: envutil.Duration("TEMPORAL_DIAL_MAX_WAIT", 60*time.Second, log),
		Backoff:     envutil.Duration("TEMPORAL_DIAL_BACKOFF", 250*time.Millisecond, log),
		BackoffMax:  envutil.Duration("TEMPORAL_DIAL_BACKOFF_MAX", 5*time.Second, log),
	}
}

func (c Config) mTLS() bool {
	return c.ClientCertPath != "" || c.ClientKeyPath != "" || c.ClientCAPath != ""
}
