package envutil

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

func String(key, def string, log *logger.Logger) string {
	v, ok := lookup(key)
	if !ok {
		debugf(log, key, false)
		return def
	}
	debugf(log, key, true)
	return v
}

func Int(key string, def int, log *logger.Logger) int {
	v, ok := lookup(key)
	if !ok {
		debugf(log, key, false)
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		if log != nil {
			log.Warn("Invalid integer env var, using default", "key", key, "default", def)
		}
		return def
	}
	debugf(log, key, true)
	return i
}

func Bool(key string, def bool, log *logger.Logger) bool {
	v, ok := lookup(key)
	if !ok {
		debugf(log, key, false)
		return def
	}
	debugf(log, key, true)
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func Float(key string, def float64, log *logger.Logger) float64 {
	v, ok := lookup(key)
	if !ok {
		debugf(log, key, false)
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		if log != nil {
			log.Warn("Invalid float env var, using default", "key", key, "default", def)
		}
		return def
	}
	debugf(log, key, true)
	return f
}

// List splits a comma-separated value, dropping empty items.
func List(key string, log *logger.Logger) []string {
	v, ok := lookup(key)
	debugf(log, key, ok)
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Duration accepts Go duration strings ("250ms") or a bare number of seconds.
func Duration(key string, def time.Duration, log *logger.Logger) time.Duration {
	v, ok := lookup(key)
	if !ok {
		debugf(log, key, false)
		return def
	}
	debugf(log, key, true)
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs >= 0 {
		return time.Duration(secs * float64(time.Second))
	}
	if log != nil {
		log.Warn("Invalid duration env var, using default", "key", key, "default", def.String())
	}
	return def
}

func lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func debugf(log *logger.Logger, key string, found bool) {
	if log == nil {
		return
	}
	if found {
		log.Debug("Env var found", "key", key)
		return
	}
	log.Debug("Env var not set, using default", "key", key)
}
