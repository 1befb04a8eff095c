package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	SugaredLogger *zap.SugaredLogger
	redact        *redactor
}

// New builds a zap-backed logger. mode is "production" or "development";
// LOG_LEVEL overrides the default debug level.
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(levelFromEnv(zap.DebugLevel))
	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: zapLogger.Sugar(), redact: redactorFromEnv()}, nil
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar(), redact: &redactor{enabled: false}}
}

func levelFromEnv(def zapcore.Level) zapcore.Level {
	raw := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if raw == "" {
		return def
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(raw))); err != nil {
		return def
	}
	return lvl
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, l.redact.apply(keysAndValues)...)
}
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, l.redact.apply(keysAndValues)...)
}
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, l.redact.apply(keysAndValues)...)
}
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, l.redact.apply(keysAndValues)...)
}
func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Fatalw(msg, l.redact.apply(keysAndValues)...)
}
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{
		SugaredLogger: l.SugaredLogger.With(l.redact.apply(keysAndValues)...),
		redact:        l.redact,
	}
}

// redactor masks credentials and hashes user identifiers in key/value pairs.
type redactor struct {
	enabled bool
	salt    string
}

func redactorFromEnv() *redactor {
	r := &redactor{enabled: true, salt: strings.TrimSpace(os.Getenv("LOG_HASH_SALT"))}
	switch strings.TrimSpace(strings.ToLower(os.Getenv("LOG_REDACTION_ENABLED"))) {
	case "0", "false", "no", "off":
		r.enabled = false
	}
	return r
}

func (r *redactor) apply(kv []interface{}) []interface{} {
	if r == nil || !r.enabled || len(kv) == 0 {
		return kv
	}
	out := make([]interface{}, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		if i == len(kv)-1 {
			out = append(out, kv[i])
			break
		}
		name := toString(kv[i])
		out = append(out, name, r.value(strings.ToLower(strings.TrimSpace(name)), kv[i+1]))
	}
	return out
}

func (r *redactor) value(key string, val interface{}) interface{} {
	switch {
	case isSecretKey(key):
		return "[REDACTED]"
	case strings.HasSuffix(key, "user_id"):
		return r.hash(val)
	}
	if s, ok := val.(string); ok && looksLikeJWT(s) {
		return "[REDACTED]"
	}
	return val
}

func isSecretKey(key string) bool {
	for _, frag := range []string{"token", "authorization", "password", "secret", "api_key", "apikey", "email", "atoken", "rtoken"} {
		if strings.Contains(key, frag) {
			return true
		}
	}
	return false
}

func (r *redactor) hash(val interface{}) string {
	raw := toString(val)
	if raw == "" {
		return ""
	}
	h := sha256.New()
	if r.salt != "" {
		_, _ = h.Write([]byte(r.salt))
	}
	_, _ = h.Write([]byte(raw))
	return "hash:" + hex.EncodeToString(h.Sum(nil))[:12]
}

func looksLikeJWT(s string) bool {
	parts := strings.Split(s, ".")
	return len(parts) == 3 && len(parts[0]) > 10 && len(parts[1]) > 10
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
