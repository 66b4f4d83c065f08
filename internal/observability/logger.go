package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// secretKeys never reach the log output with their value, whatever group
// they are nested in.
var secretKeys = map[string]bool{
	"password":      true,
	"password_hash": true,
	"passwordhash":  true,
	"token":         true,
	"accesstoken":   true,
	"authorization": true,
}

func NewLogger(env string) *slog.Logger {
	return newLogger(os.Stdout, env)
}

func newLogger(w io.Writer, env string) *slog.Logger {
	level := slog.LevelInfo

	if env == "dev" {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redactSecrets,
	})

	return slog.New(NewTraceHandler(handler))
}

func redactSecrets(_ []string, a slog.Attr) slog.Attr {
	if secretKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, "[REDACTED]")
	}
	return a
}
