package daemon

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the daemon's structured logger. When logPath is empty,
// logs go to stderr; otherwise they are written through a rotating file
// writer (10MB per file, 5 backups, 28 days retention) so a long-running
// daemon never fills its data directory with an unbounded log.
//
// The returned io.Closer flushes and closes the rotating writer; callers
// should defer it on shutdown. It is a no-op when logging to stderr.
func NewLogger(logPath, level string) (*slog.Logger, io.Closer) {
	var w io.Writer = os.Stderr
	var closer io.Closer = noopCloser{}

	if logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err == nil {
			lj := &lumberjack.Logger{
				Filename:   logPath,
				MaxSize:    10,
				MaxBackups: 5,
				MaxAge:     28,
				Compress:   true,
			}
			w = lj
			closer = lj
		}
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return slog.New(handler), closer
}

type noopCloser struct{}

func (noopCloser) Close() error { return nil }

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
