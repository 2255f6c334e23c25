// ABOUTME: Adapter that lets robfig/cron log through slog
// ABOUTME: cron's key/value pairs pass straight through as slog attributes

package scheduler

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

type cronLogger struct {
	l *slog.Logger
}

var _ cron.Logger = cronLogger{}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append([]any{slog.Any("error", err)}, keysAndValues...)...)
}
