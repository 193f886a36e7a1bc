package sink

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/snoozeweb/snooze-syslog/internal/event"
)

// Log writes events to the process logger. Useful for dry runs: log://
type Log struct {
	log *slog.Logger
}

func NewLog(_ *url.URL) (Sink, error) {
	return &Log{log: slog.Default().With("sink", "log")}, nil
}

func (l *Log) Name() string { return "log" }

func (l *Log) Send(_ context.Context, ev *event.Event) error {
	l.log.Info("alert",
		"syslog_type", ev.Type,
		"host", ev.Host,
		"facility", ev.Facility,
		"severity", ev.Severity,
		"message", ev.Message,
	)
	return nil
}

func (l *Log) Close() error { return nil }
