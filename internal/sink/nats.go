package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/snoozeweb/snooze-syslog/internal/event"
)

// DefaultNATSSubject is used when the URI has no path.
const DefaultNATSSubject = "snooze.syslog"

// NATS publishes events as JSON on a subject.
type NATS struct {
	conn    *nats.Conn
	subject string
}

// natsTarget splits nats://[user:pass@]host:port/subject into server URL and subject.
func natsTarget(u *url.URL) (server, subject string) {
	subject = strings.Trim(u.Path, "/")
	if subject == "" {
		subject = DefaultNATSSubject
	}
	s := *u
	s.Path, s.RawPath, s.RawQuery = "", "", ""
	return s.String(), subject
}

// NewNATS connects to the server named by u.
func NewNATS(u *url.URL) (Sink, error) {
	server, subject := natsTarget(u)
	conn, err := nats.Connect(server,
		nats.Name("snooze-syslog"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("NATS disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATS{conn: conn, subject: subject}, nil
}

func (n *NATS) Name() string { return "nats" }

func (n *NATS) Send(ctx context.Context, ev *event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.conn.Publish(n.subject, data)
}

func (n *NATS) Close() error {
	return n.conn.Drain()
}
