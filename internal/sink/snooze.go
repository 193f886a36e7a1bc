package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/snoozeweb/snooze-syslog/internal/event"
)

const alertPath = "/api/alert"

// Snooze posts events to a Snooze server's alert endpoint.
type Snooze struct {
	endpoint string
	client   *http.Client
}

// NewSnooze builds a Snooze sink for a server base URI such as http://localhost:5200.
func NewSnooze(u *url.URL) (Sink, error) {
	if u.Host == "" {
		return nil, fmt.Errorf("snooze sink: missing host in %q", u.String())
	}
	base := *u
	base.Path = strings.TrimSuffix(base.Path, "/") + alertPath
	return &Snooze{
		endpoint: base.String(),
		client:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (s *Snooze) Name() string { return "snooze" }

func (s *Snooze) Send(ctx context.Context, ev *event.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", s.endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("post %s: status %d: %s", s.endpoint, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (s *Snooze) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
