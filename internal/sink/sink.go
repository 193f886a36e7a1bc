// Package sink delivers parsed events to the downstream alerting service.
package sink

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"sync"

	"github.com/snoozeweb/snooze-syslog/internal/event"
)

// Sink submits one alert event. Implementations must be safe for concurrent use
// by several delivery workers.
type Sink interface {
	// Name identifies the sink in logs.
	Name() string
	// Send submits ev and reports whether the service accepted it.
	Send(ctx context.Context, ev *event.Event) error
	// Close releases connections held by the sink.
	Close() error
}

// Factory builds a Sink from its URI.
type Factory func(u *url.URL) (Sink, error)

// Registry maps URI schemes to sink factories.
// Register should only be called at startup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a Registry with every built-in sink.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("http", NewSnooze)
	r.Register("https", NewSnooze)
	r.Register("nats", NewNATS)
	r.Register("redis", NewRedis)
	r.Register("log", NewLog)
	return r
}

// Register adds a factory. Panics on duplicate scheme to surface misconfiguration early.
func (r *Registry) Register(scheme string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[scheme]; exists {
		panic(fmt.Sprintf("sink registry: duplicate scheme %q", scheme))
	}
	r.factories[scheme] = f
}

// Open parses uri and builds the sink registered for its scheme.
func (r *Registry) Open(uri string) (Sink, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid sink uri %q: %w", uri, err)
	}
	r.mu.RLock()
	f, ok := r.factories[u.Scheme]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no sink registered for scheme %q (known: %v)", u.Scheme, r.Schemes())
	}
	return f(u)
}

// Schemes returns the registered schemes in sorted order.
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
