package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/snoozeweb/snooze-syslog/internal/event"
)

// DefaultRedisKey is the list events are appended to when the URI sets no key.
const DefaultRedisKey = "snooze:syslog"

// Redis appends events as JSON to a list, for consumers that pop alerts from Redis.
type Redis struct {
	client *redis.Client
	key    string
}

// NewRedis connects to redis://[user:pass@]host:port/db?key=list.
func NewRedis(u *url.URL) (Sink, error) {
	s := *u
	q := s.Query()
	key := q.Get("key")
	if key == "" {
		key = DefaultRedisKey
	}
	q.Del("key")
	s.RawQuery = q.Encode()

	opt, err := redis.ParseURL(s.String())
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return &Redis{client: client, key: key}, nil
}

func (r *Redis) Name() string { return "redis" }

func (r *Redis) Send(ctx context.Context, ev *event.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return r.client.RPush(ctx, r.key, data).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
