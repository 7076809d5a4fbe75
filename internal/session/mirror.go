package session

import (
	"context"

	"github.com/go-redis/redis/v8"
)

// Mirror receives a copy of every STATE.json write. It exists so a
// dashboard or a second orchestrator replica can observe session progress
// without polling the filesystem (SPEC_FULL §4.A: "optional Redis
// mirror... if HIVEMIND_REDIS_URL is set"). The filesystem remains the
// single source of truth; a mirror failure never fails UpdateState.
type Mirror interface {
	Write(ctx context.Context, sessionID string, data []byte)
}

// ActiveMirror is the process-wide mirror, nil by default. cmd/queen and
// cmd/worker set it at startup when HIVEMIND_REDIS_URL is configured.
var ActiveMirror Mirror

// RedisMirror publishes each STATE.json write to a Redis string key and
// notifies a pub/sub channel, so a dashboard can subscribe instead of
// polling the filesystem alongside the Monitor Loop.
type RedisMirror struct {
	client *redis.Client
}

// NewRedisMirror connects lazily: redis.NewClient never dials until the
// first command, so a misconfigured or unreachable Redis never blocks
// process startup.
func NewRedisMirror(url string) *RedisMirror {
	opt, err := redis.ParseURL(url)
	if err != nil {
		opt = &redis.Options{Addr: url}
	}
	return &RedisMirror{client: redis.NewClient(opt)}
}

func (m *RedisMirror) key(sessionID string) string {
	return "hivemind:session:" + sessionID
}

// Write is best-effort: the mirror is a convenience, not the source of
// truth, so a Redis outage is swallowed rather than surfaced to callers
// already holding the state mutex.
func (m *RedisMirror) Write(ctx context.Context, sessionID string, data []byte) {
	if m == nil || m.client == nil {
		return
	}
	key := m.key(sessionID)
	pipe := m.client.TxPipeline()
	pipe.Set(ctx, key, data, 0)
	pipe.Publish(ctx, key+":updates", data)
	_, _ = pipe.Exec(ctx)
}

// Close releases the underlying connection pool.
func (m *RedisMirror) Close() error {
	if m == nil || m.client == nil {
		return nil
	}
	return m.client.Close()
}
