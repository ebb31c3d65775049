package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

const (
	inboxPrefix     = "notifications:v1:"
	defaultInboxCap = 100
)

// Inbox stores delivered notifications so users can list them.
type Inbox interface {
	Notifier
	List(ctx context.Context, userID string, limit int) ([]Notification, error)
}

// RedisInbox keeps a capped, newest-first list per user in Redis.
type RedisInbox struct {
	client *redis.Client
	cap    int64
}

// NewRedisInbox builds a Redis-backed inbox keeping at most capacity entries per user.
func NewRedisInbox(client *redis.Client, capacity int) *RedisInbox {
	if capacity <= 0 {
		capacity = defaultInboxCap
	}
	return &RedisInbox{client: client, cap: int64(capacity)}
}

// Send prepends n to the recipient's inbox.
func (r *RedisInbox) Send(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	key := inboxPrefix + n.UserID
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, payload)
		pipe.LTrim(ctx, key, 0, r.cap-1)
		return nil
	})
	return err
}

// List returns up to limit notifications, newest first.
func (r *RedisInbox) List(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if limit <= 0 || int64(limit) > r.cap {
		limit = int(r.cap)
	}
	raw, err := r.client.LRange(ctx, inboxPrefix+userID, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Notification, 0, len(raw))
	for _, item := range raw {
		var n Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			return nil, fmt.Errorf("decode notification: %w", err)
		}
		out = append(out, n)
	}
	return out, nil
}

// MemoryInbox is an in-process Inbox for development and tests.
type MemoryInbox struct {
	mu    sync.RWMutex
	items map[string][]Notification
}

func NewMemoryInbox() *MemoryInbox {
	return &MemoryInbox{items: make(map[string][]Notification)}
}

func (m *MemoryInbox) Send(_ context.Context, n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := append([]Notification{n}, m.items[n.UserID]...)
	if len(list) > defaultInboxCap {
		list = list[:defaultInboxCap]
	}
	m.items[n.UserID] = list
	return nil
}

func (m *MemoryInbox) List(_ context.Context, userID string, limit int) ([]Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.items[userID]
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}
	return append([]Notification{}, list[:limit]...), nil
}
