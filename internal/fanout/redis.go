package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/food-share/internal/model"
	"github.com/d60-Lab/food-share/pkg/logger"
)

// RedisBus 跨进程推送：每个接收者一个 pub/sub 频道 <prefix><recipientID>
type RedisBus struct {
	client *redis.Client
	prefix string

	mu   sync.Mutex
	subs map[*redis.PubSub]struct{}
}

func NewRedisBus(client *redis.Client, prefix string) *RedisBus {
	return &RedisBus{client: client, prefix: prefix, subs: make(map[*redis.PubSub]struct{})}
}

func (b *RedisBus) channel(recipientID string) string { return b.prefix + recipientID }

func (b *RedisBus) Publish(ctx context.Context, n *model.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return b.client.Publish(ctx, b.channel(n.RecipientID), payload).Err()
}

// Subscribe 等待订阅确认后返回，保证之后发布的事件不会漏掉
func (b *RedisBus) Subscribe(ctx context.Context, recipientID string, h Handler) (func(), error) {
	ps := b.client.Subscribe(ctx, b.channel(recipientID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", recipientID, err)
	}

	b.mu.Lock()
	b.subs[ps] = struct{}{}
	b.mu.Unlock()

	ch := ps.Channel()
	go func() {
		for msg := range ch {
			var n model.Notification
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				logger.Warn("drop malformed notification", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			h(context.Background(), &n)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ps)
			b.mu.Unlock()
			_ = ps.Close()
		})
	}, nil
}

// Close 关闭所有订阅，不关闭共享的 redis client
func (b *RedisBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ps := range b.subs {
		_ = ps.Close()
	}
	b.subs = make(map[*redis.PubSub]struct{})
	return nil
}
