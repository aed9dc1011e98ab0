package fanout

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/food-share/internal/model"
	"github.com/d60-Lab/food-share/pkg/logger"
)

// LogReader 通知日志的只读视图
type LogReader interface {
	ListByRecipient(ctx context.Context, recipientID string) ([]*model.Notification, error)
}

// Poller 没有推送能力时的兜底：按固定间隔扫描通知日志，投递订阅后新出现的事件
type Poller struct {
	source   LogReader
	interval time.Duration

	mu     sync.Mutex
	stops  map[uint64]chan struct{}
	nextID uint64
}

func NewPoller(source LogReader, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Poller{source: source, interval: interval, stops: make(map[uint64]chan struct{})}
}

// Publish 事件已由调用方写入日志，这里无需动作
func (p *Poller) Publish(context.Context, *model.Notification) error { return nil }

func (p *Poller) Subscribe(ctx context.Context, recipientID string, h Handler) (func(), error) {
	existing, err := p.source.ListByRecipient(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(existing))
	for _, n := range existing {
		seen[n.ID] = struct{}{}
	}

	stop := make(chan struct{})
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.stops[id] = stop
	p.mu.Unlock()

	go p.loop(recipientID, seen, h, stop)

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if s, ok := p.stops[id]; ok {
			delete(p.stops, id)
			close(s)
		}
	}, nil
}

func (p *Poller) loop(recipientID string, seen map[string]struct{}, h Handler, stop <-chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.pollOnce(recipientID, seen, h, stop)
		}
	}
}

func (p *Poller) pollOnce(recipientID string, seen map[string]struct{}, h Handler, stop <-chan struct{}) {
	ctx := context.Background()
	items, err := p.source.ListByRecipient(ctx, recipientID)
	if err != nil {
		logger.Warn("poll notifications failed", zap.String("recipient", recipientID), zap.Error(err))
		return
	}
	for _, n := range items {
		if _, ok := seen[n.ID]; ok {
			continue
		}
		select {
		case <-stop:
			return
		default:
		}
		seen[n.ID] = struct{}{}
		h(ctx, n)
	}
}

func (p *Poller) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, stop := range p.stops {
		close(stop)
		delete(p.stops, id)
	}
	return nil
}
