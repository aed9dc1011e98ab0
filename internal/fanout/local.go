package fanout

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/d60-Lab/food-share/internal/model"
)

// ErrBusClosed 总线已关闭
var ErrBusClosed = errors.New("fanout: bus closed")

type envelope struct {
	n     *model.Notification
	enqAt time.Time
}

// mailbox 每个订阅一个无界 FIFO 队列和一个投递协程，慢订阅不影响其他订阅
type mailbox struct {
	mu      sync.Mutex
	queue   []envelope
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
	handler Handler
}

func (m *mailbox) push(e envelope) {
	m.mu.Lock()
	m.queue = append(m.queue, e)
	m.mu.Unlock()
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *mailbox) pop() (envelope, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return envelope{}, false
	}
	e := m.queue[0]
	m.queue[0] = envelope{}
	m.queue = m.queue[1:]
	return e, true
}

func (m *mailbox) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

func (m *mailbox) stop() { m.once.Do(func() { close(m.done) }) }

// LocalBus 进程内总线（同一进程内多个视图/标签页）
type LocalBus struct {
	mu        sync.RWMutex
	subs      map[string]map[uint64]*mailbox
	nextID    uint64
	closed    bool
	metricsCh chan time.Duration
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[string]map[uint64]*mailbox), metricsCh: make(chan time.Duration, 65536)}
}

// Publish 把事件放入该接收者每个订阅的队列后立即返回
func (b *LocalBus) Publish(_ context.Context, n *model.Notification) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}
	now := time.Now()
	for _, mb := range b.subs[n.RecipientID] {
		mb.push(envelope{n: n.Clone(), enqAt: now})
	}
	return nil
}

func (b *LocalBus) Subscribe(_ context.Context, recipientID string, h Handler) (func(), error) {
	mb := &mailbox{wake: make(chan struct{}, 1), done: make(chan struct{}), handler: h}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBusClosed
	}
	b.nextID++
	id := b.nextID
	if b.subs[recipientID] == nil {
		b.subs[recipientID] = make(map[uint64]*mailbox)
	}
	b.subs[recipientID][id] = mb
	b.mu.Unlock()

	go b.deliver(mb)

	return func() {
		b.mu.Lock()
		if set, ok := b.subs[recipientID]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(b.subs, recipientID)
			}
		}
		b.mu.Unlock()
		mb.stop()
	}, nil
}

func (b *LocalBus) deliver(mb *mailbox) {
	ctx := context.Background()
	for {
		select {
		case <-mb.done:
			return
		case <-mb.wake:
		}
		for {
			select {
			case <-mb.done:
				return
			default:
			}
			e, ok := mb.pop()
			if !ok {
				break
			}
			mb.handler(ctx, e.n)
			select {
			case b.metricsCh <- time.Since(e.enqAt):
			default:
			}
		}
	}
}

// Close 停止所有订阅，未投递的事件丢弃（事件日志仍可查询）
func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, set := range b.subs {
		for _, mb := range set {
			mb.stop()
		}
	}
	b.subs = make(map[string]map[uint64]*mailbox)
	return nil
}

// Metrics 返回投递耗时（入队到 handler 返回）的只读通道，满了丢弃样本
func (b *LocalBus) Metrics() <-chan time.Duration { return b.metricsCh }

// QueueLen 返回所有订阅待投递事件数（采样值）
func (b *LocalBus) QueueLen() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	total := 0
	for _, set := range b.subs {
		for _, mb := range set {
			total += mb.len()
		}
	}
	return total
}

// Subscribers 返回某接收者当前订阅数
func (b *LocalBus) Subscribers(recipientID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[recipientID])
}
