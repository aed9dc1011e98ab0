// fanoutbench 测量通知从发布到各订阅视图收到的延迟。
// 每个捐赠方开 TABS 个订阅，发布 EVENTS 条事件，传输方式取自配置
// （FOODSHARE_FANOUT_TRANSPORT=local|redis|poll）。
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/food-share/config"
	"github.com/d60-Lab/food-share/internal/bootstrap"
	"github.com/d60-Lab/food-share/internal/fanout"
	"github.com/d60-Lab/food-share/internal/model"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return def
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

func avg(vs []time.Duration) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range vs {
		sum += d
	}
	return sum / time.Duration(len(vs))
}

func main() {
	cfg := must(config.Load())
	ctx := context.Background()
	app := must(bootstrap.Build(ctx, cfg))
	defer app.Close()

	DONORS := envInt("DONORS", 10)
	TABS := envInt("TABS", 3)
	EVENTS := envInt("EVENTS", 1000)
	want := EVENTS * TABS

	var (
		mu      sync.Mutex
		landing = make([]time.Duration, 0, want)
		done    = make(chan struct{})
		seen    = make(map[string]int)
	)
	for d := 0; d < DONORS; d++ {
		for tab := 0; tab < TABS; tab++ {
			cancel := must(app.Services.Notifications.Subscribe(ctx, fmt.Sprintf("bench-donor-%d", d), func(_ context.Context, n *model.Notification) {
				lat := time.Since(n.Timestamp)
				mu.Lock()
				defer mu.Unlock()
				// 至少一次投递，按 id 计数去重前的重复
				seen[n.ID]++
				landing = append(landing, lat)
				if len(landing) == want {
					close(done)
				}
			}))
			defer cancel()
		}
	}

	pub := make([]time.Duration, 0, EVENTS)
	for i := 0; i < EVENTS; i++ {
		ev := &model.Notification{
			ID:              uuid.Must(uuid.NewV7()).String(),
			Kind:            model.NotificationKindClaim,
			SubjectRecordID: "bench",
			RecipientID:     fmt.Sprintf("bench-donor-%d", i%DONORS),
			ActorID:         "bench-receiver",
			Message:         "bench",
			Timestamp:       time.Now(),
		}
		st := time.Now()
		if err := app.Services.Notifications.Publish(ctx, ev); err != nil {
			panic(err)
		}
		pub = append(pub, time.Since(st))
	}

	timeout := time.After(2 * time.Minute)
	select {
	case <-done:
	case <-timeout:
		mu.Lock()
		fmt.Printf("timeout while waiting for deliveries: got=%d want=%d\n", len(landing), want)
		mu.Unlock()
	}

	mu.Lock()
	defer mu.Unlock()
	dups := 0
	for _, c := range seen {
		if c > TABS {
			dups += c - TABS
		}
	}
	fmt.Printf("transport=%s storage=%s DONORS=%d TABS=%d EVENTS=%d\n", cfg.Fanout.Transport, cfg.Storage.Driver, DONORS, TABS, EVENTS)
	fmt.Printf("Publish (log append + handoff): avg=%v p95=%v p99=%v\n", avg(pub), pct(pub, 0.95), pct(pub, 0.99))
	fmt.Printf("Landing (publish->handler): samples=%d avg=%v p50=%v p95=%v p99=%v dup=%d\n",
		len(landing), avg(landing), pct(landing, 0.50), pct(landing, 0.95), pct(landing, 0.99), dups)
	if lb, ok := app.Bus.(*fanout.LocalBus); ok {
		mailbox := drain(lb.Metrics())
		fmt.Printf("Local mailbox (enqueue->handler done): samples=%d p95=%v p99=%v\n", len(mailbox), pct(mailbox, 0.95), pct(mailbox, 0.99))
	}
}

func drain(ch <-chan time.Duration) []time.Duration {
	var out []time.Duration
	for {
		select {
		case d := <-ch:
			out = append(out, d)
		default:
			return out
		}
	}
}
