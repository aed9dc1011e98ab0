// claimbench 压测并发认领：每条捐赠被 CLAIMANTS 个视图同时认领，
// 校验每条只有一个赢家，并统计认领耗时分位数。
// 存储后端取自配置（FOODSHARE_STORAGE_DRIVER=memory|sqlite|postgres|redis）。
package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/d60-Lab/food-share/config"
	"github.com/d60-Lab/food-share/internal/bootstrap"
	"github.com/d60-Lab/food-share/internal/fanout"
	"github.com/d60-Lab/food-share/internal/service"
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

// BenchResult 一轮压测结果
type BenchResult struct {
	Records   int
	Claimants int
	Duration  time.Duration
	Wins      int64
	Conflicts int64
	Failures  int64
	QPS       float64
	Latencies []time.Duration
}

func main() {
	cfg := must(config.Load())
	ctx := context.Background()
	app := must(bootstrap.Build(ctx, cfg))
	defer app.Close()

	RECORDS := envInt("RECORDS", 200)
	CLAIMANTS := envInt("CLAIMANTS", 8)

	fmt.Printf("===== 并发认领压测 storage=%s fanout=%s =====\n", cfg.Storage.Driver, cfg.Fanout.Transport)
	fmt.Printf("记录数: %d, 每条并发认领者: %d\n", RECORDS, CLAIMANTS)

	ids := make([]string, RECORDS)
	for i := range ids {
		d := must(app.Services.Donations.Post(ctx, service.Donor{ID: fmt.Sprintf("bench-donor-%d", i%10), Name: "bench"}, service.PostDonationInput{
			Name: fmt.Sprintf("bench item %d", i), Quantity: "1", Expiry: "tomorrow", Location: "bench",
		}))
		ids[i] = d.ID
	}

	// 本地总线时顺带采样投递队列长度
	maxQ := 0
	quitSample := make(chan struct{})
	if lb, ok := app.Bus.(*fanout.LocalBus); ok {
		go func() {
			ticker := time.NewTicker(20 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if q := lb.QueueLen(); q > maxQ {
						maxQ = q
					}
				case <-quitSample:
					return
				}
			}
		}()
	}

	res := run(ctx, app.Services.Claims, ids, CLAIMANTS)
	close(quitSample)

	// 不变式：每条记录恰好一个认领者
	bad := 0
	for _, id := range ids {
		d, err := app.Services.Donations.Get(ctx, id)
		if err != nil || d.Validate() != nil || d.ClaimedBy() == "" {
			bad++
		}
	}

	var sum time.Duration
	for _, d := range res.Latencies {
		sum += d
	}
	avg := time.Duration(0)
	if len(res.Latencies) > 0 {
		avg = sum / time.Duration(len(res.Latencies))
	}
	fmt.Printf("总耗时: %v, QPS: %.0f\n", res.Duration, res.QPS)
	fmt.Printf("成功: %d, 冲突: %d, 其他错误: %d, 不变式违例: %d\n", res.Wins, res.Conflicts, res.Failures, bad)
	fmt.Printf("认领耗时 avg=%v p50=%v p95=%v p99=%v\n", avg, pct(res.Latencies, 0.50), pct(res.Latencies, 0.95), pct(res.Latencies, 0.99))
	if maxQ > 0 {
		fmt.Printf("通知队列峰值: %d\n", maxQ)
	}
	if res.Wins != int64(RECORDS) || bad > 0 {
		fmt.Println("FAIL: 认领赢家数与记录数不一致")
		_ = app.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, claims service.ClaimService, ids []string, claimants int) BenchResult {
	res := BenchResult{Records: len(ids), Claimants: claimants}
	var (
		wins, conflicts, failures atomic.Int64
		mu                        sync.Mutex
		wg                        sync.WaitGroup
	)
	latencies := make([]time.Duration, 0, len(ids)*claimants)

	t0 := time.Now()
	for _, id := range ids {
		start := make(chan struct{})
		for c := 0; c < claimants; c++ {
			wg.Add(1)
			go func(id, who string) {
				defer wg.Done()
				<-start
				st := time.Now()
				_, err := claims.Claim(ctx, id, who)
				d := time.Since(st)
				switch {
				case err == nil:
					wins.Add(1)
				case errors.Is(err, service.ErrConflict):
					conflicts.Add(1)
				default:
					failures.Add(1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}(id, fmt.Sprintf("bench-receiver-%d", c))
		}
		close(start)
	}
	wg.Wait()
	res.Duration = time.Since(t0)

	res.Wins, res.Conflicts, res.Failures = wins.Load(), conflicts.Load(), failures.Load()
	res.Latencies = latencies
	if res.Duration > 0 {
		res.QPS = float64(len(latencies)) / res.Duration.Seconds()
	}
	return res
}
