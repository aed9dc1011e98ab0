package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const defaultMaxAttempts = 16

// ErrContention 乐观事务重试次数用尽，键上写竞争过于激烈
var ErrContention = errors.New("kvstore: too much contention on key")

func errValueCount(want, got int) error {
	return fmt.Errorf("kvstore: expected %d values, got %d", want, got)
}

// Redis 每个键存成一个字符串值。Update 走 WATCH/GET/MULTI/SET/EXEC，
// 期间键被其他客户端修改时重新执行 fn，fn 看到的总是它要替换的那个值
type Redis struct {
	client      *redis.Client
	prefix      string
	maxAttempts int
}

func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix, maxAttempts: defaultMaxAttempts}
}

func (r *Redis) key(k string) string { return r.prefix + k }

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return v, err
}

func (r *Redis) Update(ctx context.Context, key string, fn UpdateFunc) error {
	k := r.key(key)
	txf := func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			cur = nil
		} else if err != nil {
			return err
		}
		next, err := fn(cur)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, next, 0)
			return nil
		})
		return err
	}

	return r.watch(ctx, txf, key, k)
}

// UpdateMany 同时 WATCH 全部键，一个 MULTI 内写回
func (r *Redis) UpdateMany(ctx context.Context, keys []string, fn UpdateManyFunc) error {
	ks := make([]string, len(keys))
	for i, k := range keys {
		ks[i] = r.key(k)
	}
	txf := func(tx *redis.Tx) error {
		cur := make([][]byte, len(ks))
		for i, k := range ks {
			v, err := tx.Get(ctx, k).Bytes()
			if errors.Is(err, redis.Nil) {
				v = nil
			} else if err != nil {
				return err
			}
			cur[i] = v
		}
		next, err := fn(cur)
		if err != nil {
			return err
		}
		if len(next) != len(ks) {
			return errValueCount(len(ks), len(next))
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, k := range ks {
				pipe.Set(ctx, k, next[i], 0)
			}
			return nil
		})
		return err
	}
	return r.watch(ctx, txf, strings.Join(keys, ","), ks...)
}

func (r *Redis) watch(ctx context.Context, txf func(*redis.Tx) error, name string, keys ...string) error {
	for i := 0; i < r.maxAttempts; i++ {
		err := r.client.Watch(ctx, txf, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("%w %q", ErrContention, name)
}

// Close 不关闭共享的 client，由创建方负责
func (r *Redis) Close() error { return nil }
