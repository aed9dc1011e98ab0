package repository

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/d60-Lab/food-share/internal/kvstore"
	"github.com/d60-Lab/food-share/pkg/logger"
)

// 约定的 kv 键，值为 JSON 数组
const (
	KeyDonations     = "donations"
	KeyNotifications = "notifications"
	KeyMessages      = "messages"
	KeyUsers         = "users"
)

// jsonList 把一个 kv 键当作 JSON 数组读写
type jsonList[T any] struct {
	store kvstore.Store
	key   string
}

func (l jsonList[T]) decode(op string, raw []byte) ([]T, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &StorageError{Op: op, Key: l.key, Err: err}
	}
	return items, nil
}

// read 读失败（后端错误或内容损坏）按空集合处理并记录日志，不向调用方传播
func (l jsonList[T]) read(ctx context.Context, op string) []T {
	raw, err := l.store.Get(ctx, l.key)
	if err != nil {
		logger.Error("kv read failed, treating as empty", zap.String("key", l.key), zap.String("op", op), zap.Error(err))
		return nil
	}
	items, err := l.decode(op, raw)
	if err != nil {
		logger.Error("kv payload malformed, treating as empty", zap.String("key", l.key), zap.String("op", op), zap.Error(err))
		return nil
	}
	return items
}

// update 读-改-写在 kvstore 的单键原子更新内完成；内容损坏时拒绝写入
func (l jsonList[T]) update(ctx context.Context, op string, fn func([]T) ([]T, error)) error {
	err := l.store.Update(ctx, l.key, func(cur []byte) ([]byte, error) {
		items, err := l.decode(op, cur)
		if err != nil {
			return nil, err
		}
		next, err := fn(items)
		if err != nil {
			return nil, err
		}
		if next == nil {
			next = []T{}
		}
		return json.Marshal(next)
	})
	return wrapStorage(op, l.key, err)
}
