package repository

import (
	"errors"
	"fmt"

	"github.com/d60-Lab/food-share/internal/model"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict CAS 时存储中的版本已变化
	ErrVersionConflict = errors.New("record version changed")
	// ErrDuplicateEmail 邮箱已注册
	ErrDuplicateEmail = errors.New("email already registered")

	errNoEventLog = errors.New("no event log configured")
)

// StorageError 持久化读写失败（后端不可用、序列化内容损坏等）
type StorageError struct {
	Op  string // get, list, upsert, cas, append ...
	Key string // kv key 或表名
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// wrapStorage 领域错误原样返回，其余包装为 StorageError
func wrapStorage(op, key string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrVersionConflict) || errors.Is(err, ErrDuplicateEmail) ||
		errors.Is(err, model.ErrInvalidRecord) || errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Key: key, Err: err}
}
