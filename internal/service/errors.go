package service

import (
	"errors"

	"github.com/d60-Lab/food-share/internal/repository"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = repository.ErrNotFound
	// ErrConflict 记录状态不允许该操作，或并发写入抢先提交
	ErrConflict = errors.New("donation state conflict")
	// ErrForbidden 操作者不是当前认领人
	ErrForbidden = errors.New("actor is not the claimant")
	// ErrInvalidArgument 参数缺失或非法
	ErrInvalidArgument = errors.New("invalid argument")
)
