// Package fanout 把通知事件投递给接收人的在线订阅。
// 传输方式可替换，业务代码只依赖 Bus
package fanout

import (
	"context"

	"github.com/d60-Lab/food-share/internal/model"
)

// Handler 接收一条通知。同一订阅内按发布顺序串行调用
type Handler func(ctx context.Context, n *model.Notification)

// Bus 发布/订阅抽象。投递尽力而为，可能重复（至少一次），订阅方按 ID 去重
type Bus interface {
	// Publish 不阻塞调用方
	Publish(ctx context.Context, n *model.Notification) error
	// Subscribe 注册 recipientID 的监听，返回取消函数
	Subscribe(ctx context.Context, recipientID string, h Handler) (cancel func(), err error)
	Close() error
}
