package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/food-share/internal/api/middleware"
	"github.com/d60-Lab/food-share/internal/model"
	"github.com/d60-Lab/food-share/pkg/response"
)

// ListNotifications 通知铃铛：最新在前，附未读数
// @Summary 我的通知
// @Tags 通知
// @Produce json
// @Param X-User-ID header string true "用户ID"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/notifications [get]
func (h *Handler) ListNotifications(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.UserID(c)
	list, err := h.notificationService.ListFor(ctx, userID)
	if err != nil {
		fail(c, err)
		return
	}
	unread := 0
	for _, n := range list {
		if !n.Read {
			unread++
		}
	}
	response.Success(c, gin.H{"list": list, "unread": unread})
}

// MarkNotificationRead 标记已读（幂等），只能标记发给自己的通知
// @Summary 标记通知已读
// @Tags 通知
// @Produce json
// @Param X-User-ID header string true "用户ID"
// @Param id path string true "通知ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/notifications/{id}/read [post]
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	if err := h.notificationService.MarkReadAs(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// MarkAllNotificationsRead 全部标记已读
// @Summary 全部已读
// @Tags 通知
// @Produce json
// @Param X-User-ID header string true "用户ID"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/notifications/read-all [post]
func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	n, err := h.notificationService.MarkAllRead(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"updated": n})
}

// StreamNotifications SSE 推送，事件名为通知类型，客户端按 id 去重
// @Summary 通知推送流（SSE）
// @Tags 通知
// @Produce text/event-stream
// @Param X-User-ID header string true "用户ID"
// @Router /api/v1/notifications/stream [get]
func (h *Handler) StreamNotifications(c *gin.Context) {
	ctx := c.Request.Context()
	events := make(chan *model.Notification, 64)
	cancel, err := h.notificationService.Subscribe(ctx, middleware.UserID(c), func(_ context.Context, n *model.Notification) {
		select {
		case events <- n:
		case <-ctx.Done():
		}
	})
	if err != nil {
		fail(c, err)
		return
	}
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	// 订阅已生效，先把响应头发出去
	c.Status(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()
	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case n := <-events:
			c.SSEvent(string(n.Kind), n)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
}
