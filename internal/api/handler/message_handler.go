package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/food-share/internal/api/middleware"
	"github.com/d60-Lab/food-share/internal/service"
	"github.com/d60-Lab/food-share/pkg/response"
)

// SendMessage 发送私信
// @Summary 发送私信（接收方收到 message 通知）
// @Tags 消息
// @Accept json
// @Produce json
// @Param X-User-ID header string true "发送方ID"
// @Param request body service.SendMessageInput true "消息"
// @Success 201 {object} response.Response{data=model.Message}
// @Failure 400 {object} response.Response
// @Router /api/v1/messages [post]
func (h *Handler) SendMessage(c *gin.Context) {
	var req service.SendMessageInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	msg, err := h.messageService.Send(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, msg)
}

// Conversation 与某用户的往来消息
// @Summary 会话
// @Tags 消息
// @Produce json
// @Param X-User-ID header string true "用户ID"
// @Param other_user_id path string true "对方用户ID"
// @Success 200 {object} response.Response{data=[]model.Message}
// @Router /api/v1/messages/{other_user_id} [get]
func (h *Handler) Conversation(c *gin.Context) {
	list, err := h.messageService.Conversation(c.Request.Context(), middleware.UserID(c), c.Param("other_user_id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, list)
}
