package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/food-share/internal/service"
	"github.com/d60-Lab/food-share/pkg/response"
)

// RegisterUser 登记用户资料（认证由上游负责）
// @Summary 登记用户
// @Tags 用户
// @Accept json
// @Produce json
// @Param request body service.RegisterInput true "用户信息"
// @Success 201 {object} response.Response{data=model.User}
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/users [post]
func (h *Handler) RegisterUser(c *gin.Context) {
	var req service.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	u, err := h.userService.Register(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, u)
}

// SearchUsers 管理后台用户搜索
// @Summary 搜索用户（管理员）
// @Tags 管理
// @Produce json
// @Param X-User-Role header string true "必须为 admin"
// @Param q query string false "姓名/邮箱/角色关键字"
// @Success 200 {object} response.Response{data=[]model.User}
// @Failure 403 {object} response.Response
// @Router /api/v1/admin/users [get]
func (h *Handler) SearchUsers(c *gin.Context) {
	list, err := h.viewService.SearchUsers(c.Request.Context(), c.Query("q"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, list)
}
