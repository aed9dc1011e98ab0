package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/food-share/internal/model"
	"github.com/d60-Lab/food-share/pkg/response"
)

// 上游身份提供方注入的请求头
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	ctxUserID   = "identity.user_id"
	ctxUserRole = "identity.role"
)

// Identity 读取上游注入的身份，本服务不做认证。缺省角色为 receiver
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxUserID, strings.TrimSpace(c.GetHeader(HeaderUserID)))
		role := model.Role(strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderUserRole))))
		if !role.Valid() {
			role = model.RoleReceiver
		}
		c.Set(ctxUserRole, role)
		c.Next()
	}
}

// RequireUser 没有 X-User-ID 的请求直接 401
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			response.Error(c, http.StatusUnauthorized, "missing "+HeaderUserID+" header")
			return
		}
		c.Next()
	}
}

// RequireRole 角色不匹配返回 403
func RequireRole(role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if Role(c) != role {
			response.Forbidden(c, "requires role "+string(role))
			return
		}
		c.Next()
	}
}

func UserID(c *gin.Context) string { return c.GetString(ctxUserID) }

func Role(c *gin.Context) model.Role {
	if v, ok := c.Get(ctxUserRole); ok {
		if r, ok := v.(model.Role); ok {
			return r
		}
	}
	return model.RoleReceiver
}
