package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: 0, Message: "created", Data: data})
}

// Error 以 HTTP 状态码作为业务码返回错误
func Error(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Response{Code: status, Message: message})
}

func BadRequest(c *gin.Context, message string) { Error(c, http.StatusBadRequest, message) }
func Forbidden(c *gin.Context, message string)  { Error(c, http.StatusForbidden, message) }
func NotFound(c *gin.Context, message string)   { Error(c, http.StatusNotFound, message) }
func Conflict(c *gin.Context, message string)   { Error(c, http.StatusConflict, message) }
func TooManyRequests(c *gin.Context)            { Error(c, http.StatusTooManyRequests, "too many requests") }

// InternalError 不向客户端暴露内部错误细节，错误挂到 gin.Context 供中间件上报
func InternalError(c *gin.Context, err error) {
	_ = c.Error(err)
	Error(c, http.StatusInternalServerError, "internal server error")
}
