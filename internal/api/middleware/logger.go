package middleware

import (
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/food-share/pkg/logger"
)

// Logger 访问日志
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("user", UserID(c)),
			zap.String("ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case status >= 500:
			logger.Error("request", fields...)
		case status >= 400:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

// ReportErrors 5xx 时把挂在 gin.Context 上的错误上报到 sentry（需先挂 sentrygin）
func ReportErrors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Writer.Status() < 500 || len(c.Errors) == 0 {
			return
		}
		hub := sentrygin.GetHubFromContext(c)
		if hub == nil {
			return
		}
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetUser(sentry.User{ID: UserID(c)})
			scope.SetTag("route", c.FullPath())
			for _, e := range c.Errors {
				hub.CaptureException(e.Err)
			}
		})
	}
}
