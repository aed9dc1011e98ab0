// Package api 组装 gin 引擎：公共中间件、身份解析与 v1 路由
package api

import (
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/d60-Lab/food-share/docs"
	"github.com/d60-Lab/food-share/internal/api/handler"
	"github.com/d60-Lab/food-share/internal/api/middleware"
	"github.com/d60-Lab/food-share/internal/model"
)

// StreamPath SSE 长连接不能经过 gzip
const StreamPath = "/api/v1/notifications/stream"

type Options struct {
	ServiceName string
	// Sentry 已通过 sentry.Init 初始化时开启
	Sentry bool
	// Swagger 是否挂载 /swagger
	Swagger bool
	// ClaimLimiter 认领/取消的限流器，nil 表示不限流
	ClaimLimiter *middleware.Limiter
}

func NewRouter(h *handler.Handler, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if opts.Sentry {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}), middleware.ReportErrors())
	}
	if opts.ServiceName != "" {
		r.Use(otelgin.Middleware(opts.ServiceName))
	}
	r.Use(
		middleware.Logger(),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{StreamPath})),
		middleware.Identity(),
	)

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if opts.Swagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")
	{
		v1.GET("/donations", h.ListDonations)
		v1.GET("/donations/:id", h.GetDonation)
		v1.GET("/donors/:donor_id/donations", h.ListDonorDonations)
		v1.GET("/donors/:donor_id/stats", h.DonorStats)
		v1.GET("/claimants/:claimant_id/donations", h.ListClaimantDonations)
		v1.POST("/users", h.RegisterUser)
	}

	authed := v1.Group("", middleware.RequireUser())
	{
		authed.POST("/donations", h.PostDonation)

		claims := authed.Group("/donations/:id", middleware.RateLimit(opts.ClaimLimiter))
		claims.POST("/claim", h.ClaimDonation)
		claims.POST("/cancel", h.CancelClaim)

		authed.GET("/notifications", h.ListNotifications)
		authed.POST("/notifications/:id/read", h.MarkNotificationRead)
		authed.POST("/notifications/read-all", h.MarkAllNotificationsRead)
		authed.GET("/notifications/stream", h.StreamNotifications)

		authed.POST("/messages", h.SendMessage)
		authed.GET("/messages/:other_user_id", h.Conversation)

		authed.GET("/admin/users", middleware.RequireRole(model.RoleAdmin), h.SearchUsers)
	}
	return r
}
