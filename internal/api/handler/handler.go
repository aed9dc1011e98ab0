package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/food-share/internal/repository"
	"github.com/d60-Lab/food-share/internal/service"
	"github.com/d60-Lab/food-share/pkg/response"
)

// Services handler 依赖的服务集合
type Services struct {
	Donations     service.DonationService
	Claims        service.ClaimService
	Views         service.ViewService
	Notifications service.NotificationService
	Messages      service.MessageService
	Users         service.UserService
}

type Handler struct {
	donationService     service.DonationService
	claimService        service.ClaimService
	viewService         service.ViewService
	notificationService service.NotificationService
	messageService      service.MessageService
	userService         service.UserService

	// SSE 心跳间隔
	heartbeat time.Duration
}

func New(s Services) *Handler {
	return &Handler{
		donationService:     s.Donations,
		claimService:        s.Claims,
		viewService:         s.Views,
		notificationService: s.Notifications,
		messageService:      s.Messages,
		userService:         s.Users,
		heartbeat:           15 * time.Second,
	}
}

// fail 把领域错误映射为 HTTP 状态码
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		response.BadRequest(c, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrConflict), errors.Is(err, repository.ErrDuplicateEmail):
		response.Conflict(c, err.Error())
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}

func bindError(c *gin.Context, err error) {
	response.Error(c, http.StatusBadRequest, "invalid request body: "+err.Error())
}
