package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/food-share/internal/model"
	"github.com/d60-Lab/food-share/internal/repository"
)

// RegisterInput 注册信息，身份认证由上游完成
type RegisterInput struct {
	Name  string     `json:"name" validate:"required,max=128"`
	Email string     `json:"email" validate:"required,email"`
	Role  model.Role `json:"role" validate:"required,oneof=donor receiver admin"`
}

type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
}

type userService struct {
	users repository.UserRepository
	now   func() time.Time
}

func NewUserService(users repository.UserRepository) UserService {
	return &userService{users: users, now: time.Now}
}

func (s *userService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	u := &model.User{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Role:      in.Role,
		CreatedAt: s.now(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, ErrInvalidArgument
	}
	return s.users.Get(ctx, id)
}
