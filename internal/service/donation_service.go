package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/d60-Lab/food-share/internal/model"
	"github.com/d60-Lab/food-share/internal/repository"
)

var validate = validator.New()

// PostDonationInput 捐赠表单
type PostDonationInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=2000"`
	Quantity    string `json:"quantity" validate:"required,max=64"`
	Expiry      string `json:"expiry" validate:"required,max=64"`
	Location    string `json:"location" validate:"required,max=255"`
	Image       string `json:"image" validate:"omitempty,max=1048576"`
}

// Donor 发布者身份
type Donor struct {
	ID   string
	Name string
}

// DonationService 发布与查询单条捐赠
type DonationService interface {
	Post(ctx context.Context, donor Donor, in PostDonationInput) (*model.Donation, error)
	Get(ctx context.Context, id string) (*model.Donation, error)
}

type donationService struct {
	donations repository.DonationRepository
	now       func() time.Time
}

func NewDonationService(donations repository.DonationRepository) DonationService {
	return &donationService{donations: donations, now: time.Now}
}

// Post 新建的捐赠总是 available
func (s *donationService) Post(ctx context.Context, donor Donor, in PostDonationInput) (*model.Donation, error) {
	if strings.TrimSpace(donor.ID) == "" {
		return nil, ErrInvalidArgument
	}
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	now := s.now()
	d := &model.Donation{
		ID:          uuid.New().String(),
		Status:      model.DonationStatusAvailable,
		DonorID:     donor.ID,
		DonorName:   donor.Name,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Quantity:    in.Quantity,
		Expiry:      in.Expiry,
		Location:    in.Location,
		Image:       in.Image,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.donations.Upsert(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *donationService) Get(ctx context.Context, id string) (*model.Donation, error) {
	if id == "" {
		return nil, ErrInvalidArgument
	}
	return s.donations.Get(ctx, id)
}
