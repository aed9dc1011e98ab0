package service

import (
	"context"
	"strings"

	"github.com/d60-Lab/food-share/internal/model"
	"github.com/d60-Lab/food-share/internal/repository"
)

// Badge 捐赠方累计捐赠达到门槛后获得
type Badge string

const (
	BadgeBronze Badge = "Bronze Donor"
	BadgeSilver Badge = "Silver Donor"
	BadgeGold   Badge = "Gold Donor"
)

var badgeThresholds = []struct {
	min   int
	badge Badge
}{
	{5, BadgeBronze},
	{10, BadgeSilver},
	{20, BadgeGold},
}

// DonorStats 捐赠方仪表盘统计
type DonorStats struct {
	Total     int     `json:"total"`
	Available int     `json:"available"`
	Claimed   int     `json:"claimed"`
	Completed int     `json:"completed"`
	Badges    []Badge `json:"badges"`
}

// ViewService 只读投影，每次都读存储的最新提交状态，不缓存
type ViewService interface {
	AvailableFor(ctx context.Context, role model.Role, search string) ([]*model.Donation, error)
	ForDonor(ctx context.Context, donorID string) ([]*model.Donation, error)
	ForClaimant(ctx context.Context, claimantID string) ([]*model.Donation, error)
	DonorStats(ctx context.Context, donorID string) (*DonorStats, error)
	SearchUsers(ctx context.Context, query string) ([]*model.User, error)
}

type viewService struct {
	donations repository.DonationRepository
	users     repository.UserRepository
}

func NewViewService(donations repository.DonationRepository, users repository.UserRepository) ViewService {
	return &viewService{donations: donations, users: users}
}

// AvailableFor 管理员看到全部记录，其他角色只看到可认领的
func (s *viewService) AvailableFor(ctx context.Context, role model.Role, search string) ([]*model.Donation, error) {
	return s.filter(ctx, func(d *model.Donation) bool {
		if role != model.RoleAdmin && d.Status != model.DonationStatusAvailable {
			return false
		}
		return MatchesSearch(d, search)
	})
}

func (s *viewService) ForDonor(ctx context.Context, donorID string) ([]*model.Donation, error) {
	if donorID == "" {
		return nil, ErrInvalidArgument
	}
	return s.filter(ctx, func(d *model.Donation) bool { return d.DonorID == donorID })
}

func (s *viewService) ForClaimant(ctx context.Context, claimantID string) ([]*model.Donation, error) {
	if claimantID == "" {
		return nil, ErrInvalidArgument
	}
	return s.filter(ctx, func(d *model.Donation) bool {
		return d.Status == model.DonationStatusClaimed && d.ClaimedBy() == claimantID
	})
}

func (s *viewService) DonorStats(ctx context.Context, donorID string) (*DonorStats, error) {
	mine, err := s.ForDonor(ctx, donorID)
	if err != nil {
		return nil, err
	}
	st := &DonorStats{Total: len(mine), Badges: []Badge{}}
	for _, d := range mine {
		switch d.Status {
		case model.DonationStatusAvailable:
			st.Available++
		case model.DonationStatusClaimed:
			st.Claimed++
		case model.DonationStatusCompleted:
			st.Completed++
		}
	}
	for _, t := range badgeThresholds {
		if st.Total >= t.min {
			st.Badges = append(st.Badges, t.badge)
		}
	}
	return st, nil
}

// SearchUsers 管理后台按姓名/邮箱/角色模糊搜索
func (s *viewService) SearchUsers(ctx context.Context, query string) ([]*model.User, error) {
	all, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	res := make([]*model.User, 0, len(all))
	for _, u := range all {
		if q == "" || containsFold(u.Name, q) || containsFold(u.Email, q) || containsFold(string(u.Role), q) {
			res = append(res, u)
		}
	}
	return res, nil
}

func (s *viewService) filter(ctx context.Context, keep func(*model.Donation) bool) ([]*model.Donation, error) {
	all, err := s.donations.List(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]*model.Donation, 0, len(all))
	for _, d := range all {
		if keep(d) {
			res = append(res, d)
		}
	}
	return res, nil
}

// MatchesSearch 名称、描述、捐赠方名称任一包含关键字即命中（忽略大小写），空关键字全部命中
func MatchesSearch(d *model.Donation, search string) bool {
	q := strings.ToLower(strings.TrimSpace(search))
	if q == "" {
		return true
	}
	return containsFold(d.Name, q) || containsFold(d.Description, q) || containsFold(d.DonorName, q)
}

// containsFold q 已转小写
func containsFold(s, q string) bool {
	return strings.Contains(strings.ToLower(s), q)
}
