package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/d60-Lab/food-share/internal/kvstore"
	"github.com/d60-Lab/food-share/internal/model"
)

const userTable = "users"

type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	Get(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
}

type gormUserRepository struct{ db *gorm.DB }

func NewGormUserRepository(db *gorm.DB) UserRepository { return &gormUserRepository{db: db} }

// Create 邮箱唯一由 uniqueIndex 保证，需要以 TranslateError 打开数据库
func (r *gormUserRepository) Create(ctx context.Context, u *model.User) error {
	err := r.db.WithContext(ctx).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateEmail
	}
	return wrapStorage("create", userTable, err)
}

func (r *gormUserRepository) Get(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapStorage("get", userTable, err)
	}
	return &u, nil
}

func (r *gormUserRepository) List(ctx context.Context) ([]*model.User, error) {
	var res []*model.User
	if err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&res).Error; err != nil {
		return nil, wrapStorage("list", userTable, err)
	}
	return res, nil
}

type kvUserRepository struct {
	list jsonList[*model.User]
}

func NewKVUserRepository(store kvstore.Store) UserRepository {
	return &kvUserRepository{list: jsonList[*model.User]{store: store, key: KeyUsers}}
}

func (r *kvUserRepository) Create(ctx context.Context, u *model.User) error {
	return r.list.update(ctx, "create", func(items []*model.User) ([]*model.User, error) {
		for _, cur := range items {
			if cur != nil && cur.Email == u.Email {
				return nil, ErrDuplicateEmail
			}
		}
		cp := *u
		return append(items, &cp), nil
	})
}

func (r *kvUserRepository) Get(ctx context.Context, id string) (*model.User, error) {
	for _, u := range r.list.read(ctx, "get") {
		if u != nil && u.ID == id {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *kvUserRepository) List(ctx context.Context) ([]*model.User, error) {
	var res []*model.User
	for _, u := range r.list.read(ctx, "list") {
		if u != nil {
			res = append(res, u)
		}
	}
	return res, nil
}
