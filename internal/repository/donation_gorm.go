package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/food-share/internal/model"
)

const donationTable = "donations"

// GormDonationRepository 基于 gorm 的捐赠仓储（sqlite/postgres）
type GormDonationRepository struct {
	db *gorm.DB
}

// NewGormDonationRepository 创建 SQL 捐赠仓储
func NewGormDonationRepository(db *gorm.DB) *GormDonationRepository {
	return &GormDonationRepository{db: db}
}

// Get 根据 ID 查询
func (r *GormDonationRepository) Get(ctx context.Context, id string) (*model.Donation, error) {
	var d model.Donation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapStorage("get", donationTable, err)
	}
	return &d, nil
}

// Upsert 在事务内读取旧版本并整行覆盖，已有记录保留 created_at
func (r *GormDonationRepository) Upsert(ctx context.Context, d *model.Donation) error {
	if err := d.Validate(); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Donation
		res := tx.Select("version", "created_at").Where("id = ?", d.ID).Limit(1).Find(&existing)
		if res.Error != nil {
			return res.Error
		}
		row := d.Clone()
		row.Version = 1
		if res.RowsAffected > 0 {
			row.Version = existing.Version + 1
			row.CreatedAt = existing.CreatedAt
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(row).Error; err != nil {
			return err
		}
		d.Version = row.Version
		d.CreatedAt = row.CreatedAt
		return nil
	})
	return wrapStorage("upsert", donationTable, err)
}

// List 全量查询
func (r *GormDonationRepository) List(ctx context.Context) ([]*model.Donation, error) {
	var res []*model.Donation
	err := r.db.WithContext(ctx).Order("created_at DESC, id ASC").Find(&res).Error
	if err != nil {
		return nil, wrapStorage("list", donationTable, err)
	}
	return res, nil
}

// CompareAndSwap UPDATE ... WHERE id = ? AND version = ?，影响行数为 0 时区分不存在与版本冲突
func (r *GormDonationRepository) CompareAndSwap(ctx context.Context, next *model.Donation, expectedVersion int64) error {
	if err := next.Validate(); err != nil {
		return err
	}
	if err := casDonation(r.db.WithContext(ctx), next, expectedVersion); err != nil {
		return wrapStorage("cas", donationTable, err)
	}
	next.Version = expectedVersion + 1
	return nil
}

// CommitTransition 条件更新与通知插入在同一个事务内
func (r *GormDonationRepository) CommitTransition(ctx context.Context, next *model.Donation, expectedVersion int64, ev *model.Notification) error {
	if err := next.Validate(); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := casDonation(tx, next, expectedVersion); err != nil {
			return err
		}
		if ev == nil {
			return nil
		}
		if err := tx.Create(ev).Error; err != nil {
			return wrapStorage("append", notificationTable, err)
		}
		return nil
	})
	if err != nil {
		return wrapStorage("commit", donationTable, err)
	}
	next.Version = expectedVersion + 1
	return nil
}

func casDonation(db *gorm.DB, next *model.Donation, expectedVersion int64) error {
	res := db.Model(&model.Donation{}).
		Where("id = ? AND version = ?", next.ID, expectedVersion).
		Updates(map[string]any{
			"status":        next.Status,
			"claimant_id":   next.ClaimantID,
			"claimant_name": next.ClaimantName,
			"name":          next.Name,
			"description":   next.Description,
			"quantity":      next.Quantity,
			"expiry":        next.Expiry,
			"location":      next.Location,
			"image":         next.Image,
			"version":       expectedVersion + 1,
			"updated_at":    next.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var cnt int64
	if err := db.Model(&model.Donation{}).Where("id = ?", next.ID).Count(&cnt).Error; err != nil {
		return err
	}
	if cnt == 0 {
		return ErrNotFound
	}
	return ErrVersionConflict
}

// Close 关闭数据库连接
func (r *GormDonationRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InitSchema 初始化全部表结构
func InitSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Donation{}, &model.Notification{}, &model.Message{}, &model.User{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
