package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/food-share/internal/kvstore"
	"github.com/d60-Lab/food-share/internal/model"
)

// setupTestDB 每个测试独立的 sqlite 内存库
func setupTestDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		tb.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })
	if err := InitSchema(db); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return db
}

func setupRedisKV(tb testing.TB) kvstore.Store {
	tb.Helper()
	mr := miniredis.RunT(tb)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tb.Cleanup(func() { _ = client.Close() })
	return kvstore.NewRedis(client, "test:")
}

// donationBackends 所有捐赠仓储实现，契约测试逐一运行
func donationBackends(tb testing.TB) map[string]DonationRepository {
	return map[string]DonationRepository{
		"gorm":     NewGormDonationRepository(setupTestDB(tb)),
		"sharded":  NewShardedDonationRepository(),
		"kv-mem":   NewKVDonationRepository(kvstore.NewMemory()),
		"kv-redis": NewKVDonationRepository(setupRedisKV(tb)),
	}
}

// transitionBackend 捐赠仓储及其通知日志；breakLog 让之后的事件写入失败
type transitionBackend struct {
	donations DonationRepository
	log       NotificationRepository
	breakLog  func(tb testing.TB)
}

func corruptKey(store kvstore.Store, key string) func(tb testing.TB) {
	return func(tb testing.TB) {
		err := store.Update(context.Background(), key, func([]byte) ([]byte, error) { return []byte("{broken"), nil })
		if err != nil {
			tb.Fatalf("corrupt %s: %v", key, err)
		}
	}
}

func transitionBackends(tb testing.TB) map[string]transitionBackend {
	db := setupTestDB(tb)
	mem := kvstore.NewMemory()
	shardedLog := kvstore.NewMemory()
	rkv := setupRedisKV(tb)
	return map[string]transitionBackend{
		"gorm": {
			donations: NewGormDonationRepository(db),
			log:       NewGormNotificationRepository(db),
			breakLog: func(tb testing.TB) {
				if err := db.Migrator().DropTable(&model.Notification{}); err != nil {
					tb.Fatalf("drop notifications: %v", err)
				}
			},
		},
		"sharded": {
			donations: NewShardedDonationRepository().WithEventLog(NewKVNotificationRepository(shardedLog)),
			log:       NewKVNotificationRepository(shardedLog),
			breakLog:  corruptKey(shardedLog, KeyNotifications),
		},
		"kv-mem": {
			donations: NewKVDonationRepository(mem),
			log:       NewKVNotificationRepository(mem),
			breakLog:  corruptKey(mem, KeyNotifications),
		},
		"kv-redis": {
			donations: NewKVDonationRepository(rkv),
			log:       NewKVNotificationRepository(rkv),
			breakLog:  corruptKey(rkv, KeyNotifications),
		},
	}
}

func newDonation(id, name string, createdAt time.Time) *model.Donation {
	return &model.Donation{
		ID:          id,
		Status:      model.DonationStatusAvailable,
		DonorID:     "donor-1",
		DonorName:   "Green Grocers",
		Name:        name,
		Description: "fresh from the market",
		Quantity:    "5 kg",
		Expiry:      "2026-10-20",
		Location:    "Main St",
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func ptr(s string) *string { return &s }
