// Package bootstrap 按配置组装存储后端、通知总线与各个服务
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/food-share/config"
	"github.com/d60-Lab/food-share/internal/api/handler"
	"github.com/d60-Lab/food-share/internal/fanout"
	"github.com/d60-Lab/food-share/internal/kvstore"
	"github.com/d60-Lab/food-share/internal/repository"
	"github.com/d60-Lab/food-share/internal/service"
	"github.com/d60-Lab/food-share/pkg/database"
	"github.com/d60-Lab/food-share/pkg/logger"
)

// redis 键前缀
const (
	kvPrefix      = "foodshare:"
	channelPrefix = "foodshare:notifications:"
)

// Stores 一组仓储实现
type Stores struct {
	Donations     repository.DonationRepository
	Notifications repository.NotificationRepository
	Messages      repository.MessageRepository
	Users         repository.UserRepository
}

// App 组装完成的依赖
type App struct {
	Stores   Stores
	Bus      fanout.Bus
	Services handler.Services

	closers []func() error
}

// Build 按 storage.driver 与 fanout.transport 组装
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{}
	var redisClient *redis.Client
	needRedis := cfg.Storage.Driver == "redis" || cfg.Fanout.Transport == "redis"
	if needRedis {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		app.closers = append(app.closers, redisClient.Close)
	}

	switch cfg.Storage.Driver {
	case "memory":
		app.Stores = MemoryStores()
	case "redis":
		app.Stores = KVStores(kvstore.NewRedis(redisClient, kvPrefix))
	case "sqlite", "postgres":
		db, err := database.InitDB(cfg)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		stores, err := SQLStores(db)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		app.Stores = stores
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}

	switch cfg.Fanout.Transport {
	case "redis":
		app.Bus = fanout.NewRedisBus(redisClient, channelPrefix)
	case "poll":
		app.Bus = fanout.NewPoller(app.Stores.Notifications, cfg.Fanout.PollInterval)
	default:
		app.Bus = fanout.NewLocalBus()
	}
	// 先停总线，再关存储，最后关 redis 连接
	app.closers = append([]func() error{app.Bus.Close, app.Stores.Donations.Close}, app.closers...)

	app.Services = NewServices(app.Stores, app.Bus)
	logger.Info("bootstrap complete",
		zap.String("storage", cfg.Storage.Driver),
		zap.String("fanout", cfg.Fanout.Transport))
	return app, nil
}

// MemoryStores 分段锁内存捐赠仓储 + 内存 kv 上的其余集合
func MemoryStores() Stores {
	kv := kvstore.NewMemory()
	s := KVStores(kv)
	s.Donations = repository.NewShardedDonationRepository().WithEventLog(s.Notifications)
	return s
}

// KVStores 所有集合存为同一 kvstore 下的 JSON 数组
func KVStores(kv kvstore.Store) Stores {
	return Stores{
		Donations:     repository.NewKVDonationRepository(kv),
		Notifications: repository.NewKVNotificationRepository(kv),
		Messages:      repository.NewKVMessageRepository(kv),
		Users:         repository.NewKVUserRepository(kv),
	}
}

func SQLStores(db *gorm.DB) (Stores, error) {
	if err := repository.InitSchema(db); err != nil {
		return Stores{}, fmt.Errorf("migrate: %w", err)
	}
	return Stores{
		Donations:     repository.NewGormDonationRepository(db),
		Notifications: repository.NewGormNotificationRepository(db),
		Messages:      repository.NewGormMessageRepository(db),
		Users:         repository.NewGormUserRepository(db),
	}, nil
}

func NewServices(s Stores, bus fanout.Bus) handler.Services {
	notifier := service.NewNotificationService(s.Notifications, bus)
	return handler.Services{
		Donations:     service.NewDonationService(s.Donations),
		Claims:        service.NewClaimService(s.Donations, s.Users, notifier),
		Views:         service.NewViewService(s.Donations, s.Users),
		Notifications: notifier,
		Messages:      service.NewMessageService(s.Messages, s.Users, s.Donations, notifier),
		Users:         service.NewUserService(s.Users),
	}
}

// Close 按组装的逆序释放
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
