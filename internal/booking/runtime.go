package booking

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mateusmacedo/go-busbooking/internal/booking/application"
	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	"github.com/mateusmacedo/go-busbooking/internal/booking/infrastructure"
	"github.com/mateusmacedo/go-busbooking/internal/config"
	pkgApp "github.com/mateusmacedo/go-busbooking/pkg/application"
	pkgDomain "github.com/mateusmacedo/go-busbooking/pkg/domain"
	pkgInfra "github.com/mateusmacedo/go-busbooking/pkg/infrastructure"
	channelsAdapter "github.com/mateusmacedo/go-busbooking/pkg/infrastructure/channels/adapter"
	kafkaAdapter "github.com/mateusmacedo/go-busbooking/pkg/infrastructure/kafka/adapter"
	redisAdapter "github.com/mateusmacedo/go-busbooking/pkg/infrastructure/redis/adapter"
)

// Runtime is the configured event transport and stores, plus what must be closed on shutdown.
type Runtime struct {
	Notices     application.NoticeEventBus
	Credentials domain.CredentialStore
	Receipts    domain.ReceiptRepository

	redisClient redis.UniversalClient
	closers     []func() error
}

func NewRuntime(cfg config.Config, logger pkgApp.AppLogger) (*Runtime, error) {
	rt := &Runtime{}
	if err := rt.openNotices(cfg, logger); err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("event transport %s: %w", cfg.EventTransport, err)
	}
	if err := rt.openCredentials(cfg); err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("credential store %s: %w", cfg.CredentialStore, err)
	}
	if err := rt.openReceipts(cfg, logger); err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("receipt store %s: %w", cfg.ReceiptStore, err)
	}
	return rt, nil
}

func (rt *Runtime) redis(cfg config.Config) redis.UniversalClient {
	if rt.redisClient == nil {
		rt.redisClient = redisAdapter.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		rt.closers = append(rt.closers, rt.redisClient.Close)
	}
	return rt.redisClient
}

func (rt *Runtime) openNotices(cfg config.Config, logger pkgApp.AppLogger) error {
	switch cfg.EventTransport {
	case config.TransportChannels:
		bus := channelsAdapter.NewChannelEventBus[pkgDomain.Event[domain.Notice], domain.Notice](application.NoticeEventFactory, logger)
		rt.Notices = bus
		rt.closers = append(rt.closers, bus.Close)
	case config.TransportRedis:
		bus, err := redisAdapter.NewRedisEventBus[pkgDomain.Event[domain.Notice], domain.Notice](
			rt.redis(cfg), cfg.ConsumerGroup, cfg.AppName, application.NoticeEventFactory, logger)
		if err != nil {
			return err
		}
		rt.Notices = bus
		rt.closers = append(rt.closers, bus.Close)
	case config.TransportKafka:
		bus, err := kafkaAdapter.NewKafkaEventBus[pkgDomain.Event[domain.Notice], domain.Notice](
			cfg.KafkaBrokers, cfg.ConsumerGroup, application.NoticeEventFactory, logger)
		if err != nil {
			return err
		}
		rt.Notices = bus
		rt.closers = append(rt.closers, bus.Close)
	default:
		rt.Notices = pkgInfra.NewSimpleEventBus[pkgDomain.Event[domain.Notice], domain.Notice](logger)
	}
	return nil
}

func (rt *Runtime) openCredentials(cfg config.Config) error {
	switch cfg.CredentialStore {
	case config.StoreRedis:
		rt.Credentials = infrastructure.NewRedisCredentialStore(rt.redis(cfg), cfg.CredentialKey, cfg.StubTokenTTL)
	default:
		rt.Credentials = infrastructure.NewMemoryCredentialStore()
	}
	return nil
}

func (rt *Runtime) openReceipts(cfg config.Config, logger pkgApp.AppLogger) error {
	switch cfg.ReceiptStore {
	case config.StorePostgres:
		db, err := infrastructure.OpenPostgres(cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		rt.closers = append(rt.closers, sqlDB.Close)
		rt.Receipts = infrastructure.NewGormReceiptRepository(db, logger)
	default:
		rt.Receipts = infrastructure.NewInMemoryReceiptRepository(logger)
	}
	return nil
}

// Close releases resources in reverse order of acquisition.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
