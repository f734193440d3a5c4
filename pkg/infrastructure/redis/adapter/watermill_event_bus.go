package adapter

import (
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"

	"github.com/mateusmacedo/go-busbooking/pkg/application"
	"github.com/mateusmacedo/go-busbooking/pkg/domain"
	watermillAdapter "github.com/mateusmacedo/go-busbooking/pkg/infrastructure/watermill/adapter"
)

// NewRedisEventBus returns an event bus backed by Redis streams.
func NewRedisEventBus[E domain.Event[D], D any](
	client redis.UniversalClient,
	consumerGroup, consumer string,
	factory watermillAdapter.EventFactory[E, D],
	logger application.AppLogger,
) (*watermillAdapter.EventBus[E, D], error) {
	wmLogger := watermillAdapter.NewWatermillLoggerAdapter(logger)

	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: client,
	}, wmLogger)
	if err != nil {
		return nil, err
	}

	subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:        client,
		ConsumerGroup: consumerGroup,
		Consumer:      consumer,
	}, wmLogger)
	if err != nil {
		_ = publisher.Close()
		return nil, err
	}

	return watermillAdapter.NewEventBus[E, D](publisher, subscriber, factory, logger), nil
}
