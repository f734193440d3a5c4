package adapter

import (
	"github.com/Shopify/sarama"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"

	"github.com/mateusmacedo/go-busbooking/pkg/application"
	"github.com/mateusmacedo/go-busbooking/pkg/domain"
	watermillAdapter "github.com/mateusmacedo/go-busbooking/pkg/infrastructure/watermill/adapter"
)

// NewKafkaEventBus returns an event bus backed by Kafka topics, one per event name.
func NewKafkaEventBus[E domain.Event[D], D any](
	brokers []string,
	consumerGroup string,
	factory watermillAdapter.EventFactory[E, D],
	logger application.AppLogger,
) (*watermillAdapter.EventBus[E, D], error) {
	wmLogger := watermillAdapter.NewWatermillLoggerAdapter(logger)
	marshaler := kafka.DefaultMarshaler{}

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: marshaler,
	}, wmLogger)
	if err != nil {
		return nil, err
	}

	subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               brokers,
		Unmarshaler:           marshaler,
		ConsumerGroup:         consumerGroup,
		OverwriteSaramaConfig: subscriberSaramaConfig(),
		InitializeTopicDetails: &sarama.TopicDetail{
			NumPartitions:     1,
			ReplicationFactor: 1,
		},
	}, wmLogger)
	if err != nil {
		_ = publisher.Close()
		return nil, err
	}

	return watermillAdapter.NewEventBus[E, D](publisher, subscriber, factory, logger), nil
}

func subscriberSaramaConfig() *sarama.Config {
	saramaConfig := kafka.DefaultSaramaSubscriberConfig()
	saramaConfig.Version = sarama.V1_0_0_0
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.ClientID = "go-busbooking"
	return saramaConfig
}
