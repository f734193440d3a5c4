package adapter

import (
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/mateusmacedo/go-busbooking/pkg/application"
	"github.com/mateusmacedo/go-busbooking/pkg/domain"
	watermillAdapter "github.com/mateusmacedo/go-busbooking/pkg/infrastructure/watermill/adapter"
)

const defaultOutputBuffer = 64

// NewChannelEventBus returns an event bus backed by an in-memory watermill gochannel.
func NewChannelEventBus[E domain.Event[D], D any](
	factory watermillAdapter.EventFactory[E, D],
	logger application.AppLogger,
) *watermillAdapter.EventBus[E, D] {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: defaultOutputBuffer},
		watermillAdapter.NewWatermillLoggerAdapter(logger),
	)
	return watermillAdapter.NewEventBus[E, D](pubSub, pubSub, factory, logger)
}
