package container

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/samber/do"
	"github.com/serroba/eaziurl/internal/events"
	"github.com/serroba/eaziurl/internal/messaging"
	"github.com/serroba/eaziurl/internal/shortener"
	"go.uber.org/zap"
)

// PublisherGroupPackage provides the typed encode event publisher.
// With Events set to none, events are discarded and no Redis connection is made.
func PublisherGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		logger := do.MustInvoke[*zap.Logger](i).Named("publisher")
		client := do.MustInvoke[*Redis](i)

		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
			Client:     client.Client,
			Marshaller: redisstream.DefaultMarshallerUnmarshaller{},
		}, messaging.NewZapLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("create publisher: %w", err)
		}

		return messaging.NewPublisherGroup(publisher, logger), nil
	})

	do.Provide(i, func(i *do.Injector) (messaging.Publish[events.LinkEncodedEvent], error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.Events {
		case EventsNone:
			return messaging.Discard[events.LinkEncodedEvent](), nil
		case EventsRedis, "":
			group, err := do.Invoke[*messaging.PublisherGroup](i)
			if err != nil {
				return nil, err
			}

			return messaging.NewPublishFunc[events.LinkEncodedEvent](group.Publisher(), events.TopicLinkEncoded), nil
		default:
			return nil, fmt.Errorf("unknown events backend %q", opts.Events)
		}
	})
}

// ConsumerGroupPackage provides the consumers that apply resolved titles.
func ConsumerGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i).Named("consumer")
		client := do.MustInvoke[*Redis](i)

		service, err := do.Invoke[*shortener.Service](i)
		if err != nil {
			return nil, err
		}

		subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        client.Client,
			Unmarshaller:  redisstream.DefaultMarshallerUnmarshaller{},
			ConsumerGroup: opts.ConsumerGroup,
		}, messaging.NewZapLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("create subscriber: %w", err)
		}

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(messaging.NewConsumer(
			group.Subscriber(),
			events.TopicTitleResolved,
			events.NewTitleHandler(service, logger),
			logger,
		))

		return group, nil
	})
}
