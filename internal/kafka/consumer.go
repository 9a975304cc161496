package kafka

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/twmb/franz-go/pkg/kgo"

	"notifrelay/internal/domain"
	"notifrelay/internal/kafka/registry"

	// Blank imports trigger init() in each handler file,
	// registering all capture handlers into the registry.
	_ "notifrelay/internal/kafka/handlers"
)

// Capturer runs a captured notification through the pipeline.
type Capturer interface {
	Capture(ctx context.Context, input domain.CreateNotificationInput) (*domain.Notification, error)
}

// Consumer wraps the franz-go Kafka client.
type Consumer struct {
	client   *kgo.Client
	capturer Capturer
}

// New creates a Consumer with the given brokers, group ID, and topics.
func New(brokers []string, groupID string, topics []string, capturer Capturer) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topics...),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, err
	}
	return &Consumer{client: client, capturer: capturer}, nil
}

// Start begins polling Kafka and processing records. Blocks until ctx is cancelled.
// Records are handled one at a time, in partition order.
func (c *Consumer) Start(ctx context.Context) {
	log.Info().Msg("kafka consumer started")

	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			break
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			log.Error().Err(err).Str("topic", topic).Int32("partition", partition).Msg("kafka fetch error")
		})

		fetches.EachRecord(func(r *kgo.Record) {
			Process(ctx, c.capturer, r.Topic, r.Key, r.Value)
		})

		if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
			log.Error().Err(err).Msg("kafka commit error")
		}
	}

	c.client.Close()
	log.Info().Msg("kafka consumer stopped")
}

// Process dispatches one record to the registered handler and captures the result.
// Failures are logged and the record is dropped.
func Process(ctx context.Context, capturer Capturer, topic string, key, value []byte) {
	log.Debug().
		Str("topic", topic).
		Str("key", string(key)).
		Msg("processing kafka record")

	input := registry.DispatchDirect(topic, value)
	if input == nil {
		input = registry.Dispatch(topic, value)
	}
	if input == nil {
		log.Debug().Str("topic", topic).Msg("no handler matched, skipping")
		return
	}

	n, err := capturer.Capture(ctx, *input)
	if err != nil {
		ev := log.Error()
		if errors.Is(err, domain.ErrInvalidNotification) {
			ev = log.Warn()
		}
		ev.Err(err).
			Str("topic", topic).
			Str("app", input.App).
			Str("title", input.Title).
			Msg("failed to capture notification from kafka record")
		return
	}
	if n == nil {
		log.Debug().Str("app", input.App).Msg("notification dropped by allow-list")
	}
}
