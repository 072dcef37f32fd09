// Package realtime carries chat messages and auth events between the services of
// one process, and between processes when a Kafka bridge is configured.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/logger"
)

// Topics
const (
	TopicChatMessages = "chat.messages"
	TopicAuthEvents   = "auth.events"
)

// KeyMetadata is the metadata field subscribers filter on: a conversation id on
// chat.messages, an identity id on auth.events.
const KeyMetadata = "key"

// Config configures the bus. With no brokers the bus is process-local.
type Config struct {
	Brokers       []string
	ConsumerGroup string
	Buffer        int64
}

// Delivery is one message handed to a subscriber
type Delivery struct {
	ID      string
	Key     string
	Payload []byte
}

// Decode unmarshals the JSON payload
func (d Delivery) Decode(v interface{}) error {
	return json.Unmarshal(d.Payload, v)
}

// Bus publishes JSON payloads on fixed topics. Subscribers always read from the
// in-process gochannel; with Kafka configured, publishes go to Kafka and a router
// copies every Kafka message back into the local gochannel of each instance.
type Bus struct {
	local     *gochannel.GoChannel
	publisher message.Publisher
	router    *message.Router
	closers   []func() error
	logger    zerolog.Logger

	closeOnce sync.Once
}

// NewBus creates the bus and, when brokers are set, the Kafka bridge
func NewBus(cfg Config, l zerolog.Logger) (*Bus, error) {
	wlog := logger.NewWatermillAdapter(l)
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}

	local := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: cfg.Buffer}, wlog)
	b := &Bus{
		local:     local,
		publisher: local,
		logger:    l.With().Str("component", "realtime").Logger(),
	}
	if len(cfg.Brokers) == 0 {
		return b, nil
	}

	pub, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   cfg.Brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, wlog)
	if err != nil {
		_ = local.Close()
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	saramaCfg := kafka.DefaultSaramaSubscriberConfig()
	saramaCfg.Consumer.Offsets.Initial = -1 // newest: a fresh group must not replay history

	// every instance needs every message, so each one consumes in its own group
	group := cfg.ConsumerGroup + "-" + uuid.NewString()
	sub, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               cfg.Brokers,
		Unmarshaler:           kafka.DefaultMarshaler{},
		ConsumerGroup:         group,
		OverwriteSaramaConfig: saramaCfg,
	}, wlog)
	if err != nil {
		_ = pub.Close()
		_ = local.Close()
		return nil, fmt.Errorf("failed to create kafka subscriber: %w", err)
	}

	router, err := message.NewRouter(message.RouterConfig{}, wlog)
	if err != nil {
		_ = sub.Close()
		_ = pub.Close()
		_ = local.Close()
		return nil, fmt.Errorf("failed to create bus router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)
	for _, topic := range []string{TopicChatMessages, TopicAuthEvents} {
		router.AddHandler("bridge-"+topic, topic, sub, topic, local, forward)
	}

	b.publisher = pub
	b.router = router
	b.closers = []func() error{sub.Close, pub.Close}
	b.logger.Info().Strs("brokers", cfg.Brokers).Str("group", group).Msg("Kafka bridge configured")
	return b, nil
}

func forward(msg *message.Message) ([]*message.Message, error) {
	out := message.NewMessage(msg.UUID, msg.Payload)
	for k, v := range msg.Metadata {
		out.Metadata.Set(k, v)
	}
	return []*message.Message{out}, nil
}

// Start runs the Kafka bridge until ctx is done. It returns immediately for a
// process-local bus.
func (b *Bus) Start(ctx context.Context) {
	if b.router == nil {
		return
	}
	go func() {
		if err := b.router.Run(ctx); err != nil {
			b.logger.Error().Err(err).Msg("Bus router stopped")
		}
	}()
	<-b.router.Running()
}

// Publish marshals payload to JSON and publishes it on topic. id becomes the
// message UUID, so subscribers can deduplicate on it; an empty id gets a fresh one.
func (b *Bus) Publish(topic, key, id string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", topic, err)
	}
	if id == "" {
		id = watermill.NewUUID()
	}
	msg := message.NewMessage(id, data)
	msg.Metadata.Set(KeyMetadata, key)
	if err := b.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish on %s: %w", topic, err)
	}
	return nil
}

// Subscribe delivers messages on topic whose key matches. An empty key matches
// everything. The channel closes when ctx is done.
func (b *Bus) Subscribe(ctx context.Context, topic, key string) (<-chan Delivery, error) {
	in, err := b.local.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		for msg := range in {
			msgKey := msg.Metadata.Get(KeyMetadata)
			if key != "" && msgKey != key {
				msg.Ack()
				continue
			}
			d := Delivery{ID: msg.UUID, Key: msgKey, Payload: msg.Payload}
			select {
			case out <- d:
				msg.Ack()
			case <-ctx.Done():
				msg.Ack()
				return
			}
		}
	}()
	return out, nil
}

// Close stops the bridge and the local pub/sub
func (b *Bus) Close() error {
	var errs []error
	b.closeOnce.Do(func() {
		if b.router != nil {
			errs = append(errs, b.router.Close())
		}
		for _, c := range b.closers {
			errs = append(errs, c())
		}
		errs = append(errs, b.local.Close())
	})
	return errors.Join(errs...)
}
