// Package events decouples best-effort side effects from the request path.
// Services publish domain events on an in-process Watermill bus and
// background handlers consume them; a handler failure never reaches the
// request that emitted the event.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/justestif/go-spotify-taste-engine/internal/logging"
)

// Publisher emits events.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// HandlerFunc consumes one event. ctx carries the publisher's correlation id.
type HandlerFunc func(ctx context.Context, msg *message.Message) error

// Config configures a Bus.
type Config struct {
	// CloseTimeout bounds how long Close waits for running handlers.
	CloseTimeout time.Duration
	// Buffer is the per-subscriber output channel size.
	Buffer int64
}

// DefaultConfig returns the defaults used by the server.
func DefaultConfig() Config {
	return Config{
		CloseTimeout: 10 * time.Second,
		Buffer:       64,
	}
}

// Bus is an in-process publisher plus a router running the handlers.
type Bus struct {
	pubsub *gochannel.GoChannel
	router *message.Router
	logger watermill.LoggerAdapter
}

// NewBus creates a bus. Handlers must be registered before Run.
func NewBus(cfg Config, logger watermill.LoggerAdapter) (*Bus, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.Buffer,
	}, logger)

	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: cfg.CloseTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)

	return &Bus{pubsub: pubsub, router: router, logger: logger}, nil
}

// Publish encodes payload as JSON and publishes it on topic.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	id := logging.CorrelationIDFromContext(ctx)
	if id == "" {
		id = logging.GenerateCorrelationID()
	}
	middleware.SetCorrelationID(id, msg)

	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publishing %s event: %w", topic, err)
	}
	return nil
}

// Handle registers h as a consumer of topic.
func (b *Bus) Handle(name, topic string, h HandlerFunc) {
	b.router.AddConsumerHandler(name, topic, b.pubsub, func(msg *message.Message) error {
		ctx := logging.ContextWithCorrelationID(msg.Context(), middleware.MessageCorrelationID(msg))
		return h(ctx, msg)
	})
}

// Run starts the handlers and blocks until ctx is cancelled or Close is
// called.
func (b *Bus) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Running is closed once every handler is subscribed.
func (b *Bus) Running() chan struct{} {
	return b.router.Running()
}

// Close stops the router and the pub/sub.
func (b *Bus) Close() error {
	routerErr := b.router.Close()
	if err := b.pubsub.Close(); err != nil {
		return err
	}
	return routerErr
}

// Decode unmarshals a JSON event payload into v.
func Decode(msg *message.Message, v any) error {
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("decoding event %s: %w", msg.UUID, err)
	}
	return nil
}
