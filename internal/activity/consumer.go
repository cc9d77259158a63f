// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/goccy/go-json"

	"github.com/tomtom215/trailmark/internal/config"
	"github.com/tomtom215/trailmark/internal/logging"
	"github.com/tomtom215/trailmark/internal/metrics"
	"github.com/tomtom215/trailmark/internal/models"
)

// Store persists activity events.
type Store interface {
	InsertActivityEvent(ctx context.Context, ev *models.ActivityEvent) error
}

// Broadcaster pushes a typed message to live listeners of a team.
type Broadcaster interface {
	BroadcastJSON(messageType string, teamID *int64, data interface{})
}

// MessageTypeActivity is the realtime message type for persisted events.
const MessageTypeActivity = "activity"

const consumerHandlerName = "activity-writer"

// ConsumerConfig bounds how hard the consumer tries before giving up on a
// message.
type ConsumerConfig struct {
	Topic string
	// PoisonTopic receives messages that failed every retry. Empty drops
	// them instead.
	PoisonTopic string

	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64

	CloseTimeout time.Duration
}

// ConsumerConfigFrom maps the events section onto a ConsumerConfig.
func ConsumerConfigFrom(cfg *config.EventsConfig) ConsumerConfig {
	return ConsumerConfig{
		Topic:           cfg.Topic,
		PoisonTopic:     cfg.PoisonTopic,
		MaxRetries:      cfg.RetryMaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
		Multiplier:      cfg.RetryMultiplier,
		CloseTimeout:    cfg.CloseTimeout,
	}
}

// Consumer writes activity events from the bus into the store and forwards
// them to realtime listeners. It implements suture.Service.
//
// Messages flow through a watermill router: a failing store write is retried
// with exponential backoff, then moved to the poison topic (or dropped) and
// acked, so one bad event never blocks or spins the subscription.
type Consumer struct {
	subscriber  message.Subscriber
	poison      message.Publisher
	cfg         ConsumerConfig
	store       Store
	broadcaster Broadcaster
	logger      watermill.LoggerAdapter
}

// NewConsumer creates a consumer. poison and broadcaster may be nil.
func NewConsumer(subscriber message.Subscriber, poison message.Publisher, cfg ConsumerConfig, store Store, broadcaster Broadcaster) *Consumer {
	return &Consumer{
		subscriber:  subscriber,
		poison:      poison,
		cfg:         cfg,
		store:       store,
		broadcaster: broadcaster,
		logger:      watermill.NewSlogLogger(logging.NewSlogLogger()),
	}
}

// Serve runs a fresh router until ctx is canceled. Routers cannot be
// restarted, so each supervisor restart builds a new one.
func (c *Consumer) Serve(ctx context.Context) error {
	router, err := c.newRouter()
	if err != nil {
		return err
	}
	router.AddConsumerHandler(consumerHandlerName, c.cfg.Topic, c.subscriber, c.handle)

	logging.Info().Str("topic", c.cfg.Topic).Int("max_retries", c.cfg.MaxRetries).
		Str("poison_topic", c.cfg.PoisonTopic).Msg("activity consumer started")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-runCtx.Done()
		if cerr := router.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("activity router did not close cleanly")
		}
	}()

	runErr := router.Run(runCtx)
	if ctx.Err() != nil {
		logging.Info().Str("topic", c.cfg.Topic).Msg("activity consumer stopped")
		return ctx.Err()
	}
	if runErr != nil {
		return fmt.Errorf("activity router: %w", runErr)
	}
	return nil
}

// String identifies the service in supervisor logs.
func (c *Consumer) String() string {
	return "activity-consumer"
}

// newRouter builds the middleware chain, outermost first: the give-up step
// (poison queue or drop), then retry with backoff, then panic recovery so
// a panicking write is retried like any other failure.
func (c *Consumer) newRouter() (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: c.cfg.CloseTimeout}, c.logger)
	if err != nil {
		return nil, fmt.Errorf("create activity router: %w", err)
	}

	if c.poison != nil && c.cfg.PoisonTopic != "" {
		poisonQueue, err := middleware.PoisonQueue(&poisonPublisher{c.poison}, c.cfg.PoisonTopic)
		if err != nil {
			return nil, fmt.Errorf("create poison queue middleware: %w", err)
		}
		router.AddMiddleware(poisonQueue)
	} else {
		router.AddMiddleware(dropFailed)
	}

	if c.cfg.MaxRetries > 0 {
		retry := middleware.Retry{
			MaxRetries:      c.cfg.MaxRetries,
			InitialInterval: c.cfg.InitialInterval,
			MaxInterval:     c.cfg.MaxInterval,
			Multiplier:      c.cfg.Multiplier,
			Logger:          c.logger,
		}
		router.AddMiddleware(retry.Middleware)
	}

	router.AddMiddleware(middleware.Recoverer)
	return router, nil
}

// handle persists one event. Malformed payloads are dropped; store errors
// are returned so the retry middleware sees them.
func (c *Consumer) handle(msg *message.Message) error {
	ctx := msg.Context()
	if id := msg.Metadata.Get(MetadataCorrelationID); id != "" {
		ctx = logging.ContextWithCorrelationID(ctx, id)
	}

	var ev models.ActivityEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		metrics.ActivityPersisted.WithLabelValues("malformed").Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("message_uuid", msg.UUID).Msg("dropping malformed activity message")
		return nil
	}

	if err := c.store.InsertActivityEvent(ctx, &ev); err != nil {
		metrics.ActivityPersisted.WithLabelValues("error").Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("event", ev.Event).Msg("failed to persist activity")
		return fmt.Errorf("persist activity %s: %w", ev.ID, err)
	}
	metrics.ActivityPersisted.WithLabelValues("ok").Inc()

	if c.broadcaster != nil {
		c.broadcaster.BroadcastJSON(MessageTypeActivity, ev.TeamID, &ev)
	}
	return nil
}

// dropFailed acks a message whose retries are exhausted when no poison
// topic is configured.
func dropFailed(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		produced, err := h(msg)
		if err != nil {
			metrics.ActivityPersisted.WithLabelValues("dropped").Inc()
			logging.Error().Err(err).Str("message_uuid", msg.UUID).Msg("dropping activity message after retries")
			return nil, nil
		}
		return produced, nil
	}
}

// poisonPublisher counts and logs every message moved to the poison topic.
type poisonPublisher struct {
	message.Publisher
}

func (p *poisonPublisher) Publish(topic string, msgs ...*message.Message) error {
	for _, msg := range msgs {
		metrics.ActivityPersisted.WithLabelValues("poisoned").Inc()
		logging.Error().
			Str("message_uuid", msg.UUID).
			Str("reason", msg.Metadata.Get(middleware.ReasonForPoisonedKey)).
			Str("topic", topic).
			Msg("activity message moved to poison topic")
	}
	return p.Publisher.Publish(topic, msgs...)
}
