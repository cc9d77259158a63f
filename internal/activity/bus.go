// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/trailmark/internal/config"
	"github.com/tomtom215/trailmark/internal/logging"
)

// Transport names accepted in events.transport.
const (
	TransportMemory = "memory"
	TransportNATS   = "nats"
)

// ErrUnknownTransport is returned by NewBus for an unsupported transport.
var ErrUnknownTransport = errors.New("unknown events transport")

// Bus holds the publisher and subscriber for the activity topic.
//
// Activity uses core NATS subjects rather than JetStream: the topic contains
// dots, which JetStream does not allow in stream names, and a lost activity
// row is tolerable.
type Bus struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber

	server       *EmbeddedServer
	closeTimeout time.Duration
}

// NewBus builds the transport selected by cfg.Transport. For "nats" with
// NATSEmbedded set, an in-process server is started first and the bus
// connects to it.
func NewBus(cfg *config.EventsConfig) (*Bus, error) {
	logger := watermill.NewSlogLogger(logging.NewSlogLogger())

	switch cfg.Transport {
	case TransportMemory, "":
		ch := gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: cfg.BufferSize,
		}, logger)
		return &Bus{Publisher: ch, Subscriber: ch, closeTimeout: cfg.CloseTimeout}, nil

	case TransportNATS:
		return newNATSBus(cfg, logger)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, cfg.Transport)
	}
}

func newNATSBus(cfg *config.EventsConfig, logger watermill.LoggerAdapter) (*Bus, error) {
	bus := &Bus{closeTimeout: cfg.CloseTimeout}
	url := cfg.NATSURL

	if cfg.NATSEmbedded {
		srv, err := NewEmbeddedServer("127.0.0.1", cfg.NATSPort, cfg.NATSStoreDir)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS: %w", err)
		}
		bus.server = srv
		url = srv.ClientURL()
		logging.Info().Str("url", url).Msg("embedded NATS server started")
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("trailmark-activity"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		bus.shutdownServer()
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}
	bus.Publisher = pub

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: cfg.SubscriberNum,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		_ = pub.Close()
		bus.shutdownServer()
		return nil, fmt.Errorf("create NATS subscriber: %w", err)
	}
	bus.Subscriber = sub

	return bus, nil
}

// Close closes the publisher and subscriber, then stops the embedded
// server if one was started.
func (b *Bus) Close() error {
	var errs []error
	if err := b.Publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	// GoChannel is both ends; closing it twice is a no-op.
	if b.Subscriber != nil {
		if err := b.Subscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close subscriber: %w", err))
		}
	}
	b.shutdownServer()
	return errors.Join(errs...)
}

// Embedded returns the in-process server, or nil.
func (b *Bus) Embedded() *EmbeddedServer {
	return b.server
}

func (b *Bus) shutdownServer() {
	if b.server == nil {
		return
	}
	timeout := b.closeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := b.server.Shutdown(ctx); err != nil {
		logging.Warn().Err(err).Msg("embedded NATS shutdown did not finish")
	}
}
