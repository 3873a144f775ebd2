// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"

	"github.com/tomtom215/civitas/internal/config"
	"github.com/tomtom215/civitas/internal/logging"
	"github.com/tomtom215/civitas/internal/metrics"
)

// Transport names accepted by events.transport.
const (
	TransportGoChannel = "gochannel"
	TransportNATS      = "nats"
)

// Handler processes one message. A returned error triggers redelivery with
// backoff and, after the last retry, the poison topic.
type Handler func(ctx context.Context, msg *message.Message) error

// Bus is the process's message bus. Work handlers share messages across
// instances through a queue group; broadcast handlers see every message in
// every instance. With the gochannel transport both kinds run in process.
type Bus struct {
	publisher message.Publisher
	work      message.Subscriber
	broadcast message.Subscriber
	router    *message.Router
	server    *EmbeddedServer
	logger    watermill.LoggerAdapter
	closers   []func() error

	closeOnce sync.Once
	closeErr  error
}

// Open builds the configured transport and a router with recover, retry and
// poison-queue middleware. Handlers are added before Run.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func Open(cfg config.EventsConfig, logger zerolog.Logger) (*Bus, error) {
	wl := NewZerologAdapter(logger.With().Str("component", "events").Logger())
	b := &Bus{logger: wl}

	switch cfg.Transport {
	case "", TransportGoChannel:
		gc := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, wl)
		b.publisher, b.work, b.broadcast = gc, gc, gc
		b.closers = append(b.closers, gc.Close)
	case TransportNATS:
		if err := b.openNATS(cfg); err != nil {
			_ = b.Close()
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown events transport %q", cfg.Transport)
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, wl)
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("create watermill router: %w", err)
	}
	poison, err := middleware.PoisonQueue(b.publisher, TopicPoison)
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("create poison queue middleware: %w", err)
	}
	retry := middleware.Retry{
		MaxRetries:      cfg.RetryCount,
		InitialInterval: cfg.RetryInterval,
		MaxInterval:     30 * time.Second,
		Multiplier:      2,
		Logger:          wl,
	}
	// Outermost first: poison only sees what retry gave up on, and
	// panics become errors before retry inspects them.
	router.AddMiddleware(poison, retry.Middleware, middleware.Recoverer)
	b.router = router
	return b, nil
}

// Publish encodes payload and publishes it to topic. The request and
// correlation IDs in ctx travel in the message metadata.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) error {
	msg, err := NewMessage(payload)
	if err != nil {
		return err
	}
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		middleware.SetCorrelationID(id, msg)
	} else if id := logging.RequestIDFromContext(ctx); id != "" {
		middleware.SetCorrelationID(id, msg)
	}
	if err := b.publisher.Publish(topic, msg); err != nil {
		metrics.PipelineMessages.WithLabelValues(topic, "publish_failed").Inc()
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	metrics.PipelineMessages.WithLabelValues(topic, "published").Inc()
	return nil
}

// AddWorker registers a queue-group handler: each message is handled once
// across all instances.
func (b *Bus) AddWorker(name, topic string, h Handler) {
	b.add(name, topic, b.work, h)
}

// AddListener registers a broadcast handler: every instance handles every
// message.
func (b *Bus) AddListener(name, topic string, h Handler) {
	b.add(name, topic, b.broadcast, h)
}

func (b *Bus) add(name, topic string, sub message.Subscriber, h Handler) {
	b.router.AddConsumerHandler(name, topic, sub, func(msg *message.Message) error {
		ctx := msg.Context()
		if id := middleware.MessageCorrelationID(msg); id != "" {
			ctx = logging.ContextWithCorrelationID(ctx, id)
		}
		if err := h(ctx, msg); err != nil {
			metrics.PipelineMessages.WithLabelValues(topic, "failed").Inc()
			return err
		}
		metrics.PipelineMessages.WithLabelValues(topic, "handled").Inc()
		return nil
	})
}

// Run blocks running the router until ctx is done.
func (b *Bus) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Running is closed once all handlers are subscribed.
func (b *Bus) Running() chan struct{} {
	return b.router.Running()
}

// Close stops the router, the transport and any embedded server.
func (b *Bus) Close() error {
	b.closeOnce.Do(func() {
		var errs []error
		if b.router != nil {
			errs = append(errs, b.router.Close())
		}
		for i := len(b.closers) - 1; i >= 0; i-- {
			errs = append(errs, b.closers[i]())
		}
		if b.server != nil {
			b.server.Shutdown()
		}
		b.closeErr = errors.Join(errs...)
	})
	return b.closeErr
}
