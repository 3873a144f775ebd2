// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/civitas/internal/config"
)

func (b *Bus) openNATS(cfg config.EventsConfig) error {
	url := cfg.NATSURL
	if cfg.EmbeddedNATS {
		srv, err := NewEmbeddedServer(ServerConfig{Host: "127.0.0.1", Port: cfg.NATSPort})
		if err != nil {
			return err
		}
		b.server = srv
		url = srv.ClientURL()
	}

	opts := natsOptions(b.logger)
	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: opts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, b.logger)
	if err != nil {
		return fmt.Errorf("create nats publisher: %w", err)
	}
	b.publisher = pub
	b.closers = append(b.closers, pub.Close)

	work, err := newNATSSubscriber(url, cfg, cfg.QueueGroup, opts, b.logger)
	if err != nil {
		return fmt.Errorf("create nats work subscriber: %w", err)
	}
	b.work = work
	b.closers = append(b.closers, work.Close)

	broadcast, err := newNATSSubscriber(url, cfg, "", opts, b.logger)
	if err != nil {
		return fmt.Errorf("create nats broadcast subscriber: %w", err)
	}
	b.broadcast = broadcast
	b.closers = append(b.closers, broadcast.Close)
	return nil
}

func newNATSSubscriber(url string, cfg config.EventsConfig, queueGroup string, opts []natsgo.Option, logger watermill.LoggerAdapter) (*wmNats.Subscriber, error) {
	return wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: queueGroup,
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      opts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, logger)
}

func natsOptions(logger watermill.LoggerAdapter) []natsgo.Option {
	return []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}
}
