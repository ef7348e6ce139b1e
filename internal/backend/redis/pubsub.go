// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package redis

import (
	"context"
	"sync"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/muemud/mue/internal/backend"
)

// subscription owns one Redis SUBSCRIBE connection and the goroutine that
// dispatches its messages to the handler in arrival order.
type subscription struct {
	topic  string
	pubsub *goredis.PubSub
	done   chan struct{}
	once   sync.Once
	err    error
}

func (s *subscription) Topic() string { return s.topic }

// Unsubscribe closes the connection and waits for the dispatch goroutine.
func (s *subscription) Unsubscribe(ctx context.Context) error {
	s.once.Do(func() {
		if err := s.pubsub.Close(); err != nil {
			s.err = oops.Code("BACKEND_UNSUBSCRIBE_FAILED").With("topic", s.topic).Wrap(err)
		}
	})
	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.err
}

// Subscribe implements backend.PubSub. It returns once the server has
// confirmed the subscription, so messages published afterwards are delivered.
func (b *Backend) Subscribe(ctx context.Context, topic string, h backend.Handler) (backend.Subscription, error) {
	if topic == "" || h == nil {
		return nil, oops.Code("BACKEND_SUBSCRIBE_FAILED").With("topic", topic).Errorf("topic and handler are required")
	}

	ps := b.client.Subscribe(ctx, topic)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, oops.Code("BACKEND_SUBSCRIBE_FAILED").With("topic", topic).Wrap(err)
	}

	sub := &subscription{topic: topic, pubsub: ps, done: make(chan struct{})}
	msgs := ps.Channel()
	go func() {
		defer close(sub.done)
		for msg := range msgs {
			h(context.Background(), msg.Channel, msg.Payload)
		}
	}()
	return sub, nil
}

// Publish implements backend.PubSub.
func (b *Backend) Publish(ctx context.Context, topic, payload string) error {
	if err := b.client.Publish(ctx, topic, payload).Err(); err != nil {
		return oops.Code("BACKEND_PUBLISH_FAILED").With("topic", topic).Wrap(err)
	}
	return nil
}

// SubscriberCount implements backend.PubSub.
func (b *Backend) SubscriberCount(ctx context.Context, topic string) (uint, error) {
	counts, err := b.client.PubSubNumSub(ctx, topic).Result()
	if err != nil {
		return 0, oops.Code("BACKEND_NUMSUB_FAILED").With("topic", topic).Wrap(err)
	}
	n := counts[topic]
	if n < 0 {
		n = 0
	}
	return uint(n), nil
}

// Topics implements backend.PubSub.
func (b *Backend) Topics(ctx context.Context, pattern string) ([]string, error) {
	topics, err := b.client.PubSubChannels(ctx, pattern).Result()
	if err != nil {
		return nil, oops.Code("BACKEND_CHANNELS_FAILED").With("pattern", pattern).Wrap(err)
	}
	return topics, nil
}
