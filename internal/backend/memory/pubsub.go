// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/muemud/mue/internal/backend"
)

// PubSub is an in-memory implementation of backend.PubSub.
// Publish delivers synchronously on the caller's goroutine, so a publisher
// observes its own message handled before Publish returns.
type PubSub struct {
	mu     sync.RWMutex
	topics map[string][]*subscription
}

var _ backend.PubSub = (*PubSub)(nil)

// NewPubSub creates an empty in-memory pub/sub hub.
func NewPubSub() *PubSub {
	return &PubSub{topics: make(map[string][]*subscription)}
}

type subscription struct {
	hub     *PubSub
	topic   string
	handler backend.Handler
	once    sync.Once
}

func (s *subscription) Topic() string { return s.topic }

func (s *subscription) Unsubscribe(_ context.Context) error {
	s.once.Do(func() { s.hub.remove(s) })
	return nil
}

// Subscribe implements backend.PubSub.
func (p *PubSub) Subscribe(_ context.Context, topic string, h backend.Handler) (backend.Subscription, error) {
	if topic == "" {
		return nil, oops.Code("BACKEND_SUBSCRIBE_FAILED").Errorf("topic must not be empty")
	}
	if h == nil {
		return nil, oops.Code("BACKEND_SUBSCRIBE_FAILED").With("topic", topic).Errorf("handler must not be nil")
	}

	sub := &subscription{hub: p, topic: topic, handler: h}
	p.mu.Lock()
	p.topics[topic] = append(p.topics[topic], sub)
	p.mu.Unlock()
	return sub, nil
}

// Publish implements backend.PubSub. Handlers are invoked outside the hub lock
// so they may publish or subscribe themselves.
func (p *PubSub) Publish(ctx context.Context, topic, payload string) error {
	p.mu.RLock()
	subs := slices.Clone(p.topics[topic])
	p.mu.RUnlock()

	for _, sub := range subs {
		sub.handler(ctx, topic, payload)
	}
	return nil
}

// SubscriberCount implements backend.PubSub.
func (p *PubSub) SubscriberCount(_ context.Context, topic string) (uint, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return uint(len(p.topics[topic])), nil
}

// Topics implements backend.PubSub.
func (p *PubSub) Topics(_ context.Context, pattern string) ([]string, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, oops.Code("BACKEND_TOPICS_FAILED").With("pattern", pattern).Wrap(err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	var topics []string
	for topic, subs := range p.topics {
		if len(subs) > 0 && g.Match(topic) {
			topics = append(topics, topic)
		}
	}
	slices.Sort(topics)
	return topics, nil
}

func (p *PubSub) remove(sub *subscription) {
	p.mu.Lock()
	defer p.mu.Unlock()
	subs := slices.DeleteFunc(slices.Clone(p.topics[sub.topic]), func(s *subscription) bool { return s == sub })
	if len(subs) == 0 {
		delete(p.topics, sub.topic)
		return
	}
	p.topics[sub.topic] = subs
}

// Backend bundles a storage and a pub/sub hub that several worlds can share.
type Backend struct {
	*Storage
	*PubSub
}

// New creates an empty shared in-memory backend.
func New() *Backend {
	return &Backend{Storage: NewStorage(), PubSub: NewPubSub()}
}
