// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

// Package backend defines the key/value storage and publish/subscribe
// contracts the server core is built on.
//
// Any store offering string keys, string sets, string hashes and atomic
// multi-key transactions can implement Storage.
package backend

import "context"

// Reader holds the read operations of a storage backend.
// Absent values are reported with ok=false rather than an error.
type Reader interface {
	KeyGet(ctx context.Context, key string) (value string, ok bool, err error)

	SetMembers(ctx context.Context, key string) ([]string, error)
	SetContains(ctx context.Context, key, member string) (bool, error)

	HashGetAll(ctx context.Context, key string) (map[string]string, error)
	HashGetField(ctx context.Context, key, field string) (value string, ok bool, err error)
}

// Writer holds the single-call write operations of a storage backend.
// The boolean result reports whether the backend changed anything.
type Writer interface {
	KeySet(ctx context.Context, key, value string) (bool, error)
	KeyDelete(ctx context.Context, key string) (bool, error)

	SetAdd(ctx context.Context, key, member string) (bool, error)
	SetRemove(ctx context.Context, key, member string) (bool, error)

	HashSetAll(ctx context.Context, key string, values map[string]string) (bool, error)
	HashSetField(ctx context.Context, key, field, value string) (bool, error)
	HashDeleteField(ctx context.Context, key, field string) (bool, error)
}

// Tx queues write operations for atomic application.
// Queued operations take effect only when the enclosing Transact call applies them.
type Tx interface {
	KeySet(key, value string)
	KeyDelete(key string)

	SetAdd(key, member string)
	SetRemove(key, member string)

	HashSetAll(key string, values map[string]string)
	HashSetField(key, field, value string)
	HashDeleteField(key, field string)
}

// Storage is a key/value backend with transactional batching.
type Storage interface {
	Reader
	Writer

	// Transact calls fn with a fresh Tx. When fn returns nil every queued
	// operation is applied atomically; when fn returns an error nothing is
	// applied and that error is returned. A failed apply is returned as well.
	Transact(ctx context.Context, fn func(tx Tx) error) error
}

// Handler receives a published payload. It runs on the subscription's
// delivery goroutine; messages for one subscription arrive in publish order.
type Handler func(ctx context.Context, topic, payload string)

// Subscription is a cancelable subscription to one topic.
type Subscription interface {
	Topic() string
	Unsubscribe(ctx context.Context) error
}

// PubSub is a topic-based publish/subscribe backend.
type PubSub interface {
	Subscribe(ctx context.Context, topic string, h Handler) (Subscription, error)
	Publish(ctx context.Context, topic, payload string) error

	// SubscriberCount returns the number of subscribers on topic.
	SubscriberCount(ctx context.Context, topic string) (uint, error)

	// Topics returns the topics with at least one subscriber matching the
	// glob pattern, e.g. "c:r:*".
	Topics(ctx context.Context, pattern string) ([]string, error)
}
