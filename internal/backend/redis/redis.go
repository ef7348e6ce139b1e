// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

// Package redis implements the storage and pub/sub backends on a Redis server.
package redis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/muemud/mue/internal/backend"
)

// Options configures a Redis backend connection.
type Options struct {
	Addr           string
	Password       string
	DB             int
	ConnectTimeout time.Duration
	// ConnectRetries bounds the ping attempts made by Connect.
	ConnectRetries uint64
}

// Backend is a Redis-backed backend.Storage and backend.PubSub.
type Backend struct {
	client goredis.UniversalClient
}

var (
	_ backend.Storage = (*Backend)(nil)
	_ backend.PubSub  = (*Backend)(nil)
)

// Connect dials Redis and waits until it answers PING, retrying with
// exponential backoff.
func Connect(ctx context.Context, opts Options) (*Backend, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: opts.ConnectTimeout,
	})

	b := New(client)
	backoff := retry.WithMaxRetries(opts.ConnectRetries, retry.NewExponential(100*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			slog.Debug("redis ping failed", "addr", opts.Addr, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, oops.Code("BACKEND_CONNECT_FAILED").With("addr", opts.Addr).Wrap(err)
	}
	return b, nil
}

// New wraps an existing client.
func New(client goredis.UniversalClient) *Backend {
	return &Backend{client: client}
}

// Close releases the underlying client.
func (b *Backend) Close() error {
	if err := b.client.Close(); err != nil {
		return oops.Code("BACKEND_CLOSE_FAILED").Wrap(err)
	}
	return nil
}

func opError(op, key string, err error) error {
	return oops.Code("BACKEND_"+op+"_FAILED").With("key", key).Wrap(err)
}

// KeyGet implements backend.Reader.
func (b *Backend) KeyGet(ctx context.Context, key string) (string, bool, error) {
	v, err := b.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, opError("GET", key, err)
	}
	return v, true, nil
}

// SetMembers implements backend.Reader.
func (b *Backend) SetMembers(ctx context.Context, key string) ([]string, error) {
	members, err := b.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, opError("SMEMBERS", key, err)
	}
	return members, nil
}

// SetContains implements backend.Reader.
func (b *Backend) SetContains(ctx context.Context, key, member string) (bool, error) {
	ok, err := b.client.SIsMember(ctx, key, member).Result()
	if err != nil {
		return false, opError("SISMEMBER", key, err)
	}
	return ok, nil
}

// HashGetAll implements backend.Reader.
func (b *Backend) HashGetAll(ctx context.Context, key string) (map[string]string, error) {
	values, err := b.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, opError("HGETALL", key, err)
	}
	return values, nil
}

// HashGetField implements backend.Reader.
func (b *Backend) HashGetField(ctx context.Context, key, field string) (string, bool, error) {
	v, err := b.client.HGet(ctx, key, field).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, opError("HGET", key, err)
	}
	return v, true, nil
}

// KeySet implements backend.Writer.
func (b *Backend) KeySet(ctx context.Context, key, value string) (bool, error) {
	if err := b.client.Set(ctx, key, value, 0).Err(); err != nil {
		return false, opError("SET", key, err)
	}
	return true, nil
}

// KeyDelete implements backend.Writer.
func (b *Backend) KeyDelete(ctx context.Context, key string) (bool, error) {
	n, err := b.client.Del(ctx, key).Result()
	if err != nil {
		return false, opError("DEL", key, err)
	}
	return n > 0, nil
}

// SetAdd implements backend.Writer.
func (b *Backend) SetAdd(ctx context.Context, key, member string) (bool, error) {
	n, err := b.client.SAdd(ctx, key, member).Result()
	if err != nil {
		return false, opError("SADD", key, err)
	}
	return n > 0, nil
}

// SetRemove implements backend.Writer.
func (b *Backend) SetRemove(ctx context.Context, key, member string) (bool, error) {
	n, err := b.client.SRem(ctx, key, member).Result()
	if err != nil {
		return false, opError("SREM", key, err)
	}
	return n > 0, nil
}

// HashSetAll implements backend.Writer.
func (b *Backend) HashSetAll(ctx context.Context, key string, values map[string]string) (bool, error) {
	if len(values) == 0 {
		return true, nil
	}
	if err := b.client.HSet(ctx, key, values).Err(); err != nil {
		return false, opError("HSET", key, err)
	}
	return true, nil
}

// HashSetField implements backend.Writer.
func (b *Backend) HashSetField(ctx context.Context, key, field, value string) (bool, error) {
	n, err := b.client.HSet(ctx, key, field, value).Result()
	if err != nil {
		return false, opError("HSET", key, err)
	}
	return n > 0, nil
}

// HashDeleteField implements backend.Writer.
func (b *Backend) HashDeleteField(ctx context.Context, key, field string) (bool, error) {
	n, err := b.client.HDel(ctx, key, field).Result()
	if err != nil {
		return false, opError("HDEL", key, err)
	}
	return n > 0, nil
}

// Transact implements backend.Storage using MULTI/EXEC.
func (b *Backend) Transact(ctx context.Context, fn func(tx backend.Tx) error) error {
	tx := &pipelineTx{}
	if err := fn(tx); err != nil {
		return err
	}
	if len(tx.ops) == 0 {
		return nil
	}

	_, err := b.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, op := range tx.ops {
			op(ctx, pipe)
		}
		return nil
	})
	if err != nil {
		return oops.Code("BACKEND_EXEC_FAILED").With("operations", len(tx.ops)).Wrap(err)
	}
	return nil
}

type pipelineTx struct {
	ops []func(context.Context, goredis.Pipeliner)
}

func (t *pipelineTx) KeySet(key, value string) {
	t.ops = append(t.ops, func(ctx context.Context, p goredis.Pipeliner) { p.Set(ctx, key, value, 0) })
}

func (t *pipelineTx) KeyDelete(key string) {
	t.ops = append(t.ops, func(ctx context.Context, p goredis.Pipeliner) { p.Del(ctx, key) })
}

func (t *pipelineTx) SetAdd(key, member string) {
	t.ops = append(t.ops, func(ctx context.Context, p goredis.Pipeliner) { p.SAdd(ctx, key, member) })
}

func (t *pipelineTx) SetRemove(key, member string) {
	t.ops = append(t.ops, func(ctx context.Context, p goredis.Pipeliner) { p.SRem(ctx, key, member) })
}

func (t *pipelineTx) HashSetAll(key string, values map[string]string) {
	if len(values) == 0 {
		return
	}
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	t.ops = append(t.ops, func(ctx context.Context, p goredis.Pipeliner) { p.HSet(ctx, key, copied) })
}

func (t *pipelineTx) HashSetField(key, field, value string) {
	t.ops = append(t.ops, func(ctx context.Context, p goredis.Pipeliner) { p.HSet(ctx, key, field, value) })
}

func (t *pipelineTx) HashDeleteField(key, field string) {
	t.ops = append(t.ops, func(ctx context.Context, p goredis.Pipeliner) { p.HDel(ctx, key, field) })
}
