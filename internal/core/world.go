// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

// Package core contains the world coordinator: the per-process owner of the
// storage manager and object cache, and the inter-server protocol that keeps
// caches on different instances coherent.
package core

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/muemud/mue/internal/auth"
	"github.com/muemud/mue/internal/backend"
	"github.com/muemud/mue/internal/cache"
	"github.com/muemud/mue/internal/object"
	"github.com/muemud/mue/internal/storage"
	"github.com/muemud/mue/internal/world"
	"github.com/muemud/mue/pkg/errutil"
)

// State is a world's lifecycle position. Transitions only move forward.
type State int32

const (
	StateUninitialized State = iota
	StateRunning
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRunning:
		return "running"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Option configures a World.
type Option func(*World)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(w *World) { w.logger = logger }
}

// WithHasher sets the password hasher used for players.
func WithHasher(h auth.PasswordHasher) Option {
	return func(w *World) { w.hasher = h }
}

// WithCommandProcessor sets the handler for PlayerCommand.
func WithCommandProcessor(p CommandProcessor) Option {
	return func(w *World) { w.commands = p }
}

// WithClock overrides the time source for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *World) { w.now = now }
}

// WithStorageOptions passes options through to the storage manager.
func WithStorageOptions(opts ...storage.Option) Option {
	return func(w *World) { w.storeOpts = append(w.storeOpts, opts...) }
}

// World coordinates one instance of the game with the rest of the cluster.
type World struct {
	logger    *slog.Logger
	store     *storage.Manager
	storeOpts []storage.Option
	cache     *cache.Cache
	pubsub    backend.PubSub
	hasher    auth.PasswordHasher
	commands  CommandProcessor
	events    *EventStream
	conns     *Connections
	now       func() time.Time

	instanceID string

	lifecycle  sync.Mutex
	state      atomic.Int32
	controlSub backend.Subscription
}

var (
	_ object.Host    = (*World)(nil)
	_ cache.Notifier = (*World)(nil)
)

// New builds a world over the given backend. Call Init before use.
func New(store backend.Storage, pubsub backend.PubSub, opts ...Option) *World {
	w := &World{
		logger:     slog.Default(),
		pubsub:     pubsub,
		hasher:     auth.NewArgon2idHasher(auth.DefaultParams),
		events:     NewEventStream(),
		conns:      NewConnections(),
		now:        time.Now,
		instanceID: newInstanceID(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.store = storage.NewManager(store, w.storeOpts...)
	w.cache = cache.New(w.store, w)
	return w
}

// InstanceID identifies this process on the control channel.
func (w *World) InstanceID() string { return w.instanceID }

// State returns the current lifecycle state.
func (w *World) State() State { return State(w.state.Load()) }

// Storage implements object.Host.
func (w *World) Storage() *storage.Manager { return w.store }

// Cache implements object.Host.
func (w *World) Cache() *cache.Cache { return w.cache }

// Hasher implements object.Host.
func (w *World) Hasher() auth.PasswordHasher { return w.hasher }

// Events returns the local event stream.
func (w *World) Events() *EventStream { return w.events }

// Connections returns the players connected to this instance.
func (w *World) Connections() *Connections { return w.conns }

// Init announces this instance on the control channel and starts listening
// to it. Calling Init on a running world does nothing.
func (w *World) Init(ctx context.Context) error {
	w.lifecycle.Lock()
	defer w.lifecycle.Unlock()

	switch w.State() {
	case StateRunning:
		return nil
	case StateShutdown:
		return shutdownError(w.instanceID)
	}

	active, err := w.pubsub.SubscriberCount(ctx, ControlChannel)
	if err != nil {
		return oops.In("world").With("instance_id", w.instanceID).Wrap(err)
	}
	w.logger.Info("ISC> joining cluster", "instance_id", w.instanceID, "active_servers", active)

	joined := w.newISC(ISCJoined, map[string]string{MetaVersion: ProtocolVersion})
	if err := w.sendISC(ctx, joined); err != nil {
		return err
	}
	sub, err := w.pubsub.Subscribe(ctx, ControlChannel, w.handleISC)
	if err != nil {
		return oops.In("world").With("instance_id", w.instanceID).Wrap(err)
	}
	w.controlSub = sub
	w.state.Store(int32(StateRunning))
	return nil
}

// Shutdown stops the world. Inbound cluster messages are ignored from now on
// but the control subscription stays open until Close.
func (w *World) Shutdown(_ context.Context) error {
	w.lifecycle.Lock()
	defer w.lifecycle.Unlock()

	if w.State() == StateShutdown {
		return nil
	}
	w.state.Store(int32(StateShutdown))
	w.events.Close()
	w.logger.Info("world shutting down", "instance_id", w.instanceID)
	return nil
}

// Close shuts the world down and releases the control subscription.
func (w *World) Close(ctx context.Context) error {
	if err := w.Shutdown(ctx); err != nil {
		return err
	}
	w.lifecycle.Lock()
	sub := w.controlSub
	w.controlSub = nil
	w.lifecycle.Unlock()

	if sub == nil {
		return nil
	}
	return sub.Unsubscribe(ctx)
}

func (w *World) check() error {
	switch w.State() {
	case StateUninitialized:
		return notInitializedError(w.instanceID)
	case StateShutdown:
		return shutdownError(w.instanceID)
	default:
		return nil
	}
}

// channelOf returns the channel messages for target are published on. Items
// have no channel and use their container's.
func channelOf(target world.Entity) string {
	if target == nil {
		return WorldChannel
	}
	id := target.ID()
	if id.Kind() == world.KindItem {
		id = target.Location()
		if !id.IsAssigned() {
			if md := target.Meta(); md != nil {
				id = md.Base().Parent
			}
		}
	}
	return ChannelFor(id)
}

// PublishMessage sends msg to target's channel, or to every player when
// target is nil.
func (w *World) PublishMessage(ctx context.Context, msg world.Message, target world.Entity) error {
	if err := w.check(); err != nil {
		return err
	}
	channel := channelOf(target)
	data, err := json.Marshal(msg)
	if err != nil {
		return oops.In("world").With("channel", channel).Wrap(err)
	}
	w.logger.Debug("publishing message", "instance_id", w.instanceID, "channel", channel, "message", string(data))
	if err := w.pubsub.Publish(ctx, channel, string(data)); err != nil {
		return oops.In("world").With("channel", channel).Wrap(err)
	}
	return nil
}

// Subscribe listens to target's channel, or the world channel when target is nil.
func (w *World) Subscribe(ctx context.Context, target world.Entity, h backend.Handler) (backend.Subscription, error) {
	if err := w.check(); err != nil {
		return nil, err
	}
	return w.pubsub.Subscribe(ctx, channelOf(target), h)
}

// PlayerCommand hands a command to the configured processor.
func (w *World) PlayerCommand(ctx context.Context, player *object.Player, req CommandRequest) (bool, error) {
	if err := w.check(); err != nil {
		return false, err
	}
	if w.commands == nil {
		return false, oops.Code(CodeNoProcessor).
			With("player_id", player.ID().ID()).
			Errorf("no command processor configured")
	}
	w.conns.Touch(player.ID())
	if !req.IsExpanded {
		verb, _ := req.Split()
		w.logger.DebugContext(ctx, "player command", "player_id", player.ID().ID(), "verb", verb)
	}
	return w.commands.ProcessCommand(ctx, player, req)
}

// GetPlayerByName finds a player by case-insensitive name.
func (w *World) GetPlayerByName(ctx context.Context, name string) (*object.Player, bool, error) {
	if err := w.check(); err != nil {
		return nil, false, err
	}
	id, ok, err := w.store.FindPlayerByName(ctx, name)
	if err != nil || !ok {
		return nil, false, err
	}
	p, err := object.ImitatePlayer(ctx, w, id)
	if errutil.HasCode(err, world.CodeIDNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// GetRootRoom returns the room every other object descends from.
func (w *World) GetRootRoom(ctx context.Context) (*object.Room, error) {
	return getRoot[*object.Room](ctx, w, world.RootRoom)
}

// GetStartRoom returns the room new players start in.
func (w *World) GetStartRoom(ctx context.Context) (*object.Room, error) {
	return getRoot[*object.Room](ctx, w, world.StartRoom)
}

// GetPlayerRoot returns the room new players are parented to.
func (w *World) GetPlayerRoot(ctx context.Context) (*object.Room, error) {
	return getRoot[*object.Room](ctx, w, world.PlayerRoot)
}

// GetRootPlayer returns the god player.
func (w *World) GetRootPlayer(ctx context.Context) (*object.Player, error) {
	return getRoot[*object.Player](ctx, w, world.God)
}

func getRoot[T world.Entity](ctx context.Context, w *World, field world.RootField) (T, error) {
	var zero T
	if err := w.check(); err != nil {
		return zero, err
	}
	raw, ok, err := w.store.GetRootValue(ctx, field)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, rootNotFoundError(field, "")
	}
	id, err := world.ParseID(raw)
	if err != nil || !id.IsAssigned() {
		return zero, rootNotFoundError(field, raw)
	}
	obj, err := object.Imitate(ctx, w, id)
	if object.IsNotFound(err) {
		return zero, rootNotFoundError(field, raw)
	}
	if err != nil {
		return zero, err
	}
	typed, ok := obj.(T)
	if !ok {
		return zero, rootNotFoundError(field, raw)
	}
	return typed, nil
}

// GetObjectByID materializes id. Unassigned ids, ids not of kind (when kind
// is valid) and ids not in storage report ok=false.
func (w *World) GetObjectByID(ctx context.Context, id world.ObjectID, kind world.Kind) (world.Entity, bool, error) {
	if err := w.check(); err != nil {
		return nil, false, err
	}
	if !id.IsAssigned() || (kind.IsValid() && id.Kind() != kind) {
		return nil, false, nil
	}
	obj, err := object.Imitate(ctx, w, id)
	if errutil.HasCode(err, world.CodeIDNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return obj, true, nil
}

// GetObjectsByID materializes ids concurrently. The result is index-aligned
// with ids; unassigned or missing entries are nil.
func (w *World) GetObjectsByID(ctx context.Context, ids []world.ObjectID) ([]world.Entity, error) {
	if err := w.check(); err != nil {
		return nil, err
	}
	var (
		lookup []world.ObjectID
		slots  []int
	)
	for i, id := range ids {
		if id.IsAssigned() {
			lookup = append(lookup, id)
			slots = append(slots, i)
		}
	}
	found, err := object.ImitateAll(ctx, w, lookup)
	if err != nil {
		return nil, err
	}
	out := make([]world.Entity, len(ids))
	for i, obj := range found {
		out[slots[i]] = obj
	}
	return out, nil
}

// GetActiveServers returns how many instances listen on the control channel.
func (w *World) GetActiveServers(ctx context.Context) (uint, error) {
	if err := w.check(); err != nil {
		return 0, err
	}
	return w.pubsub.SubscriberCount(ctx, ControlChannel)
}

// GetActiveRoomIDs lists rooms somebody in the cluster is listening to.
func (w *World) GetActiveRoomIDs(ctx context.Context) ([]world.ObjectID, error) {
	return w.channelIDs(ctx, roomChannelPattern)
}

// GetConnectedPlayerIDs lists players with an open channel anywhere in the cluster.
func (w *World) GetConnectedPlayerIDs(ctx context.Context) ([]world.ObjectID, error) {
	return w.channelIDs(ctx, playerChannelPattern)
}

func (w *World) channelIDs(ctx context.Context, pattern string) ([]world.ObjectID, error) {
	if err := w.check(); err != nil {
		return nil, err
	}
	return topicIDs(ctx, w.pubsub, pattern)
}

func topicIDs(ctx context.Context, pubsub backend.PubSub, pattern string) ([]world.ObjectID, error) {
	topics, err := pubsub.Topics(ctx, pattern)
	if err != nil {
		return nil, err
	}
	ids := make([]world.ObjectID, 0, len(topics))
	for _, topic := range topics {
		id, err := world.ParseID(strings.TrimPrefix(topic, channelPrefix))
		if err == nil && id.IsAssigned() {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// InvalidateScriptCache reloads every cached script here and asks the other
// instances to do the same.
func (w *World) InvalidateScriptCache(ctx context.Context) (map[world.ObjectID]bool, error) {
	if err := w.check(); err != nil {
		return nil, err
	}
	results, err := w.cache.InvalidateAll(ctx, world.KindScript)
	if err != nil {
		return results, err
	}
	return results, w.sendISC(ctx, w.newISC(ISCInvalidateScript, nil))
}

// FireObjectEvent publishes an object event locally and to the cluster.
func (w *World) FireObjectEvent(ctx context.Context, id world.ObjectID, event string, payload world.UpdateResult) error {
	return w.FireEvent(ctx, world.ScopeObject, id, event, payload, false)
}

// FirePlayerEvent publishes a player event locally and to the cluster.
func (w *World) FirePlayerEvent(ctx context.Context, id world.ObjectID, event string, payload world.UpdateResult) error {
	return w.FireEvent(ctx, world.ScopePlayer, id, event, payload, false)
}

// FireEvent publishes an event on the local stream and, unless localOnly,
// as an update_object or update_player message.
func (w *World) FireEvent(ctx context.Context, scope world.Scope, id world.ObjectID, event string, payload world.UpdateResult, localOnly bool) error {
	if err := w.check(); err != nil {
		return err
	}
	if payload == nil {
		payload = world.EmptyResult{}
	}
	w.events.Publish(w.newEvent(scope, id, event, payload))
	if localOnly {
		return nil
	}

	meta := make(map[string]string)
	maps.Copy(meta, payload.Meta())
	meta[MetaID] = id.ID()
	meta[MetaMessage] = event

	name := ISCUpdateObject
	if scope == world.ScopePlayer {
		name = ISCUpdatePlayer
	}
	return w.sendISC(ctx, w.newISC(name, meta))
}

// PlayerConnected records a new connection and tells the cluster.
func (w *World) PlayerConnected(ctx context.Context, player world.ObjectID, connID ulid.ULID) error {
	n := w.conns.Connect(player, connID)
	return w.FirePlayerEvent(ctx, player, world.EventConnect, world.PlayerConnectionResult{RemainingConnections: n})
}

// PlayerDisconnected drops a connection and tells the cluster how many remain here.
func (w *World) PlayerDisconnected(ctx context.Context, player world.ObjectID, connID ulid.ULID) error {
	n := w.conns.Disconnect(player, connID)
	return w.FirePlayerEvent(ctx, player, world.EventDisconnect, world.PlayerConnectionResult{RemainingConnections: n})
}

func (w *World) newEvent(scope world.Scope, id world.ObjectID, name string, payload world.UpdateResult) WorldEvent {
	return WorldEvent{
		ID:       NewULID(),
		Scope:    scope,
		ObjectID: id,
		Name:     name,
		Payload:  payload,
		Time:     w.now(),
	}
}
