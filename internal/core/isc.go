// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package core

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"

	"github.com/muemud/mue/internal/world"
)

// Channels used on the pub/sub bus.
const (
	ControlChannel = "c:isc"
	WorldChannel   = "c:world"

	roomChannelPattern   = "c:r:*"
	playerChannelPattern = "c:p:*"
	channelPrefix        = "c:"
)

// ProtocolVersion is announced in joined messages. Instances with a
// different major version log a warning.
const ProtocolVersion = "1.0.0"

// Inter-server event names.
const (
	ISCJoined           = "joined"
	ISCInvalidateScript = "invalidate_script"
	ISCUpdateObject     = "update_object"
	ISCUpdatePlayer     = "update_player"
)

// Keys carried in InterServerMessage.Meta.
const (
	MetaID      = "id"
	MetaMessage = "message"
	MetaVersion = "version"
)

// InterServerMessage is the JSON record exchanged on the control channel.
type InterServerMessage struct {
	InstanceID string            `json:"instance_id" jsonschema:"minLength=1"`
	EventName  string            `json:"event_name" jsonschema:"minLength=1"`
	EventTime  time.Time         `json:"event_time"`
	Meta       map[string]string `json:"meta,omitempty"`
}

// ChannelFor returns the pub/sub channel of an object.
func ChannelFor(id world.ObjectID) string {
	return channelPrefix + id.ID()
}

func encodeISC(msg InterServerMessage) (string, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return "", oops.Code(CodeBadMessage).With("event_name", msg.EventName).Wrap(err)
	}
	return string(data), nil
}

// decodeISC validates payload against the message schema before decoding it.
func decodeISC(payload string) (InterServerMessage, error) {
	var msg InterServerMessage
	if err := validateISC([]byte(payload)); err != nil {
		return msg, err
	}
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return msg, oops.Code(CodeBadMessage).Wrap(err)
	}
	return msg, nil
}

func (w *World) newISC(event string, meta map[string]string) InterServerMessage {
	return InterServerMessage{
		InstanceID: w.instanceID,
		EventName:  event,
		EventTime:  w.now().UTC(),
		Meta:       meta,
	}
}

func (w *World) sendISC(ctx context.Context, msg InterServerMessage) error {
	payload, err := encodeISC(msg)
	if err != nil {
		return err
	}
	if err := w.pubsub.Publish(ctx, ControlChannel, payload); err != nil {
		recordISC(directionSent, msg.EventName, statusError)
		return oops.In("world").With("event_name", msg.EventName).Wrap(err)
	}
	recordISC(directionSent, msg.EventName, statusOK)
	return nil
}

// handleISC is the control channel subscriber.
func (w *World) handleISC(ctx context.Context, _ string, payload string) {
	msg, err := decodeISC(payload)
	if err != nil {
		recordISC(directionReceived, "invalid", statusError)
		w.logger.Warn("ISC> dropping malformed message", "instance_id", w.instanceID, "error", err)
		return
	}
	if msg.InstanceID == w.instanceID {
		return
	}
	if w.State() != StateRunning {
		return
	}
	recordISC(directionReceived, msg.EventName, statusOK)

	log := w.logger.With("instance_id", w.instanceID, "origin_instance", msg.InstanceID)

	switch msg.EventName {
	case ISCJoined:
		log.Info("ISC> new server joined cluster", "version", msg.Meta[MetaVersion])
		w.checkPeerVersion(log, msg.Meta[MetaVersion])

	case ISCInvalidateScript:
		log.Info("ISC> script cache invalidate requested")
		if _, err := w.cache.InvalidateAll(ctx, world.KindScript); err != nil {
			log.Warn("ISC> script invalidation failed", "error", err)
		}

	case ISCUpdateObject:
		id, event, ok := parseUpdateMeta(log, msg.Meta)
		if !ok {
			return
		}
		log.Info("ISC> object update", "object_id", id.ID(), "message", event)
		w.applyRemoteObjectUpdate(ctx, log, id, event)

	case ISCUpdatePlayer:
		id, event, ok := parseUpdateMeta(log, msg.Meta)
		if !ok {
			return
		}
		if event != world.EventConnect && event != world.EventDisconnect {
			return
		}
		remaining := world.UnknownConnections
		if raw, ok := msg.Meta[world.MetaRemainingConnections]; ok {
			if n, err := strconv.Atoi(raw); err == nil {
				remaining = n
			}
		}
		log.Info("ISC> player update", "object_id", id.ID(), "message", event, "remaining_connections", remaining)
		w.events.Publish(w.newEvent(world.ScopePlayer, id, event, world.PlayerConnectionResult{RemainingConnections: remaining}))

	default:
		log.Debug("ISC> ignoring unknown event", "event_name", msg.EventName)
	}
}

func (w *World) applyRemoteObjectUpdate(ctx context.Context, log *slog.Logger, id world.ObjectID, event string) {
	switch event {
	case world.EventDestroyed:
		w.cache.PostNetworkDestroy(id)
	case world.EventInvalidate, world.EventMove, world.EventRename, world.EventReparent:
		if _, err := w.cache.InvalidateLocal(ctx, id); err != nil {
			log.Warn("ISC> local invalidate failed", "object_id", id.ID(), "error", err)
		}
	}
}

func parseUpdateMeta(log *slog.Logger, meta map[string]string) (world.ObjectID, string, bool) {
	id, err := world.ParseID(meta[MetaID])
	if err != nil || !id.IsAssigned() {
		log.Warn("ISC> update without a valid object id", "id", meta[MetaID])
		return world.EmptyID, "", false
	}
	return id, meta[MetaMessage], true
}

func (w *World) checkPeerVersion(log *slog.Logger, peer string) {
	theirs, err := semver.NewVersion(peer)
	if err != nil {
		log.Warn("ISC> peer did not announce a protocol version", "version", peer)
		return
	}
	ours := semver.MustParse(ProtocolVersion)
	if theirs.Major() != ours.Major() {
		log.Warn("ISC> peer speaks an incompatible protocol version",
			"version", theirs.String(), "local_version", ours.String())
	}
}
