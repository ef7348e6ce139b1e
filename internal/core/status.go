// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package core

import (
	"context"

	"github.com/samber/oops"

	"github.com/muemud/mue/internal/backend"
	"github.com/muemud/mue/internal/storage"
	"github.com/muemud/mue/internal/world"
)

// ClusterStatus is a point-in-time view of a cluster taken without joining it.
type ClusterStatus struct {
	ActiveServers    uint                       `json:"active_servers"`
	Initialized      bool                       `json:"initialized"`
	Roots            map[world.RootField]string `json:"roots"`
	ActiveRooms      []world.ObjectID           `json:"active_rooms"`
	ConnectedPlayers []world.ObjectID           `json:"connected_players"`
}

var statusRoots = []world.RootField{world.RootRoom, world.StartRoom, world.PlayerRoot, world.God}

// Inspect reads the cluster state from the shared backend. It does not
// announce itself on the control channel.
func Inspect(ctx context.Context, store backend.Storage, pubsub backend.PubSub) (*ClusterStatus, error) {
	servers, err := pubsub.SubscriberCount(ctx, ControlChannel)
	if err != nil {
		return nil, oops.In("status").With("channel", ControlChannel).Wrap(err)
	}

	st := &ClusterStatus{
		ActiveServers: servers,
		Roots:         make(map[world.RootField]string, len(statusRoots)),
	}

	mgr := storage.NewManager(store)
	for _, field := range statusRoots {
		v, ok, err := mgr.GetRootValue(ctx, field)
		if err != nil {
			return nil, oops.In("status").With("field", field).Wrap(err)
		}
		if ok {
			st.Roots[field] = v
		}
	}
	_, st.Initialized = st.Roots[world.RootRoom]

	if st.ActiveRooms, err = topicIDs(ctx, pubsub, roomChannelPattern); err != nil {
		return nil, oops.In("status").Wrap(err)
	}
	if st.ConnectedPlayers, err = topicIDs(ctx, pubsub, playerChannelPattern); err != nil {
		return nil, oops.In("status").Wrap(err)
	}
	return st, nil
}
