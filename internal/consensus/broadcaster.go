package consensus

import (
	"github.com/cuemby/raftline/internal/pubsub"
	"github.com/cuemby/raftline/internal/replicaset"
	"github.com/cuemby/raftline/internal/types"
	"github.com/cuemby/raftline/pkg/metrics"
)

// Broadcaster fans a Raft request out to every peer's relay and then
// fires the broadcast-observer list, in that order. Relay failures
// are absorbed by the relay itself — Broadcast never fails.
type Broadcaster struct {
	rs          *replicaset.ReplicaSet
	onBroadcast *pubsub.Registry[struct{}]
}

// NewBroadcaster builds a Broadcaster over rs.
func NewBroadcaster(rs *replicaset.ReplicaSet) *Broadcaster {
	return &Broadcaster{rs: rs, onBroadcast: pubsub.NewRegistry[struct{}]()}
}

// Broadcast pushes r to every registered peer's relay, then fires
// on_broadcast. It is installed as the Raft core's broadcast callback
// and so must not return an error.
func (b *Broadcaster) Broadcast(r types.Request) error {
	b.rs.Foreach(func(id types.PeerID, relay replicaset.Relay) {
		relay.RelayPushRaft(r)
		metrics.RelayPushesTotal.WithLabelValues(string(id)).Inc()
	})
	metrics.BroadcastsTotal.Inc()
	b.onBroadcast.Publish(struct{}{})
	return nil
}

// OnBroadcast registers fn to run after every outbound broadcast. The
// payload is always the zero value; callers only care that it fired.
func (b *Broadcaster) OnBroadcast(fn func(struct{})) *pubsub.Subscription {
	return b.onBroadcast.Subscribe(fn)
}
