// Package replicaset tracks the replica set's membership and health:
// per-peer relays, healthy-quorum accounting, and the quorum/health
// observer lists the quorum/fencing controller subscribes to. Peer
// registration is made durable with
// go.etcd.io/bbolt.
package replicaset

import (
	"encoding/json"
	"fmt"
	"sync"

	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/raftline/internal/pubsub"
	"github.com/cuemby/raftline/internal/types"
)

var peersBucket = []byte("peers")

// Peer is a registered member of the replica set.
type Peer struct {
	ID      types.PeerID      `json:"id"`
	Address types.PeerAddress `json:"address"`
	Healthy bool              `json:"-"`
}

// Relay is the per-peer outbound channel the broadcaster pushes Raft
// requests onto. Relays absorb their own delivery failures;
// RelayPushRaft never fails the caller.
type Relay interface {
	RelayPushRaft(r types.Request)
	Close()
}

// ChannelRelay is a reference Relay backed by a buffered Go channel and
// a single delivery goroutine, matching the "per-peer outbound
// channel" description literally.
type ChannelRelay struct {
	ch     chan types.Request
	done   chan struct{}
	once   sync.Once
	onSend func(types.PeerID, types.Request)
	peer   types.PeerID
}

// NewChannelRelay starts a relay for peer with the given send buffer
// depth. onSend, if non-nil, is invoked for every request actually
// handed off (used by tests and by metrics wiring); it must not block.
func NewChannelRelay(peer types.PeerID, buffer int, onSend func(types.PeerID, types.Request)) *ChannelRelay {
	r := &ChannelRelay{
		ch:     make(chan types.Request, buffer),
		done:   make(chan struct{}),
		onSend: onSend,
		peer:   peer,
	}
	go r.run()
	return r
}

func (r *ChannelRelay) run() {
	for {
		select {
		case req := <-r.ch:
			if r.onSend != nil {
				r.onSend(r.peer, req)
			}
		case <-r.done:
			return
		}
	}
}

// RelayPushRaft enqueues r onto the relay. A full buffer drops the
// oldest unsent request rather than blocking the broadcaster — a
// dropped Raft message is superseded by the next one on the same
// relay in practice, and the broadcast path must not block or fail.
func (r *ChannelRelay) RelayPushRaft(req types.Request) {
	select {
	case r.ch <- req:
	default:
		select {
		case <-r.ch:
		default:
		}
		select {
		case r.ch <- req:
		default:
		}
	}
}

// Close stops the relay's delivery goroutine. Idempotent.
func (r *ChannelRelay) Close() {
	r.once.Do(func() { close(r.done) })
}

// ReplicaSet tracks registered peers, their relays, and their health,
// and fans quorum/health transitions out to subscribers via
// internal/pubsub.
type ReplicaSet struct {
	mu sync.Mutex

	db     *bolt.DB
	relays map[types.PeerID]Relay
	health map[types.PeerID]bool

	hadQuorum bool

	quorumGain   *pubsub.Registry[struct{}]
	quorumLoss   *pubsub.Registry[struct{}]
	healthChange *pubsub.Registry[types.PeerID]

	newRelay func(types.PeerID) Relay
}

// Open creates or opens a ReplicaSet with its peer registry persisted
// at path. newRelay constructs the Relay for a newly registered peer;
// pass nil to use NewChannelRelay with a default buffer.
func Open(path string, newRelay func(types.PeerID) Relay) (*ReplicaSet, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open replica-set registry: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(peersBucket)
		return err
	}); err != nil {
		return nil, fmt.Errorf("init replica-set registry: %w", err)
	}

	if newRelay == nil {
		newRelay = func(id types.PeerID) Relay { return NewChannelRelay(id, 64, nil) }
	}

	rs := &ReplicaSet{
		db:           db,
		relays:       make(map[types.PeerID]Relay),
		health:       make(map[types.PeerID]bool),
		quorumGain:   pubsub.NewRegistry[struct{}](),
		quorumLoss:   pubsub.NewRegistry[struct{}](),
		healthChange: pubsub.NewRegistry[types.PeerID](),
		newRelay:     newRelay,
	}
	if err := rs.loadLocked(); err != nil {
		db.Close()
		return nil, err
	}
	return rs, nil
}

func (rs *ReplicaSet) loadLocked() error {
	return rs.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(peersBucket)
		return b.ForEach(func(k, v []byte) error {
			var p Peer
			if err := json.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("decode peer %q: %w", k, err)
			}
			rs.relays[p.ID] = rs.newRelay(p.ID)
			rs.health[p.ID] = false
			return nil
		})
	})
}

// Register durably adds peer to the replica set and starts its relay.
// Growing the replica set is the trigger the quorum/fencing controller
// latches fencing_paused on; Register reports whether this was a net
// growth so the caller can invoke FencingPause.
func (rs *ReplicaSet) Register(p Peer) (grew bool, err error) {
	data, err := json.Marshal(p)
	if err != nil {
		return false, fmt.Errorf("encode peer: %w", err)
	}
	if err := rs.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(peersBucket).Put([]byte(p.ID), data)
	}); err != nil {
		return false, fmt.Errorf("persist peer: %w", err)
	}

	rs.mu.Lock()
	_, existed := rs.relays[p.ID]
	if !existed {
		rs.relays[p.ID] = rs.newRelay(p.ID)
		rs.health[p.ID] = false
	}
	rs.mu.Unlock()
	return !existed, nil
}

// Foreach hands every registered peer's relay to fn, iterating over a
// snapshot to avoid holding the lock across caller-supplied work.
func (rs *ReplicaSet) Foreach(fn func(types.PeerID, Relay)) {
	rs.mu.Lock()
	snapshot := make(map[types.PeerID]Relay, len(rs.relays))
	for id, r := range rs.relays {
		snapshot[id] = r
	}
	rs.mu.Unlock()

	for id, r := range snapshot {
		fn(id, r)
	}
}

// RegisteredCount is the number of peers currently registered.
func (rs *ReplicaSet) RegisteredCount() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.relays)
}

// SetHealth updates a peer's health and fires on_health_change, then
// re-evaluates quorum and fires on_quorum_gain/on_quorum_loss as
// needed.
func (rs *ReplicaSet) SetHealth(id types.PeerID, healthy bool) {
	rs.mu.Lock()
	if _, ok := rs.relays[id]; !ok {
		rs.mu.Unlock()
		return
	}
	if rs.health[id] == healthy {
		rs.mu.Unlock()
		return
	}
	rs.health[id] = healthy
	rs.mu.Unlock()

	rs.healthChange.Publish(id)
	rs.recheckQuorum()
}

func (rs *ReplicaSet) recheckQuorum() {
	now := rs.HasHealthyQuorum()

	rs.mu.Lock()
	was := rs.hadQuorum
	rs.hadQuorum = now
	rs.mu.Unlock()

	if now && !was {
		rs.quorumGain.Publish(struct{}{})
	} else if !now && was {
		rs.quorumLoss.Publish(struct{}{})
	}
}

// HealthyQuorum is the number of members required for a healthy
// quorum: a strict majority of the replica set, counting self
// alongside the registered peers — the same universe HasHealthyQuorum
// evaluates.
func (rs *ReplicaSet) HealthyQuorum() int {
	rs.mu.Lock()
	total := len(rs.relays) + 1 // self
	rs.mu.Unlock()
	return total/2 + 1
}

// HasHealthyQuorum reports whether a majority of the replica set
// (self plus registered peers) is currently healthy. Self counts as
// always healthy.
func (rs *ReplicaSet) HasHealthyQuorum() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	healthy := 1 // self
	for _, ok := range rs.health {
		if ok {
			healthy++
		}
	}
	total := len(rs.relays) + 1
	need := total/2 + 1
	return healthy >= need
}

// OnQuorumGain, OnQuorumLoss, and OnHealthChange register observers.
// Close the returned Subscription to detach.
func (rs *ReplicaSet) OnQuorumGain(fn func(struct{})) *pubsub.Subscription {
	return rs.quorumGain.Subscribe(fn)
}

func (rs *ReplicaSet) OnQuorumLoss(fn func(struct{})) *pubsub.Subscription {
	return rs.quorumLoss.Subscribe(fn)
}

func (rs *ReplicaSet) OnHealthChange(fn func(types.PeerID)) *pubsub.Subscription {
	return rs.healthChange.Subscribe(fn)
}

// Close stops all relays and closes the registry store.
func (rs *ReplicaSet) Close() error {
	rs.mu.Lock()
	for _, r := range rs.relays {
		r.Close()
	}
	rs.mu.Unlock()
	return rs.db.Close()
}
