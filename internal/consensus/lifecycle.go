package consensus

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/cuemby/raftline/internal/journal"
	"github.com/cuemby/raftline/internal/limbo"
	"github.com/cuemby/raftline/internal/pubsub"
	"github.com/cuemby/raftline/internal/raftcore"
	"github.com/cuemby/raftline/internal/replicaset"
	"github.com/cuemby/raftline/internal/types"
	"github.com/cuemby/raftline/pkg/log"
	"github.com/cuemby/raftline/pkg/metrics"
)

// Status is the read-only summary the update trigger refreshes on
// every visible Raft state change. EventID correlates a
// single status snapshot across logs/metrics/subscribers; it is a
// fresh random ID each time, not a property of the Raft state itself.
type Status struct {
	EventID            string
	Term               uint64
	VolatileTerm       uint64
	State              types.State
	Leader             types.PeerID
	Mode               ElectionMode
	IsEnabled          bool
	IsCfgCandidate     bool
	FencingEnabled     bool
	FencingPaused      bool
	ElectionQuorumSize int
	ClusterSize        int
}

// Config is everything Init needs to stand the node up.
type Config struct {
	LocalID         types.PeerID
	JournalPath     string
	ReplicaSetPath  string
	NewRelay        func(types.PeerID) replicaset.Relay
	OnFatal         func(error) // defaults to a panic; tests may override
}

// Node is the Raft-instance handle that Init creates and Close
// invalidates. Each Init call returns a new, independent Node; the
// package keeps no process-wide instance. A Node whose
// closed flag is set behaves as uninitialized — every public surface
// method returns ErrNotInitialized rather than touching torn-down
// collaborators.
type Node struct {
	mu     sync.Mutex
	closed bool

	core    raftcore.Core
	journal journal.Journal
	rs      *replicaset.ReplicaSet
	lim     limbo.Limbo

	writer      *DurableWriter
	broadcaster *Broadcaster
	worker      *AsyncWorker
	election    *ElectionController
	quorum      *QuorumController

	status       Status
	statusEvents *pubsub.Registry[Status]
	updateSub    *pubsub.Subscription

	fatal func(error)
}

// Init brings a Node up: opens the journal and replica-set registry,
// constructs the Raft core over the v-table this layer provides
// (write/broadcast/schedule_async), wires the election and
// quorum/fencing controllers, installs the update trigger, and
// replays any previously persisted record (recovery).
func Init(cfg Config) (*Node, error) {
	j, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("init node: %w", err)
	}

	rs, err := replicaset.Open(cfg.ReplicaSetPath, cfg.NewRelay)
	if err != nil {
		j.Close()
		return nil, fmt.Errorf("init node: %w", err)
	}

	lim := limbo.New(rs.HasHealthyQuorum)

	n := &Node{
		journal:      j,
		rs:           rs,
		lim:          lim,
		statusEvents: pubsub.NewRegistry[Status](),
		fatal:        cfg.OnFatal,
	}
	if n.fatal == nil {
		n.fatal = func(err error) { panic(fmt.Sprintf("consensus: fatal: %v", err)) }
	}

	n.broadcaster = NewBroadcaster(rs)
	n.writer = NewDurableWriter(j, nil)

	core := raftcore.New(cfg.LocalID, raftcore.VTable{
		Write: func(m types.Message) error {
			if err := n.writer.Write(m); err != nil {
				n.fatal(err)
				return err
			}
			return nil
		},
		Broadcast: func(m types.Message) error { return n.broadcaster.Broadcast(RFromM(m)) },
		ScheduleAsync: func() {
			if n.worker == nil {
				return
			}
			n.worker.ScheduleAsync()
		},
	})
	n.core = core

	n.worker = NewAsyncWorker(core, lim, func(err error) {
		log.WithComponent(log.ComponentAsyncWorker).Error().Err(err).Msg("promote_qsync failed")
	})
	n.writer.gate = n.worker

	n.quorum = NewQuorumController(core, rs, lim, func() ElectionMode { return n.election.Mode() })
	n.election = NewElectionController(core, rs, n.quorum)

	n.updateSub = core.OnUpdate(n.onUpdate)

	var rec types.DiskRecord
	found, err := j.Load(&rec)
	if err != nil {
		rs.Close()
		j.Close()
		return nil, fmt.Errorf("init node: load journal: %w", err)
	}
	if found {
		core.ProcessRecovery(MFromR(rec.ToRequest()))
		log.WithComponent(log.ComponentConsensus).Info().
			Uint64("term", rec.Term).
			Msg("recovered persisted raft record")
	}

	return n, nil
}

// onUpdate is the central reactor, fired by the Raft core whenever
// any visible attribute changes. It must do these four things, in
// order, and must never itself block.
func (n *Node) onUpdate(snap raftcore.Snapshot) {
	// 1. Refresh the read-only status summary.
	n.mu.Lock()
	n.status = Status{
		EventID:            uuid.NewString(),
		Term:               snap.Term,
		VolatileTerm:       snap.VolatileTerm,
		State:              snap.State,
		Leader:             snap.Leader,
		Mode:               n.election.Mode(),
		IsEnabled:          snap.IsEnabled,
		IsCfgCandidate:     snap.IsCfgCandidate,
		FencingEnabled:     n.quorum.FencingEnabled(),
		FencingPaused:      n.quorum.FencingPaused(),
		ElectionQuorumSize: n.quorum.ElectionQuorumSize(),
		ClusterSize:        n.quorum.ClusterSize(),
	}
	status := n.status
	n.mu.Unlock()

	metrics.Term.Set(float64(snap.Term))
	metrics.VolatileTerm.Set(float64(snap.VolatileTerm))
	if snap.State == types.StateLeader {
		metrics.IsLeader.Set(1)
	} else {
		metrics.IsLeader.Set(0)
	}
	if status.FencingPaused {
		metrics.FencingPaused.Set(1)
	} else {
		metrics.FencingPaused.Set(0)
	}

	// 2. Broadcast the election-status event to subscribers.
	n.statusEvents.Publish(status)

	// 3. Fence the limbo once a higher term than it has ever promoted
	//    to exists: finalizing old synchronous transactions could
	//    contradict the new leader.
	if snap.VolatileTerm > n.lim.PromoteGreatestTerm() {
		n.lim.Fence()
	}

	// 4. Schedule async work so the worker clears the limbo; never
	//    block here.
	if snap.State == types.StateLeader {
		n.worker.ScheduleAsync()
	}
}

// Status returns the most recently published status summary.
func (n *Node) Status() Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.status
}

// OnStatusChange subscribes fn to every election-status event.
func (n *Node) OnStatusChange(fn func(Status)) *pubsub.Subscription {
	return n.statusEvents.Subscribe(fn)
}

// OnBroadcast subscribes fn to the public on_broadcast event.
func (n *Node) OnBroadcast(fn func(struct{})) *pubsub.Subscription {
	return n.broadcaster.OnBroadcast(fn)
}

// checkInitialized is the use-before-init / use-after-free assertion
// gate every public surface method passes through first.
func (n *Node) checkInitialized() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return ErrNotInitialized
	}
	return nil
}

// Close tears the node down: stops the worker without joining it,
// closes the replica-set registry and journal, and marks the node
// invalid for any further public surface call.
func (n *Node) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	n.mu.Unlock()

	n.updateSub.Close()
	n.worker.Stop()
	n.core.Destroy()

	var firstErr error
	if err := n.rs.Close(); err != nil {
		firstErr = err
	}
	if err := n.journal.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
