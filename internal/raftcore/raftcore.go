// Package raftcore defines the contract the integration layer consumes
// from the generic Raft algorithm core: vote counting, log replication
// decisions, timers. It also ships Engine, a reference implementation
// sufficient to drive and test the layer above it; a production
// deployment may swap Engine for a fuller election algorithm without
// touching internal/consensus.
package raftcore

import (
	"fmt"
	"sync"

	"github.com/cuemby/raftline/internal/pubsub"
	"github.com/cuemby/raftline/internal/types"
)

// VTable is the capability record the core is constructed with: the
// three callbacks it invokes to let the integration layer persist,
// broadcast, and defer work. Bound once at construction.
type VTable struct {
	Write         func(types.Message) error
	Broadcast     func(types.Message) error
	ScheduleAsync func()
}

// Snapshot is the read-only view of Raft-instance state published to
// update observers.
type Snapshot struct {
	Term           uint64
	VolatileTerm   uint64
	State          types.State
	Leader         types.PeerID
	IsEnabled      bool
	IsCfgCandidate bool
}

// Core is the interface the integration layer (internal/consensus)
// depends on.
type Core interface {
	LocalID() types.PeerID
	Snapshot() Snapshot

	ProcessMsg(m types.Message, source types.PeerID) error
	ProcessRecovery(m types.Message)
	ProcessAsync()

	CheckpointLocal() types.Request
	CheckpointRemote() types.Request

	CfgIsCandidate() bool
	SetCfgIsCandidate(bool)
	SetCfgIsCandidateLater(bool)
	CfgIsEnabled() bool
	SetCfgIsEnabled(bool)
	SetCfgElectionQuorum(n int)
	SetCfgClusterSize(n int)

	Resign() error

	OnUpdate(fn func(Snapshot)) *pubsub.Subscription

	Destroy()
}

// Engine is a small, correct reference Core. It enforces the state
// invariants (term never exceeds volatile_term; state=leader implies
// leader=self; candidate requires enabled) on every transition and fires the
// update-observer registry once per transition, exactly like the real
// algorithm core would on any visible attribute change.
type Engine struct {
	mu sync.Mutex

	localID types.PeerID
	vtable  VTable

	term           uint64
	volatileTerm   uint64
	state          types.State
	leader         types.PeerID
	vote           types.PeerID
	isLeaderSeen   bool
	isEnabled      bool
	isCfgCandidate bool
	deferredClear  bool // a set-false requested via SetCfgIsCandidateLater

	observers *pubsub.Registry[Snapshot]
}

// New creates an Engine for localID, wired to vtable.
func New(localID types.PeerID, vtable VTable) *Engine {
	return &Engine{
		localID:   localID,
		vtable:    vtable,
		observers: pubsub.NewRegistry[Snapshot](),
	}
}

func (e *Engine) LocalID() types.PeerID { return e.localID }

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	return Snapshot{
		Term:           e.term,
		VolatileTerm:   e.volatileTerm,
		State:          e.state,
		Leader:         e.leader,
		IsEnabled:      e.isEnabled,
		IsCfgCandidate: e.isCfgCandidate,
	}
}

// OnUpdate registers fn to be called, synchronously and in order, after
// every transition. Detach via the returned Subscription's Close.
func (e *Engine) OnUpdate(fn func(Snapshot)) *pubsub.Subscription {
	return e.observers.Subscribe(fn)
}

// publish asserts the state invariants and fires observers. Must be
// called with e.mu released (observers may call back into Engine).
func (e *Engine) publish() {
	snap := e.Snapshot()
	if snap.Term > snap.VolatileTerm {
		panic("raftcore: term exceeds volatile_term")
	}
	if snap.State == types.StateLeader && snap.Leader != e.localID {
		panic("raftcore: state=leader but leader != self")
	}
	if snap.IsCfgCandidate && !snap.IsEnabled {
		panic("raftcore: candidate config set while disabled")
	}
	e.observers.Publish(snap)
}

// ProcessMsg ingests a peer's Raft message. A higher term always wins
// and durably persists the new view before anything else observes it;
// the term record must be on disk before it takes effect. A message
// below the current term is rejected. Callers need not serialize:
// concurrent ingests race on the journal, and whichever carries the
// lower term loses.
func (e *Engine) ProcessMsg(m types.Message, source types.PeerID) error {
	e.mu.Lock()
	if m.Term < e.term {
		e.mu.Unlock()
		return fmt.Errorf("raftcore: stale term %d < %d", m.Term, e.term)
	}

	becameLeader := m.Leader == e.localID && m.State == types.StateLeader
	next := types.Message{
		Term:         m.Term,
		Vote:         m.Vote,
		Leader:       m.Leader,
		IsLeaderSeen: m.IsLeaderSeen || m.Leader != "",
	}
	e.mu.Unlock()

	if e.vtable.Write != nil {
		if err := e.vtable.Write(next); err != nil {
			return err
		}
	}

	// The lock is not held across the write, and callers are not
	// serialized: another message may have committed a higher term
	// while this one was waiting on the journal. Re-validate before
	// committing so the term never moves backward.
	e.mu.Lock()
	if m.Term < e.term {
		superseded := e.term
		e.mu.Unlock()
		return fmt.Errorf("raftcore: term %d superseded by %d during write", m.Term, superseded)
	}
	e.term = m.Term
	e.volatileTerm = m.Term
	e.vote = m.Vote
	e.leader = m.Leader
	e.isLeaderSeen = next.IsLeaderSeen
	if becameLeader {
		e.state = types.StateLeader
	} else if e.state == types.StateLeader && m.Leader != e.localID {
		e.state = types.StateFollower
	}
	e.applyDeferredClearLocked()
	e.mu.Unlock()

	e.publish()

	if e.vtable.Broadcast != nil {
		if err := e.vtable.Broadcast(m); err != nil {
			return err
		}
	}
	if becameLeader && e.vtable.ScheduleAsync != nil {
		e.vtable.ScheduleAsync()
	}
	return nil
}

// ProcessRecovery replays a persisted record during node recovery. It
// never fails: a bad recovery record is a deployment bug the operator
// must fix out of band, not something to surface mid-boot.
func (e *Engine) ProcessRecovery(m types.Message) {
	e.mu.Lock()
	e.term = m.Term
	e.volatileTerm = m.Term
	e.vote = m.Vote
	e.leader = m.Leader
	e.isLeaderSeen = m.IsLeaderSeen
	e.state = types.StateFollower
	e.mu.Unlock()
	e.publish()
}

// ProcessAsync lets the core perform whatever yield-permitting work it
// had deferred. Engine has none of its own; the real collaborator this
// stands in for would drain election timers and vote-request retries
// here.
func (e *Engine) ProcessAsync() {}

func (e *Engine) CheckpointLocal() types.Request  { return e.checkpoint() }
func (e *Engine) CheckpointRemote() types.Request { return e.checkpoint() }

func (e *Engine) checkpoint() types.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	return types.Request{
		Term:         e.term,
		Vote:         e.vote,
		Leader:       e.leader,
		IsLeaderSeen: e.isLeaderSeen,
		State:        e.state,
	}
}

func (e *Engine) CfgIsCandidate() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isCfgCandidate
}

// SetCfgIsCandidate sets candidate eligibility immediately.
func (e *Engine) SetCfgIsCandidate(v bool) {
	e.mu.Lock()
	e.deferredClear = false
	e.isCfgCandidate = v && e.isEnabled
	e.mu.Unlock()
	e.publish()
}

// SetCfgIsCandidateLater requests v=false take effect once the current
// election/leadership term ends, so revoking eligibility does not
// interrupt an ongoing election or leadership. Setting true has
// immediate effect (there is no reason to defer granting eligibility).
func (e *Engine) SetCfgIsCandidateLater(v bool) {
	e.mu.Lock()
	if v || !(e.state == types.StateCandidate || e.state == types.StateLeader) {
		e.deferredClear = false
		e.isCfgCandidate = v && e.isEnabled
		e.mu.Unlock()
		e.publish()
		return
	}
	e.deferredClear = true
	e.mu.Unlock()
}

// applyDeferredClearLocked must run whenever role may have just ended.
// Caller holds e.mu.
func (e *Engine) applyDeferredClearLocked() {
	if e.deferredClear && e.state != types.StateCandidate && e.state != types.StateLeader {
		e.isCfgCandidate = false
		e.deferredClear = false
	}
}

func (e *Engine) CfgIsEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isEnabled
}

func (e *Engine) SetCfgIsEnabled(v bool) {
	e.mu.Lock()
	e.isEnabled = v
	if !v {
		e.isCfgCandidate = false
		e.deferredClear = false
	}
	e.mu.Unlock()
	e.publish()
}

func (e *Engine) SetCfgElectionQuorum(n int) { _ = n } // no local state to track; real core sizes its quorum internally
func (e *Engine) SetCfgClusterSize(n int) { _ = n }

// Resign gives up leadership without necessarily advancing the term:
// the node simply stops acting as leader until a new election
// resolves.
func (e *Engine) Resign() error {
	e.mu.Lock()
	if e.state != types.StateLeader {
		e.mu.Unlock()
		return nil
	}
	e.state = types.StateFollower
	e.leader = ""
	e.applyDeferredClearLocked()
	e.mu.Unlock()
	e.publish()
	return nil
}

// Destroy tears the engine down. There is nothing to release beyond
// letting the garbage collector reclaim it; kept as a named method so
// callers don't need to special-case Engine vs. a Core backed by
// external resources.
func (e *Engine) Destroy() {}

// --- test/simulation seam -------------------------------------------------
//
// The real algorithm core drives its own term bumps, votes, and
// elections internally; Engine, standing in for it, exposes that as an
// explicit call so tests and local simulation can inject a decided
// election outcome directly.

// Advance moves the engine directly to the given term/state/leader, as
// if the stood-in-for algorithm core had just decided it. It durably
// writes the resulting message first (mirroring ProcessMsg) and then
// publishes, so every invariant and observer the rest of the layer
// depends on fires exactly as it would for a message arriving over the
// wire.
func (e *Engine) Advance(term uint64, state types.State, leader types.PeerID) error {
	e.mu.Lock()
	if term < e.term {
		e.mu.Unlock()
		return fmt.Errorf("raftcore: cannot move term backward %d < %d", term, e.term)
	}
	msg := types.Message{Term: term, Leader: leader, IsLeaderSeen: leader != ""}
	e.mu.Unlock()

	if e.vtable.Write != nil {
		if err := e.vtable.Write(msg); err != nil {
			return err
		}
	}

	// Same re-validation as ProcessMsg: a concurrent higher term may
	// have committed while the write was in flight.
	e.mu.Lock()
	if term < e.term {
		superseded := e.term
		e.mu.Unlock()
		return fmt.Errorf("raftcore: term %d superseded by %d during write", term, superseded)
	}
	e.term = term
	e.volatileTerm = term
	e.state = state
	e.leader = leader
	e.isLeaderSeen = leader != ""
	e.applyDeferredClearLocked()
	e.mu.Unlock()

	e.publish()

	if state == types.StateLeader && e.vtable.ScheduleAsync != nil {
		e.vtable.ScheduleAsync()
	}
	return nil
}

// AdvanceVolatileTerm bumps volatile_term without (yet) making it
// durable — the "term ended inconclusively" case wait_term_outcome
// must observe, e.g. after a split vote.
func (e *Engine) AdvanceVolatileTerm(term uint64) {
	e.mu.Lock()
	if term < e.volatileTerm {
		e.mu.Unlock()
		return
	}
	e.volatileTerm = term
	e.mu.Unlock()
	e.publish()
}
