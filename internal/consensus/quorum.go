package consensus

import (
	"sync"

	"github.com/cuemby/raftline/internal/limbo"
	"github.com/cuemby/raftline/internal/raftcore"
	"github.com/cuemby/raftline/internal/replicaset"
	"github.com/cuemby/raftline/internal/types"
	"github.com/cuemby/raftline/pkg/log"
	"github.com/cuemby/raftline/pkg/metrics"
)

// QuorumController reacts to quorum gain/loss by enabling candidacy
// or fencing the leader, and owns the fencing_paused latch.
type QuorumController struct {
	mu sync.Mutex

	core raftcore.Core
	rs   *replicaset.ReplicaSet
	lim  limbo.Limbo
	mode func() ElectionMode

	fencingEnabled bool
	fencingPaused  bool
}

// NewQuorumController builds a controller. mode is consulted on every
// quorum transition to decide notify_have_quorum's behavior; it is
// owned by the ElectionController to avoid a direct dependency cycle
// between the two.
func NewQuorumController(core raftcore.Core, rs *replicaset.ReplicaSet, lim limbo.Limbo, mode func() ElectionMode) *QuorumController {
	return &QuorumController{core: core, rs: rs, lim: lim, mode: mode, fencingEnabled: true}
}

// NotifyHaveQuorum is the single handler both on_quorum_gain and
// on_quorum_loss are routed to.
func (q *QuorumController) NotifyHaveQuorum(gained bool) {
	switch q.mode() {
	case ModeManual:
		if gained {
			q.clearPauseIfLatched()
			return
		}
		q.fence()

	case ModeCandidate:
		if gained {
			q.clearPauseIfLatched()
			q.core.SetCfgIsCandidate(true)
			return
		}
		snap := q.core.Snapshot()
		if snap.State == types.StateCandidate || snap.State == types.StateLeader {
			q.fence()
			q.core.SetCfgIsCandidateLater(false)
		} else {
			q.core.SetCfgIsCandidate(false)
		}

	default:
		panic("consensus: quorum observers fired while election mode is off/voter")
	}
}

// fence resigns leadership and freezes the limbo, but only when Raft
// is an enabled leader, fencing is enabled, and fencing is not
// paused; a paused latch makes fence a no-op regardless of the rest.
func (q *QuorumController) fence() {
	q.mu.Lock()
	enabled, paused := q.fencingEnabled, q.fencingPaused
	q.mu.Unlock()
	if !enabled || paused {
		return
	}

	snap := q.core.Snapshot()
	if !snap.IsEnabled || snap.State != types.StateLeader {
		return
	}

	log.WithComponent(log.ComponentConsensus).Warn().
		Uint64("term", snap.Term).
		Msg("quorum lost, fencing leader")
	_ = q.core.Resign()
	q.lim.Fence()
	metrics.FencingEventsTotal.Inc()
}

// clearPauseIfLatched clears fencing_paused the first time a healthy
// quorum is observed after it was latched.
func (q *QuorumController) clearPauseIfLatched() {
	q.mu.Lock()
	q.fencingPaused = false
	q.mu.Unlock()
}

// FencingPause latches fencing_paused = true. Invoked by the
// replica-set collaborator whenever the replica set grows.
func (q *QuorumController) FencingPause() {
	q.mu.Lock()
	q.fencingPaused = true
	q.mu.Unlock()
}

// FencingPaused reports the current latch state.
func (q *QuorumController) FencingPaused() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.fencingPaused
}

// SetFencingEnabled updates the user policy. Disabling it immediately
// unfences the limbo regardless of any other state, and either way the
// election quorum is recomputed so the health subsystem sees the
// policy change.
func (q *QuorumController) SetFencingEnabled(v bool) {
	q.mu.Lock()
	q.fencingEnabled = v
	q.mu.Unlock()
	if !v {
		q.lim.Unfence()
	}
	q.UpdateElectionQuorum()
}

// FencingEnabled reports the current user policy.
func (q *QuorumController) FencingEnabled() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.fencingEnabled
}

// UpdateElectionQuorum recomputes and pushes election quorum (the
// healthy-quorum size) and cluster size (at least 1) into the core.
func (q *QuorumController) UpdateElectionQuorum() {
	metrics.HealthyQuorumSize.Set(float64(q.ElectionQuorumSize()))
	q.core.SetCfgElectionQuorum(q.ElectionQuorumSize())

	n := q.ClusterSize()
	q.core.SetCfgClusterSize(n)
	metrics.ClusterSize.Set(float64(n))
}

// ElectionQuorumSize is the number of healthy members (self included)
// required for a quorum at the replica set's current size. Read
// directly off the replica set rather than cached, so Status always
// reflects its latest registration/health state.
func (q *QuorumController) ElectionQuorumSize() int {
	return q.rs.HealthyQuorum()
}

// ClusterSize is the registered replica-set size, floored at 1 so a
// lone unregistered node still counts itself.
func (q *QuorumController) ClusterSize() int {
	n := q.rs.RegisteredCount()
	if n < 1 {
		n = 1
	}
	return n
}
