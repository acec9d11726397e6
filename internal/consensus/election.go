package consensus

import (
	"sync"

	"github.com/cuemby/raftline/internal/pubsub"
	"github.com/cuemby/raftline/internal/raftcore"
	"github.com/cuemby/raftline/internal/replicaset"
	"github.com/cuemby/raftline/internal/types"
	"github.com/cuemby/raftline/pkg/log"
)

// ElectionMode is EM: the user-selected election policy.
type ElectionMode uint8

const (
	// ModeInvalid means "not yet configured".
	ModeInvalid ElectionMode = iota
	ModeOff
	ModeVoter
	ModeManual
	ModeCandidate
)

func (m ElectionMode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeVoter:
		return "voter"
	case ModeManual:
		return "manual"
	case ModeCandidate:
		return "candidate"
	default:
		return "invalid"
	}
}

// ElectionController translates a user-selected election mode into
// Raft is-candidate/is-enabled configuration, installing or removing
// the quorum/fencing controller's observers as the mode requires.
type ElectionController struct {
	mu   sync.Mutex
	mode ElectionMode

	core    raftcore.Core
	rs      *replicaset.ReplicaSet
	quorum  *QuorumController
	gainSub *pubsub.Subscription
	lossSub *pubsub.Subscription
}

// NewElectionController builds a controller in ModeInvalid.
func NewElectionController(core raftcore.Core, rs *replicaset.ReplicaSet, quorum *QuorumController) *ElectionController {
	return &ElectionController{core: core, rs: rs, quorum: quorum, mode: ModeInvalid}
}

// Mode reports the current election mode.
func (c *ElectionController) Mode() ElectionMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetMode applies the mode-transition policy. It is a no-op if mode
// already equals the current mode.
func (c *ElectionController) SetMode(mode ElectionMode) {
	c.mu.Lock()
	if c.mode == mode {
		c.mu.Unlock()
		return
	}
	c.mode = mode
	c.mu.Unlock()

	switch mode {
	case ModeOff:
		c.removeObservers()
		c.core.SetCfgIsCandidate(false)
		c.core.SetCfgIsEnabled(false)

	case ModeVoter:
		c.removeObservers()
		c.core.SetCfgIsCandidate(false)
		c.core.SetCfgIsEnabled(true)

	case ModeManual:
		c.installObservers()
		c.core.SetCfgIsEnabled(true)
		snap := c.core.Snapshot()
		if snap.State == types.StateLeader || snap.State == types.StateCandidate {
			c.core.SetCfgIsCandidateLater(false)
		} else {
			c.core.SetCfgIsCandidate(false)
		}

	case ModeCandidate:
		c.installObservers()
		c.core.SetCfgIsEnabled(true)
		if c.rs.HasHealthyQuorum() {
			c.core.SetCfgIsCandidate(true)
		}
		// else: leave false, quorum-gain will flip it.
	}

	log.WithComponent(log.ComponentConsensus).Info().
		Str("mode", mode.String()).
		Msg("election mode changed")
}

// installObservers subscribes the quorum controller to both
// replica-set observer lists, routing both to notify_have_quorum.
// Safe to call when already installed.
func (c *ElectionController) installObservers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gainSub != nil {
		return
	}
	c.gainSub = c.rs.OnQuorumGain(func(struct{}) { c.quorum.NotifyHaveQuorum(true) })
	c.lossSub = c.rs.OnQuorumLoss(func(struct{}) { c.quorum.NotifyHaveQuorum(false) })
}

// removeObservers detaches the quorum controller's subscriptions:
// once the mode is off or voter, the replica set's observer lists
// must no longer contain them.
func (c *ElectionController) removeObservers() {
	c.mu.Lock()
	gain, loss := c.gainSub, c.lossSub
	c.gainSub, c.lossSub = nil, nil
	c.mu.Unlock()
	gain.Close()
	loss.Close()
}
