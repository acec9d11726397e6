package consensus

import (
	"context"

	"github.com/cuemby/raftline/internal/replicaset"
	"github.com/cuemby/raftline/internal/types"
)

// Recover replays a persisted Raft record during recovery. It never
// fails from here — any recovery-record problem is the core's
// concern, not this call's.
func (n *Node) Recover(r types.Request) error {
	if err := n.checkInitialized(); err != nil {
		return err
	}
	n.core.ProcessRecovery(MFromR(r))
	return nil
}

// CheckpointLocal is the subset of Raft state snapshotted into the
// local image.
func (n *Node) CheckpointLocal() (types.Request, error) {
	if err := n.checkInitialized(); err != nil {
		return types.Request{}, err
	}
	return n.core.CheckpointLocal(), nil
}

// CheckpointRemote is the subset of Raft state sent to a joining
// replica.
func (n *Node) CheckpointRemote() (types.Request, error) {
	if err := n.checkInitialized(); err != nil {
		return types.Request{}, err
	}
	return n.core.CheckpointRemote(), nil
}

// Process ingests a peer's Raft message. It returns the core's
// accept/reject result, the one core error this layer surfaces
// directly to callers.
func (n *Node) Process(r types.Request, source types.PeerID) error {
	if err := n.checkInitialized(); err != nil {
		return err
	}
	return n.core.ProcessMsg(MFromR(r), source)
}

// SetElectionMode applies the election-mode policy; a no-op if mode
// already equals the current one.
func (n *Node) SetElectionMode(mode ElectionMode) error {
	if err := n.checkInitialized(); err != nil {
		return err
	}
	n.election.SetMode(mode)
	return nil
}

// SetElectionFencingEnabled updates the user fencing policy,
// immediately unfencing the limbo when disabled.
func (n *Node) SetElectionFencingEnabled(v bool) error {
	if err := n.checkInitialized(); err != nil {
		return err
	}
	n.quorum.SetFencingEnabled(v)
	return nil
}

// ElectionFencingPause latches fencing_paused = true, invoked by the
// replica-set collaborator whenever the replica set is extended.
func (n *Node) ElectionFencingPause() error {
	if err := n.checkInitialized(); err != nil {
		return err
	}
	n.quorum.FencingPause()
	return nil
}

// UpdateElectionQuorum recomputes and pushes election quorum and
// cluster size into the core.
func (n *Node) UpdateElectionQuorum() error {
	if err := n.checkInitialized(); err != nil {
		return err
	}
	n.quorum.UpdateElectionQuorum()
	return nil
}

// RegisterPeer adds peer to the replica set. When the replica set
// grows, it latches fencing_paused so a newly added node cannot cause
// fencing oscillation during bootstrap, and recomputes the election
// quorum.
func (n *Node) RegisterPeer(p types.PeerID, addr types.PeerAddress) error {
	if err := n.checkInitialized(); err != nil {
		return err
	}
	grew, err := n.rs.Register(replicaset.Peer{ID: p, Address: addr})
	if err != nil {
		return err
	}
	if grew {
		n.quorum.FencingPause()
	}
	n.quorum.UpdateElectionQuorum()
	return nil
}

// SetPeerHealth updates a peer's health, triggering on_health_change
// and, if this flips the replica set's overall quorum status,
// on_quorum_gain or on_quorum_loss.
func (n *Node) SetPeerHealth(p types.PeerID, healthy bool) error {
	if err := n.checkInitialized(); err != nil {
		return err
	}
	n.rs.SetHealth(p, healthy)
	return nil
}

// WaitTermOutcome and WaitTermPersisted expose the term-wait
// primitives through the Node surface, scoping observer
// registration/detachment internally.
func (n *Node) WaitTermOutcome(ctx context.Context) error {
	if err := n.checkInitialized(); err != nil {
		return err
	}
	return WaitTermOutcome(ctx, n.core)
}

func (n *Node) WaitTermPersisted(ctx context.Context) error {
	if err := n.checkInitialized(); err != nil {
		return err
	}
	return WaitTermPersisted(ctx, n.core)
}
