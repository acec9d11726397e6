package consensus

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/raftline/internal/limbo"
	"github.com/cuemby/raftline/internal/raftcore"
	"github.com/cuemby/raftline/internal/replicaset"
	"github.com/cuemby/raftline/internal/types"
)

func newTestQuorumController(t *testing.T) (*raftcore.Engine, limbo.Limbo, *QuorumController) {
	t.Helper()
	core := raftcore.New("self", raftcore.VTable{})
	rs, err := replicaset.Open(filepath.Join(t.TempDir(), "rs.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { rs.Close() })
	lim := limbo.New(rs.HasHealthyQuorum)
	qc := NewQuorumController(core, rs, lim, func() ElectionMode { return ModeCandidate })
	return core, lim, qc
}

func TestQuorumLossFencesCandidateLeader(t *testing.T) {
	core, lim, qc := newTestQuorumController(t)
	core.SetCfgIsEnabled(true)
	require.NoError(t, core.Advance(1, types.StateLeader, "self"))

	qc.NotifyHaveQuorum(false)

	assert.NotEqual(t, types.StateLeader, core.Snapshot().State)
	assert.True(t, lim.Fenced())
}

// A latched fencing_paused suppresses the fence entirely.
func TestFencingPausedSuppressesFence(t *testing.T) {
	core, lim, qc := newTestQuorumController(t)
	core.SetCfgIsEnabled(true)
	require.NoError(t, core.Advance(1, types.StateLeader, "self"))

	qc.FencingPause()
	qc.NotifyHaveQuorum(false)

	assert.Equal(t, types.StateLeader, core.Snapshot().State)
	assert.False(t, lim.Fenced())
}

func TestSetFencingEnabledFalseUnfencesImmediately(t *testing.T) {
	_, lim, qc := newTestQuorumController(t)
	lim.Fence()

	qc.SetFencingEnabled(false)

	assert.False(t, lim.Fenced())
}

func TestQuorumGainClearsFencingPausedLatch(t *testing.T) {
	_, _, qc := newTestQuorumController(t)
	qc.FencingPause()
	assert.True(t, qc.FencingPaused())

	qc.NotifyHaveQuorum(true)
	assert.False(t, qc.FencingPaused())
}

func TestUpdateElectionQuorumToleratesPopulatedReplicaSet(t *testing.T) {
	core := raftcore.New("self", raftcore.VTable{})
	rs, err := replicaset.Open(filepath.Join(t.TempDir(), "rs.db"), nil)
	require.NoError(t, err)
	defer rs.Close()
	rs.Register(replicaset.Peer{ID: "peer-a"})
	rs.Register(replicaset.Peer{ID: "peer-b"})

	lim := limbo.New(rs.HasHealthyQuorum)
	qc := NewQuorumController(core, rs, lim, func() ElectionMode { return ModeCandidate })

	// UpdateElectionQuorum must not panic with a populated replica set;
	// Engine ignores the pushed values (SetCfgElectionQuorum/SetCfgClusterSize
	// are no-ops on the reference core), so this only asserts no panic.
	assert.NotPanics(t, qc.UpdateElectionQuorum)
}
