package consensus

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/raftline/internal/types"
)

func newTestNode(t *testing.T, onFatal func(error)) *Node {
	t.Helper()
	dir := t.TempDir()
	n, err := Init(Config{
		LocalID:        "self",
		JournalPath:    filepath.Join(dir, "journal.db"),
		ReplicaSetPath: filepath.Join(dir, "replicaset.db"),
		OnFatal:        onFatal,
	})
	require.NoError(t, err)
	t.Cleanup(func() { n.Close() })
	return n
}

func TestInitRecoversPersistedRequest(t *testing.T) {
	dir := t.TempDir()
	journalPath := filepath.Join(dir, "journal.db")
	rsPath := filepath.Join(dir, "replicaset.db")

	n1, err := Init(Config{LocalID: "self", JournalPath: journalPath, ReplicaSetPath: rsPath})
	require.NoError(t, err)
	require.NoError(t, n1.Process(types.Request{Term: 4, Leader: "self", State: types.StateLeader}, "self"))
	require.NoError(t, n1.Close())

	n2, err := Init(Config{LocalID: "self", JournalPath: journalPath, ReplicaSetPath: rsPath})
	require.NoError(t, err)
	defer n2.Close()

	require.Equal(t, uint64(4), n2.Status().Term)
}

func TestLeaderPromotionClearsLimbo(t *testing.T) {
	n := newTestNode(t, nil)
	n.lim.Fence()

	require.NoError(t, n.SetElectionMode(ModeManual))
	require.NoError(t, n.Process(types.Request{Term: 1, Leader: "self", State: types.StateLeader}, "self"))

	require.Eventually(t, func() bool {
		return !n.lim.Fenced()
	}, time.Second, time.Millisecond, "expected becoming leader to eventually clear the limbo fence")
}

// Status should surface candidate config, fencing policy, and
// quorum/cluster sizing, not just term/state/leader.
func TestStatusReportsCandidateFencingAndQuorumSizing(t *testing.T) {
	n := newTestNode(t, nil)
	require.NoError(t, n.SetElectionMode(ModeCandidate))
	require.NoError(t, n.RegisterPeer("peer-a", "10.0.0.1:7000"))
	require.NoError(t, n.RegisterPeer("peer-b", "10.0.0.2:7000"))
	require.NoError(t, n.Process(types.Request{Term: 1, Leader: "self", State: types.StateLeader}, "self"))

	s := n.Status()
	require.True(t, s.IsCfgCandidate)
	require.True(t, s.FencingEnabled)
	require.Equal(t, 2, s.ClusterSize)
	require.Equal(t, 2, s.ElectionQuorumSize)
}

// Quorum loss while in manual mode fences regardless of candidate
// configuration.
func TestQuorumLossDuringManualModeFences(t *testing.T) {
	n := newTestNode(t, nil)
	require.NoError(t, n.SetElectionMode(ModeManual))
	require.NoError(t, n.Process(types.Request{Term: 1, Leader: "self", State: types.StateLeader}, "self"))

	require.NoError(t, n.RegisterPeer("peer-a", "10.0.0.1:7000"))
	require.NoError(t, n.RegisterPeer("peer-b", "10.0.0.2:7000"))
	n.quorum.NotifyHaveQuorum(true) // clears the registration-time fencing_paused latch

	n.quorum.NotifyHaveQuorum(false)

	require.NotEqual(t, types.StateLeader, n.Status().State)
}

// A durable-write failure is handed to the fatal callback, whose job
// is to halt the node.
func TestDurableWriteFailureHaltsViaFatalCallback(t *testing.T) {
	var fatalErr error
	n := newTestNode(t, func(err error) { fatalErr = err })

	n.journal.Close() // force the next Submit to fail

	_ = n.Process(types.Request{Term: 1}, "peer-a")

	require.Error(t, fatalErr)
}

func TestPublicSurfaceRejectsCallsAfterClose(t *testing.T) {
	n := newTestNode(t, nil)
	require.NoError(t, n.Close())

	err := n.Process(types.Request{Term: 1}, "peer-a")
	require.ErrorIs(t, err, ErrNotInitialized)
}
