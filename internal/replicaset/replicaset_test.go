package replicaset

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/cuemby/raftline/internal/types"
)

type recordingRelay struct {
	mu  sync.Mutex
	got []types.Request
}

func (r *recordingRelay) RelayPushRaft(req types.Request) {
	r.mu.Lock()
	r.got = append(r.got, req)
	r.mu.Unlock()
}
func (r *recordingRelay) Close() {}

func newTestSet(t *testing.T) (*ReplicaSet, map[types.PeerID]*recordingRelay) {
	t.Helper()
	relays := make(map[types.PeerID]*recordingRelay)
	var mu sync.Mutex
	rs, err := Open(filepath.Join(t.TempDir(), "replicaset.db"), func(id types.PeerID) Relay {
		mu.Lock()
		defer mu.Unlock()
		r := &recordingRelay{}
		relays[id] = r
		return r
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { rs.Close() })
	return rs, relays
}

func TestRegisterReportsGrowthOnce(t *testing.T) {
	rs, _ := newTestSet(t)

	grew, err := rs.Register(Peer{ID: "peer-a", Address: "10.0.0.1:7000"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !grew {
		t.Fatalf("expected grew=true for a new peer")
	}

	grew, err = rs.Register(Peer{ID: "peer-a", Address: "10.0.0.1:7000"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if grew {
		t.Fatalf("expected grew=false for re-registering the same peer")
	}
}

func TestHealthyQuorumIsStrictMajority(t *testing.T) {
	rs, _ := newTestSet(t)
	if rs.HealthyQuorum() != 1 {
		t.Fatalf("expected quorum=1 with zero peers, got %d", rs.HealthyQuorum())
	}

	// Even totals: self + 1 peer = 2 members, majority is 2.
	rs.Register(Peer{ID: "peer-a"})
	if rs.HealthyQuorum() != 2 {
		t.Fatalf("expected quorum=2 with 1 registered peer, got %d", rs.HealthyQuorum())
	}

	rs.Register(Peer{ID: "peer-b"})
	if rs.HealthyQuorum() != 2 {
		t.Fatalf("expected quorum=2 with 2 registered peers, got %d", rs.HealthyQuorum())
	}

	// self + 3 peers = 4 members, majority is 3.
	rs.Register(Peer{ID: "peer-c"})
	if rs.HealthyQuorum() != 3 {
		t.Fatalf("expected quorum=3 with 3 registered peers, got %d", rs.HealthyQuorum())
	}
}

// HealthyQuorum's threshold and HasHealthyQuorum's internal majority
// must agree at every cluster size: exactly HealthyQuorum() healthy
// members (self included) is a quorum, one fewer is not.
func TestHealthyQuorumMatchesHasHealthyQuorum(t *testing.T) {
	rs, _ := newTestSet(t)
	peers := []types.PeerID{"peer-a", "peer-b", "peer-c"}
	for _, id := range peers {
		rs.Register(Peer{ID: id})
	}

	need := rs.HealthyQuorum()

	// Self is always healthy; mark need-2 peers healthy so the healthy
	// member count is need-1.
	for i := 0; i < need-2; i++ {
		rs.SetHealth(peers[i], true)
	}
	if rs.HasHealthyQuorum() {
		t.Fatalf("expected no quorum with %d of %d required members healthy", need-1, need)
	}

	rs.SetHealth(peers[need-2], true)
	if !rs.HasHealthyQuorum() {
		t.Fatalf("expected quorum with %d healthy members", need)
	}
}

func TestSelfAloneHasHealthyQuorum(t *testing.T) {
	rs, _ := newTestSet(t)
	if !rs.HasHealthyQuorum() {
		t.Fatalf("expected a lone node to have quorum with itself")
	}
}

func TestQuorumGainAndLossFireOnTransition(t *testing.T) {
	rs, _ := newTestSet(t)
	rs.Register(Peer{ID: "peer-a"})
	rs.Register(Peer{ID: "peer-b"})

	var gains, losses int
	rs.OnQuorumGain(func(struct{}) { gains++ })
	rs.OnQuorumLoss(func(struct{}) { losses++ })

	// self + 0 healthy peers out of 3 = not a quorum yet (need 2).
	rs.SetHealth("peer-a", true)
	if gains != 1 {
		t.Fatalf("expected 1 quorum-gain after reaching 2/3 healthy, got %d", gains)
	}

	rs.SetHealth("peer-a", false)
	if losses != 1 {
		t.Fatalf("expected 1 quorum-loss after dropping back below quorum, got %d", losses)
	}
}

func TestForeachDeliversToAllRelays(t *testing.T) {
	rs, relays := newTestSet(t)
	rs.Register(Peer{ID: "peer-a"})
	rs.Register(Peer{ID: "peer-b"})

	rs.Foreach(func(id types.PeerID, r Relay) {
		r.RelayPushRaft(types.Request{Term: 1})
	})

	for id, r := range relays {
		r.mu.Lock()
		n := len(r.got)
		r.mu.Unlock()
		if n != 1 {
			t.Fatalf("expected relay %s to receive exactly 1 request, got %d", id, n)
		}
	}
}
