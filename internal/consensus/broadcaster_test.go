package consensus

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/raftline/internal/replicaset"
	"github.com/cuemby/raftline/internal/types"
)

type recordingRelay struct{ got []types.Request }

func (r *recordingRelay) RelayPushRaft(req types.Request) { r.got = append(r.got, req) }
func (r *recordingRelay) Close() {}

func TestBroadcastPushesToAllRelaysBeforeFiringOnBroadcast(t *testing.T) {
	relay := &recordingRelay{}
	rs, err := replicaset.Open(filepath.Join(t.TempDir(), "rs.db"), func(types.PeerID) replicaset.Relay { return relay })
	require.NoError(t, err)
	defer rs.Close()

	_, err = rs.Register(replicaset.Peer{ID: "peer-a"})
	require.NoError(t, err)

	b := NewBroadcaster(rs)

	var order []string
	pushedAtFire := -1
	b.OnBroadcast(func(struct{}) {
		pushedAtFire = len(relay.got)
		order = append(order, "observer")
	})

	require.NoError(t, b.Broadcast(types.Request{Term: 1}))

	require.Len(t, relay.got, 1)
	require.Equal(t, []string{"observer"}, order)
	require.Equal(t, 1, pushedAtFire) // relays receive before observers fire
}
