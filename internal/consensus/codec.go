// Package consensus is the integration layer itself: it wires
// internal/raftcore, internal/journal, internal/replicaset, and
// internal/limbo together, and exposes the public surface (Node) that
// cmd/raftlined drives.
package consensus

import "github.com/cuemby/raftline/internal/types"

// MFromR converts an on-wire/on-disk request into an in-memory
// message. It performs a structural copy of all six fields and no
// validation of its own; validation belongs to the Raft core.
func MFromR(r types.Request) types.Message {
	return types.Message{
		Term:         r.Term,
		Vote:         r.Vote,
		Leader:       r.Leader,
		IsLeaderSeen: r.IsLeaderSeen,
		State:        r.State,
		VClock:       r.VClock,
	}
}

// RFromM converts an in-memory message into its wire/disk shape.
func RFromM(m types.Message) types.Request {
	return types.Request{
		Term:         m.Term,
		Vote:         m.Vote,
		Leader:       m.Leader,
		IsLeaderSeen: m.IsLeaderSeen,
		State:        m.State,
		VClock:       m.VClock,
	}
}
