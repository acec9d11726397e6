// Package types holds the wire/memory data model shared across the
// consensus integration layer: the Raft message, its on-wire/on-disk
// counterpart, and the small value types layered on top of them.
package types

import "github.com/hashicorp/raft"

// PeerID identifies a node in the replica set. It reuses hashicorp/raft's
// server-identifier type so this layer speaks the same vocabulary as the
// rest of the Raft ecosystem, even though the election algorithm behind
// it is this module's own (see State).
type PeerID = raft.ServerID

// PeerAddress is the network address of a peer, in the same vocabulary
// as PeerID.
type PeerAddress = raft.ServerAddress

// State is the role a node believes it holds. Zero value State is
// "none" — Raft is disabled or the node has not yet been initialized.
type State uint8

const (
	StateNone State = iota
	StateFollower
	StateCandidate
	StateLeader
)

func (s State) String() string {
	switch s {
	case StateFollower:
		return "follower"
	case StateCandidate:
		return "candidate"
	case StateLeader:
		return "leader"
	default:
		return "none"
	}
}

// VClock is an opaque vector clock carried by in-memory messages only.
// It is never persisted or broadcast on the wire; components that
// receive one must treat it as borrowed for the duration of the call.
type VClock map[PeerID]uint64

// Message (M) is the in-memory, immutable Raft message bundle. Term is
// monotonic; Vote and Leader are nil for "no opinion yet". VClock and
// State are never written to disk — see Request and DiskRecord.
type Message struct {
	Term         uint64
	Vote         PeerID
	Leader       PeerID
	IsLeaderSeen bool
	State        State
	VClock       VClock
}

// Request (R) is the on-wire/on-disk serialization shape of a Message.
// It carries the same six fields; the codec in internal/consensus
// performs a structural 1:1 copy between the two, performing no
// validation of its own.
type Request struct {
	Term         uint64 `json:"term"`
	Vote         PeerID `json:"vote,omitempty"`
	Leader       PeerID `json:"leader,omitempty"`
	IsLeaderSeen bool   `json:"is_leader_seen"`
	State        State  `json:"state"`
	VClock       VClock `json:"-"`
}

// DiskRecord is the subset of Request that is actually durable. VClock
// and State are Raft-internal/runtime-only fields and are never written
// to the journal: a DiskRecord has no field to hold them, so
// reconstituting a Message from one always yields State = StateNone and
// VClock = nil.
type DiskRecord struct {
	Term         uint64 `json:"term"`
	Vote         PeerID `json:"vote,omitempty"`
	Leader       PeerID `json:"leader,omitempty"`
	IsLeaderSeen bool   `json:"is_leader_seen"`
}

// ToDiskRecord drops the two WAL-invisible fields of a Request.
func (r Request) ToDiskRecord() DiskRecord {
	return DiskRecord{
		Term:         r.Term,
		Vote:         r.Vote,
		Leader:       r.Leader,
		IsLeaderSeen: r.IsLeaderSeen,
	}
}

// ToRequest rehydrates a Request from a DiskRecord. State is StateNone
// and VClock is nil, since neither survives the trip to disk.
func (d DiskRecord) ToRequest() Request {
	return Request{
		Term:         d.Term,
		Vote:         d.Vote,
		Leader:       d.Leader,
		IsLeaderSeen: d.IsLeaderSeen,
		State:        StateNone,
		VClock:       nil,
	}
}
