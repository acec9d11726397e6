// Package journal is the durable writer's backing store. A single
// Submit call is a synchronous bbolt transaction performed through
// hashicorp/raft-boltdb's raft.StableStore implementation, which
// matches the submit-and-wait-for-commit contract the durable writer
// needs: Set returns only once the underlying bbolt transaction has
// committed (fsynced) or failed.
package journal

import (
	"encoding/json"
	"fmt"

	raftboltdb "github.com/hashicorp/raft-boltdb"
)

// raftRequestKey is the single row this layer ever writes: the most
// recently durable Raft request record. There is exactly one row
// because the durable writer only ever persists the current Raft
// state, never a growing log (that is the WAL's concern elsewhere in
// the enclosing system).
var raftRequestKey = []byte("raft_request")

// Journal is the narrow interface the durable writer depends on.
// Submit encodes v as JSON and commits it; a non-nil error means the
// commit did not happen, which the caller treats as fatal — a lost
// Raft term record cannot be recovered from safely.
type Journal interface {
	Submit(v any) error
	Load(out any) (bool, error)
	Close() error
}

// BoltJournal implements Journal on top of a raftboltdb.BoltStore.
type BoltJournal struct {
	store *raftboltdb.BoltStore
}

// Open creates or opens a BoltJournal at path.
func Open(path string) (*BoltJournal, error) {
	store, err := raftboltdb.NewBoltStore(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &BoltJournal{store: store}, nil
}

// Submit encodes v and commits it as the journal's single row. bbolt's
// Update transaction backing raftboltdb.Set is synchronous: Submit
// does not return until the write is durable or has definitively
// failed, so no separate wait step is needed on top of it.
func (j *BoltJournal) Submit(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode journal row: %w", err)
	}
	if err := j.store.Set(raftRequestKey, data); err != nil {
		return fmt.Errorf("commit journal row: %w", err)
	}
	return nil
}

// Load decodes the most recently committed row into out. It reports
// false if nothing has ever been committed.
func (j *BoltJournal) Load(out any) (bool, error) {
	data, err := j.store.Get(raftRequestKey)
	if err != nil || len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode journal row: %w", err)
	}
	return true, nil
}

// Close releases the underlying bbolt handle.
func (j *BoltJournal) Close() error {
	return j.store.Close()
}
