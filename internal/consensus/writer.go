package consensus

import (
	"fmt"
	"sync"

	"github.com/cuemby/raftline/internal/journal"
	"github.com/cuemby/raftline/internal/types"
	"github.com/cuemby/raftline/pkg/metrics"
)

// Cancellable is the narrow capability the durable writer needs from
// the async worker: a scoped toggle of the worker's cancellability so
// a spurious wake cannot land mid-commit. A nil Cancellable is valid —
// callers outside the worker's task domain have nothing to mask.
type Cancellable interface {
	SetCancellable(bool)
}

// DurableWriter persists a Raft message to the journal synchronously
// with respect to the caller, matching the Raft core's expectation
// that the message is durable before the callback returns.
type DurableWriter struct {
	journal journal.Journal
	gate    Cancellable

	mu       sync.Mutex
	lastTerm uint64
}

// NewDurableWriter builds a writer over j. gate may be nil.
func NewDurableWriter(j journal.Journal, gate Cancellable) *DurableWriter {
	return &DurableWriter{journal: j, gate: gate}
}

// Write persists m. m.VClock must be nil and m.State must be
// StateNone — violating that is a programmer error, not a recoverable
// condition, so it panics rather than returning an error.
//
// The submit-and-wait window is marked non-cancellable: a cancellation
// arriving mid-commit must not abandon an in-flight durable write.
// Any journal failure here is fatal to the process; Write itself only
// reports the error — halting is the caller's job (see the v-table
// wiring in lifecycle.go's Init), keeping this type testable without
// a process-level side effect.
func (w *DurableWriter) Write(m types.Message) error {
	if m.VClock != nil || m.State != types.StateNone {
		panic("consensus: durable writer received a message with vclock or state set")
	}

	if w.gate != nil {
		w.gate.SetCancellable(false)
		defer w.gate.SetCancellable(true)
	}

	// Submissions are serialized and term-monotonic: concurrent ingests
	// race their writes, and without this the journal's single row
	// could end up holding whichever commit landed last rather than the
	// highest term. A record below an already-durable term is dropped —
	// the state it carries has been superseded on disk.
	w.mu.Lock()
	defer w.mu.Unlock()
	if m.Term < w.lastTerm {
		return nil
	}

	timer := metrics.NewTimer()
	rec := RFromM(m).ToDiskRecord()
	err := w.journal.Submit(rec)
	timer.ObserveDuration(metrics.DurableWriteDuration)
	if err != nil {
		return fmt.Errorf("durable write: %w", err)
	}
	w.lastTerm = m.Term
	return nil
}
