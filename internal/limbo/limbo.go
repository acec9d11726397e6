// Package limbo is a reference implementation of the synchronous
// transaction buffer the quorum/fencing controller and async worker
// interact with. Production deployments are expected to substitute
// their own limbo; this one exists so the layers above it can be
// built and tested against a real, if small, implementation.
package limbo

import (
	"errors"
	"sync"
)

// ErrWaitingForQuorum is the specific transient error promote_qsync
// returns while the limbo cannot yet confirm it has taken over from
// the prior term: the caller (the async worker) retries on this error
// until it succeeds or its task is cancelled.
var ErrWaitingForQuorum = errors.New("limbo: waiting for quorum")

// Transaction is a synchronous write awaiting quorum confirmation.
type Transaction struct {
	Term uint64
	ID   uint64
}

// Limbo is the ordered buffer of in-flight synchronous transactions
// and the promotion bookkeeping layered on top of it.
type Limbo interface {
	// Fence freezes the limbo: in-flight synchronous transactions stop
	// finalizing. Idempotent.
	Fence()
	// Unfence resumes finalizing. Idempotent.
	Unfence()
	// Fenced reports the current latch state.
	Fenced() bool
	// PromoteGreatestTerm is the highest term that has ever owned the
	// limbo's promotion.
	PromoteGreatestTerm() uint64
	// PromoteQSync finalizes or discards transactions inherited from
	// prior terms and takes over the limbo for term. It returns
	// ErrWaitingForQuorum if the handoff cannot yet be confirmed; any
	// other error is a hard failure of the promotion attempt.
	PromoteQSync(term uint64) error
	// Pending reports the transactions currently buffered, oldest first.
	Pending() []Transaction
}

// memLimbo is an in-memory reference Limbo. PromoteQSync requires a
// HasQuorum callback to decide whether the handoff can be confirmed
// yet; without one it always succeeds immediately (single-node mode).
type memLimbo struct {
	mu sync.Mutex

	fenced    bool
	greatest  uint64
	pending   []Transaction
	hasQuorum func() bool
}

// New creates an empty Limbo. hasQuorum, if non-nil, is consulted by
// PromoteQSync to decide whether the caller's quorum view supports
// confirming the promotion; when nil, promotion always succeeds.
func New(hasQuorum func() bool) Limbo {
	return &memLimbo{hasQuorum: hasQuorum}
}

func (l *memLimbo) Fence() {
	l.mu.Lock()
	l.fenced = true
	l.mu.Unlock()
}

func (l *memLimbo) Unfence() {
	l.mu.Lock()
	l.fenced = false
	l.mu.Unlock()
}

func (l *memLimbo) Fenced() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fenced
}

func (l *memLimbo) PromoteGreatestTerm() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.greatest
}

func (l *memLimbo) PromoteQSync(term uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.hasQuorum != nil && !l.hasQuorum() {
		return ErrWaitingForQuorum
	}

	kept := l.pending[:0]
	for _, txn := range l.pending {
		if txn.Term >= term {
			kept = append(kept, txn)
		}
	}
	l.pending = kept
	if term > l.greatest {
		l.greatest = term
	}
	l.fenced = false
	return nil
}

func (l *memLimbo) Pending() []Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Transaction, len(l.pending))
	copy(out, l.pending)
	return out
}

// Enqueue adds a pending synchronous transaction. Exposed for tests
// that need to seed the limbo with in-flight transactions before
// exercising leader promotion.
func (l *memLimbo) Enqueue(txn Transaction) {
	l.mu.Lock()
	l.pending = append(l.pending, txn)
	l.mu.Unlock()
}

// Enqueue is the package-level accessor for test seeding, since Limbo
// callers outside this package only see the narrow interface.
func Enqueue(l Limbo, txn Transaction) {
	if m, ok := l.(*memLimbo); ok {
		m.Enqueue(txn)
	}
}
