package consensus

import (
	"context"
	"sync"

	"github.com/cuemby/raftline/internal/raftcore"
)

// WaitTermOutcome suspends until the term snapshotted at entry either
// ends inconclusively (volatile_term advances past it), Raft becomes
// disabled, or a leader is elected in that term. ctx, if it carries a
// deadline, bounds the wait; a bare context.Background() waits
// unbounded, which on an all-voter cluster may never resolve.
func WaitTermOutcome(ctx context.Context, core raftcore.Core) error {
	entryTerm := core.Snapshot().VolatileTerm

	settle := func(s raftcore.Snapshot) (bool, error) {
		switch {
		case s.VolatileTerm > entryTerm:
			return true, nil
		case !s.IsEnabled:
			return true, ErrElectionDisabled
		case s.Leader != "":
			return true, nil
		default:
			return false, nil
		}
	}

	if done, err := settle(core.Snapshot()); done {
		return err
	}

	result := make(chan error, 1)
	var once sync.Once
	sub := core.OnUpdate(func(s raftcore.Snapshot) {
		if done, err := settle(s); done {
			once.Do(func() { result <- err })
		}
	})
	defer sub.Close()

	// Re-check after subscribing: the condition may have already
	// become true between the first check and registration.
	if done, err := settle(core.Snapshot()); done {
		return err
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ErrCancelled
	}
}

// WaitTermPersisted returns immediately if term already equals
// volatile_term, otherwise suspends until term has caught up to the
// volatile_term snapshotted at entry.
func WaitTermPersisted(ctx context.Context, core raftcore.Core) error {
	entry := core.Snapshot()
	if entry.Term == entry.VolatileTerm {
		return nil
	}
	target := entry.VolatileTerm

	done := make(chan struct{})
	var once sync.Once
	sub := core.OnUpdate(func(s raftcore.Snapshot) {
		if s.Term >= target {
			once.Do(func() { close(done) })
		}
	})
	defer sub.Close()

	if s := core.Snapshot(); s.Term >= target {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ErrCancelled
	}
}
