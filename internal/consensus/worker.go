package consensus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cuemby/raftline/internal/limbo"
	"github.com/cuemby/raftline/internal/raftcore"
	"github.com/cuemby/raftline/internal/types"
	"github.com/cuemby/raftline/pkg/metrics"
)

// Backoff bounds for the promote_qsync retry loop: the initial delay
// between attempts while waiting for quorum, and the cap it doubles
// up to.
const (
	promoteRetryMinDelay = 10 * time.Millisecond
	promoteRetryMaxDelay = 2 * time.Second
)

// AsyncWorker is the single cooperative task that drains deferred
// Raft work and drives leader post-promotion limbo cleanup without
// ever blocking the state machine's callbacks.
type AsyncWorker struct {
	mu      sync.Mutex
	hasWork bool
	started bool

	selfFrame   atomic.Bool
	cancellable atomic.Bool

	wake chan struct{}
	stop context.CancelFunc
	ctx  context.Context

	core raftcore.Core
	lim  limbo.Limbo

	onError func(error)
}

// NewAsyncWorker builds a worker over core and lim. onError, if
// non-nil, receives errors from a failed promote_qsync attempt that
// are not the transient "waiting for quorum" kind; it must not block.
func NewAsyncWorker(core raftcore.Core, lim limbo.Limbo, onError func(error)) *AsyncWorker {
	w := &AsyncWorker{core: core, lim: lim, onError: onError}
	w.cancellable.Store(true)
	return w
}

// SetCancellable implements the Cancellable capability the durable
// writer masks during its submit-and-wait window.
func (w *AsyncWorker) SetCancellable(v bool) {
	w.cancellable.Store(v)
}

// ScheduleAsync sets has_work and wakes the worker, creating it lazily
// on first call. It refuses to wake the worker from within the
// worker's own iteration (it still records has_work for the next
// check), and refuses to wake a non-cancellable worker: that would be
// a spurious wake in the middle of a durable write.
func (w *AsyncWorker) ScheduleAsync() {
	w.mu.Lock()
	w.hasWork = true
	needStart := !w.started
	w.mu.Unlock()

	if needStart {
		w.start()
	}

	if w.selfFrame.Load() {
		return
	}
	if !w.cancellable.Load() {
		return
	}

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// start is the lazy, one-shot worker creation. Starting a goroutine
// cannot itself fail in Go, so the halt-on-creation-failure policy a
// task-based runtime would need has no counterpart here.
func (w *AsyncWorker) start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.ctx = ctx
	w.stop = cancel
	w.wake = make(chan struct{}, 1)
	w.started = true
	w.mu.Unlock()

	go w.run()
}

// run is the worker loop: clear has_work, let the core process
// deferred work, drive post-promotion, then suspend unless new work
// arrived during this iteration.
func (w *AsyncWorker) run() {
	for {
		w.mu.Lock()
		w.hasWork = false
		w.mu.Unlock()

		w.selfFrame.Store(true)
		w.core.ProcessAsync()
		w.runPostPromotion(w.ctx)
		w.selfFrame.Store(false)
		metrics.AsyncWorkerIterationsTotal.Inc()

		w.mu.Lock()
		more := w.hasWork
		w.mu.Unlock()
		if more {
			continue
		}

		select {
		case <-w.wake:
		case <-w.ctx.Done():
			return
		}
	}
}

// runPostPromotion: when the core currently believes it is leader,
// retry promote_qsync until it succeeds or the worker's context is
// cancelled. A non-transient error is logged and this step is
// abandoned for the iteration; the next wake-up will try again.
//
// Between attempts this cooperatively suspends on an exponentially
// backed-off timer rather than spinning: PromoteQSync reports quorum
// absence synchronously, so without a real wait here the goroutine
// would peg a CPU core busy-polling it for as long as quorum stays
// unavailable.
func (w *AsyncWorker) runPostPromotion(ctx context.Context) {
	snap := w.core.Snapshot()
	if snap.State != types.StateLeader {
		return
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.PromoteQSyncDuration)

	delay := promoteRetryMinDelay
	for {
		err := w.lim.PromoteQSync(snap.Term)
		if err == nil {
			return
		}
		if !errors.Is(err, limbo.ErrWaitingForQuorum) {
			if w.onError != nil {
				w.onError(err)
			}
			return
		}

		wait := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			wait.Stop()
			return
		case <-wait.C:
		}
		if delay < promoteRetryMaxDelay {
			delay *= 2
			if delay > promoteRetryMaxDelay {
				delay = promoteRetryMaxDelay
			}
		}
	}
}

// Stop tears the worker down without joining it: teardown happens
// after the surrounding runtime has already stopped servicing
// callbacks, so there is nothing left for the goroutine to hand back.
func (w *AsyncWorker) Stop() {
	w.mu.Lock()
	stop := w.stop
	w.started = false
	w.mu.Unlock()
	if stop != nil {
		stop()
	}
}
