package consensus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/raftline/internal/limbo"
	"github.com/cuemby/raftline/internal/raftcore"
	"github.com/cuemby/raftline/internal/types"
)

func TestScheduleAsyncIgnoresWakeWhileNotCancellable(t *testing.T) {
	core := raftcore.New("self", raftcore.VTable{})
	lim := limbo.New(nil)
	w := NewAsyncWorker(core, lim, nil)

	w.SetCancellable(false)
	w.ScheduleAsync() // must not panic or block; worker starts but the wake is swallowed

	w.SetCancellable(true)
	w.Stop()
}

func TestRunPostPromotionClearsLimboOnceLeader(t *testing.T) {
	lim := limbo.New(nil)
	limbo.Enqueue(lim, limbo.Transaction{Term: 1, ID: 1})

	var w *AsyncWorker
	core := raftcore.New("self", raftcore.VTable{
		ScheduleAsync: func() { w.ScheduleAsync() },
	})
	w = NewAsyncWorker(core, lim, func(err error) { t.Errorf("promote_qsync: %v", err) })

	core.SetCfgIsEnabled(true)
	require.NoError(t, core.Advance(3, types.StateLeader, "self"))

	require.Eventually(t, func() bool {
		return lim.PromoteGreatestTerm() == 3
	}, time.Second, time.Millisecond, "expected the async worker to promote_qsync after becoming leader")

	w.Stop()
}
