package task

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirossan4049/mpy-sdk/logger"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func TestManager_StartAndStop(t *testing.T) {
	mgr := NewManager(context.Background(), logger.GetLogger())

	var iterations atomic.Int64
	err := mgr.Start("spinner", func() bool {
		iterations.Add(1)
		time.Sleep(time.Millisecond)

		return true
	})
	require.NoError(t, err)

	waitFor(t, func() bool { return iterations.Load() > 2 })
	assert.Equal(t, 1, mgr.Count())

	mgr.Stop()
	mgr.Wait()
	assert.Equal(t, 0, mgr.Count())
}

func TestManager_TaskSelfTerminates(t *testing.T) {
	mgr := NewManager(context.Background(), logger.GetLogger())

	require.NoError(t, mgr.Start("oneshot", func() bool { return false }))

	waitFor(t, func() bool { return mgr.Count() == 0 })
}

func TestManager_StartAfterStop(t *testing.T) {
	mgr := NewManager(context.Background(), logger.GetLogger())
	mgr.Stop()

	err := mgr.Start("late", func() bool { return true })
	require.ErrorIs(t, err, ErrStopped)
}

func TestManager_PanicRecovered(t *testing.T) {
	mgr := NewManager(context.Background(), logger.GetLogger())

	require.NoError(t, mgr.Start("panicky", func() bool {
		panic("boom")
	}))

	// The panic must not crash the process and the task must be reaped.
	waitFor(t, func() bool { return mgr.Count() == 0 })
	mgr.Stop()
	mgr.Wait()
}

func TestManager_WaitRearms(t *testing.T) {
	mgr := NewManager(context.Background(), logger.GetLogger())

	require.NoError(t, mgr.Start("first", func() bool { return true }))
	mgr.Stop()
	mgr.Wait()

	// After Wait the manager accepts new tasks again.
	var ran atomic.Bool
	require.NoError(t, mgr.Start("second", func() bool {
		ran.Store(true)

		return false
	}))

	waitFor(t, func() bool { return ran.Load() })
	mgr.Stop()
	mgr.Wait()
}
