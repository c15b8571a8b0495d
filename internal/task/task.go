// Package task manages the lifecycle of long-running goroutines (tasks).
//
// A Manager starts named loop tasks, signals them to stop through context
// cancellation, and waits for their termination. Task bodies run with panic
// recovery so a misbehaving handler cannot take down the process.
package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/hirossan4049/mpy-sdk/logger"
)

// Func is a single iteration of a loop task. It returns true to keep the
// task running, false to terminate it.
type Func func() bool

// ErrStopped is returned by Start when the manager has already been stopped.
var ErrStopped = errors.New("task: manager already stopped")

// Manager starts, stops, and waits for a group of loop tasks.
//
// Stop cancels the shared context, signalling every running task; Wait blocks
// until all of them have terminated and then re-arms the manager so it can be
// reused for a subsequent connect cycle.
type Manager struct {
	pctx   context.Context
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger logger.Logger
	count  atomic.Int32
	mu     sync.RWMutex // protects ctx and cancel across Wait re-arm
}

// NewManager creates a Manager whose tasks are children of ctx.
func NewManager(ctx context.Context, l logger.Logger) *Manager {
	if l == nil {
		l = logger.GetLogger()
	}

	mgr := &Manager{pctx: ctx, logger: l}
	mgr.ctx, mgr.cancel = context.WithCancel(ctx)

	return mgr
}

// Context returns the context shared by all tasks of this manager.
//
// Task bodies that block on channels should select on it.
func (mgr *Manager) Context() context.Context {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()

	return mgr.ctx
}

// Start launches a named loop task.
//
// fn is invoked repeatedly until it returns false or the manager is stopped.
func (mgr *Manager) Start(name string, fn Func) error {
	ctx := mgr.Context()

	select {
	case <-ctx.Done():
		return ErrStopped
	default:
	}

	mgr.logger.Debug("start task", "name", name)
	mgr.wg.Add(1)
	mgr.count.Add(1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				mgr.logger.Error("panic in task", "name", name, "panic", r)
			}

			mgr.count.Add(-1)
			mgr.wg.Done()
			mgr.logger.Debug("task terminated", "name", name, "task_count", mgr.Count())
		}()

		for {
			select {
			case <-mgr.Context().Done():
				return
			default:
				if !fn() {
					return
				}
			}
		}
	}()

	return nil
}

// Stop signals all running tasks to terminate.
func (mgr *Manager) Stop() {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	if mgr.cancel != nil {
		mgr.cancel()
	}
}

// Wait blocks until all tasks have terminated, then re-arms the manager.
func (mgr *Manager) Wait() {
	mgr.wg.Wait()

	mgr.mu.Lock()
	mgr.ctx, mgr.cancel = context.WithCancel(mgr.pctx)
	mgr.mu.Unlock()
}

// Count returns the number of currently running tasks.
func (mgr *Manager) Count() int {
	return int(mgr.count.Load())
}
