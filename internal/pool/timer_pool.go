// Package pool provides pooled time.Timer instances for deadline handling on
// the command hot path, avoiding a timer allocation per executed command.
package pool

import (
	"sync"
	"time"
)

var timers sync.Pool

// GetTimer returns a timer from the pool armed with duration d.
//
// The timer must be returned with PutTimer when no longer needed.
func GetTimer(d time.Duration) *time.Timer {
	v := timers.Get()
	if v == nil {
		return time.NewTimer(d)
	}

	t := v.(*time.Timer) //nolint:forcetypeassert // pool only ever holds *time.Timer
	if t.Reset(d) {
		// Timer was still active; drain a possibly buffered tick.
		select {
		case <-t.C:
		default:
		}
	}

	return t
}

// PutTimer stops t and returns it to the pool.
//
// t must not be used after this call.
func PutTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	timers.Put(t)
}
