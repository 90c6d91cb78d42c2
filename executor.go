package sheetorm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ProcessLocker is the default Locker: an in-process exclusive lock with a
// bounded wait. It serializes writers within one process; hosts that share
// the grid across processes inject their own Locker.
type ProcessLocker struct {
	sem chan struct{}
}

func NewProcessLocker() *ProcessLocker {
	return &ProcessLocker{sem: make(chan struct{}, 1)}
}

// Acquire blocks until the lock is free, the timeout elapses or the context
// is cancelled. Only a nil return means the lock is held.
func (l *ProcessLocker) Acquire(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case l.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrLockTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *ProcessLocker) Release() {
	select {
	case <-l.sem:
	default:
	}
}

// withWriteLock is the sole path through which physical mutation happens.
// It acquires the write lock with a bounded wait, runs the action, flushes
// the sheet so mutations are durable before the lock is given up, and
// releases on every exit path. Each logical operation routes through here
// exactly once; a batch performs all its mutations inside a single action.
func (c *Client) withWriteLock(ctx context.Context, action func(context.Context) error) error {
	if err := c.locker.Acquire(ctx, c.lockWait); err != nil {
		if errors.Is(err, ErrLockTimeout) {
			c.stats.recordLockTimeout()
		}
		return err
	}
	defer c.locker.Release()

	if err := runAction(ctx, action); err != nil {
		return err
	}
	return c.sheet.Flush(ctx)
}

// runAction converts a panicking action into an error result. Host cell
// APIs raise on failed intermediate steps; that must never escape past the
// deferred lock release.
func runAction(ctx context.Context, action func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sheetorm: write action failed: %v", r)
		}
	}()
	return action(ctx)
}
