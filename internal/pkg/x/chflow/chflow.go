// Package chflow holds context-aware channel helpers.
package chflow

import (
	"context"
	"time"
)

// Receive waits for a value from ch or for ctx to be done. ok is false when
// ctx ended first or ch was closed.
func Receive[T any](ctx context.Context, ch <-chan T) (T, bool) {
	var data T
	select {
	case <-ctx.Done():
		return data, false
	case data, ok := <-ch:
		return data, ok
	}
}

// Wait pauses for d unless ctx ends first. It reports whether the full
// duration elapsed.
func Wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	_, ok := Receive(ctx, timer.C)
	return ok
}
