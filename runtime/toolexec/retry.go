package toolexec

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net"
	"time"
)

// recoverable reports whether a failed attempt may be retried. Timeouts are
// always retryable; plain errors only when their classification marks the
// fault as transient.
func recoverable(res Result) bool {
	if res.Status == StatusTimeout {
		return true
	}
	if res.Status != StatusError || res.Error == nil {
		return false
	}
	switch res.Error.Type {
	case ErrTypeConnection, ErrTypeTimeout, ErrTypeTemporary:
		return true
	default:
		return false
	}
}

// classify maps a tool failure to its wire shape. Classified ToolErrors keep
// their type; network faults and deadline errors are classified so the retry
// policy can recognize them.
func classify(err error) *ErrorInfo {
	info := &ErrorInfo{Reason: ReasonToolError, Message: err.Error()}
	if t := errorType(err); t != "" {
		info.Type = t
		return info
	}
	if errors.Is(err, context.DeadlineExceeded) {
		info.Type = ErrTypeTimeout
		return info
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			info.Type = ErrTypeTimeout
		} else {
			info.Type = ErrTypeConnection
		}
	}
	return info
}

// backoffDelay returns the retry delay before the given attempt is retried.
// The delay is deterministic: a stable hash of (name, attempt) places it
// uniformly in [minMS, maxMS) so replayed runs reproduce identical timing.
func backoffDelay(name string, attempt int, minMS, maxMS int64) time.Duration {
	span := maxMS - minMS
	if span <= 0 {
		return time.Duration(minMS) * time.Millisecond
	}
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%d", name, attempt)
	jitter := int64(h.Sum64() % uint64(span))
	return time.Duration(minMS+jitter) * time.Millisecond
}

// sleepInterruptible waits for d in slices of at most 10ms, checking for
// cancellation between slices and inside each one. It returns the context
// error when cancelled mid-wait.
func sleepInterruptible(ctx context.Context, d time.Duration) error {
	const slice = 10 * time.Millisecond
	deadline := time.Now().Add(d)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}
		if remaining > slice {
			remaining = slice
		}
		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
