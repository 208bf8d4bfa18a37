package cache

import (
	"context"
	"errors"
	"net"
	"time"
)

// TransientError marks a backend failure that may succeed when repeated,
// such as a Redis timeout during a failover.
type TransientError struct{ Err error }

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError. nil stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err or any error it wraps is transient.
func IsTransient(err error) bool {
	return errors.As(err, new(*TransientError))
}

// Backoff retries transient failures with a doubling delay.
type Backoff struct {
	Attempts int
	Delay    time.Duration
}

// defaultBackoff is used by the remote backends. Tests shorten it.
var defaultBackoff = Backoff{Attempts: 3, Delay: 100 * time.Millisecond}

// Do calls fn until it succeeds, fails with a non-transient error, or the
// attempts are used up. The last error is returned; a cancelled ctx
// interrupts the wait between attempts.
func (b Backoff) Do(ctx context.Context, fn func() error) error {
	delay := b.Delay
	attempts := max(b.Attempts, 1)
	var err error
	for i := range attempts {
		if err = fn(); err == nil || !IsTransient(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay *= 2
	}
	return err
}

// networkTransient marks network timeouts as transient. Everything else,
// including redis protocol errors, fails immediately.
func networkTransient(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Transient(err)
	}
	return err
}
