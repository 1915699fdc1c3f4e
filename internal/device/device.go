// Package device implements the narrow device-control contract the
// scheduler drives: Connect/TurnOn/TurnOff/IsOn plus the reliability
// behaviour (verify-and-retry with backoff) required of every
// implementation.
package device

import (
	"context"
	"errors"
	"time"
)

// TriState models a boolean the device may be unable to report.
type TriState int

const (
	Unknown TriState = iota
	On
	Off
)

// Snapshot is the device's last observed state.
type Snapshot struct {
	Reachable    bool
	On           TriState
	LastVerified time.Time
	Address      string
}

// ErrDeviceUnreachable is returned when Connect or a verify read fails
// after the retry budget is exhausted.
var ErrDeviceUnreachable = errors.New("device: unreachable")

// ErrStateMismatch is returned when a command verifies as the opposite of
// what was requested, after the retry budget is exhausted.
var ErrStateMismatch = errors.New("device: state mismatch after retries")

// Discoverer is the optional LAN-discovery collaborator. The discovery
// mechanism itself (mDNS/SSDP broadcast, vendor pairing) is out of scope;
// only the seam is defined here.
type Discoverer interface {
	Discover(ctx context.Context) (address string, err error)
}

// Controller is the contract the scheduler drives. Every implementation
// must serialize commands so concurrent callers see strict ordering.
type Controller interface {
	Connect(ctx context.Context) error
	TurnOn(ctx context.Context) error
	TurnOff(ctx context.Context) error
	IsOn(ctx context.Context) TriState
	Address() string
	Connected() bool
	Snapshot() Snapshot
}

// RetryPolicy configures the verify-and-retry behaviour.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy: 3 attempts, 250ms initial backoff doubling, capped
// at 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 250 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
	}
}

// backoffFor returns the delay before retry attempt n (1-based: the delay
// taken after attempt n fails, before attempt n+1).
func (p RetryPolicy) backoffFor(attempt int) time.Duration {
	d := p.InitialBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d > p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
