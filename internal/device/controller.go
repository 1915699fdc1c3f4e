package device

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// baseController serializes commands through a mutex, so concurrent
// callers see strict ordering, and drives the verify-and-retry loop over
// whatever transport it was built with.
type baseController struct {
	mu      sync.Mutex
	lg      *slog.Logger
	policy  RetryPolicy
	t       transport
	discov  Discoverer
	address string

	connected    bool
	lastOn       TriState
	lastVerified time.Time
}

func newBaseController(lg *slog.Logger, address string, t transport, policy RetryPolicy, discov Discoverer) *baseController {
	return &baseController{lg: lg, address: address, t: t, policy: policy, discov: discov, lastOn: Unknown}
}

// Connect establishes the control channel, falling back to the optional
// discovery collaborator once if the configured address is unreachable.
func (c *baseController) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.t.connect(ctx); err == nil {
		c.connected = true
		return nil
	} else if c.discov == nil {
		c.connected = false
		c.lg.Error("device_connect_failed", "address", c.address, "error", err)
		return ErrDeviceUnreachable
	}
	addr, derr := c.discov.Discover(ctx)
	if derr != nil {
		c.connected = false
		c.lg.Error("device_discovery_failed", "address", c.address, "error", derr)
		return ErrDeviceUnreachable
	}
	c.address = addr
	if err := c.t.connect(ctx); err != nil {
		c.connected = false
		c.lg.Error("device_connect_failed_after_discovery", "address", c.address, "error", err)
		return ErrDeviceUnreachable
	}
	c.connected = true
	c.lg.Info("device_connected_via_discovery", "address", c.address)
	return nil
}

func (c *baseController) TurnOn(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := verifyAndRetry(ctx, c.lg, c.t, c.policy, true)
	c.recordResult(err, true)
	return err
}

func (c *baseController) TurnOff(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := verifyAndRetry(ctx, c.lg, c.t, c.policy, false)
	c.recordResult(err, false)
	return err
}

func (c *baseController) recordResult(err error, want bool) {
	if err == nil {
		if want {
			c.lastOn = On
		} else {
			c.lastOn = Off
		}
		c.lastVerified = time.Now()
		c.connected = true
		return
	}
	c.lastOn = Unknown
}

func (c *baseController) IsOn(ctx context.Context) TriState {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, err := c.t.read(ctx)
	if err != nil {
		c.connected = false
		return Unknown
	}
	c.connected = true
	c.lastOn = state
	c.lastVerified = time.Now()
	return state
}

func (c *baseController) Address() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.address
}

func (c *baseController) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *baseController) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	var lastVerified time.Time
	if !c.lastVerified.IsZero() {
		lastVerified = c.lastVerified
	}
	return Snapshot{
		Reachable:    c.connected,
		On:           c.lastOn,
		LastVerified: lastVerified,
		Address:      c.address,
	}
}
