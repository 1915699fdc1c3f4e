package device

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// transport is the raw, brand-specific actuation the retry/backoff wrapper
// drives. A concrete Controller (MQTT, fake, ...) supplies one.
type transport interface {
	connect(ctx context.Context) error
	send(ctx context.Context, on bool) error
	read(ctx context.Context) (TriState, error)
}

// verifyAndRetry issues a state-changing command and re-issues it, with
// exponential backoff, until a verify read agrees or the retry budget is
// exhausted.
func verifyAndRetry(ctx context.Context, lg *slog.Logger, t transport, policy RetryPolicy, want bool) error {
	corr := uuid.New()
	unreachable := true
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := t.send(ctx, want); err != nil {
			lastErr = err
			lg.Warn("device_command_send_failed", "correlation_id", corr, "attempt", attempt, "want_on", want, "error", err)
		} else {
			state, rerr := t.read(ctx)
			if rerr != nil {
				lastErr = rerr
				lg.Warn("device_verify_read_failed", "correlation_id", corr, "attempt", attempt, "error", rerr)
			} else if (state == On) == want {
				lg.Info("device_command_verified", "correlation_id", corr, "attempt", attempt, "want_on", want)
				return nil
			} else {
				unreachable = false
				lastErr = ErrStateMismatch
				lg.Warn("device_state_mismatch", "correlation_id", corr, "attempt", attempt, "want_on", want, "observed", state)
			}
		}
		if attempt == policy.MaxAttempts {
			break
		}
		if err := sleep(ctx, policy.backoffFor(attempt)); err != nil {
			return err
		}
	}
	if lastErr == nil {
		lastErr = ErrDeviceUnreachable
	}
	lg.Error("device_command_failed_after_retries", "correlation_id", corr, "want_on", want, "error", lastErr)
	if unreachable {
		return fmt.Errorf("%w: %v", ErrDeviceUnreachable, lastErr)
	}
	return fmt.Errorf("%w: %v", ErrStateMismatch, lastErr)
}
