package activities

import (
	"context"
	"time"

	"go.temporal.io/sdk/activity"
)

// defaultHeartbeatInterval applies when the activity has no heartbeat timeout.
const defaultHeartbeatInterval = 10 * time.Second

// withHeartbeat runs fn, recording detail as a heartbeat when it starts and
// then periodically until it returns.
func withHeartbeat(ctx context.Context, detail string, fn func() error) error {
	beat := func() { activity.RecordHeartbeat(ctx, detail) }
	beat()
	stop := keepAlive(ctx, heartbeatInterval(ctx), beat)
	defer stop()
	return fn()
}

// heartbeatInterval stays well inside the activity's heartbeat timeout.
func heartbeatInterval(ctx context.Context) time.Duration {
	if timeout := activity.GetInfo(ctx).HeartbeatTimeout; timeout > 0 {
		return timeout / 3
	}
	return defaultHeartbeatInterval
}

// keepAlive calls beat every interval until stop is called or ctx ends.
// stop waits for the ticking goroutine to exit.
func keepAlive(ctx context.Context, interval time.Duration, beat func()) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				beat()
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
