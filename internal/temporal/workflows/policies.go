// Package workflows defines the Temporal workflows of the integrations
// worker. Workflows only orchestrate: every side effect runs in an activity
// whose retry policy is declared here.
package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// stepPolicy is the retry configuration of one workflow step.
type stepPolicy struct {
	timeout     time.Duration
	heartbeat   time.Duration
	initial     time.Duration
	maximum     time.Duration
	backoff     float64
	maxAttempts int32
}

// Per-step policies of SearchWithRetryWorkflow. Extraction gets the longest
// backoff because blocked pages need time before a retry can succeed.
var (
	initPolicy     = stepPolicy{timeout: time.Minute, initial: 2 * time.Second, maximum: 10 * time.Second, backoff: 1.5, maxAttempts: 5}
	navigatePolicy = stepPolicy{timeout: 30 * time.Second, initial: time.Second, maximum: 5 * time.Second, backoff: 1.5, maxAttempts: 8}
	searchPolicy   = stepPolicy{timeout: time.Minute, initial: 2 * time.Second, maximum: 15 * time.Second, backoff: 1.8, maxAttempts: 10}
	extractPolicy  = stepPolicy{timeout: 2 * time.Minute, initial: 3 * time.Second, maximum: 20 * time.Second, backoff: 2.0, maxAttempts: 10}
	cleanupPolicy  = stepPolicy{timeout: 10 * time.Second, initial: time.Second, maximum: 3 * time.Second, backoff: 1.2, maxAttempts: 3}
	formatPolicy   = stepPolicy{timeout: 5 * time.Second, initial: time.Second, maximum: 2 * time.Second, backoff: 1.0, maxAttempts: 2}
)

// Task policies.
var (
	// taskPolicy is the default of single-activity tasks.
	taskPolicy = stepPolicy{timeout: 2 * time.Minute, initial: time.Second, maximum: 10 * time.Second, backoff: 2, maxAttempts: 3}

	// conversionPolicy allows for large documents.
	conversionPolicy = stepPolicy{timeout: 10 * time.Minute, heartbeat: time.Minute, initial: time.Second, maximum: 10 * time.Second, backoff: 2, maxAttempts: 3}

	// summarizePolicy covers fetching and summarizing one article.
	summarizePolicy = stepPolicy{timeout: 2 * time.Minute, initial: 5 * time.Second, maximum: 10 * time.Second, backoff: 2, maxAttempts: 3}
)

// retryPolicy converts p into a Temporal retry policy.
func (p stepPolicy) retryPolicy() *temporal.RetryPolicy {
	return &temporal.RetryPolicy{
		InitialInterval:    p.initial,
		BackoffCoefficient: p.backoff,
		MaximumInterval:    p.maximum,
		MaximumAttempts:    p.maxAttempts,
	}
}

// with returns ctx carrying activity options for p.
func (p stepPolicy) with(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: p.timeout,
		HeartbeatTimeout:    p.heartbeat,
		RetryPolicy:         p.retryPolicy(),
	})
}
