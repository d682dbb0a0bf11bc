// Package faults injects simulated network failures ahead of remote calls so
// retry policies are exercised outside of real outages.
package faults

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/helixir/integrations-worker/internal/domain"
	"github.com/helixir/integrations-worker/internal/observability"
)

// DefaultRate is the failure probability applied when none is configured.
const DefaultRate = 0.15

// Reasons lists the network failure causes reported by injected faults.
var Reasons = []string{"ECONNRESET", "ETIMEDOUT", "ENOTFOUND", "ECONNREFUSED"}

// NetworkFault is a simulated connection failure.
type NetworkFault struct {
	Stage  string
	Reason string
}

// Error implements the error interface.
func (f *NetworkFault) Error() string {
	return fmt.Sprintf("network failure during %s: %s", f.Stage, f.Reason)
}

// FailureType returns the application failure type name.
func (f *NetworkFault) FailureType() string {
	return domain.FailureNetworkFault
}

// Injector raises NetworkFault errors with a fixed probability.
// It is safe for concurrent use.
type Injector struct {
	rate    float64
	enabled bool
	metrics *observability.Metrics

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures an Injector.
type Option func(*Injector)

// WithSeed makes the injector deterministic.
func WithSeed(seed uint64) Option {
	return func(i *Injector) {
		i.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithMetrics counts injected faults.
func WithMetrics(m *observability.Metrics) Option {
	return func(i *Injector) {
		i.metrics = m
	}
}

// New creates an injector failing with probability rate. Rates outside
// [0, 1] are clamped.
func New(rate float64, opts ...Option) *Injector {
	switch {
	case rate < 0:
		rate = 0
	case rate > 1:
		rate = 1
	}
	i := &Injector{
		rate:    rate,
		enabled: rate > 0,
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Disabled returns an injector that never fails.
func Disabled() *Injector {
	return New(0)
}

// Rate returns the configured failure probability.
func (i *Injector) Rate() float64 {
	if i == nil {
		return 0
	}
	return i.rate
}

// Maybe returns a *NetworkFault naming stage with the configured probability
// and nil otherwise. A nil injector never fails.
func (i *Injector) Maybe(stage string) error {
	if i == nil || !i.enabled {
		return nil
	}

	i.mu.Lock()
	roll := i.rng.Float64()
	reason := Reasons[i.rng.IntN(len(Reasons))]
	i.mu.Unlock()

	if roll >= i.rate {
		return nil
	}
	i.metrics.RecordFaultInjected(stage)
	return &NetworkFault{Stage: stage, Reason: reason}
}
