package faults

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInjector_RateIsApproximatelyConfigured(t *testing.T) {
	rates := []float64{0.05, 0.15, 0.5}
	const trials = 20000

	for _, rate := range rates {
		t.Run(fmt.Sprintf("rate_%.2f", rate), func(t *testing.T) {
			inj := New(rate, WithSeed(42))

			failures := 0
			for i := 0; i < trials; i++ {
				if inj.Maybe("browser initialization") != nil {
					failures++
				}
			}

			observed := float64(failures) / trials
			assert.InDelta(t, rate, observed, 0.02)
		})
	}
}

func TestInjector_NeverFailsWhenDisabled(t *testing.T) {
	for _, inj := range []*Injector{Disabled(), New(0), New(-1), nil} {
		for i := 0; i < 1000; i++ {
			require.NoError(t, inj.Maybe("navigation"))
		}
	}
}

func TestInjector_AlwaysFailsAtRateOne(t *testing.T) {
	inj := New(2, WithSeed(1))
	assert.Equal(t, 1.0, inj.Rate())

	for i := 0; i < 100; i++ {
		require.Error(t, inj.Maybe("search execution"))
	}
}

func TestInjector_FaultNamesStageAndReason(t *testing.T) {
	inj := New(1, WithSeed(7))

	err := inj.Maybe("result extraction")
	require.Error(t, err)

	var fault *NetworkFault
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, "result extraction", fault.Stage)
	assert.Contains(t, Reasons, fault.Reason)
	assert.Contains(t, err.Error(), "result extraction")
	assert.Contains(t, err.Error(), fault.Reason)
	assert.Equal(t, "NetworkFault", fault.FailureType())
}

func TestInjector_SeedIsDeterministic(t *testing.T) {
	a := New(0.5, WithSeed(99))
	b := New(0.5, WithSeed(99))

	for i := 0; i < 200; i++ {
		assert.Equal(t, a.Maybe("stage") == nil, b.Maybe("stage") == nil)
	}
}

func TestInjector_ConcurrentUse(t *testing.T) {
	inj := New(0.5, WithSeed(3))

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				_ = inj.Maybe("navigation")
			}
		}()
	}
	wg.Wait()
}
