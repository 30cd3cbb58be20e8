package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryDelayBackoff(t *testing.T) {
	p := Policy{SubmitRetryDelay: time.Second, BackoffFactor: 2, MaxSubmitRetryDelay: 5 * time.Second}

	assert.Equal(t, time.Second, p.RetryDelay(0))
	assert.Equal(t, 2*time.Second, p.RetryDelay(1))
	assert.Equal(t, 4*time.Second, p.RetryDelay(2))
	assert.Equal(t, 5*time.Second, p.RetryDelay(3))
}

func TestRetryDelayStaysBoundedWithoutCap(t *testing.T) {
	p := Policy{SubmitRetryDelay: 2 * time.Second, BackoffFactor: 2}

	for _, retry := range []int{10, 40, 64, 2000} {
		got := p.RetryDelay(retry)
		assert.Equal(t, DefaultMaxSubmitRetryDelay, got, "retry %d", retry)
	}
}

func TestRetryDelayFixedWhenFactorBelowOne(t *testing.T) {
	p := Policy{SubmitRetryDelay: time.Second, BackoffFactor: 0.5}
	assert.Equal(t, time.Second, p.RetryDelay(7))
	assert.Zero(t, Policy{}.RetryDelay(3))
}

func TestNormalizedFillsRetryCap(t *testing.T) {
	p := Policy{SubmitRetryDelay: time.Second, BackoffFactor: 2}.normalized()
	assert.Equal(t, DefaultMaxSubmitRetryDelay, p.MaxSubmitRetryDelay)

	long := Policy{SubmitRetryDelay: time.Minute}.normalized()
	assert.Equal(t, time.Minute, long.MaxSubmitRetryDelay)
	assert.Equal(t, time.Minute, long.RetryDelay(5))
}
