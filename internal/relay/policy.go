package relay

import (
	"math"
	"time"

	"github.com/samber/lo"
)

const (
	DefaultMaxSubmitRetries    = 3
	DefaultSubmitRetryDelay    = 2 * time.Second
	DefaultMaxSubmitRetryDelay = 30 * time.Second
	DefaultPollInterval        = 2 * time.Second
	DefaultMaxPollAttempts     = 60
)

// DefaultTransientStatusCodes are the statuses worth retrying at submission.
var DefaultTransientStatusCodes = []int{500, 502, 503, 504}

// Policy bundles the retry and polling knobs shared by every job.
type Policy struct {
	MaxSubmitRetries     int
	TransientStatusCodes []int
	SubmitRetryDelay     time.Duration
	// BackoffFactor multiplies the delay after each retry; values below 1
	// keep the delay fixed.
	BackoffFactor       float64
	MaxSubmitRetryDelay time.Duration
	PollInterval        time.Duration
	MaxPollAttempts     int
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{
		MaxSubmitRetries:     DefaultMaxSubmitRetries,
		TransientStatusCodes: append([]int(nil), DefaultTransientStatusCodes...),
		SubmitRetryDelay:     DefaultSubmitRetryDelay,
		BackoffFactor:        2,
		MaxSubmitRetryDelay:  DefaultMaxSubmitRetryDelay,
		PollInterval:         DefaultPollInterval,
		MaxPollAttempts:      DefaultMaxPollAttempts,
	}
}

// IsTransient reports whether status should be retried at submission.
func (p Policy) IsTransient(status int) bool {
	return lo.Contains(p.TransientStatusCodes, status)
}

// RetryDelay returns the wait before retry number retry (0-based). The delay
// never exceeds MaxSubmitRetryDelay, or DefaultMaxSubmitRetryDelay when unset.
func (p Policy) RetryDelay(retry int) time.Duration {
	if p.SubmitRetryDelay <= 0 {
		return 0
	}
	limit := p.MaxSubmitRetryDelay
	if limit <= 0 {
		limit = max(DefaultMaxSubmitRetryDelay, p.SubmitRetryDelay)
	}
	factor := p.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	delay := float64(p.SubmitRetryDelay) * math.Pow(factor, float64(max(retry, 0)))
	if math.IsInf(delay, 0) || math.IsNaN(delay) || delay >= float64(limit) {
		return limit
	}
	return time.Duration(delay)
}

func (p Policy) normalized() Policy {
	if p.MaxSubmitRetries < 0 {
		p.MaxSubmitRetries = 0
	}
	if p.TransientStatusCodes == nil {
		p.TransientStatusCodes = append([]int(nil), DefaultTransientStatusCodes...)
	}
	if p.SubmitRetryDelay < 0 {
		p.SubmitRetryDelay = 0
	}
	if p.MaxSubmitRetryDelay <= 0 {
		p.MaxSubmitRetryDelay = max(DefaultMaxSubmitRetryDelay, p.SubmitRetryDelay)
	}
	if p.PollInterval < 0 {
		p.PollInterval = 0
	}
	if p.MaxPollAttempts <= 0 {
		p.MaxPollAttempts = DefaultMaxPollAttempts
	}
	return p
}
