// Package queue defines the render task, its retry policy, dispatch rate
// limiting and the optional per-line-item lease.
package queue

import (
	"time"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/PrintReady/internal/config"
)

// RetryPolicy is exponential backoff that doubles MaxDoublings times and
// then grows linearly, capped at MaxBackoff.
type RetryPolicy struct {
	MaxAttempts  int
	MinBackoff   time.Duration
	MaxBackoff   time.Duration
	MaxDoublings int
}

// PolicyFromConfig reads the retry settings.
func PolicyFromConfig(cfg *config.Config) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  cfg.MaxAttempts,
		MinBackoff:   cfg.MinBackoff,
		MaxBackoff:   cfg.MaxBackoff,
		MaxDoublings: cfg.MaxDoublings,
	}
}

// MaxRetry is the asynq retry count: every attempt after the first.
func (p RetryPolicy) MaxRetry() int {
	if p.MaxAttempts <= 1 {
		return 0
	}
	return p.MaxAttempts - 1
}

// Delay returns the wait before retry n, counting from 0.
func (p RetryPolicy) Delay(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	var d time.Duration
	if n <= p.MaxDoublings {
		d = p.MinBackoff << uint(n)
	} else {
		step := p.MinBackoff << uint(p.MaxDoublings)
		d = step * time.Duration(n-p.MaxDoublings+1)
	}
	if d <= 0 || d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// RetryDelayFunc adapts Delay to asynq.Config.
func (p RetryPolicy) RetryDelayFunc(n int, _ error, _ *asynq.Task) time.Duration {
	return p.Delay(n)
}
