package match

import (
	"context"
	"errors"

	"github.com/justsurfingit/job-tracker/internal/config"
	"github.com/justsurfingit/job-tracker/internal/logger"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Breaker stops calling the model after repeated failures so scoring
// requests fall back immediately instead of waiting on a failing provider.
type Breaker struct {
	cb *gobreaker.CircuitBreaker[string]
}

// NewBreaker returns nil when the breaker is disabled; a nil *Breaker runs
// calls directly.
func NewBreaker(cfg config.BreakerConfig, log *zap.Logger) *Breaker {
	if !cfg.Enabled {
		return nil
	}
	log = logger.OrNop(log)

	settings := gobreaker.Settings{
		Name:        "match-llm",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailureThreshold
		},
		// A caller abandoning its own request says nothing about the provider.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &Breaker{cb: gobreaker.NewCircuitBreaker[string](settings)}
}

func (b *Breaker) Execute(fn func() (string, error)) (string, error) {
	if b == nil || b.cb == nil {
		return fn()
	}
	return b.cb.Execute(fn)
}

// State reports "disabled" for a nil breaker.
func (b *Breaker) State() string {
	if b == nil || b.cb == nil {
		return "disabled"
	}
	return b.cb.State().String()
}
