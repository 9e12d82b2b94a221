package service

import (
	"context"
	"math/rand/v2"
	"time"
)

// RandomPacer sleeps for a uniformly random duration within a range.
type RandomPacer struct{}

// NewRandomPacer creates a pacer backed by math/rand/v2.
func NewRandomPacer() *RandomPacer {
	return &RandomPacer{}
}

// Pause implements ports.Pacer.
func (p *RandomPacer) Pause(ctx context.Context, min, max time.Duration) error {
	d := Jitter(min, max)
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Jitter returns a random duration in [min, max].
func Jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + rand.N(max-min+1)
}
