package ports

import (
	"context"
	"time"
)

// Pacer applies randomized throttling pauses.
type Pacer interface {
	// Pause sleeps for a random duration in [min, max], returning early with
	// ctx.Err() when ctx is done.
	Pause(ctx context.Context, min, max time.Duration) error
}
