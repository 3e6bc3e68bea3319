package driving

import "context"

// Scheduler runs background maintenance such as the parent mapping heartbeat.
type Scheduler interface {
	// Start begins running scheduled work.
	// Blocks until context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops all running work.
	Stop() error
}
