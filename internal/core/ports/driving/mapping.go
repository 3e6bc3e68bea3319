package driving

import (
	"context"
	"time"
)

// MappingService manages the chunk-to-parent mapping.
type MappingService interface {
	// Refresh rebuilds the mapping from the document store and swaps it in.
	Refresh(ctx context.Context) (MappingStats, error)

	// Stats describes the mapping currently in use.
	Stats() MappingStats
}

// MappingStats summarises a mapping snapshot.
type MappingStats struct {
	Version    string    `json:"version"`
	BuiltAt    time.Time `json:"built_at"`
	Documents  int       `json:"documents"`
	Aliases    int       `json:"aliases"`
	Chunks     int       `json:"chunks"`
	Conflicts  int       `json:"conflicts"`
	Rebuilding bool      `json:"rebuilding"`
	Built      bool      `json:"built"`
}
