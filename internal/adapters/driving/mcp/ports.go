package mcp

import (
	"github.com/custodia-labs/juris/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the MCP server.
type Ports struct {
	// Query runs legal queries.
	Query driving.QueryService

	// Mapping exposes the parent mapping. Optional.
	Mapping driving.MappingService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	return nil
}
