package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for juris resources.
	uriScheme = "juris://"

	mappingURI = uriScheme + "mapping"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         mappingURI,
		Name:        "mapping",
		Description: "State of the chunk to parent document mapping",
		MIMEType:    "application/json",
	}, s.handleMappingResource)
}

// handleMappingResource returns the mapping statistics as JSON.
func (s *Server) handleMappingResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Mapping == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	data, err := json.MarshalIndent(s.ports.Mapping.Stats(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling mapping stats: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
