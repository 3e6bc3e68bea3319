// Package mcp provides an MCP (Model Context Protocol) server adapter for juris.
// It lets AI assistants run legal queries and read the parent mapping state,
// receiving the confidence directive that governs how they may answer.
package mcp

import "errors"

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")
