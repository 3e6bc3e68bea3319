package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/juris/internal/core/ports/driving"
)

func TestMappingCmd_HasSubcommands(t *testing.T) {
	commands := mappingCmd.Commands()
	commandNames := make([]string, 0, len(commands))
	for _, cmd := range commands {
		commandNames = append(commandNames, cmd.Name())
	}

	assert.Contains(t, commandNames, "show")
	assert.Contains(t, commandNames, "refresh")
}

func TestMappingShowCmd_PrintsStats(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"mapping", "show"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Version:   4f2a")
	assert.Contains(t, out, "Built at:  2026-03-01 09:30:00")
	assert.Contains(t, out, "Documents: 2")
	assert.Contains(t, out, "Chunks:    3")
	assert.Equal(t, 0, testMappingService.refreshed)
}

func TestMappingShowCmd_NotBuilt(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	testMappingService.stats = driving.MappingStats{}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"mapping", "show"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No mapping built yet")
}

func TestMappingRefreshCmd_Rebuilds(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"mapping", "refresh"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Equal(t, 1, testMappingService.refreshed)
	assert.Contains(t, buf.String(), "Mapping rebuilt.")
	assert.Contains(t, buf.String(), "Version:   4f2a")
}

func TestMappingRefreshCmd_JSON(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"mapping", "refresh", "--json"})
	defer func() {
		rootCmd.SetArgs(nil)
		mappingJSON = false
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	var stats driving.MappingStats
	require.NoError(t, json.Unmarshal(buf.Bytes(), &stats))
	assert.Equal(t, "4f2a", stats.Version)
	assert.True(t, stats.Built)
}

func TestMappingRefreshCmd_Error(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	testMappingService.err = errors.New("document store offline")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"mapping", "refresh"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "document store offline")
}

func TestMappingCmd_ErrorsWithoutService(t *testing.T) {
	old := mappingService
	mappingService = nil
	defer func() { mappingService = old }()

	for _, sub := range []string{"show", "refresh"} {
		buf := new(bytes.Buffer)
		rootCmd.SetOut(buf)
		rootCmd.SetErr(buf)
		rootCmd.SetArgs([]string{"mapping", sub})

		err := rootCmd.Execute()

		assert.Error(t, err, sub)
		assert.Contains(t, err.Error(), "not configured", sub)
	}
	rootCmd.SetArgs(nil)
}
