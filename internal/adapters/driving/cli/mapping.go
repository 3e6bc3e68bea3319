package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/juris/internal/core/ports/driving"
)

var mappingJSON bool

var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Manage the parent document mapping",
	Long: `The parent mapping links chunks and foreign parent IDs to the
authoritative documents in the document store. It is rebuilt automatically
when the store changes; these commands inspect or force a rebuild.`,
}

var mappingShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the mapping in use",
	RunE:  runMappingShow,
}

var mappingRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Rebuild the mapping from the document store",
	RunE:  runMappingRefresh,
}

func init() {
	mappingCmd.PersistentFlags().BoolVar(&mappingJSON, "json", false, "output as JSON")
	mappingCmd.AddCommand(mappingShowCmd)
	mappingCmd.AddCommand(mappingRefreshCmd)
	rootCmd.AddCommand(mappingCmd)
}

func runMappingShow(cmd *cobra.Command, _ []string) error {
	if mappingService == nil {
		return errors.New("mapping service not configured")
	}

	return outputMappingStats(cmd, mappingService.Stats())
}

func runMappingRefresh(cmd *cobra.Command, _ []string) error {
	if mappingService == nil {
		return errors.New("mapping service not configured")
	}

	stats, err := mappingService.Refresh(cmd.Context())
	if err != nil {
		return fmt.Errorf("mapping refresh failed: %w", err)
	}

	if !mappingJSON {
		cmd.Println("Mapping rebuilt.")
	}
	return outputMappingStats(cmd, stats)
}

func outputMappingStats(cmd *cobra.Command, stats driving.MappingStats) error {
	if mappingJSON {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal mapping stats: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if !stats.Built {
		cmd.Println("No mapping built yet. Run 'juris mapping refresh' to build one.")
		return nil
	}

	cmd.Println("Parent Mapping")
	cmd.Println("==============")
	cmd.Printf("  Version:   %s\n", stats.Version)
	cmd.Printf("  Built at:  %s\n", stats.BuiltAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Documents: %d\n", stats.Documents)
	cmd.Printf("  Aliases:   %d\n", stats.Aliases)
	cmd.Printf("  Chunks:    %d\n", stats.Chunks)
	cmd.Printf("  Conflicts: %d\n", stats.Conflicts)
	if stats.Rebuilding {
		cmd.Println("  A rebuild is in progress.")
	}
	return nil
}
