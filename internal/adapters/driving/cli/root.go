// Package cli provides the juris command line interface built on cobra.
// Commands talk to the core exclusively through driving ports; the services
// behind those ports are built once the global flags are parsed.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/juris/internal/core/ports/driving"
	"github.com/custodia-labs/juris/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Services used by the commands. Nil services produce a "not configured" error.
var (
	queryService    driving.QueryService
	mappingService  driving.MappingService
	settingsService driving.SettingsService
	scheduler       driving.Scheduler
)

// Global flags.
var (
	verbose   bool
	configDir string
	dataDir   string
)

// annotationNoServices marks commands that run without building services.
const annotationNoServices = "juris/no-services"

// Options carries the global flags to the service initialiser.
type Options struct {
	ConfigDir string
	DataDir   string
	Verbose   bool
}

// Services groups the driving ports the commands use.
type Services struct {
	Query     driving.QueryService
	Mapping   driving.MappingService
	Settings  driving.SettingsService
	Scheduler driving.Scheduler
}

// Initializer builds the services once flags are parsed.
// The returned cleanup function runs after the command finishes.
type Initializer func(ctx context.Context, opts Options) (*Services, func(), error)

var (
	initializer Initializer
	teardown    func()
)

var rootCmd = &cobra.Command{
	Use:   "juris",
	Short: "Hybrid legal retrieval and ranking engine",
	Long: `juris retrieves statute and case law passages for a legal question.

Lexical and dense retrieval are fused with reciprocal rank fusion and
reranked with a cross-encoder under a time budget. Results are expanded to
their verified parent documents and carry a confidence label telling the
composer how to proceed.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupServices,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print pipeline stages to stderr")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.juris)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "corpus data directory (default from config)")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetServices installs ready-made services, bypassing the initialiser.
func SetServices(s *Services) {
	queryService = s.Query
	mappingService = s.Mapping
	settingsService = s.Settings
	scheduler = s.Scheduler
}

// Execute runs the root command. initFn may be nil when services were
// installed with SetServices.
func Execute(ctx context.Context, initFn Initializer) error {
	initializer = initFn
	defer teardownServices()
	return rootCmd.ExecuteContext(ctx)
}

func setupServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if initializer == nil || cmd.Annotations[annotationNoServices] == "true" {
		return nil
	}

	services, done, err := initializer(cmd.Context(), Options{
		ConfigDir: configDir,
		DataDir:   dataDir,
		Verbose:   verbose,
	})
	if err != nil {
		return err
	}
	SetServices(services)
	teardown = done
	return nil
}

func teardownServices() {
	if teardown != nil {
		teardown()
		teardown = nil
	}
}
