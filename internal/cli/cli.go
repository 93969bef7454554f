package cli

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/crateapi/pkg/buildinfo"
	"github.com/matzehuels/crateapi/pkg/cache"
	"github.com/matzehuels/crateapi/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "crateapi"

	// envRedisURL selects the redis cache backend when set.
	envRedisURL = "CRATEAPI_REDIS_URL"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Out receives command results (documents, diffs, raw dumps). Status
	// lines go to stderr so results can be piped.
	Out io.Writer

	// Interactive enables the package picker and spinners.
	Interactive bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger:      newLogger(w, level),
		Out:         os.Stdout,
		Interactive: isTerminal(os.Stdin) && isTerminal(os.Stderr),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "crateapi extracts and diffs the public API of Rust crates",
		Long: `crateapi builds the public API graph of a Rust library from rustdoc JSON,
annotates it with the version requirements of its public dependencies, and
reports changes between two versions that may break downstream users.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.dumpRawCommand())
	root.AddCommand(c.apiCommand())
	root.AddCommand(c.diffCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	store, err := openCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(store, c.Logger), nil
}

// openCache picks the cache backend: none with --no-cache, redis when
// CRATEAPI_REDIS_URL is set, the file cache otherwise.
func openCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	return cache.Open(ctx, cache.Config{
		Disabled: noCache,
		RedisURL: os.Getenv(envRedisURL),
		Prefix:   appName + ":",
	})
}
