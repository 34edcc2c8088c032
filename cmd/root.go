// =============================================================================
// Speakboard - Root Command
// =============================================================================
//
// The root command owns the global flags and loads configuration and logging
// before any subcommand runs.
//
// COBRA CLI STRUCTURE:
//   rootCmd (speakboard)
//   ├── importCmd  (speakboard import)
//   ├── inspectCmd (speakboard inspect)
//   ├── foldersCmd (speakboard folders)
//   ├── serveCmd   (speakboard serve)
//   └── versionCmd (speakboard version)
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/speakboard/internal/config"
	"github.com/ginjaninja78/speakboard/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile is the --config flag. Empty means CONFIG_PATH or ./config.yaml.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// cfg and logger are set by the root command's PersistentPreRunE.
var (
	cfg    *config.Config
	logger *slog.Logger
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "speakboard",
	Short: "Speakboard - bulk icon import for AAC picture boards",
	Long: `Speakboard manages the folder and icon library of an AAC picture board.

Its main job is the bulk spreadsheet import: an .xlsx workbook (or a .csv
file) listing icons with their folder and image link is parsed, duplicates
are skipped, images are downloaded and the new icons are appended to their
folders.

Example Usage:
  speakboard import --file board.xlsx   # Import one workbook
  speakboard import                     # Import everything in the input directory
  speakboard inspect --file board.xlsx  # Show what a workbook contains
  speakboard serve                      # Start the HTTP import API`,
	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded

		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		logger = logging.Setup(level, cfg.Log.Format)
		return nil
	},

	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context, which aborts a running import.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"Path to the configuration file (default: $CONFIG_PATH or ./config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}
