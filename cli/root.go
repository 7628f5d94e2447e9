// Package cli implements the vehicle-tracker command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"vehicle-tracker/config"
	"vehicle-tracker/utils"
)

// Version is overridden at build time with -ldflags.
var Version = "v0.3.0"

// app carries what every command needs once flags are parsed.
type app struct {
	cfg      *config.Config
	logger   *utils.Logger
	registry *config.Registry

	storePath string
	makesFile string
	verbose   bool

	// stderr override for tests; nil means the process streams
	logOut io.Writer
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "vehicle-tracker",
		Short: "Collect manufacturer trim prices into a deduplicated vehicle store",
		Long: `vehicle-tracker collects {year, make, model, trim, msrp} listings from
manufacturer sites, cleans them and appends unique trims to a CSV store.

A crawl covers one manufacturer (or manufacturer group). With --purge the
rows previously stored for that manufacturer are removed first, so the
store reflects the latest crawl.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.storePath, "store", "", "vehicle store CSV (default $STORE_PATH or ./vehicles.csv)")
	root.PersistentFlags().StringVar(&a.makesFile, "makes", "", "manufacturer registry YAML (default $MAKES_FILE or built-in)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newCrawlCmd(a),
		newMakesCmd(a),
		newShowCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	a.cfg = config.Load()
	if a.storePath != "" {
		a.cfg.StorePath = a.storePath
	}
	if a.makesFile != "" {
		a.cfg.MakesFile = a.makesFile
	}

	if a.logOut != nil {
		a.logger = utils.NewLoggerTo(a.logOut, a.logOut)
	} else {
		a.logger = utils.NewLogger()
	}
	a.logger.SetDebug(a.verbose || a.cfg.LogLevel == "debug")

	reg, err := config.LoadRegistry(a.cfg.MakesFile)
	if err != nil {
		return err
	}
	a.registry = reg
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vehicle-tracker %s\n", Version)
		},
	}
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
