// Package cmd is the cobra command tree: the outer shell facade over
// the core packages, one subcommand group per entry of spec.md §6's
// command surface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opaquefs/freedom/internal/config"
	"github.com/opaquefs/freedom/internal/env"
	"github.com/opaquefs/freedom/internal/output"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	jsonFlag        bool
	verboseFlag     bool
	quietFlag       bool
	affirmativeFlag bool
	rootFlag        string
	configDirFlag   string
)

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	cmd := newRootCmd()
	addPagesCommands(cmd)
	addMDCommands(cmd)
	addKeysCommands(cmd)
	addHeadersCommands(cmd)
	addPDECommands(cmd)
	addStatusCommand(cmd)
	addConfigCommands(cmd)
	return cmd
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "freedom",
		Short:         "Plausibly-deniable storage environment manager",
		Long:          "freedom builds and operates a plausibly-deniable storage environment over sparse backing files, loop devices, an MD RAID-0 array, and detached-header LUKS volumes.",
		Version:       fmt.Sprintf("freedom v%s", Version),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verboseFlag && quietFlag {
				return fmt.Errorf("--verbose and --quiet are mutually exclusive")
			}
			if jsonFlag {
				quietFlag = true
			}
			output.SetFlags(jsonFlag, quietFlag, verboseFlag)
			config.SetConfigDir(configDirFlag)
			return nil
		},
	}

	rootCmd.SetVersionTemplate("{{.Version}}\n")

	pflags := rootCmd.PersistentFlags()
	pflags.BoolVarP(&jsonFlag, "json", "j", false, "Output as JSON")
	pflags.BoolVarP(&verboseFlag, "verbose", "v", false, "Extra detail to stderr")
	pflags.BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output")
	pflags.BoolVar(&affirmativeFlag, "affirmative", false, "Confirm a destructive operation")
	pflags.StringVar(&rootFlag, "root", "", "Override the backing-page root directory (default: config root)")
	pflags.StringVar(&configDirFlag, "config-dir", "", "Override config directory (default: ~/.freedom)")

	if v := os.Getenv("FREEDOM_HOME"); v != "" && configDirFlag == "" {
		configDirFlag = v
	}
	if os.Getenv("FREEDOM_JSON") == "1" {
		jsonFlag = true
	}

	return rootCmd
}

// loadEnvironment loads the configuration (honoring --root) and wires a
// fresh Environment over it.
func loadEnvironment() (*env.Environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if rootFlag != "" {
		cfg.Root = rootFlag
	}
	return env.New(cfg), nil
}

// Execute runs the root command and returns any error it produced. The
// outer main package maps the error to a process exit code via
// internal/output's ExitFor.
func Execute() error {
	return NewRootCmd().Execute()
}
