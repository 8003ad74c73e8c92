package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opaquefs/freedom/internal/config"
	"github.com/opaquefs/freedom/internal/output"
)

func addConfigCommands(rootCmd *cobra.Command) {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage freedom configuration",
		Long:  "Show, get, and set values in the freedom config file (~/.freedom/config.toml).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.PrintJSON(cmd.OutOrStdout(), cfg)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config file: %s\n", config.ConfigPath())
			fmt.Fprintf(cmd.OutOrStdout(), "root = %s\n", cfg.Root)
			fmt.Fprintf(cmd.OutOrStdout(), "md_name = %s\n", cfg.MDName)
			fmt.Fprintf(cmd.OutOrStdout(), "mapper_name = %s\n", cfg.MapperName)
			fmt.Fprintf(cmd.OutOrStdout(), "data_pagesize = %d\n", cfg.DataPageSize)
			fmt.Fprintf(cmd.OutOrStdout(), "key_count = %d\n", cfg.KeyCount)
			fmt.Fprintf(cmd.OutOrStdout(), "header_count = %d\n", cfg.HeaderCount)
			fmt.Fprintf(cmd.OutOrStdout(), "keyfile_size = %d\n", cfg.KeyfileSize)
			fmt.Fprintf(cmd.OutOrStdout(), "key_size = %d\n", cfg.KeySize)
			fmt.Fprintf(cmd.OutOrStdout(), "luks_sector_size = %d\n", cfg.LUKSSectorSize)
			fmt.Fprintf(cmd.OutOrStdout(), "safezone_content_url = %s\n", cfg.SafezoneContentURL)
			return nil
		},
	}

	configGetCmd := &cobra.Command{
		Use:   "get <KEY>",
		Short: "Get a config value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			val, err := config.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), val)
			return nil
		},
	}

	configSetCmd := &cobra.Command{
		Use:   "set <KEY> <VALUE>",
		Short: "Set a config value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Set(args[0], args[1]); err != nil {
				return err
			}
			if !output.IsQuiet() {
				fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", args[0], args[1])
			}
			return nil
		},
	}

	configPathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), config.ConfigPath())
			return nil
		},
	}

	configCmd.AddCommand(configGetCmd, configSetCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}
