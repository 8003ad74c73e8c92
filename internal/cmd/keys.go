package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opaquefs/freedom/internal/output"
)

func addKeysCommands(rootCmd *cobra.Command) {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage key material",
	}

	var count int
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Generate fresh keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnvironment()
			if err != nil {
				return err
			}
			keys, err := e.KeysCreate(cmd.Context(), count)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.PrintJSON(cmd.OutOrStdout(), keys)
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k.Name)
			}
			return nil
		},
	}
	createCmd.Flags().IntVar(&count, "count", 0, "Number of keys to generate (default: config key_count)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List keys with a human-identification fingerprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnvironment()
			if err != nil {
				return err
			}
			infos, err := e.KeysList()
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.PrintJSON(cmd.OutOrStdout(), infos)
			}
			for _, k := range infos {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", k.Name, k.Fingerprint)
			}
			return nil
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove",
		Short: "Unlink every key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnvironment()
			if err != nil {
				return err
			}
			if err := e.KeysRemove(affirmativeFlag); err != nil {
				return err
			}
			if !output.IsQuiet() {
				fmt.Fprintln(cmd.OutOrStdout(), "keys removed")
			}
			return nil
		},
	}

	keysCmd.AddCommand(createCmd, listCmd, removeCmd)
	rootCmd.AddCommand(keysCmd)
}
