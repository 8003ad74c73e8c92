package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opaquefs/freedom/internal/output"
)

func addHeadersCommands(rootCmd *cobra.Command) {
	headersCmd := &cobra.Command{
		Use:   "headers",
		Short: "Manage detached LUKS headers",
	}

	var count int
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Generate fresh keys and one detached header per key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnvironment()
			if err != nil {
				return err
			}
			headers, err := e.HeadersCreate(cmd.Context(), count)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.PrintJSON(cmd.OutOrStdout(), headers)
			}
			for _, h := range headers {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tkey=%s\n", h.Name, h.KeyName)
			}
			return nil
		},
	}
	createCmd.Flags().IntVar(&count, "count", 0, "Number of headers to generate (default: config header_count)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List header names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnvironment()
			if err != nil {
				return err
			}
			names, err := e.HeadersList()
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.PrintJSON(cmd.OutOrStdout(), names)
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove",
		Short: "Unlink every header",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnvironment()
			if err != nil {
				return err
			}
			if err := e.HeadersRemove(affirmativeFlag); err != nil {
				return err
			}
			if !output.IsQuiet() {
				fmt.Fprintln(cmd.OutOrStdout(), "headers removed")
			}
			return nil
		},
	}

	headersCmd.AddCommand(createCmd, listCmd, removeCmd)
	rootCmd.AddCommand(headersCmd)
}
