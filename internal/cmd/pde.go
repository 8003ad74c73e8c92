package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opaquefs/freedom/internal/output"
)

func addPDECommands(rootCmd *cobra.Command) {
	pdeCmd := &cobra.Command{
		Use:   "pde",
		Short: "Open or close the plausibly-deniable zone",
	}

	var header, key string
	var keyfileOffset uint64
	var bless bool
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Open the dm-crypt mapping for a chosen (header, key, offset) tuple",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnvironment()
			if err != nil {
				return err
			}
			if err := e.PDEStart(cmd.Context(), header, key, keyfileOffset, bless); err != nil {
				return err
			}
			if !output.IsQuiet() {
				fmt.Fprintln(cmd.OutOrStdout(), "pde opened")
			}
			return nil
		},
	}
	startCmd.Flags().StringVar(&header, "header", "", "Header name")
	startCmd.Flags().StringVar(&key, "key", "", "Key name")
	startCmd.Flags().Uint64Var(&keyfileOffset, "offset", 0, "Keyfile offset in bytes")
	startCmd.Flags().BoolVar(&bless, "bless", false, "Format the mapped device as ext4 after opening")
	_ = startCmd.MarkFlagRequired("header")
	_ = startCmd.MarkFlagRequired("key")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Close the dm-crypt mapping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnvironment()
			if err != nil {
				return err
			}
			if err := e.PDEStop(cmd.Context()); err != nil {
				return err
			}
			if !output.IsQuiet() {
				fmt.Fprintln(cmd.OutOrStdout(), "pde closed")
			}
			return nil
		},
	}

	pdeCmd.AddCommand(startCmd, stopCmd)
	rootCmd.AddCommand(pdeCmd)
}
