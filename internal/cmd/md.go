package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opaquefs/freedom/internal/output"
)

func addMDCommands(rootCmd *cobra.Command) {
	mdCmd := &cobra.Command{
		Use:   "md",
		Short: "Manage the MD RAID-0 array",
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Assemble or create the MD array",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnvironment()
			if err != nil {
				return err
			}
			array, err := e.MDStart(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.PrintJSON(cmd.OutOrStdout(), array)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", array.Name)
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the MD array",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnvironment()
			if err != nil {
				return err
			}
			if err := e.MDStop(cmd.Context()); err != nil {
				return err
			}
			if !output.IsQuiet() {
				fmt.Fprintln(cmd.OutOrStdout(), "md array stopped")
			}
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Report the current MD array, if any",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnvironment()
			if err != nil {
				return err
			}
			array, err := e.MDStatus(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.PrintJSON(cmd.OutOrStdout(), array)
			}
			if array == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no md array")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d sectors\t%d members\n", array.Name, array.TotalSectors, len(array.MemberDevices))
			return nil
		},
	}

	populateCmd := &cobra.Command{
		Use:   "populate-safezone",
		Short: "Format and populate the safe-zone region of the active MD device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnvironment()
			if err != nil {
				return err
			}
			if err := e.MDPopulateSafezone(cmd.Context()); err != nil {
				return err
			}
			if !output.IsQuiet() {
				fmt.Fprintln(cmd.OutOrStdout(), "safe-zone populated")
			}
			return nil
		},
	}

	mdCmd.AddCommand(startCmd, stopCmd, statusCmd, populateCmd)
	rootCmd.AddCommand(mdCmd)
}
