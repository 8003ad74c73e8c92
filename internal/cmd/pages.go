package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opaquefs/freedom/internal/output"
)

func addPagesCommands(rootCmd *cobra.Command) {
	pagesCmd := &cobra.Command{
		Use:   "pages",
		Short: "Manage backing pages",
	}

	var pageSize uint64
	var limit int
	var simulated bool
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Allocate backing pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnvironment()
			if err != nil {
				return err
			}
			size := pageSize
			if size == 0 {
				size = e.Config.DataPageSize
			}
			alloc, err := e.PagesCreate(cmd.Context(), size, limit, simulated)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.PrintJSON(cmd.OutOrStdout(), alloc)
			}
			for _, p := range alloc.Created {
				fmt.Fprintln(cmd.OutOrStdout(), p.Name)
			}
			return nil
		},
	}
	createCmd.Flags().Uint64VarP(&pageSize, "data-pagesize", "d", 0, "Page size in bytes (default: config data_pagesize)")
	createCmd.Flags().IntVarP(&limit, "max", "m", 0, "Number of pages to create (default: as many as fit)")
	createCmd.Flags().BoolVar(&simulated, "simulate", false, "Report the allocation plan without writing anything")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List backing pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnvironment()
			if err != nil {
				return err
			}
			set, err := e.PagesList(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.PrintJSON(cmd.OutOrStdout(), set)
			}
			for _, p := range set.Pages {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p.Name, p.LoopDevice)
			}
			return nil
		},
	}

	activateCmd := &cobra.Command{
		Use:   "activate",
		Short: "Attach loop devices to every unattached page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnvironment()
			if err != nil {
				return err
			}
			set, err := e.PagesActivate(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.PrintJSON(cmd.OutOrStdout(), set)
			}
			for _, p := range set.Pages {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p.Name, p.LoopDevice)
			}
			return nil
		},
	}

	deactivateCmd := &cobra.Command{
		Use:   "deactivate",
		Short: "Detach every attached loop device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnvironment()
			if err != nil {
				return err
			}
			set, err := e.PagesDeactivate(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.PrintJSON(cmd.OutOrStdout(), set)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d pages deactivated\n", len(set.Pages))
			return nil
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove",
		Short: "Deactivate and unlink every backing page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnvironment()
			if err != nil {
				return err
			}
			if err := e.PagesRemove(cmd.Context(), affirmativeFlag); err != nil {
				return err
			}
			if !output.IsQuiet() {
				fmt.Fprintln(cmd.OutOrStdout(), "pages removed")
			}
			return nil
		},
	}

	pagesCmd.AddCommand(createCmd, listCmd, activateCmd, deactivateCmd, removeCmd)
	rootCmd.AddCommand(pagesCmd)
}
