package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/opaquefs/freedom/internal/output"
	"github.com/opaquefs/freedom/internal/tui"
)

func addStatusCommand(rootCmd *cobra.Command) {
	var watch bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Report the current environment state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnvironment()
			if err != nil {
				return err
			}
			if watch {
				p := tea.NewProgram(tui.NewDashboard(e))
				_, err := p.Run()
				return err
			}
			state, err := e.Status(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.PrintJSON(cmd.OutOrStdout(), state)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backing_active=%t\n", state.BackingActive)
			fmt.Fprintf(cmd.OutOrStdout(), "md_name=%q\n", state.MDName)
			fmt.Fprintf(cmd.OutOrStdout(), "luks_open=%t\n", state.LUKSOpen)
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&watch, "watch", false, "Launch a live-updating status dashboard")

	rootCmd.AddCommand(statusCmd)
}
