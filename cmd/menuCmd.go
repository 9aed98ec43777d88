package cmd

import (
	"github.com/spf13/cobra"

	"ntl-systoolbox/internal/menu"
)

// menuCmd starts the interactive menu; it is also what the bare root
// command runs.
var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Menu interactif",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMenu(cmd)
	},
}

func runMenu(cmd *cobra.Command) error {
	m := menu.New(cmd.InOrStdin(), cmd.OutOrStdout())
	return menu.Run(cmd.Context(), m, newToolboxWithPrompt(cmd, m))
}
