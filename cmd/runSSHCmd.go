package cmd

import (
	"github.com/spf13/cobra"
)

// runSSHCmd runs arbitrary commands on one host over a single connection.
var runSSHCmd = &cobra.Command{
	Use:     "run-ssh HOST COMMAND...",
	Short:   "Exécute des commandes sur un hôte via SSH (JSON)",
	Example: `  ntl-systoolbox audit run-ssh 10.0.0.5 "uname -a" "df -h /" -u admin`,
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		t := newToolbox(cmd)
		if err := t.RunSSH(cmd.Context(), args[0], args[1:]); err != nil {
			return err
		}
		return t.result()
	},
}
