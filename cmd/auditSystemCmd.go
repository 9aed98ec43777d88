package cmd

import (
	"github.com/spf13/cobra"
)

// auditSystemCmd fingerprints a single host.
var auditSystemCmd = &cobra.Command{
	Use:   "audit-system-ssh HOST",
	Short: "Identifie le système d'un hôte via SSH (JSON)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t := newToolbox(cmd)
		if err := t.AuditSystem(cmd.Context(), args[0]); err != nil {
			return err
		}
		return t.result()
	},
}
