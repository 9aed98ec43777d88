package cmd

import (
	"github.com/spf13/cobra"
)

// auditCmd groups the SSH audit subcommands.
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit réseau par SSH (identification des systèmes)",
}

func init() {
	auditCmd.AddCommand(auditNetworkCmd)
	auditCmd.AddCommand(auditSystemCmd)
	auditCmd.AddCommand(runSSHCmd)
	auditCmd.AddCommand(findKeyCmd)
}
