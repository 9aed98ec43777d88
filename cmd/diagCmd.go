package cmd

import (
	"github.com/spf13/cobra"
)

var (
	diagHost string
	diagJSON bool
)

// diagCmd groups the diagnostic subcommands.
var diagCmd = &cobra.Command{
	Use:   "diag",
	Short: "Diagnostic des serveurs (AD/DNS, ressources OS, MySQL)",
}

// diagRemoteCmd connects to a Linux or Windows server and reports OS,
// uptime, CPU, RAM, disk and the state of its directory services.
var diagRemoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Diagnostic complet d'un serveur distant (Windows Server / Ubuntu)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t := newToolbox(cmd)
		host := diagHost
		if host == "" {
			h, ok, err := t.prompt.AskRequired("IP/Hostname : ", "Hôte vide.")
			if err != nil {
				return err
			}
			if !ok {
				return errReported
			}
			host = h
		}
		if err := t.DiagRemote(cmd.Context(), host); err != nil {
			return err
		}
		return t.result()
	},
}

// diagMySQLCmd checks the WMS database configured through MYSQL_* variables.
var diagMySQLCmd = &cobra.Command{
	Use:   "mysql",
	Short: "Teste l'accès à la base MySQL du WMS",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return newToolbox(cmd).DiagMySQL(cmd.Context())
	},
}

func init() {
	diagRemoteCmd.Flags().StringVar(&diagHost, "host", "", "Server to diagnose (prompted when empty)")
	diagRemoteCmd.Flags().BoolVar(&diagJSON, "json", false, "Print the diagnostic as JSON")
	diagCmd.AddCommand(diagRemoteCmd)
	diagCmd.AddCommand(diagMySQLCmd)
}
