package cmd

import (
	"github.com/spf13/cobra"

	"ntl-systoolbox/internal/audit"
	"ntl-systoolbox/internal/hosts"
)

var (
	auditHosts      []string
	auditSubnet     string
	auditMaxWorkers int
	auditInventory  string
	auditFormat     string
	auditOut        string
)

// auditNetworkCmd fingerprints every host of a list, a subnet or the local
// /24 with a bounded pool of SSH workers. Progress goes to stderr and the
// report to stdout (or --out).
var auditNetworkCmd = &cobra.Command{
	Use:   "audit-network-ssh-mt",
	Short: "Audite un réseau via SSH en parallèle",
	Long: "Audite un réseau via SSH en parallèle.\n" +
		"  --hosts  : liste d'IP\n" +
		"  --subnet : plage réseau, ex: 192.168.1.0/24\n" +
		"Sans --hosts ni --subnet, le /24 autour de l'IP locale est scanné.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		explicit, subnet := auditHosts, auditSubnet
		if auditInventory != "" {
			inv, err := hosts.LoadInventory(auditInventory)
			if err != nil {
				return err
			}
			if cfgUsername == "" {
				cfgUsername = inv.Username
			}
			if len(explicit) == 0 && subnet == "" {
				if explicit, err = inv.Targets(); err != nil {
					return err
				}
			}
		}
		t := newToolbox(cmd)
		return t.scan(cmd.Context(), explicit, subnet)
	},
}

func init() {
	f := auditNetworkCmd.Flags()
	f.StringSliceVar(&auditHosts, "hosts", nil, "Hosts to audit (repeat or comma-separate)")
	f.StringVar(&auditSubnet, "subnet", "", "IPv4 CIDR to scan, e.g. 192.168.1.0/24")
	f.IntVar(&auditMaxWorkers, "max-workers", audit.DefaultMaxWorkers, "Maximum concurrent SSH sessions")
	f.StringVar(&auditInventory, "inventory", "", "YAML inventory file (hosts, subnet, username)")
	f.StringVar(&auditFormat, "format", "json", "Report format: json or yaml")
	f.StringVarP(&auditOut, "out", "o", "", "Write the report to this file instead of stdout")
}
