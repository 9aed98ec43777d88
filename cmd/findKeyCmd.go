package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"ntl-systoolbox/internal/remote"
)

// findKeyCmd prints the private key the audit would use.
var findKeyCmd = &cobra.Command{
	Use:   "find-ssh-key",
	Short: "Affiche la clé SSH détectée dans ~/.ssh",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfgKeyPath != "" {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), cfgKeyPath)
			return err
		}
		key, ok := remote.FindKey(sshDir())
		if !ok {
			return remote.ErrNoCredential
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), key)
		return err
	},
}
