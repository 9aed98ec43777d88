package cmd

import (
	"github.com/spf13/cobra"

	"ntl-systoolbox/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "ntl-systoolbox",
	Short: "Boîte à outils d'administration NTL : diagnostic, sauvegarde, audit réseau",
	Long: "Diagnostique des serveurs Linux et Windows par SSH, sauvegarde la base MySQL du WMS " +
		"et audite un réseau entier par SSH. Sans sous-commande, le menu interactif est lancé.",
	Version:           Version,
	Args:              cobra.NoArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogger,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMenu(cmd)
	},
}

// setupLogger builds the shared logger from the logging flags.
func setupLogger(cmd *cobra.Command, _ []string) error {
	cfg := logging.DefaultConfig()
	cfg.Level = cfgLogLevel
	cfg.Format = cfgLogFormat
	if cfgLogFile != "" {
		cfg.Output = "file"
		cfg.FilePath = cfgLogFile
	} else {
		cfg.Stderr = cmd.ErrOrStderr()
	}
	l, err := logging.New(cfg)
	if err != nil {
		return err
	}
	logger = l
	return nil
}
