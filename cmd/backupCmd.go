package cmd

import (
	"github.com/spf13/cobra"
)

var (
	backupTable string
	backupDB    string
	backupDir   string
)

// backupCmd groups the WMS database backup subcommands. The database is read
// from MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PASSWORD and MYSQL_DB,
// which may come from the .env file.
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Sauvegarde WMS (dump SQL, export CSV)",
}

var backupDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Sauvegarde la base au format SQL dans sauvegarde/",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t := newToolbox(cmd)
		if err := t.Dump(cmd.Context()); err != nil {
			return err
		}
		return t.result()
	},
}

var backupExportCmd = &cobra.Command{
	Use:   "export-csv",
	Short: "Exporte une table au format CSV dans export/",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t := newToolbox(cmd)
		if err := t.ExportCSV(cmd.Context(), backupTable); err != nil {
			return err
		}
		return t.result()
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "Liste les sauvegardes et exports locaux",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return newToolbox(cmd).ListArtifacts(cmd.Context())
	},
}

var backupVerifyCmd = &cobra.Command{
	Use:   "verify FILE",
	Short: "Calcule le SHA-256 d'un fichier et le compare à son manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t := newToolbox(cmd)
		if err := t.Verify(cmd.Context(), args[0]); err != nil {
			return err
		}
		return t.result()
	},
}

func init() {
	backupCmd.PersistentFlags().StringVar(&backupDir, "dir", "", "Project directory holding sauvegarde/ and export/ (default: detected from the working directory)")
	backupExportCmd.Flags().StringVar(&backupTable, "table", "", "Table to export (listed and prompted when empty)")
	backupExportCmd.Flags().StringVar(&backupDB, "db", "", "Database name, overrides MYSQL_DB")
	backupDumpCmd.Flags().StringVar(&backupDB, "db", "", "Database name, overrides MYSQL_DB")

	backupCmd.AddCommand(backupDumpCmd)
	backupCmd.AddCommand(backupExportCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupVerifyCmd)
}
