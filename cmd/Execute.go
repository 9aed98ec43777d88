package cmd

import (
	"errors"
	"fmt"

	"github.com/pterm/pterm"

	"ntl-systoolbox/internal/remote"
	"ntl-systoolbox/internal/report"
)

// Execute runs the root command and maps failures to exit code 1. A missing
// SSH credential is reported as a JSON error array on stdout so that callers
// parsing the audit output still get valid JSON.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		switch {
		case errors.Is(err, remote.ErrNoCredential):
			_ = report.ErrorJSON(rootCmd.OutOrStdout(), errors.New(noCredentialMessage))
		case errors.Is(err, errReported):
		default:
			_, _ = fmt.Fprintln(rootCmd.ErrOrStderr(), pterm.Error.Sprint(err.Error()))
		}
		exitFunc(1)
	}
}
