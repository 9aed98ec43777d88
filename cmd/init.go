package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ntl-systoolbox/internal/remote"
)

// envPrefix namespaces the environment overrides, e.g. NTL_SYSTOOLBOX_USERNAME.
const envPrefix = "NTL_SYSTOOLBOX"

// persistentFlagNames are bound to viper so that each can be set from the
// environment.
var persistentFlagNames = []string{
	"username", "ssh-key", "passphrase", "password", "port",
	"known-hosts", "strict-host-key", "auto-trust",
	"connect-timeout", "command-timeout",
	"log-level", "log-format", "log-file", "env-file", "verbose",
}

// init configures the root command's persistent flags, binds them to
// environment variables via Viper, and registers all subcommands.
func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgUsername, "username", "u", "", "SSH username")
	pf.StringVarP(&cfgKeyPath, "ssh-key", "k", "", "Path to SSH private key (default: first of ~/.ssh/id_ed25519, id_rsa, id_ecdsa, id_dsa)")
	pf.StringVar(&cfgPassphrase, "passphrase", "", "Private key passphrase (or set NTL_SYSTOOLBOX_PASSPHRASE)")
	pf.StringVar(&cfgPassword, "password", "", "SSH password (or set NTL_SYSTOOLBOX_PASSWORD)")
	pf.IntVar(&cfgPort, "port", remote.DefaultPort, "SSH port used when a host has none")
	pf.StringVar(&cfgKnownHosts, "known-hosts", filepath.Join(os.Getenv("HOME"), ".ssh", "known_hosts"), "Path to known_hosts file")
	pf.BoolVar(&cfgStrictHost, "strict-host-key", true, "Require host key verification (disable to accept any host key)")
	pf.BoolVar(&cfgAutoTrust, "auto-trust", false, "Accept and record unknown host keys on first use; changed keys are still rejected")
	pf.DurationVar(&cfgConnTimeout, "connect-timeout", remote.DefaultConnectTimeout, "SSH connection timeout")
	pf.DurationVar(&cfgCmdTimeout, "command-timeout", remote.DefaultCommandTimeout, "Per-command timeout")
	pf.StringVar(&cfgLogLevel, "log-level", "warn", "Log level (trace, debug, info, warn, error)")
	pf.StringVar(&cfgLogFormat, "log-format", "text", "Log format (text or json)")
	pf.StringVar(&cfgLogFile, "log-file", "", "Write logs to this rotated file instead of stderr")
	pf.StringVar(&cfgEnvFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	pf.BoolVarP(&cfgVerbose, "verbose", "v", false, "Print every connection attempt")

	for _, name := range persistentFlagNames {
		_ = viper.BindPFlag(name, pf.Lookup(name))
	}
	configureViper()

	// Pull in .env and environment overrides before any command runs
	cobra.OnInitialize(loadEnvironment)

	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(diagCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(menuCmd)
}

func configureViper() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// loadEnvironment loads the dotenv file, which never overrides variables
// already set, then copies environment values into the configuration.
func loadEnvironment() {
	if v := viper.GetString("env-file"); v != "" {
		cfgEnvFile = v
	}
	if cfgEnvFile != "" {
		if err := godotenv.Load(cfgEnvFile); err != nil && !os.IsNotExist(err) {
			logger.WithError(err).Warnf("lecture de %s impossible", cfgEnvFile)
		}
	}

	strs := map[string]*string{
		"username":    &cfgUsername,
		"ssh-key":     &cfgKeyPath,
		"passphrase":  &cfgPassphrase,
		"password":    &cfgPassword,
		"known-hosts": &cfgKnownHosts,
		"log-level":   &cfgLogLevel,
		"log-format":  &cfgLogFormat,
		"log-file":    &cfgLogFile,
	}
	for key, dst := range strs {
		if v := viper.GetString(key); v != "" {
			*dst = v
		}
	}
	if v := viper.GetInt("port"); v > 0 {
		cfgPort = v
	}
	if v := viper.GetDuration("connect-timeout"); v > 0 {
		cfgConnTimeout = v
	}
	if v := viper.GetDuration("command-timeout"); v > 0 {
		cfgCmdTimeout = v
	}
	// Booleans
	if viper.IsSet("strict-host-key") {
		cfgStrictHost = viper.GetBool("strict-host-key")
	}
	if viper.IsSet("auto-trust") {
		cfgAutoTrust = viper.GetBool("auto-trust")
	}
	if viper.IsSet("verbose") {
		cfgVerbose = viper.GetBool("verbose")
	}
}
