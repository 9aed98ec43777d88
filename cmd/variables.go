package cmd

import (
	"errors"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"ntl-systoolbox/internal/remote"
)

// Version is the CLI version string injected at build time via -ldflags.
var Version = "0.1.0"

// errReported signals a failure already shown to the user; Execute exits 1
// without printing it again.
var errReported = errors.New("échec signalé")

// noCredentialMessage is the error printed as JSON when no SSH key is found.
const noCredentialMessage = "Aucune clé SSH trouvée"

var (
	// Global configuration populated by flags and/or environment variables.
	cfgUsername    string
	cfgKeyPath     string
	cfgPassphrase  string
	cfgPassword    string
	cfgPort        int
	cfgKnownHosts  string
	cfgStrictHost  bool
	cfgAutoTrust   bool
	cfgConnTimeout time.Duration
	cfgCmdTimeout  time.Duration
	cfgLogLevel    string
	cfgLogFormat   string
	cfgLogFile     string
	cfgEnvFile     string
	cfgVerbose     bool
)

// logger is replaced by the root command's PersistentPreRunE.
var logger logrus.FieldLogger = logrus.StandardLogger()

// Allow tests to stub the environment
var (
	sshDirFunc       = remote.DefaultSSHDir
	readPasswordFunc = readPassword
	isTerminalFunc   = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
	getwdFunc        = os.Getwd
)
