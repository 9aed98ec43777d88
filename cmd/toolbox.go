package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ntl-systoolbox/internal/audit"
	"ntl-systoolbox/internal/backup"
	"ntl-systoolbox/internal/diag"
	"ntl-systoolbox/internal/fingerprint"
	"ntl-systoolbox/internal/hosts"
	"ntl-systoolbox/internal/menu"
	"ntl-systoolbox/internal/remote"
	"ntl-systoolbox/internal/report"
)

// tableListLimit caps the table names shown before asking which to export.
const tableListLimit = 60

// toolbox carries out every operation for both the subcommands and the
// interactive menu, so that both share prompts and output.
type toolbox struct {
	prompt *menu.Menu
	// out receives results meant for the user (diag, backup, JSON).
	out     io.Writer
	console *report.Console
	// progress receives audit progress, keeping stdout parseable.
	progress *report.Console

	// failed is set when an operation printed a failure without returning it.
	failed bool
}

var _ menu.Actions = (*toolbox)(nil)

func newToolbox(cmd *cobra.Command) *toolbox {
	return newToolboxWithPrompt(cmd, menu.New(cmd.InOrStdin(), cmd.ErrOrStderr()))
}

func newToolboxWithPrompt(cmd *cobra.Command, p *menu.Menu) *toolbox {
	progress := report.NewConsole(cmd.ErrOrStderr())
	progress.Verbose = cfgVerbose
	return &toolbox{
		prompt:   p,
		out:      cmd.OutOrStdout(),
		console:  report.NewConsole(cmd.OutOrStdout()),
		progress: progress,
	}
}

// result maps a printed failure to errReported for exit-code purposes.
func (t *toolbox) result() error {
	if t.failed {
		return errReported
	}
	return nil
}

func newRunner() *remote.Runner {
	store := remote.NewHostKeyStore(cfgKnownHosts, cfgStrictHost, cfgAutoTrust, logger)
	r := remote.NewRunner(store, logger)
	r.Port = cfgPort
	if cfgConnTimeout > 0 {
		r.ConnectTimeout = cfgConnTimeout
	}
	if cfgCmdTimeout > 0 {
		r.CommandTimeout = cfgCmdTimeout
	}
	return r
}

func sshDir() string {
	d, err := sshDirFunc()
	if err != nil {
		logger.WithError(err).Debug("dossier ~/.ssh introuvable")
		return ""
	}
	return d
}

// username returns the configured SSH user, asking for it when missing.
func (t *toolbox) username() (string, error) {
	if cfgUsername != "" {
		return cfgUsername, nil
	}
	u, ok, err := t.prompt.AskRequired("Nom d'utilisateur SSH non fourni. Merci de saisir le login : ", "Nom d'utilisateur vide.")
	if err != nil {
		return "", fmt.Errorf("lecture du nom d'utilisateur: %w", err)
	}
	if !ok {
		return "", errors.New("nom d'utilisateur SSH requis")
	}
	return u, nil
}

// secret reads a password without echo on a terminal, or as a plain line
// otherwise.
func (t *toolbox) secret(prompt string) (string, error) {
	if isTerminalFunc() {
		return readPasswordFunc(prompt)
	}
	return t.prompt.Ask(prompt)
}

// keyCredential is the audit credential: explicit key or password, else the
// first conventional key in ~/.ssh.
func (t *toolbox) keyCredential() (remote.Credential, error) {
	user, err := t.username()
	if err != nil {
		return remote.Credential{}, err
	}
	cred := remote.Credential{Username: user, KeyPath: cfgKeyPath, Passphrase: cfgPassphrase, Password: cfgPassword}
	return remote.ResolveCredential(cred, sshDir())
}

// diagCredential falls back to a password prompt when no key is available.
func (t *toolbox) diagCredential() (remote.Credential, error) {
	user, err := t.username()
	if err != nil {
		return remote.Credential{}, err
	}
	cred := remote.Credential{Username: user, KeyPath: cfgKeyPath, Passphrase: cfgPassphrase, Password: cfgPassword}
	if resolved, err := remote.ResolveCredential(cred, sshDir()); err == nil {
		return resolved, nil
	}
	pw, err := t.secret("Mot de passe : ")
	if err != nil {
		return remote.Credential{}, fmt.Errorf("lecture du mot de passe: %w", err)
	}
	cred.Password = pw
	return cred, nil
}

// DiagRemote diagnoses one server and prints the result.
func (t *toolbox) DiagRemote(ctx context.Context, host string) error {
	cred, err := t.diagCredential()
	if err != nil {
		return err
	}
	rep := diag.Run(ctx, newRunner(), host, cred)
	if rep.Error != "" || rep.OSFamily == fingerprint.Unknown {
		t.failed = true
	}
	if diagJSON {
		return report.WriteJSON(t.out, rep)
	}
	t.console.Diag(rep)
	return nil
}

// DiagMySQL checks that the WMS database answers.
func (t *toolbox) DiagMySQL(ctx context.Context) error {
	svc, err := t.backupService(true)
	if err != nil {
		return err
	}
	if err := svc.CheckConnection(ctx); err != nil {
		return err
	}
	version, err := svc.ServerVersion(ctx)
	if err != nil {
		return err
	}
	t.console.Success("Connexion MySQL OK : %s@%s/%s (version %s)", svc.Config.User, svc.Config.Addr(), svc.Config.Database, version)
	return nil
}

func (t *toolbox) backupService(needDB bool) (*backup.Service, error) {
	start := backupDir
	if start == "" {
		wd, err := getwdFunc()
		if err != nil {
			return nil, err
		}
		start = wd
	}
	paths, err := backup.DetectPaths(start)
	if err != nil {
		return nil, err
	}
	if !needDB {
		return backup.NewService(backup.Config{}, paths, logger), nil
	}

	getenv := os.Getenv
	if backupDB != "" {
		getenv = func(k string) string {
			if k == "MYSQL_DB" {
				return backupDB
			}
			return os.Getenv(k)
		}
	}
	cfg, err := backup.ConfigFromEnv(getenv)
	if err != nil {
		return nil, err
	}
	if cfg.Password == "" {
		if cfg.Password, err = t.secret("Mot de passe MySQL : "); err != nil {
			return nil, fmt.Errorf("lecture du mot de passe MySQL: %w", err)
		}
	}
	return backup.NewService(cfg, paths, logger), nil
}

// Dump writes a SQL dump of the database.
func (t *toolbox) Dump(ctx context.Context) error {
	svc, err := t.backupService(true)
	if err != nil {
		return err
	}
	res, err := svc.Dump(ctx)
	if err != nil {
		return err
	}
	if res.Fallback {
		t.failed = true
	}
	t.console.Dump(res)
	return nil
}

// ExportCSV exports table, asking for it after listing the tables when empty.
func (t *toolbox) ExportCSV(ctx context.Context, table string) error {
	svc, err := t.backupService(true)
	if err != nil {
		return err
	}
	if table == "" {
		tables, err := svc.ListTables(ctx)
		if err != nil {
			return err
		}
		if len(tables) == 0 {
			return fmt.Errorf("aucune table dans %s", svc.Config.Database)
		}
		t.console.Tables(tables, tableListLimit)
		var ok bool
		table, ok, err = t.prompt.AskRequired("Nom de la table > ", "Table vide.")
		if err != nil {
			return err
		}
		if !ok {
			t.failed = true
			return nil
		}
	}
	res, err := svc.ExportCSV(ctx, table)
	if err != nil {
		return err
	}
	t.console.Export(res)
	return nil
}

// ListArtifacts lists local dumps and exports.
func (t *toolbox) ListArtifacts(context.Context) error {
	svc, err := t.backupService(false)
	if err != nil {
		return err
	}
	arts, err := svc.ListArtifacts()
	if err != nil {
		return err
	}
	t.console.Artifacts(arts)
	return nil
}

// Verify hashes a dump or export and checks it against its manifest.
func (t *toolbox) Verify(_ context.Context, name string) error {
	svc, err := t.backupService(false)
	if err != nil {
		return err
	}
	v, err := svc.Verify(name)
	if err != nil {
		return err
	}
	if v.Manifest != nil && !v.SizeMatches {
		t.failed = true
	}
	t.console.Verification(v)
	return nil
}

// AuditNetwork scans subnet, or the local /24 when empty.
func (t *toolbox) AuditNetwork(ctx context.Context, subnet string) error {
	return t.scan(ctx, nil, subnet)
}

func (t *toolbox) scan(ctx context.Context, explicit []string, subnet string) error {
	format, err := report.ParseFormat(auditFormat)
	if err != nil {
		return err
	}
	targets, err := hosts.Enumerate(explicit, subnet)
	if err != nil {
		return err
	}
	user, err := t.username()
	if err != nil {
		return err
	}

	o := &audit.Orchestrator{
		Runner:     newRunner(),
		MaxWorkers: auditMaxWorkers,
		SSHDir:     sshDir(),
		Reporter:   t.progress,
		Log:        logger,
	}
	cred := remote.Credential{Username: user, KeyPath: cfgKeyPath, Passphrase: cfgPassphrase, Password: cfgPassword}
	rep, err := o.Audit(ctx, targets, cred)
	if err != nil {
		return err
	}
	return t.emit(format, rep)
}

func (t *toolbox) emit(format report.Format, rep audit.Report) error {
	if auditOut == "" {
		return report.Write(t.out, format, rep)
	}
	if err := os.MkdirAll(filepath.Dir(auditOut), 0o755); err != nil {
		return fmt.Errorf("création du dossier de sortie: %w", err)
	}
	f, err := os.Create(auditOut)
	if err != nil {
		return err
	}
	if err := report.Write(f, format, rep); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	t.progress.Success("Rapport écrit dans %s", auditOut)
	return nil
}

// AuditSystem fingerprints one host and prints its descriptor as JSON.
func (t *toolbox) AuditSystem(ctx context.Context, host string) error {
	cred, err := t.keyCredential()
	if err != nil {
		return err
	}
	d := fingerprint.Extract(ctx, host, newRunner(), cred)
	if d.Failed() {
		t.failed = true
	}
	return report.WriteJSON(t.out, d)
}

// RunSSH runs commands on host and prints the session result as JSON.
func (t *toolbox) RunSSH(ctx context.Context, host string, commands []string) error {
	cred, err := t.keyCredential()
	if err != nil {
		return err
	}
	res := newRunner().Run(ctx, host, cred, commands)
	if !res.Success {
		t.failed = true
	}
	return report.WriteJSON(t.out, res)
}
