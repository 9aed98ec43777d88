package backup

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// FallbackDump is written in place of a dump that could not be produced.
const FallbackDump = "-- Fallback: mysqldump failed or not available\n"

// ErrUnknownTable is returned by ExportCSV for a table the database does not
// list.
var ErrUnknownTable = errors.New("table inconnue")

// Service runs backup operations for one database.
type Service struct {
	Config Config
	Paths  Paths
	Log    logrus.FieldLogger

	now      func() time.Time
	lookPath func(string) (string, error)
	command  func(ctx context.Context, name string, args ...string) *exec.Cmd
	dial     func(ctx context.Context, network, addr string) (net.Conn, error)
	open     func(Config) (Store, error)
}

// NewService wires a Service to the real mysqldump binary and MySQL driver.
func NewService(cfg Config, paths Paths, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	d := &net.Dialer{Timeout: 5 * time.Second}
	return &Service{
		Config:   cfg,
		Paths:    paths,
		Log:      log,
		now:      time.Now,
		lookPath: exec.LookPath,
		command:  exec.CommandContext,
		dial:     d.DialContext,
		open:     OpenMySQL,
	}
}

// DumpResult describes a finished dump.
type DumpResult struct {
	Path     string
	Manifest string
	// Fallback is set when the placeholder was written instead of a real dump.
	Fallback bool
	Reason   string
}

// ExportResult describes a finished CSV export.
type ExportResult struct {
	Path     string
	Manifest string
	Rows     int
}

// CheckConnection verifies TCP reachability then runs SELECT 1.
func (s *Service) CheckConnection(ctx context.Context) error {
	conn, err := s.dial(ctx, "tcp", s.Config.Addr())
	if err != nil {
		return fmt.Errorf("connexion TCP vers %s impossible: %w", s.Config.Addr(), err)
	}
	_ = conn.Close()

	st, err := s.open(s.Config)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	return st.Ping(ctx)
}

// ServerVersion returns SELECT VERSION().
func (s *Service) ServerVersion(ctx context.Context) (string, error) {
	st, err := s.open(s.Config)
	if err != nil {
		return "", err
	}
	defer func() { _ = st.Close() }()
	return st.Version(ctx)
}

// Dump runs mysqldump into sauvegarde/ and writes the manifest. When
// mysqldump is missing or fails, the placeholder FallbackDump is written and
// the result says so; the error is reserved for local I/O failures.
func (s *Service) Dump(ctx context.Context) (DumpResult, error) {
	ts := s.now().UTC().Format("20060102_150405")
	out := filepath.Join(s.Paths.Sauvegarde, fmt.Sprintf("%s_dump_%s.sql", s.Config.Database, ts))
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return DumpResult{}, err
	}

	res := DumpResult{Path: out}
	if err := s.mysqldump(ctx, out); err != nil {
		s.Log.WithError(err).Warn("mysqldump en échec, écriture du fichier de remplacement")
		res.Fallback = true
		res.Reason = err.Error()
		if err := os.WriteFile(out, []byte(FallbackDump), 0o644); err != nil {
			return res, err
		}
	}

	extra := map[string]string{"host": s.Config.Host, "db": s.Config.Database, "note": "remote dump"}
	if res.Fallback {
		extra["note"] = "fallback"
	}
	m, err := WriteManifest(out, "dump_sql", extra, s.now())
	if err != nil {
		return res, err
	}
	res.Manifest = m
	return res, nil
}

func (s *Service) mysqldump(ctx context.Context, out string) error {
	bin, err := s.lookPath("mysqldump")
	if err != nil {
		return fmt.Errorf("mysqldump introuvable dans le PATH: %w", err)
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	cmd := s.command(ctx, bin,
		"-h", s.Config.Host,
		"-P", strconv.Itoa(s.Config.Port),
		"-u", s.Config.User,
		s.Config.Database,
	)
	env := cmd.Env
	if env == nil {
		env = os.Environ()
	}
	cmd.Env = append(env, "MYSQL_PWD="+s.Config.Password)
	var stderr bytes.Buffer
	cmd.Stdout = f
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("mysqldump: %s", msg)
		}
		return fmt.Errorf("mysqldump: %w", err)
	}
	return nil
}

// ListTables returns the tables of the configured database.
func (s *Service) ListTables(ctx context.Context) ([]string, error) {
	st, err := s.open(s.Config)
	if err != nil {
		return nil, err
	}
	defer func() { _ = st.Close() }()
	return st.Tables(ctx)
}

// ExportCSV writes table to export/<db>_<table>_<ts>.csv with a header row
// and ';' as separator. NULL values are written as NULL.
func (s *Service) ExportCSV(ctx context.Context, table string) (ExportResult, error) {
	st, err := s.open(s.Config)
	if err != nil {
		return ExportResult{}, err
	}
	defer func() { _ = st.Close() }()

	tables, err := st.Tables(ctx)
	if err != nil {
		return ExportResult{}, err
	}
	if !slices.Contains(tables, table) {
		return ExportResult{}, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	cols, err := st.Columns(ctx, table)
	if err != nil {
		return ExportResult{}, err
	}
	if len(cols) == 0 {
		return ExportResult{}, fmt.Errorf("aucune colonne pour %s", table)
	}

	ts := s.now().UTC().Format("20060102_150405")
	out := filepath.Join(s.Paths.Export, fmt.Sprintf("%s_%s_%s.csv", s.Config.Database, table, ts))
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return ExportResult{}, err
	}
	f, err := os.Create(out)
	if err != nil {
		return ExportResult{}, err
	}

	res := ExportResult{Path: out}
	w := csv.NewWriter(f)
	w.Comma = ';'
	err = w.Write(cols)
	if err == nil {
		record := make([]string, len(cols))
		err = st.EachRow(ctx, table, func(row []sql.NullString) error {
			for i, v := range row {
				if v.Valid {
					record[i] = v.String
				} else {
					record[i] = "NULL"
				}
			}
			res.Rows++
			return w.Write(record)
		})
	}
	w.Flush()
	if err == nil {
		err = w.Error()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(out)
		return ExportResult{}, err
	}

	m, err := WriteManifest(out, "export_csv", map[string]string{
		"host": s.Config.Host, "db": s.Config.Database, "table": table, "rows": strconv.Itoa(res.Rows),
	}, s.now())
	if err != nil {
		return res, err
	}
	res.Manifest = m
	return res, nil
}

// Artifact is one file found in sauvegarde/ or export/.
type Artifact struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// ListArtifacts lists dumps and exports, manifests excluded, sorted by name.
func (s *Service) ListArtifacts() ([]Artifact, error) {
	var out []Artifact
	for _, dir := range []string{s.Paths.Sauvegarde, s.Paths.Export} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || strings.HasSuffix(e.Name(), ManifestSuffix) {
				continue
			}
			fi, err := e.Info()
			if err != nil {
				continue
			}
			out = append(out, Artifact{Path: filepath.Join(dir, e.Name()), Size: fi.Size(), ModTime: fi.ModTime()})
		}
	}
	sort.Slice(out, func(i, j int) bool { return filepath.Base(out[i].Path) < filepath.Base(out[j].Path) })
	return out, nil
}

// Verification is the result of Verify.
type Verification struct {
	Path   string
	Size   int64
	SHA256 string
	// Manifest is nil when no manifest sits next to the file.
	Manifest *Manifest
	// SizeMatches compares Size with the manifest's size_bytes.
	SizeMatches bool
}

// Verify hashes name (a path, or a file name inside sauvegarde/ or export/)
// and checks it against its manifest when there is one.
func (s *Service) Verify(name string) (Verification, error) {
	path, err := s.resolve(name)
	if err != nil {
		return Verification{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return Verification{}, err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return Verification{}, err
	}
	v := Verification{Path: path, Size: n, SHA256: hex.EncodeToString(h.Sum(nil))}
	if m, err := ReadManifest(path); err == nil {
		v.Manifest = &m
		v.SizeMatches = m.SizeBytes == n
	}
	return v, nil
}

func (s *Service) resolve(name string) (string, error) {
	candidates := []string{name}
	if !filepath.IsAbs(name) {
		candidates = append(candidates, filepath.Join(s.Paths.Sauvegarde, name), filepath.Join(s.Paths.Export, name))
	}
	for _, c := range candidates {
		if fi, err := os.Stat(c); err == nil && !fi.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("fichier introuvable: %s", name)
}
