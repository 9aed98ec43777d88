package backup

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	pingErr error
	tables  []string
	columns map[string][]string
	rows    map[string][][]sql.NullString
	closed  bool
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }
func (f *fakeStore) Version(context.Context) (string, error) {
	return "10.11.6-MariaDB", nil
}
func (f *fakeStore) Tables(context.Context) ([]string, error) { return f.tables, nil }
func (f *fakeStore) Columns(_ context.Context, t string) ([]string, error) {
	return f.columns[t], nil
}
func (f *fakeStore) EachRow(_ context.Context, t string, fn func([]sql.NullString) error) error {
	for _, r := range f.rows[t] {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}
func (f *fakeStore) Close() error { f.closed = true; return nil }

func ns(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func newTestService(t *testing.T, st Store) *Service {
	t.Helper()
	p, err := DetectPaths(t.TempDir())
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()
	s := NewService(Config{Host: "db.lan", Port: 3306, User: "wms", Password: "pw", Database: "wms"}, p, logger)
	s.now = func() time.Time { return fixedNow }
	s.open = func(Config) (Store, error) { return st, nil }
	return s
}

// helperCommand re-runs the test binary as a fake mysqldump.
func helperCommand(mode string) func(context.Context, string, ...string) *exec.Cmd {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = []string{"GO_WANT_HELPER_PROCESS=" + mode}
		return cmd
	}
}

func TestHelperProcess(t *testing.T) {
	mode := os.Getenv("GO_WANT_HELPER_PROCESS")
	if mode == "" {
		return
	}
	switch mode {
	case "ok":
		fmt.Printf("-- dump of %s with pwd=%s\nCREATE TABLE t (id int);\n",
			os.Args[len(os.Args)-1], os.Getenv("MYSQL_PWD"))
		os.Exit(0)
	default:
		fmt.Fprintln(os.Stderr, "mysqldump: Got error: 1045: Access denied")
		os.Exit(2)
	}
}

func TestConfigFromEnv(t *testing.T) {
	env := map[string]string{"MYSQL_HOST": "db", "MYSQL_PORT": "3307", "MYSQL_USER": "u", "MYSQL_DB": "wms", "MYSQL_PASSWORD": "p"}
	cfg, err := ConfigFromEnv(func(k string) string { return env[k] })
	require.NoError(t, err)
	require.Equal(t, Config{Host: "db", Port: 3307, User: "u", Password: "p", Database: "wms"}, cfg)
	require.Equal(t, "db:3307", cfg.Addr())

	mc, err := mysql.ParseDSN(cfg.DSN())
	require.NoError(t, err)
	require.Equal(t, "u", mc.User)
	require.Equal(t, "p", mc.Passwd)
	require.Equal(t, "db:3307", mc.Addr)
	require.Equal(t, "wms", mc.DBName)

	_, err = ConfigFromEnv(func(k string) string {
		if k == "MYSQL_HOST" || k == "MYSQL_DB" {
			return ""
		}
		return env[k]
	})
	var me *MissingEnvError
	require.ErrorAs(t, err, &me)
	require.Equal(t, []string{"MYSQL_HOST", "MYSQL_DB"}, me.Vars)

	env["MYSQL_PORT"] = "abc"
	_, err = ConfigFromEnv(func(k string) string { return env[k] })
	require.Error(t, err)
}

func TestDetectPaths(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module x\n"), 0o644))
	deep := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	p, err := DetectPaths(deep)
	require.NoError(t, err)
	require.Equal(t, root, p.Root)
	require.DirExists(t, filepath.Join(root, "sauvegarde"))
	require.DirExists(t, filepath.Join(root, "export"))
}

func TestWriteManifest(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "dump.sql")
	require.NoError(t, os.WriteFile(artifact, []byte("abc"), 0o644))

	path, err := WriteManifest(artifact, "dump_sql", map[string]string{"k": "v"}, fixedNow)
	require.NoError(t, err)
	require.Equal(t, artifact+".manifest.json", path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	require.Equal(t, "dump_sql", m["kind"])
	require.Equal(t, "dump.sql", m["artifact"])
	require.EqualValues(t, 3, m["size_bytes"])
	require.Equal(t, "2025-03-14T09:26:53Z", m["created_at"])
	require.Equal(t, map[string]any{"k": "v"}, m["extra"])
	_, err = uuid.Parse(m["trace_id"].(string))
	require.NoError(t, err)

	path, err = WriteManifest(filepath.Join(dir, "ghost.csv"), "export_csv", nil, fixedNow)
	require.NoError(t, err)
	got, err := ReadManifest(filepath.Join(dir, "ghost.csv"))
	require.NoError(t, err)
	require.Zero(t, got.SizeBytes)
	require.NotNil(t, got.Extra)
	require.FileExists(t, path)
}

func TestDump_Success(t *testing.T) {
	s := newTestService(t, &fakeStore{})
	s.lookPath = func(string) (string, error) { return "/usr/bin/mysqldump", nil }
	s.command = helperCommand("ok")

	res, err := s.Dump(context.Background())
	require.NoError(t, err)
	require.False(t, res.Fallback)
	require.Equal(t, filepath.Join(s.Paths.Sauvegarde, "wms_dump_20250314_092653.sql"), res.Path)

	b, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	require.Contains(t, string(b), "-- dump of wms with pwd=pw")

	m, err := ReadManifest(res.Path)
	require.NoError(t, err)
	require.Equal(t, "dump_sql", m.Kind)
	require.Equal(t, int64(len(b)), m.SizeBytes)
	require.Equal(t, "remote dump", m.Extra["note"])
}

func TestDump_FallbackWhenMissing(t *testing.T) {
	s := newTestService(t, &fakeStore{})
	s.lookPath = func(string) (string, error) { return "", exec.ErrNotFound }

	res, err := s.Dump(context.Background())
	require.NoError(t, err)
	require.True(t, res.Fallback)
	require.Contains(t, res.Reason, "introuvable")

	b, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	require.Equal(t, FallbackDump, string(b))
	require.FileExists(t, res.Manifest)
}

func TestDump_FallbackWhenFailing(t *testing.T) {
	s := newTestService(t, &fakeStore{})
	s.lookPath = func(string) (string, error) { return "/usr/bin/mysqldump", nil }
	s.command = helperCommand("fail")

	res, err := s.Dump(context.Background())
	require.NoError(t, err)
	require.True(t, res.Fallback)
	require.Contains(t, res.Reason, "Access denied")
	b, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	require.Equal(t, FallbackDump, string(b))
}

func TestExportCSV(t *testing.T) {
	st := &fakeStore{
		tables:  []string{"contacts", "orders"},
		columns: map[string][]string{"contacts": {"id", "name", "note"}},
		rows: map[string][][]sql.NullString{"contacts": {
			{ns("1"), ns("Alice"), {}},
			{ns("2"), ns("Bob; Jr"), ns("vip")},
		}},
	}
	s := newTestService(t, st)

	res, err := s.ExportCSV(context.Background(), "contacts")
	require.NoError(t, err)
	require.Equal(t, 2, res.Rows)
	require.Equal(t, filepath.Join(s.Paths.Export, "wms_contacts_20250314_092653.csv"), res.Path)
	require.True(t, st.closed)

	b, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	require.Equal(t, "id;name;note\n1;Alice;NULL\n2;\"Bob; Jr\";vip\n", string(b))

	m, err := ReadManifest(res.Path)
	require.NoError(t, err)
	require.Equal(t, "export_csv", m.Kind)
	require.Equal(t, "contacts", m.Extra["table"])
	require.Equal(t, "2", m.Extra["rows"])
}

func TestExportCSV_UnknownTable(t *testing.T) {
	s := newTestService(t, &fakeStore{tables: []string{"orders"}})
	_, err := s.ExportCSV(context.Background(), "contacts")
	require.ErrorIs(t, err, ErrUnknownTable)
	entries, err := os.ReadDir(s.Paths.Export)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestCheckConnection(t *testing.T) {
	st := &fakeStore{}
	s := newTestService(t, st)

	s.dial = func(context.Context, string, string) (net.Conn, error) { return nil, errors.New("no route to host") }
	err := s.CheckConnection(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "db.lan:3306")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()
	d := net.Dialer{}
	s.dial = func(ctx context.Context, network, _ string) (net.Conn, error) {
		return d.DialContext(ctx, network, ln.Addr().String())
	}
	require.NoError(t, s.CheckConnection(context.Background()))
	require.True(t, st.closed)

	st.pingErr = ErrAccessDenied
	require.ErrorIs(t, s.CheckConnection(context.Background()), ErrAccessDenied)
}

func TestListAndVerifyArtifacts(t *testing.T) {
	s := newTestService(t, &fakeStore{})
	s.lookPath = func(string) (string, error) { return "", exec.ErrNotFound }
	dump, err := s.Dump(context.Background())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.Paths.Export, "loose.csv"), []byte("a;b\n"), 0o644))

	arts, err := s.ListArtifacts()
	require.NoError(t, err)
	require.Len(t, arts, 2)
	require.Equal(t, "loose.csv", filepath.Base(arts[0].Path))
	require.Equal(t, filepath.Base(dump.Path), filepath.Base(arts[1].Path))

	v, err := s.Verify(filepath.Base(dump.Path))
	require.NoError(t, err)
	require.NotNil(t, v.Manifest)
	require.True(t, v.SizeMatches)
	require.Len(t, v.SHA256, 64)

	v, err = s.Verify("loose.csv")
	require.NoError(t, err)
	require.Nil(t, v.Manifest)

	require.NoError(t, os.WriteFile(dump.Path, []byte(strings.Repeat("x", 100)), 0o644))
	v, err = s.Verify(dump.Path)
	require.NoError(t, err)
	require.False(t, v.SizeMatches)

	_, err = s.Verify("nope.sql")
	require.Error(t, err)
}

func TestDescribe(t *testing.T) {
	require.ErrorIs(t, describe(&mysql.MySQLError{Number: 1045, Message: "Access denied for user 'x'"}), ErrAccessDenied)
	require.Contains(t, describe(&mysql.MySQLError{Number: 1146, Message: "t"}).Error(), "table inconnue")
	other := errors.New("boom")
	require.Equal(t, other, describe(other))
	require.Equal(t, "`a``b`", quoteIdent("a`b"))
}
