package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"
)

func TestNew_Defaults(t *testing.T) {
	l, err := New(DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, logrus.WarnLevel, l.GetLevel())
	require.IsType(t, &logrus.TextFormatter{}, l.Formatter)
	require.Equal(t, os.Stderr, l.Out)
}

func TestNew_BadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "chatty", Stderr: &buf})
	require.NoError(t, err)
	require.Equal(t, logrus.InfoLevel, l.GetLevel())
	require.Same(t, &buf, l.Out)
	require.Contains(t, buf.String(), `niveau de log \"chatty\" invalide`)
}

func TestNew_BadLevelSilentWhenConfigFails(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "stderr")
	require.NoError(t, err)
	orig := os.Stderr
	os.Stderr = f
	t.Cleanup(func() { os.Stderr = orig; _ = f.Close() })

	var buf bytes.Buffer
	_, err = New(Config{Level: "chatty", Format: "xml", Stderr: &buf})
	require.Error(t, err)
	_, err = New(Config{Level: "chatty", Output: "syslog"})
	require.Error(t, err)

	require.Empty(t, buf.String())
	info, err := f.Stat()
	require.NoError(t, err)
	require.Zero(t, info.Size())
}

func TestNew_JSONToFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "logs", "ntl.log")
	l, err := New(Config{Level: "debug", Format: "json", Output: "file", FilePath: p, MaxSizeMB: 1})
	require.NoError(t, err)
	require.IsType(t, &logrus.JSONFormatter{}, l.Formatter)
	lj, ok := l.Out.(*lumberjack.Logger)
	require.True(t, ok)
	t.Cleanup(func() { _ = lj.Close() })

	l.WithField("host", "10.0.0.1").Debug("bonjour")
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Contains(t, string(b), `"message":"bonjour"`)
	require.Contains(t, string(b), `"host":"10.0.0.1"`)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Config{Format: "xml"})
	require.Error(t, err)
	_, err = New(Config{Output: "syslog"})
	require.Error(t, err)
	_, err = New(Config{Output: "file"})
	require.Error(t, err)
}
