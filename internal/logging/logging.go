// Package logging builds the logrus logger shared by every command.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const timestampFormat = "2006-01-02 15:04:05.000"

// Config selects level, format and destination of the diagnostic log. The
// console output of the toolbox itself never goes through it.
type Config struct {
	Level  string // trace, debug, info, warn, error
	Format string // text or json
	Output string // stderr, stdout or file
	// File rotation, used when Output is "file".
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	// Stderr replaces os.Stderr for the "stderr" output when set.
	Stderr io.Writer
}

// DefaultConfig logs warnings and above as text on stderr.
func DefaultConfig() Config {
	return Config{
		Level:      "warn",
		Format:     "text",
		Output:     "stderr",
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 28,
	}
}

// New returns a configured logger. An unparsable level falls back to info.
func New(cfg Config) (*logrus.Logger, error) {
	logger := logrus.New()

	level, levelErr := logrus.ParseLevel(cfg.Level)
	if levelErr != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: timestampFormat,
			FullTimestamp:   true,
		})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	default:
		return nil, fmt.Errorf("format de log non supporté: %s", cfg.Format)
	}

	out, err := output(cfg)
	if err != nil {
		return nil, err
	}
	logger.SetOutput(out)
	if levelErr != nil {
		logger.Warnf("niveau de log %q invalide, utilisation de \"info\"", cfg.Level)
	}
	return logger, nil
}

func output(cfg Config) (io.Writer, error) {
	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		if cfg.Stderr != nil {
			return cfg.Stderr, nil
		}
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	case "file":
		if cfg.FilePath == "" {
			return nil, fmt.Errorf("un chemin de fichier est requis pour la sortie file")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return nil, fmt.Errorf("création du dossier de logs: %w", err)
		}
		return &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}, nil
	default:
		return nil, fmt.Errorf("sortie de log non supportée: %s", cfg.Output)
	}
}
