package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ManifestSuffix is appended to the artifact file name.
const ManifestSuffix = ".manifest.json"

// Manifest describes one artifact.
type Manifest struct {
	TraceID   string            `json:"trace_id"`
	Kind      string            `json:"kind"`
	Artifact  string            `json:"artifact"`
	SizeBytes int64             `json:"size_bytes"`
	CreatedAt string            `json:"created_at"`
	Extra     map[string]string `json:"extra"`
}

// WriteManifest writes <artifact>.manifest.json and returns its path. A
// missing artifact is recorded with size 0.
func WriteManifest(artifact, kind string, extra map[string]string, now time.Time) (string, error) {
	var size int64
	if fi, err := os.Stat(artifact); err == nil {
		size = fi.Size()
	}
	if extra == nil {
		extra = map[string]string{}
	}
	m := Manifest{
		TraceID:   uuid.NewString(),
		Kind:      kind,
		Artifact:  filepath.Base(artifact),
		SizeBytes: size,
		CreatedAt: now.UTC().Format("2006-01-02T15:04:05Z"),
		Extra:     extra,
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}
	path := artifact + ManifestSuffix
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("écriture du manifest: %w", err)
	}
	return path, nil
}

// ReadManifest loads the manifest stored next to artifact.
func ReadManifest(artifact string) (Manifest, error) {
	var m Manifest
	b, err := os.ReadFile(artifact + ManifestSuffix)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("manifest illisible: %w", err)
	}
	return m, nil
}
