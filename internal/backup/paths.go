package backup

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths are the directories artifacts are written to.
type Paths struct {
	Root       string
	Sauvegarde string
	Export     string
}

// DetectPaths walks up from start looking for a directory holding go.mod or
// sauvegarde/, falling back to start itself, and creates sauvegarde/ and
// export/ under it.
func DetectPaths(start string) (Paths, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return Paths{}, err
	}
	root := abs
	for dir := abs; ; dir = filepath.Dir(dir) {
		if exists(filepath.Join(dir, "go.mod")) || isDir(filepath.Join(dir, "sauvegarde")) {
			root = dir
			break
		}
		if filepath.Dir(dir) == dir {
			break
		}
	}

	p := Paths{
		Root:       root,
		Sauvegarde: filepath.Join(root, "sauvegarde"),
		Export:     filepath.Join(root, "export"),
	}
	for _, d := range []string{p.Sauvegarde, p.Export} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return Paths{}, fmt.Errorf("création de %s: %w", d, err)
		}
	}
	return p, nil
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func isDir(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}
