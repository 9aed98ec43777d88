package report

import (
	"fmt"
	"path/filepath"
	"strconv"

	"ntl-systoolbox/internal/backup"
	"ntl-systoolbox/internal/diag"
	"ntl-systoolbox/internal/fingerprint"
)

// Diag prints one diagnostic report.
func (c *Console) Diag(r diag.Report) {
	c.Header("DIAGNOSTIC " + r.Host)
	if r.Error != "" {
		c.Error("Erreur : %s", r.Error)
		return
	}
	switch r.OSFamily {
	case fingerprint.Linux:
		c.Info("Système détecté : Linux")
	case fingerprint.Windows:
		c.Info("Système détecté : Windows")
	default:
		c.Warning("Système non reconnu, diagnostic interrompu")
		return
	}

	disk := "Disque /"
	if r.OSFamily == fingerprint.Windows {
		disk = "Disque C:"
	}
	rows := [][]string{
		{"OS", r.OSName},
		{"Uptime", r.Uptime},
		{"CPU", percent(r.CPUPercent) + " d'utilisation"},
		{"RAM", percent(r.RAMPercent) + " d'utilisation"},
		{disk, r.Disk},
	}
	for _, s := range r.Services {
		rows = append(rows, []string{s.Name, s.State})
	}
	_ = c.Table([]string{"Élément", "Valeur"}, rows)
	c.Success("DIAGNOSTIC TERMINÉ")
}

func percent(v string) string {
	if v == diag.Unavailable {
		return v
	}
	return v + "%"
}

// Dump prints the outcome of a dump.
func (c *Console) Dump(r backup.DumpResult) {
	if r.Fallback {
		c.Warning("Échec du dump réel (%s), fichier de remplacement écrit", r.Reason)
	}
	c.Success("Dump créé : %s", r.Path)
	c.Info("Manifest : %s", r.Manifest)
}

// Export prints the outcome of a CSV export.
func (c *Console) Export(r backup.ExportResult) {
	c.Success("CSV créé : %s (%d lignes)", r.Path, r.Rows)
	c.Info("Manifest : %s", r.Manifest)
}

// Tables lists table names, at most limit of them.
func (c *Console) Tables(tables []string, limit int) {
	c.Header("Tables disponibles")
	for i, t := range tables {
		if limit > 0 && i == limit {
			c.Warning("... %d autres tables non affichées", len(tables)-limit)
			break
		}
		c.print("  - " + t)
	}
}

// Artifacts lists the files of sauvegarde/ and export/.
func (c *Console) Artifacts(arts []backup.Artifact) {
	if len(arts) == 0 {
		c.Info("Aucun fichier dans sauvegarde/ ni export/.")
		return
	}
	rows := make([][]string, 0, len(arts))
	for _, a := range arts {
		rows = append(rows, []string{
			filepath.Base(filepath.Dir(a.Path)),
			filepath.Base(a.Path),
			strconv.FormatInt(a.Size, 10),
			a.ModTime.Format("2006-01-02 15:04:05"),
		})
	}
	_ = c.Table([]string{"Dossier", "Fichier", "Octets", "Modifié"}, rows)
}

// Verification prints the outcome of backup verification.
func (c *Console) Verification(v backup.Verification) {
	c.Success("Fichier trouvé : %s (%d octets)", v.Path, v.Size)
	c.Info("SHA-256 : %s", v.SHA256)
	switch {
	case v.Manifest == nil:
		c.Warning("Aucun manifest associé")
	case v.SizeMatches:
		c.Success("Taille conforme au manifest (trace %s)", v.Manifest.TraceID)
	default:
		c.Error("Taille différente du manifest : %s", fmt.Sprintf("%d != %d", v.Size, v.Manifest.SizeBytes))
	}
}
