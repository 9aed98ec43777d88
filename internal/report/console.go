// Package report renders audit, diagnostic and backup results for people
// (pterm console output) and for programs (JSON, YAML).
package report

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"ntl-systoolbox/internal/audit"
	"ntl-systoolbox/internal/fingerprint"
)

// Console writes progress and summaries to w. It implements audit.Reporter
// and is safe for concurrent use.
type Console struct {
	mu sync.Mutex
	w  io.Writer

	// Verbose also prints a line when each host starts.
	Verbose bool
}

var _ audit.Reporter = (*Console)(nil)

// NewConsole returns a Console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) print(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	_, _ = io.WriteString(c.w, s)
}

// Info prints an informational line.
func (c *Console) Info(format string, a ...any) {
	c.print(pterm.Info.Sprintf(format, a...))
}

// Success prints a success line.
func (c *Console) Success(format string, a ...any) {
	c.print(pterm.Success.Sprintf(format, a...))
}

// Warning prints a warning line.
func (c *Console) Warning(format string, a ...any) {
	c.print(pterm.Warning.Sprintf(format, a...))
}

// Error prints an error line.
func (c *Console) Error(format string, a ...any) {
	c.print(pterm.Error.Sprintf(format, a...))
}

// Header prints a section title.
func (c *Console) Header(title string) {
	c.print(pterm.DefaultSection.Sprint(title))
}

// Table renders rows under headers. Nothing is printed for an empty table.
func (c *Console) Table(headers []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	data := pterm.TableData{headers}
	data = append(data, rows...)
	s, err := pterm.DefaultTable.WithHasHeader(true).WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("rendu du tableau: %w", err)
	}
	c.print(s)
	return nil
}

func (c *Console) AuditStarted(total int) {
	c.print(pterm.FgGreen.Sprintf("Début du scan de %d hôtes...", total))
}

func (c *Console) HostStarted(host string) {
	if c.Verbose {
		c.print(pterm.FgBlue.Sprintf("Tentative de connexion à %s...", host))
	}
}

func (c *Console) HostFinished(d fingerprint.SystemDescriptor) {
	if d.Failed() {
		c.print(pterm.FgRed.Sprint("[ERROR]") + fmt.Sprintf(" %s -> %s", d.HostIP, d.Error))
		return
	}
	c.print(pterm.FgGreen.Sprint("[OK]") + fmt.Sprintf(" %s -> Connexion réussie (%s)", d.HostIP, d.OSFamily))
}

func (c *Console) AuditFinished(r audit.Report) {
	c.print(pterm.FgGreen.Sprint("Audit terminé"))
	_ = c.Table(
		[]string{"Hôte", "Système", "Distribution", "Version", "Nom", "Erreur"},
		DescriptorRows(r.SortedByHost()),
	)
	c.print(fmt.Sprintf("%d hôtes, %d injoignables, durée %s",
		r.HostCount(), r.Failures(), r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond)))
}

// DescriptorRows flattens descriptors for Table.
func DescriptorRows(ds []fingerprint.SystemDescriptor) [][]string {
	rows := make([][]string, 0, len(ds))
	for _, d := range ds {
		dist := d.DistributionName
		if dist == "" {
			dist = d.Distribution
		}
		rows = append(rows, []string{d.HostIP, string(d.OSFamily), dist, oneLine(d.Version), d.Hostname, d.Error})
	}
	return rows
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
