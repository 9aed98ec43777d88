// Package audit fingerprints many hosts concurrently and gathers the results.
package audit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"ntl-systoolbox/internal/fingerprint"
	"ntl-systoolbox/internal/remote"
)

// DefaultMaxWorkers bounds the number of hosts audited at once.
const DefaultMaxWorkers = 25

// Reporter is told about audit progress. Calls may come from several
// goroutines at once.
type Reporter interface {
	AuditStarted(total int)
	HostStarted(host string)
	HostFinished(d fingerprint.SystemDescriptor)
	AuditFinished(r Report)
}

// NopReporter ignores every event.
type NopReporter struct{}

func (NopReporter) AuditStarted(int) {}
func (NopReporter) HostStarted(string) {}
func (NopReporter) HostFinished(fingerprint.SystemDescriptor) {}
func (NopReporter) AuditFinished(Report) {}

// Report is the outcome of one audit. Descriptors are in completion order.
type Report struct {
	StartedAt   time.Time                      `json:"started_at" yaml:"started_at"`
	FinishedAt  time.Time                      `json:"finished_at" yaml:"finished_at"`
	Descriptors []fingerprint.SystemDescriptor `json:"descriptors" yaml:"descriptors"`
}

// HostCount is the number of audited hosts.
func (r Report) HostCount() int { return len(r.Descriptors) }

// Failures counts hosts that could not be reached.
func (r Report) Failures() int {
	n := 0
	for _, d := range r.Descriptors {
		if d.Failed() {
			n++
		}
	}
	return n
}

// SortedByHost returns a copy of the descriptors ordered by HostIP.
func (r Report) SortedByHost() []fingerprint.SystemDescriptor {
	out := append([]fingerprint.SystemDescriptor(nil), r.Descriptors...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].HostIP < out[j].HostIP })
	return out
}

// Orchestrator runs fingerprint.Extract over a host list with bounded
// parallelism.
type Orchestrator struct {
	Runner     fingerprint.Runner
	MaxWorkers int
	// SSHDir is probed for a key when the credential has none. Empty means ~/.ssh.
	SSHDir   string
	Reporter Reporter
	Log      logrus.FieldLogger

	now func() time.Time
}

// Audit fingerprints every host and returns once all of them are done. The
// only errors are remote.ErrNoCredential, raised before any host is
// contacted, and failures to locate the home directory; per-host failures are
// recorded in the report.
func (o *Orchestrator) Audit(ctx context.Context, hosts []string, cred remote.Credential) (Report, error) {
	log := o.logger()
	rep := o.reporter()

	sshDir := o.SSHDir
	if sshDir == "" && cred.KeyPath == "" && cred.Password == "" {
		d, err := remote.DefaultSSHDir()
		if err != nil {
			return Report{}, err
		}
		sshDir = d
	}
	cred, err := remote.ResolveCredential(cred, sshDir)
	if err != nil {
		return Report{}, err
	}

	workers := o.MaxWorkers
	if workers <= 0 {
		workers = DefaultMaxWorkers
	}

	report := Report{
		StartedAt:   o.clock(),
		Descriptors: make([]fingerprint.SystemDescriptor, 0, len(hosts)),
	}
	log.WithFields(logrus.Fields{"hosts": len(hosts), "workers": workers, "user": cred.Username}).Info("audit démarré")
	rep.AuditStarted(len(hosts))

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(workers)
	for _, host := range hosts {
		g.Go(func() error {
			rep.HostStarted(host)
			d := fingerprint.Extract(ctx, host, o.Runner, cred)
			if d.HostIP == "" {
				d.HostIP = host
			}

			mu.Lock()
			report.Descriptors = append(report.Descriptors, d)
			mu.Unlock()

			entry := log.WithField("host", host)
			if d.Failed() {
				entry.WithField("error", d.Error).Warn("hôte injoignable")
			} else {
				entry.WithField("os_family", d.OSFamily).Debug("hôte audité")
			}
			rep.HostFinished(d)
			return nil
		})
	}
	_ = g.Wait()

	report.FinishedAt = o.clock()
	log.WithFields(logrus.Fields{
		"hosts":    report.HostCount(),
		"failures": report.Failures(),
		"elapsed":  report.FinishedAt.Sub(report.StartedAt).String(),
	}).Info("audit terminé")
	rep.AuditFinished(report)
	return report, nil
}

func (o *Orchestrator) clock() time.Time {
	if o.now != nil {
		return o.now()
	}
	return time.Now()
}

func (o *Orchestrator) logger() logrus.FieldLogger {
	if o.Log == nil {
		return logrus.StandardLogger()
	}
	return o.Log
}

func (o *Orchestrator) reporter() Reporter {
	if o.Reporter == nil {
		return NopReporter{}
	}
	return o.Reporter
}
