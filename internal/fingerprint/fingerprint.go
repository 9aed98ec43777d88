// Package fingerprint identifies the operating system of a remote host from
// the output of a few shell commands.
package fingerprint

import (
	"bufio"
	"context"
	"strings"

	"ntl-systoolbox/internal/remote"
)

// OSFamily is the coarse operating system class of a host.
type OSFamily string

const (
	Linux   OSFamily = "linux"
	Windows OSFamily = "windows"
	Unknown OSFamily = "unknown"
)

const (
	cmdOSRelease = "cat /etc/os-release"
	cmdUname     = "uname -a"
	cmdHostname  = "hostname"
	cmdVer       = "ver"
)

// LinuxCommands is tried first on every host.
var LinuxCommands = []string{cmdOSRelease, cmdUname, cmdHostname}

// WindowsCommands is tried when the Linux set gave nothing usable.
var WindowsCommands = []string{cmdVer, cmdHostname}

// Runner executes a batch of commands on one host.
type Runner interface {
	Run(ctx context.Context, host string, cred remote.Credential, commands []string) remote.SessionResult
}

// SystemDescriptor is the normalized fingerprint of one host. Fields other
// than HostIP are left empty when the matching branch did not populate them.
type SystemDescriptor struct {
	Hostname         string   `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	OSFamily         OSFamily `json:"os_family,omitempty" yaml:"os_family,omitempty"`
	Distribution     string   `json:"distribution,omitempty" yaml:"distribution,omitempty"`
	DistributionName string   `json:"distribution_name,omitempty" yaml:"distribution_name,omitempty"`
	Version          string   `json:"version,omitempty" yaml:"version,omitempty"`
	KernelVersion    string   `json:"kernel_version,omitempty" yaml:"kernel_version,omitempty"`
	HostIP           string   `json:"host_ip" yaml:"host_ip"`
	Error            string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the host could not be fingerprinted at all.
func (d SystemDescriptor) Failed() bool { return d.Error != "" }

// Extract fingerprints host: Linux commands first, then Windows ones. A host
// that accepted the connection but matched neither is reported as Unknown;
// one that refused both attempts carries the Linux attempt's error.
func Extract(ctx context.Context, host string, runner Runner, cred remote.Credential) SystemDescriptor {
	lin := runner.Run(ctx, host, cred, LinuxCommands)
	if d, ok := fromLinux(host, lin); ok {
		return d
	}

	win := runner.Run(ctx, host, cred, WindowsCommands)
	if d, ok := fromWindows(host, win); ok {
		return d
	}

	switch {
	case lin.Success || win.Success:
		hostname := lin.Stdout(cmdHostname)
		if hostname == "" {
			hostname = win.Stdout(cmdHostname)
		}
		return SystemDescriptor{HostIP: host, OSFamily: Unknown, Hostname: hostname}
	case lin.Error != "":
		return SystemDescriptor{HostIP: host, Error: lin.Error}
	default:
		return SystemDescriptor{HostIP: host, Error: win.Error}
	}
}

func fromLinux(host string, res remote.SessionResult) (SystemDescriptor, bool) {
	if !res.Success {
		return SystemDescriptor{}, false
	}
	release := res.Output(cmdOSRelease)
	uname := res.Output(cmdUname)
	if !evidence(release) && !evidence(uname) {
		return SystemDescriptor{}, false
	}
	d := SystemDescriptor{
		HostIP:        host,
		OSFamily:      Linux,
		Hostname:      res.Stdout(cmdHostname),
		KernelVersion: uname.Stdout,
	}
	if evidence(release) {
		kv := ParseOSRelease(release.Stdout)
		d.Distribution = kv["ID"]
		d.DistributionName = kv["PRETTY_NAME"]
		d.Version = kv["VERSION_ID"]
	}
	return d, true
}

func fromWindows(host string, res remote.SessionResult) (SystemDescriptor, bool) {
	if !res.Success {
		return SystemDescriptor{}, false
	}
	ver := res.Output(cmdVer)
	if !evidence(ver) {
		return SystemDescriptor{}, false
	}
	return SystemDescriptor{
		HostIP:   host,
		OSFamily: Windows,
		Hostname: res.Stdout(cmdHostname),
		Version:  ver.Stdout,
	}, true
}

// evidence reports whether a command printed something and exited cleanly.
func evidence(c remote.CommandResult) bool {
	return c.Stdout != "" && c.ExitCode == 0 && c.Error == ""
}

// ParseOSRelease parses os-release(5) KEY=VALUE lines. Surrounding double
// quotes are removed; blank lines and comments are skipped.
func ParseOSRelease(content string) map[string]string {
	out := make(map[string]string)
	sc := bufio.NewScanner(strings.NewReader(content))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if len(v) >= 2 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
			v = v[1 : len(v)-1]
		}
		out[strings.TrimSpace(k)] = v
	}
	return out
}
