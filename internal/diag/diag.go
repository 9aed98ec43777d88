// Package diag collects a health snapshot (OS, uptime, load, disk, directory
// services) from a Linux or Windows server over SSH.
package diag

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"ntl-systoolbox/internal/fingerprint"
	"ntl-systoolbox/internal/remote"
)

// Unavailable replaces any value whose command failed.
const Unavailable = "ERREUR"

const (
	Active   = "ACTIF"
	Inactive = "KO"
)

// Runner executes a batch of commands on one host.
type Runner interface {
	Run(ctx context.Context, host string, cred remote.Credential, commands []string) remote.SessionResult
}

// Service is the state of one monitored daemon.
type Service struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

// Report is the diagnostic of one host.
type Report struct {
	Host       string               `json:"host"`
	OSFamily   fingerprint.OSFamily `json:"os_family,omitempty"`
	OSName     string               `json:"os_name,omitempty"`
	Uptime     string               `json:"uptime,omitempty"`
	CPUPercent string               `json:"cpu_percent,omitempty"`
	RAMPercent string               `json:"ram_percent,omitempty"`
	Disk       string               `json:"disk,omitempty"`
	Services   []Service            `json:"services,omitempty"`
	Error      string               `json:"error,omitempty"`
}

const (
	detectUname = "uname -s"
	detectReg   = `reg query "HKLM\SOFTWARE\Microsoft\Windows NT\CurrentVersion" /v ProductName 2>nul`
	detectVer   = "ver"
)

// DetectCommands decide which command set applies.
var DetectCommands = []string{detectUname, detectReg, detectVer}

const (
	linuxOSName = `grep PRETTY_NAME /etc/os-release 2>/dev/null | cut -d'"' -f2`
	linuxUptime = "uptime -p"
	linuxCPU    = `top -bn1 | grep "%Cpu" | awk '{print $2}' | cut -d"%" -f1`
	linuxRAM    = `free | grep "^Mem:" | awk '{print int($3/$2 * 100)}'`
	linuxDisk   = `df -h / | tail -1 | awk '{printf "%s (%s total)", $5, $2}'`
	linuxSSSD   = "systemctl is-active sssd"
	linuxBind9  = "systemctl is-active bind9"
)

// LinuxCommands is the Linux diagnostic set.
var LinuxCommands = []string{linuxOSName, linuxUptime, linuxCPU, linuxRAM, linuxDisk, linuxSSSD, linuxBind9}

const (
	winOSName = `systeminfo | findstr /B /C:"OS Name" /C:"OS Version"`
	winUptime = `powershell -c "[math]::Round(((Get-Date)-(Get-CimInstance Win32_OperatingSystem).LastBootUpTime).TotalSeconds)"`
	winCPU    = `powershell -c "(Get-CimInstance Win32_Processor | Measure-Object -Property LoadPercentage -Average).Average"`
	winRAM    = `powershell -c "$o=Get-CimInstance Win32_OperatingSystem; [math]::Round((1-$o.FreePhysicalMemory/$o.TotalVisibleMemorySize)*100)"`
	winDisk   = `wmic logicaldisk where "DeviceID='C:'" get Size,FreeSpace /value`
	winNTDS   = `sc query NTDS | findstr "RUNNING"`
	winDNS    = `sc query DNS | findstr "RUNNING"`
)

// WindowsCommands is the Windows diagnostic set. ver is kept as a fallback
// for the OS name.
var WindowsCommands = []string{winOSName, detectVer, winUptime, winCPU, winRAM, winDisk, winNTDS, winDNS}

// Detect classifies a host from the output of DetectCommands. Without
// evidence for either family the result is Unknown.
func Detect(res remote.SessionResult) fingerprint.OSFamily {
	switch {
	case strings.Contains(res.Stdout(detectReg), "ProductName"),
		strings.Contains(res.Stdout(detectVer), "Microsoft Windows"):
		return fingerprint.Windows
	case strings.Contains(res.Stdout(detectUname), "Linux"):
		return fingerprint.Linux
	}
	return fingerprint.Unknown
}

// Run diagnoses host. Connection failures are reported in Report.Error; an
// unrecognized system stops after detection.
func Run(ctx context.Context, runner Runner, host string, cred remote.Credential) Report {
	rep := Report{Host: host}

	det := runner.Run(ctx, host, cred, DetectCommands)
	if !det.Success {
		rep.Error = det.Error
		return rep
	}
	rep.OSFamily = Detect(det)

	switch rep.OSFamily {
	case fingerprint.Linux:
		res := runner.Run(ctx, host, cred, LinuxCommands)
		if !res.Success {
			rep.Error = res.Error
			return rep
		}
		fillLinux(&rep, res)
	case fingerprint.Windows:
		res := runner.Run(ctx, host, cred, WindowsCommands)
		if !res.Success {
			rep.Error = res.Error
			return rep
		}
		fillWindows(&rep, res)
	}
	return rep
}

func fillLinux(rep *Report, res remote.SessionResult) {
	rep.OSName = value(res.Output(linuxOSName))
	rep.Uptime = value(res.Output(linuxUptime))
	rep.CPUPercent = value(res.Output(linuxCPU))
	rep.RAMPercent = value(res.Output(linuxRAM))
	rep.Disk = value(res.Output(linuxDisk))
	rep.Services = []Service{
		{Name: "SSSD", State: systemdState(res.Output(linuxSSSD))},
		{Name: "BIND9", State: systemdState(res.Output(linuxBind9))},
	}
}

func fillWindows(rep *Report, res remote.SessionResult) {
	rep.OSName = value(res.Output(winOSName))
	if rep.OSName == Unavailable {
		rep.OSName = value(res.Output(detectVer))
	}
	if rep.OSName != Unavailable {
		rep.OSName = strings.Join(strings.Fields(strings.ReplaceAll(rep.OSName, "\r", "")), " ")
	}

	rep.Uptime = Unavailable
	if up := value(res.Output(winUptime)); up != Unavailable {
		if sec, err := strconv.ParseInt(up, 10, 64); err == nil && sec >= 0 {
			rep.Uptime = FormatUptime(sec)
		}
	}
	rep.CPUPercent = value(res.Output(winCPU))
	rep.RAMPercent = value(res.Output(winRAM))

	rep.Disk = "C: " + Unavailable
	if raw := value(res.Output(winDisk)); raw != Unavailable {
		rep.Disk = ParseWMICDisk(raw)
	}
	rep.Services = []Service{
		{Name: "NTDS", State: runningState(res.Output(winNTDS))},
		{Name: "DNS", State: runningState(res.Output(winDNS))},
	}
}

// value is the command's stdout, or Unavailable when it failed or printed
// nothing.
func value(c remote.CommandResult) string {
	if c.Stdout == "" || c.Err() != nil {
		return Unavailable
	}
	return c.Stdout
}

// systemdState maps `systemctl is-active` output. Only an exact "active"
// counts; "inactive" and "activating" do not.
func systemdState(c remote.CommandResult) string {
	if strings.TrimSpace(c.Stdout) == "active" {
		return Active
	}
	return Inactive
}

func runningState(c remote.CommandResult) string {
	if strings.Contains(c.Stdout, "RUNNING") {
		return Active
	}
	return Inactive
}

// FormatUptime renders seconds as "Xj Yh".
func FormatUptime(seconds int64) string {
	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	return fmt.Sprintf("%dj %dh", days, hours)
}

var (
	wmicSize = regexp.MustCompile(`Size=(\d+)`)
	wmicFree = regexp.MustCompile(`FreeSpace=(\d+)`)
)

// ParseWMICDisk turns `wmic logicaldisk ... get Size,FreeSpace /value` output
// into "42.5% (476 Go)".
func ParseWMICDisk(raw string) string {
	sm := wmicSize.FindStringSubmatch(raw)
	fm := wmicFree.FindStringSubmatch(raw)
	if sm == nil || fm == nil {
		return "C: erreur d'analyse"
	}
	total, err1 := strconv.ParseUint(sm[1], 10, 64)
	free, err2 := strconv.ParseUint(fm[1], 10, 64)
	if err1 != nil || err2 != nil || total == 0 || free > total {
		return "C: erreur d'analyse"
	}
	used := float64(total-free) / float64(total) * 100
	return fmt.Sprintf("%.1f%% (%d Go)", used, total/(1<<30))
}
