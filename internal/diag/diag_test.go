package diag

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"ntl-systoolbox/internal/fingerprint"
	"ntl-systoolbox/internal/remote"
	"ntl-systoolbox/internal/remote/remotetest"
)

type tableRunner struct {
	fail    string
	replies map[string]remote.CommandResult
	batches int
}

func (r *tableRunner) Run(_ context.Context, host string, _ remote.Credential, commands []string) remote.SessionResult {
	r.batches++
	if r.fail != "" {
		return remote.SessionResult{Host: host, Error: r.fail, Outputs: map[string]remote.CommandResult{}}
	}
	res := remote.SessionResult{Host: host, Success: true, Outputs: map[string]remote.CommandResult{}}
	for _, c := range commands {
		out, ok := r.replies[c]
		if !ok {
			out = remote.CommandResult{Stderr: "not found", ExitCode: 127}
		}
		out.Command = c
		res.Outputs[c] = out
	}
	return res
}

func stdout(s string) remote.CommandResult { return remote.CommandResult{Stdout: s} }

func TestDetect(t *testing.T) {
	mk := func(kv map[string]string) remote.SessionResult {
		res := remote.SessionResult{Success: true, Outputs: map[string]remote.CommandResult{}}
		for k, v := range kv {
			res.Outputs[k] = stdout(v)
		}
		return res
	}
	require.Equal(t, fingerprint.Linux, Detect(mk(map[string]string{detectUname: "Linux"})))
	require.Equal(t, fingerprint.Windows, Detect(mk(map[string]string{detectVer: "Microsoft Windows [Version 10.0.20348]"})))
	require.Equal(t, fingerprint.Windows, Detect(mk(map[string]string{detectReg: "    ProductName    REG_SZ    Windows Server 2022"})))
	require.Equal(t, fingerprint.Unknown, Detect(mk(map[string]string{detectUname: "FreeBSD"})))
	require.Equal(t, fingerprint.Unknown, Detect(mk(nil)))
}

func TestRun_Linux(t *testing.T) {
	r := &tableRunner{replies: map[string]remote.CommandResult{
		detectUname: stdout("Linux"),
		linuxOSName: stdout("Ubuntu 22.04.3 LTS"),
		linuxUptime: stdout("up 3 days, 2 hours"),
		linuxCPU:    stdout("4.2"),
		linuxRAM:    stdout("37"),
		linuxDisk:   stdout("41% (20G total)"),
		linuxSSSD:   stdout("active"),
		linuxBind9:  {Stdout: "inactive", ExitCode: 3},
	}}

	rep := Run(context.Background(), r, "10.0.0.2", remote.Credential{Username: "admin", Password: "pw"})
	require.Equal(t, Report{
		Host:       "10.0.0.2",
		OSFamily:   fingerprint.Linux,
		OSName:     "Ubuntu 22.04.3 LTS",
		Uptime:     "up 3 days, 2 hours",
		CPUPercent: "4.2",
		RAMPercent: "37",
		Disk:       "41% (20G total)",
		Services:   []Service{{"SSSD", Active}, {"BIND9", Inactive}},
	}, rep)
	require.Equal(t, 2, r.batches)
}

func TestRun_Windows(t *testing.T) {
	r := &tableRunner{replies: map[string]remote.CommandResult{
		detectVer: stdout("Microsoft Windows [Version 10.0.20348.2031]"),
		winUptime: stdout("200000"),
		winCPU:    stdout("12"),
		winRAM:    stdout("55"),
		winDisk:   stdout("\r\n\r\nFreeSpace=53687091200\r\nSize=107374182400\r\n"),
		winNTDS:   stdout("        STATE              : 4  RUNNING"),
		winDNS:    {Stderr: "FAILED 1060", ExitCode: 1},
	}}

	rep := Run(context.Background(), r, "10.0.0.3", remote.Credential{})
	require.Equal(t, fingerprint.Windows, rep.OSFamily)
	require.Equal(t, "Microsoft Windows [Version 10.0.20348.2031]", rep.OSName)
	require.Equal(t, "2j 7h", rep.Uptime)
	require.Equal(t, "12", rep.CPUPercent)
	require.Equal(t, "50.0% (100 Go)", rep.Disk)
	require.Equal(t, []Service{{"NTDS", Active}, {"DNS", Inactive}}, rep.Services)
}

func TestRun_WindowsBadValues(t *testing.T) {
	r := &tableRunner{replies: map[string]remote.CommandResult{
		detectReg: stdout("ProductName    REG_SZ    Windows Server 2019"),
		winOSName: stdout("OS Name:   Microsoft Windows Server 2019\r\nOS Version:   10.0.17763"),
		winUptime: stdout("n/a"),
		winDisk:   stdout("nothing useful"),
	}}
	rep := Run(context.Background(), r, "dc01", remote.Credential{})
	require.Equal(t, "OS Name: Microsoft Windows Server 2019 OS Version: 10.0.17763", rep.OSName)
	require.Equal(t, Unavailable, rep.Uptime)
	require.Equal(t, Unavailable, rep.CPUPercent)
	require.Equal(t, "C: erreur d'analyse", rep.Disk)
}

func TestRun_UnknownNeverDefaultsToWindows(t *testing.T) {
	r := &tableRunner{replies: map[string]remote.CommandResult{detectUname: stdout("SunOS")}}
	rep := Run(context.Background(), r, "box", remote.Credential{})
	require.Equal(t, fingerprint.Unknown, rep.OSFamily)
	require.Empty(t, rep.Services)
	require.Empty(t, rep.Error)
	require.Equal(t, 1, r.batches)
}

func TestRun_ConnectionFailure(t *testing.T) {
	r := &tableRunner{fail: "ssh: unable to authenticate"}
	rep := Run(context.Background(), r, "box", remote.Credential{})
	require.Equal(t, Report{Host: "box", Error: "ssh: unable to authenticate"}, rep)
}

func TestFormatUptime(t *testing.T) {
	require.Equal(t, "0j 0h", FormatUptime(59))
	require.Equal(t, "0j 1h", FormatUptime(3600))
	require.Equal(t, "1j 0h", FormatUptime(86400))
	require.Equal(t, "10j 23h", FormatUptime(10*86400+23*3600+3599))
}

func TestParseWMICDisk(t *testing.T) {
	require.Equal(t, "25.0% (4 Go)", ParseWMICDisk("FreeSpace=3221225472\nSize=4294967296"))
	require.Equal(t, "C: erreur d'analyse", ParseWMICDisk("Size=0\nFreeSpace=0"))
	require.Equal(t, "C: erreur d'analyse", ParseWMICDisk("Size=100"))
}

func TestRun_AgainstSSHServer(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	replies := remotetest.Merge(remotetest.LinuxReplies("ns1", remotetest.UbuntuOSRelease), map[string]remotetest.Reply{
		linuxOSName: {Stdout: "Ubuntu 22.04 LTS\n"},
		linuxUptime: {Stdout: "up 5 minutes\n"},
		linuxBind9:  {Stdout: "active\n"},
		linuxSSSD:   {Stdout: "inactive\n", ExitStatus: 3},
	})
	srv, err := remotetest.Start("127.0.0.1:0", replies)
	require.NoError(t, err)
	defer func() { _ = srv.Close() }()

	logger, _ := test.NewNullLogger()
	rep := Run(context.Background(), remote.NewRunner(nil, logger), srv.Addr(), remote.Credential{Username: "u", Password: "p"})
	require.Equal(t, fingerprint.Linux, rep.OSFamily)
	require.Equal(t, "Ubuntu 22.04 LTS", rep.OSName)
	require.Equal(t, "up 5 minutes", rep.Uptime)
	require.Equal(t, Unavailable, rep.CPUPercent)
	require.Equal(t, []Service{{"SSSD", Inactive}, {"BIND9", Active}}, rep.Services)
}
