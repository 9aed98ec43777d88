// Command ssh_test_server runs a fake Linux or Windows host for trying the
// toolbox by hand, e.g.
//
//	go run ./tools/ssh_test_server --persona windows
//	ntl-systoolbox audit audit-system-ssh 127.0.0.1:20222 -u lab --password lab --strict-host-key=false
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"ntl-systoolbox/internal/diag"
	"ntl-systoolbox/internal/remote/remotetest"
)

func main() {
	listen := pflag.String("listen", "127.0.0.1:20222", "address to listen on")
	persona := pflag.String("persona", "linux", "host to impersonate: linux or windows")
	hostname := pflag.String("hostname", "lab01", "hostname reported by the fake host")
	user := pflag.String("user", "lab", "accepted username")
	password := pflag.String("password", "lab", "accepted password; empty accepts any client")
	pflag.Parse()

	replies, err := personaReplies(*persona, *hostname)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	var opts []remotetest.Option
	if *password != "" {
		opts = append(opts, remotetest.WithPassword(*user, *password))
	}

	srv, err := remotetest.Start(*listen, replies, opts...)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "failed to start test ssh server:", err)
		os.Exit(1)
	}
	defer func() { _ = srv.Close() }()
	_, _ = fmt.Fprintf(os.Stderr, "test ssh server (%s) listening on %s\n", *persona, srv.Addr())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}

func personaReplies(persona, hostname string) (map[string]remotetest.Reply, error) {
	switch persona {
	case "linux":
		return remotetest.Merge(
			remotetest.LinuxReplies(hostname, remotetest.UbuntuOSRelease),
			zip(diag.LinuxCommands, []remotetest.Reply{
				{Stdout: "Ubuntu 22.04 LTS\n"},
				{Stdout: "up 3 days, 4 hours\n"},
				{Stdout: "7.5\n"},
				{Stdout: "41\n"},
				{Stdout: "38% (48G total)"},
				{Stdout: "active\n"},
				{Stdout: "inactive\n", ExitStatus: 3},
			}),
		), nil
	case "windows":
		return remotetest.Merge(
			remotetest.WindowsReplies(hostname, remotetest.WindowsVer),
			zip(diag.WindowsCommands, []remotetest.Reply{
				{Stdout: "OS Name:                   Microsoft Windows Server 2022 Standard\r\nOS Version:                10.0.20348 N/A Build 20348\r\n"},
				{Stdout: remotetest.WindowsVer},
				{Stdout: "277200\r\n"},
				{Stdout: "12\r\n"},
				{Stdout: "63\r\n"},
				{Stdout: "\r\n\r\nFreeSpace=53687091200\r\nSize=107374182400\r\n\r\n"},
				{Stdout: "        STATE              : 4  RUNNING\r\n"},
				{Stdout: "        STATE              : 4  RUNNING\r\n"},
			}),
		), nil
	}
	return nil, fmt.Errorf("unknown persona %q (linux or windows)", persona)
}

// zip pairs commands with replies of the same order.
func zip(commands []string, replies []remotetest.Reply) map[string]remotetest.Reply {
	out := make(map[string]remotetest.Reply, len(commands))
	for i, c := range commands {
		if i < len(replies) {
			out[c] = replies[i]
		}
	}
	return out
}
