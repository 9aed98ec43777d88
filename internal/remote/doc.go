// Package remote runs shell commands on remote hosts over SSH.
//
// A Runner opens exactly one SSH connection per call, executes the requested
// commands one after another on that connection (one exec channel each) and
// returns a SessionResult. Connection failures never escape as Go errors: they
// are reported inside the result as a *ConnectionError so that callers fanning
// out over many hosts can record them as data.
//
// Host key handling is explicit. A HostKeyStore either verifies keys against a
// known_hosts file, trusts unknown hosts on first use and appends them to that
// file (AutoTrust), or ignores host keys entirely when strict checking is off.
package remote
