package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

// runRemoteCommand executes cmd on a fresh session of client and returns its
// trimmed stdout/stderr. A timeout of 0 disables the per-command deadline;
// ctx cancellation is always honoured.
func runRemoteCommand(ctx context.Context, client sessionClient, cmd string, timeout time.Duration) CommandResult {
	type outcome struct {
		stdout, stderr []byte
		err            error
	}

	res := CommandResult{Command: cmd}

	sess, err := client.NewSession()
	if err != nil {
		res.ExitCode = -1
		res.Error = fmt.Sprintf("ouverture de session: %v", err)
		return res
	}

	ch := make(chan outcome, 1)
	go func() {
		stdout, stderr, err := sess.Output(cmd)
		_ = sess.Close()
		ch <- outcome{stdout, stderr, err}
	}()

	var deadline <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}

	select {
	case o := <-ch:
		res.Stdout = strings.TrimSpace(string(o.stdout))
		res.Stderr = strings.TrimSpace(string(o.stderr))
		if o.err != nil {
			var ee *ssh.ExitError
			if errors.As(o.err, &ee) {
				res.ExitCode = ee.ExitStatus()
			} else {
				res.ExitCode = -1
				res.Error = o.err.Error()
			}
		}
	case <-deadline:
		// The session is released when the connection closes.
		res.ExitCode = -1
		res.Error = fmt.Sprintf("délai dépassé après %s", timeout)
	case <-ctx.Done():
		res.ExitCode = -1
		res.Error = ctx.Err().Error()
	}
	return res
}
