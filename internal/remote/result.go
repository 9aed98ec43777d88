package remote

// CommandResult is the captured output of one remote command.
type CommandResult struct {
	Command  string `json:"command" yaml:"command"`
	Stdout   string `json:"stdout" yaml:"stdout"`
	Stderr   string `json:"stderr" yaml:"stderr"`
	ExitCode int    `json:"exit_code" yaml:"exit_code"`
	// Error is set when the command could not run to completion (timeout,
	// channel failure).
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Err returns a *PartialCommandError when the command wrote to stderr, exited
// non-zero or failed to run, and nil otherwise.
func (c CommandResult) Err() error {
	if c.Stderr == "" && c.ExitCode == 0 && c.Error == "" {
		return nil
	}
	return &PartialCommandError{Command: c.Command, Stderr: c.Stderr, ExitCode: c.ExitCode, Reason: c.Error}
}

// OK reports whether the command produced output and no error.
func (c CommandResult) OK() bool {
	return c.Stdout != "" && c.Err() == nil
}

// SessionResult is what one Runner.Run call produced for a host.
type SessionResult struct {
	Host    string                   `json:"host" yaml:"host"`
	Success bool                     `json:"success" yaml:"success"`
	Outputs map[string]CommandResult `json:"outputs" yaml:"outputs"`
	Error   string                   `json:"error,omitempty" yaml:"error,omitempty"`

	// Err holds the typed connection failure when Success is false.
	Err *ConnectionError `json:"-" yaml:"-"`
}

// Output returns the result recorded for cmd, or a zero value.
func (r SessionResult) Output(cmd string) CommandResult {
	return r.Outputs[cmd]
}

// Stdout is shorthand for Output(cmd).Stdout.
func (r SessionResult) Stdout(cmd string) string {
	return r.Outputs[cmd].Stdout
}

func failedSession(host string, err *ConnectionError) SessionResult {
	return SessionResult{
		Host:    host,
		Success: false,
		Outputs: map[string]CommandResult{},
		Error:   err.Error(),
		Err:     err,
	}
}
