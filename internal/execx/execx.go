package execx

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runner abstracts command execution so packages can be unit-tested without
// touching the host (ifconfig/ioreg).
type Runner interface {
	Output(name string, args ...string) (string, error)
}

// CommandError is returned when a command exits unsuccessfully. Output holds
// whatever the command printed so callers can classify the failure.
type CommandError struct {
	Name   string
	Args   []string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	cmdline := strings.TrimSpace(e.Name + " " + strings.Join(e.Args, " "))
	msg := strings.TrimSpace(e.Output)
	if msg != "" {
		return fmt.Sprintf("%s: %v: %s", cmdline, e.Err, msg)
	}
	return fmt.Sprintf("%s: %v", cmdline, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// OutputContains reports whether err is a CommandError whose output (or the
// error text itself) contains substr.
func OutputContains(err error, substr string) bool {
	if err == nil {
		return false
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return strings.Contains(cmdErr.Output, substr)
	}
	return strings.Contains(err.Error(), substr)
}

// OSRunner executes commands on the host via os/exec.
type OSRunner struct{}

func NewOSRunner() *OSRunner { return &OSRunner{} }

// Output runs the command and returns its stdout, untrimmed since some
// callers decode it as a document. On failure the returned CommandError
// carries stdout followed by stderr.
func (r *OSRunner) Output(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &CommandError{
			Name:   name,
			Args:   args,
			Output: stdout.String() + stderr.String(),
			Err:    err,
		}
	}
	return stdout.String(), nil
}
