// Package runner executes the privileged system commands that make up
// the maintenance workflow and records every attempt in the journal.
// Ordinary command failure is data in the returned Outcome, never an
// error that unwinds the caller.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Stephen-Kennedy/postfix-install/pkg/journal"
	"github.com/Stephen-Kennedy/postfix-install/pkg/metrics"
)

// DefaultTimeout bounds a single command run. Package upgrades can be
// legitimately slow; anything beyond this is treated as hung.
const DefaultTimeout = 30 * time.Minute

// FailureClass distinguishes how a command failed.
type FailureClass string

const (
	// FailureNone marks a successful outcome.
	FailureNone FailureClass = ""
	// FailureExit marks a command that ran to completion with a
	// non-zero exit status.
	FailureExit FailureClass = "exit"
	// FailureStart marks a command that could not be located or
	// started at all.
	FailureStart FailureClass = "start"
	// FailureTimeout marks a command killed at the execution deadline.
	FailureTimeout FailureClass = "timeout"
)

// Command describes one system invocation.
type Command struct {
	// Label names the command in journal entries, metrics, and
	// reports. Defaults to the executable's base name.
	Label string
	// Argv is the command line without any privilege-escalation
	// wrapper; the first token is the executable.
	Argv []string
	// Sudo prepends non-interactive privilege escalation. Unattended
	// runs must fail fast instead of waiting on a password prompt.
	Sudo bool
	// Stdin, when set, is streamed to the process (debconf preseeding).
	Stdin io.Reader
	// Env entries are appended to the inherited environment.
	Env []string
}

// Outcome is the immutable record of one command execution.
type Outcome struct {
	// Command is the argv that actually ran, escalation included.
	Command   []string
	Succeeded bool
	Stdout    string
	Stderr    string
	// ExitCode is set only when the process ran to completion.
	ExitCode *int
	Class    FailureClass
	Err      error
	Duration time.Duration
}

// CommandLine returns the executed argv as one printable line.
func (o Outcome) CommandLine() string {
	return strings.Join(o.Command, " ")
}

// Runner executes commands synchronously, one at a time.
type Runner interface {
	Run(ctx context.Context, cmd Command) Outcome
}

// Options tunes execution behavior.
type Options struct {
	// Timeout bounds each command; zero means DefaultTimeout.
	Timeout time.Duration
}

type execRunner struct {
	journal *journal.Journal
	timeout time.Duration
}

// New builds a Runner that records every attempt to the given journal.
func New(j *journal.Journal, opts Options) Runner {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &execRunner{journal: j, timeout: timeout}
}

func (r *execRunner) Run(ctx context.Context, cmd Command) Outcome {
	label := commandLabel(cmd)
	outcome := Outcome{Command: buildArgv(cmd)}

	if len(cmd.Argv) == 0 || cmd.Argv[0] == "" {
		outcome.Class = FailureStart
		outcome.Err = errors.New("empty command")
		r.record(label, outcome)
		return outcome
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	proc := exec.CommandContext(runCtx, outcome.Command[0], outcome.Command[1:]...)
	proc.Stdout = &stdout
	proc.Stderr = &stderr
	proc.Stdin = cmd.Stdin
	// apt must never open a debconf prompt during an unattended run.
	proc.Env = append(os.Environ(), "DEBIAN_FRONTEND=noninteractive")
	proc.Env = append(proc.Env, cmd.Env...)

	start := time.Now()
	err := proc.Run()
	outcome.Duration = time.Since(start)
	outcome.Stdout = stdout.String()
	outcome.Stderr = stderr.String()

	switch {
	case err == nil:
		outcome.Succeeded = true
		zero := 0
		outcome.ExitCode = &zero
	case runCtx.Err() != nil:
		outcome.Class = FailureTimeout
		outcome.Err = fmt.Errorf("command exceeded %s deadline: %w", r.timeout, runCtx.Err())
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			outcome.ExitCode = &code
			outcome.Class = FailureExit
			outcome.Err = err
		} else {
			outcome.Class = FailureStart
			outcome.Err = err
		}
	}

	r.record(label, outcome)
	return outcome
}

// buildArgv assembles the argv that actually runs, prepending the
// escalation wrapper when requested.
func buildArgv(cmd Command) []string {
	if !cmd.Sudo {
		return cmd.Argv
	}
	return append([]string{"sudo", "-n"}, cmd.Argv...)
}

func commandLabel(cmd Command) string {
	if cmd.Label != "" {
		return cmd.Label
	}
	if len(cmd.Argv) > 0 && cmd.Argv[0] != "" {
		return filepath.Base(cmd.Argv[0])
	}
	return "unknown"
}

func (r *execRunner) record(label string, o Outcome) {
	metrics.CommandRuns.WithLabelValues(label).Inc()

	if o.Succeeded {
		r.journal.Info("Command executed successfully",
			"label", label,
			"command", o.CommandLine(),
			"stdout", strings.TrimSpace(o.Stdout),
			"duration", o.Duration.Round(time.Millisecond).String())
		return
	}

	metrics.CommandFailures.WithLabelValues(label, string(o.Class)).Inc()
	kv := []interface{}{
		"label", label,
		"command", o.CommandLine(),
		"class", string(o.Class),
		"stderr", strings.TrimSpace(o.Stderr),
		"duration", o.Duration.Round(time.Millisecond).String(),
	}
	if o.ExitCode != nil {
		kv = append(kv, "exit_code", *o.ExitCode)
	}
	if o.Err != nil {
		kv = append(kv, "error", o.Err.Error())
	}
	r.journal.Error("Command failed", kv...)
}
