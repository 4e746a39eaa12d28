// Package relay provisions and removes the outbound postfix relay the
// maintenance workflow reports through. Unlike the fail-soft update
// sequence, provisioning is an operator command: the first failed step
// aborts it with an error.
package relay

import (
	"fmt"
	"strings"

	"github.com/Stephen-Kennedy/postfix-install/pkg/journal"
	"github.com/Stephen-Kennedy/postfix-install/pkg/runner"
)

// Paths names the filesystem artifacts the relay owns.
type Paths struct {
	ConfigDir   string
	MainCf      string
	SaslPasswd  string
	EnvFile     string
	LegacyEnv   string
	AliasesDB   string
	MailLogGlob string
}

// DefaultPaths returns the Debian locations postfix and the workflow use.
func DefaultPaths() Paths {
	return Paths{
		ConfigDir:   "/etc/postfix",
		MainCf:      "/etc/postfix/main.cf",
		SaslPasswd:  "/etc/postfix/sasl_passwd",
		EnvFile:     "/etc/postfix/env_variables.env",
		LegacyEnv:   "/etc/postfix.env",
		AliasesDB:   "/etc/aliases.db",
		MailLogGlob: "/var/log/mail.*",
	}
}

// Provisioner runs relay install and purge step sequences.
type Provisioner struct {
	runner  runner.Runner
	journal *journal.Journal
	paths   Paths
}

// NewProvisioner wires a provisioner against the given paths.
func NewProvisioner(r runner.Runner, j *journal.Journal, paths Paths) *Provisioner {
	return &Provisioner{runner: r, journal: j, paths: paths}
}

// stepError turns a failed outcome into the error an operator sees.
func stepError(action string, o runner.Outcome) error {
	detail := strings.TrimSpace(o.Stderr)
	if detail == "" && o.Err != nil {
		detail = o.Err.Error()
	}
	if o.ExitCode != nil {
		return fmt.Errorf("%s: %q exited %d: %s", action, o.CommandLine(), *o.ExitCode, detail)
	}
	return fmt.Errorf("%s: %q: %s", action, o.CommandLine(), detail)
}
