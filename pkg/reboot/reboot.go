// Package reboot finishes a maintenance run by acting on the
// package manager's reboot-required marker.
package reboot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/Stephen-Kennedy/postfix-install/pkg/journal"
	"github.com/Stephen-Kennedy/postfix-install/pkg/mail"
	"github.com/Stephen-Kennedy/postfix-install/pkg/metrics"
	"github.com/Stephen-Kennedy/postfix-install/pkg/runner"
)

// DefaultMarkerPath is the sentinel Debian's package hooks create when
// an applied update needs a restart. Presence alone is the signal; the
// content is never read.
const DefaultMarkerPath = "/var/run/reboot-required"

// Coordinator decides, once per run, whether the host reboots.
type Coordinator struct {
	runner     runner.Runner
	notifier   mail.Notifier
	journal    *journal.Journal
	host       string
	markerPath string
}

// NewCoordinator wires a coordinator. An empty markerPath selects
// DefaultMarkerPath.
func NewCoordinator(r runner.Runner, n mail.Notifier, j *journal.Journal, host, markerPath string) *Coordinator {
	if markerPath == "" {
		markerPath = DefaultMarkerPath
	}
	return &Coordinator{runner: r, notifier: n, journal: j, host: host, markerPath: markerPath}
}

// Run checks the marker and acts on it. Marker present means the host
// reboots unconditionally, after one notification; absent means one
// "no reboot needed" notification. A failing reboot command is the one
// condition this workflow escalates: the host is left holding applied
// updates it cannot finalize, so the journal gets a critical entry and
// a dedicated notification goes out. Notification failures never alter
// any of this.
func (c *Coordinator) Run(ctx context.Context) {
	if !c.markerPresent() {
		_ = c.notifier.Send(
			fmt.Sprintf("No reboot needed on %s", c.host),
			fmt.Sprintf("Maintenance finished on %s. The reboot marker %s is absent; no restart is required.",
				c.host, c.markerPath))
		return
	}

	c.journal.Info("Reboot required, rebooting now", "marker", c.markerPath)
	_ = c.notifier.Send(
		fmt.Sprintf("Reboot required on %s, rebooting now", c.host),
		fmt.Sprintf("Updates on %s require a restart (marker %s present). The host reboots immediately after this message.",
			c.host, c.markerPath))

	metrics.RebootsTriggered.Inc()
	outcome := c.runner.Run(ctx, runner.Command{
		Label: "reboot",
		Argv:  []string{"reboot"},
		Sudo:  true,
	})
	if outcome.Succeeded {
		return
	}

	metrics.RebootFailures.Inc()
	c.journal.Critical("Reboot command failed, manual intervention required",
		"command", outcome.CommandLine(),
		"class", string(outcome.Class),
		"stderr", strings.TrimSpace(outcome.Stderr))
	_ = c.notifier.Send(
		fmt.Sprintf("Reboot FAILED on %s", c.host),
		rebootFailureBody(c.host, outcome))
}

// markerPresent treats any stat error as an absent marker: rebooting an
// unattended host on an unreadable sentinel is worse than postponing.
func (c *Coordinator) markerPresent() bool {
	_, err := os.Stat(c.markerPath)
	if err == nil {
		return true
	}
	if errors.Is(err, fs.ErrNotExist) {
		c.journal.Info("No reboot required", "marker", c.markerPath)
	} else {
		c.journal.Warning("Reboot marker unreadable, treating as absent",
			"marker", c.markerPath, "error", err.Error())
	}
	return false
}

func rebootFailureBody(host string, o runner.Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The reboot command on %s failed; the host still needs a manual restart to finalize applied updates.\n\n", host)
	fmt.Fprintf(&b, "Command: %s\n", o.CommandLine())
	if o.ExitCode != nil {
		fmt.Fprintf(&b, "Exit code: %d\n", *o.ExitCode)
	}
	if stderr := strings.TrimSpace(o.Stderr); stderr != "" {
		fmt.Fprintf(&b, "Stderr: %s\n", stderr)
	}
	if o.Err != nil {
		fmt.Fprintf(&b, "Error: %v\n", o.Err)
	}
	return b.String()
}
