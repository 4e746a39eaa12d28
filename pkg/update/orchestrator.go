// Package update drives the ordered apt maintenance sequence and
// decides which notifications a run produces.
package update

import (
	"context"
	"strings"
	"time"

	"github.com/Stephen-Kennedy/postfix-install/pkg/journal"
	"github.com/Stephen-Kennedy/postfix-install/pkg/mail"
	"github.com/Stephen-Kennedy/postfix-install/pkg/metrics"
	"github.com/Stephen-Kennedy/postfix-install/pkg/runner"
	"github.com/Stephen-Kennedy/postfix-install/pkg/system"
)

// distUpgradeMarker is the apt-get output line that signals packages
// held back from a routine upgrade.
const distUpgradeMarker = "The following packages will be upgraded"

// maintenanceSteps is fixed. Every step runs exactly once per run, in
// this order, regardless of earlier failures; partial completion is
// reported, not aborted.
func maintenanceSteps() []runner.Command {
	return []runner.Command{
		{Label: "update", Argv: []string{"apt-get", "update"}, Sudo: true},
		{Label: "upgrade", Argv: []string{"apt-get", "upgrade", "-y"}, Sudo: true},
		{Label: "autoremove", Argv: []string{"apt-get", "autoremove", "-y"}, Sudo: true},
		{Label: "autoclean", Argv: []string{"apt-get", "autoclean"}, Sudo: true},
	}
}

func distUpgradeCheck() runner.Command {
	return runner.Command{
		Label: "dist-upgrade-check",
		Argv:  []string{"apt-get", "-s", "dist-upgrade"},
		Sudo:  true,
	}
}

// Orchestrator runs the maintenance sequence. Individual command
// failures never abort it and never reach the caller as errors.
type Orchestrator struct {
	runner   runner.Runner
	notifier mail.Notifier
	journal  *journal.Journal
	host     system.HostInfo
	runID    string
}

// NewOrchestrator wires an orchestrator for one maintenance run.
func NewOrchestrator(r runner.Runner, n mail.Notifier, j *journal.Journal, host system.HostInfo, runID string) *Orchestrator {
	return &Orchestrator{runner: r, notifier: n, journal: j, host: host, runID: runID}
}

// Run executes the full sequence and returns the report. At most two
// notifications leave here: the summary of performed tasks, and the
// pending-dist-upgrade notice.
func (o *Orchestrator) Run(ctx context.Context) *Report {
	report := &Report{
		Host:    o.host.Hostname,
		Kernel:  o.host.Kernel,
		RunID:   o.runID,
		Started: time.Now(),
	}

	for _, step := range maintenanceSteps() {
		outcome := o.runner.Run(ctx, step)
		if outcome.Succeeded {
			report.Performed = append(report.Performed, step.Label)
		} else {
			report.Failed = append(report.Failed, step.Label)
		}
	}

	if len(report.Failed) > 0 {
		o.journal.Warning("Maintenance steps failed",
			"failed", report.Failed, "performed", report.Performed)
	}

	if len(report.Performed) > 0 {
		if body, err := report.SummaryBody(); err != nil {
			o.journal.Error("Failed to render summary notification", "error", err.Error())
		} else {
			// Send failures are journaled by the notifier; they must
			// not gate the dist-upgrade check.
			_ = o.notifier.Send(report.SummarySubject(), body)
		}
	} else {
		o.journal.Info("No maintenance task succeeded, skipping summary notification")
	}

	o.checkDistUpgrade(ctx, report)
	return report
}

// checkDistUpgrade runs the simulated dist-upgrade and notifies when
// the marker shows packages pending. The simulation mutates nothing.
func (o *Orchestrator) checkDistUpgrade(ctx context.Context, report *Report) {
	outcome := o.runner.Run(ctx, distUpgradeCheck())
	if !outcome.Succeeded {
		return
	}
	if !strings.Contains(outcome.Stdout, distUpgradeMarker) {
		o.journal.Info("No distribution upgrade pending")
		return
	}

	report.DistUpgradeAvailable = true
	report.DistUpgradeDetail = outcome.Stdout
	metrics.DistUpgradePending.Inc()
	o.journal.Info("Distribution upgrade pending")
	_ = o.notifier.Send(report.DistUpgradeSubject(), outcome.Stdout)
}
