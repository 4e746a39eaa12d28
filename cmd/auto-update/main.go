// Command auto-update runs one unattended maintenance pass: apt update,
// upgrade, autoremove, autoclean, a simulated dist-upgrade check, and a
// reboot when the package manager asks for one. Every command and event
// lands in the journal; status leaves the host through the mail relay.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/Stephen-Kennedy/postfix-install/pkg/cli"
	"github.com/Stephen-Kennedy/postfix-install/pkg/config"
	"github.com/Stephen-Kennedy/postfix-install/pkg/journal"
	"github.com/Stephen-Kennedy/postfix-install/pkg/mail"
	"github.com/Stephen-Kennedy/postfix-install/pkg/metrics"
	"github.com/Stephen-Kennedy/postfix-install/pkg/reboot"
	"github.com/Stephen-Kennedy/postfix-install/pkg/runner"
	"github.com/Stephen-Kennedy/postfix-install/pkg/system"
	"github.com/Stephen-Kennedy/postfix-install/pkg/update"
	"github.com/Stephen-Kennedy/postfix-install/pkg/version"
)

func main() {
	os.Exit(run(cli.Parse()))
}

// run wires the workflow and owns the exit code. Everything after the
// journal opens is reported through it; stderr only carries the one
// failure the journal cannot record.
func run(flags *cli.Config) int {
	j, err := journal.Open(journal.Options{Path: flags.JournalPath, Console: flags.Console})
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot open journal: %v\n", err)
		return 1
	}
	defer j.Close()

	runID := uuid.NewString()
	j = j.With("run", runID)

	host := system.Info()
	j.Info("Starting unattended update run",
		"version", version.Get().String(),
		"host", host.Hostname,
		"kernel", host.Kernel)
	flags.Print(j)

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		// Without relay settings there is no escalation channel either;
		// the journal entry is all that can be left behind.
		j.Critical("Cannot load relay configuration", "error", err.Error())
		return 1
	}

	notifier := mail.NewNotifier(cfg, j, mail.Options{
		SendTimeout:        cli.ParseSendTimeout(flags.SendTimeout, j),
		RunID:              runID,
		InsecureSkipVerify: flags.InsecureTLS,
	})
	r := runner.New(j, runner.Options{Timeout: cli.ParseCommandTimeout(flags.CommandTimeout, j)})

	exit := 0
	if err := workflow(context.Background(), deps{
		runner:     r,
		notifier:   notifier,
		journal:    j,
		host:       host,
		runID:      runID,
		markerPath: flags.MarkerPath,
	}); err != nil {
		j.Critical("Update run failed", "error", err.Error())
		// Best effort; with an unreachable relay this send fails too and
		// the journal keeps the only record.
		_ = notifier.Send(
			fmt.Sprintf("Update run FAILED on %s", host.Hostname),
			fmt.Sprintf("The unattended update run %s on %s aborted:\n\n%v", runID, host.Hostname, err))
		exit = 1
	} else {
		j.Info("Update run complete")
	}

	if cfg.PushgatewayURL != "" {
		if pushErr := metrics.Push(cfg.PushgatewayURL, host.Hostname); pushErr != nil {
			j.Warning("Metrics push failed", "gateway", cfg.PushgatewayURL, "error", pushErr.Error())
		}
	}

	return exit
}

type deps struct {
	runner     runner.Runner
	notifier   mail.Notifier
	journal    *journal.Journal
	host       system.HostInfo
	runID      string
	markerPath string
}

// workflow is the run body: probe first, then updates, then the reboot
// decision. A relay probe failure aborts before any command runs, so a
// host that cannot report is never mutated. Panics surface as errors so
// the caller can journal them and escalate.
func workflow(ctx context.Context, d deps) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("update workflow panicked: %v", r)
		}
	}()

	if err := d.notifier.Probe(); err != nil {
		return err
	}

	update.NewOrchestrator(d.runner, d.notifier, d.journal, d.host, d.runID).Run(ctx)
	reboot.NewCoordinator(d.runner, d.notifier, d.journal, d.host.Hostname, d.markerPath).Run(ctx)
	return nil
}
