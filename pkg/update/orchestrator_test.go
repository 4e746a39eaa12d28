package update

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stephen-Kennedy/postfix-install/pkg/journal"
	"github.com/Stephen-Kennedy/postfix-install/pkg/runner"
	"github.com/Stephen-Kennedy/postfix-install/pkg/system"
)

type sentMessage struct {
	subject string
	body    string
}

type fakeNotifier struct {
	fail  bool
	sends []sentMessage
}

func (f *fakeNotifier) Send(subject, body string) error {
	f.sends = append(f.sends, sentMessage{subject, body})
	if f.fail {
		return errors.New("smtp down")
	}
	return nil
}

func (f *fakeNotifier) Probe() error { return nil }
func (f *fakeNotifier) Host() string { return "relay.test" }

type fakeRunner struct {
	failLabels map[string]bool
	stdout     map[string]string
	commands   []runner.Command
}

func (f *fakeRunner) Run(_ context.Context, cmd runner.Command) runner.Outcome {
	f.commands = append(f.commands, cmd)
	if f.failLabels[cmd.Label] {
		code := 100
		return runner.Outcome{
			Command:  cmd.Argv,
			Class:    runner.FailureExit,
			ExitCode: &code,
			Stderr:   "E: broken",
		}
	}
	return runner.Outcome{Command: cmd.Argv, Succeeded: true, Stdout: f.stdout[cmd.Label]}
}

func testHost() system.HostInfo {
	return system.HostInfo{Hostname: "host01.example.com", Kernel: "6.1.0-test"}
}

func labels(cmds []runner.Command) []string {
	out := make([]string, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, c.Label)
	}
	return out
}

func bodyLines(body string) map[string]int {
	counts := map[string]int{}
	for _, line := range strings.Split(body, "\n") {
		counts[strings.TrimSpace(line)]++
	}
	return counts
}

func TestRunPerformsAllStepsAndSendsOneSummary(t *testing.T) {
	fr := &fakeRunner{}
	fn := &fakeNotifier{}
	o := NewOrchestrator(fr, fn, journal.NewNop(), testHost(), "run-1")

	report := o.Run(context.Background())

	assert.Equal(t, []string{"update", "upgrade", "autoremove", "autoclean"}, report.Performed)
	assert.Empty(t, report.Failed)
	assert.False(t, report.DistUpgradeAvailable)

	require.Len(t, fn.sends, 1)
	assert.Equal(t, "Updates performed on host01.example.com", fn.sends[0].subject)
	lines := bodyLines(fn.sends[0].body)
	for _, label := range report.Performed {
		assert.Equal(t, 1, lines[label], "label %q must appear exactly once", label)
	}
}

func TestRunIssuesFixedCommandLines(t *testing.T) {
	fr := &fakeRunner{}
	o := NewOrchestrator(fr, &fakeNotifier{}, journal.NewNop(), testHost(), "run-1")

	o.Run(context.Background())

	require.Len(t, fr.commands, 5)
	assert.Equal(t, []string{"update", "upgrade", "autoremove", "autoclean", "dist-upgrade-check"}, labels(fr.commands))
	assert.Equal(t, []string{"apt-get", "update"}, fr.commands[0].Argv)
	assert.Equal(t, []string{"apt-get", "upgrade", "-y"}, fr.commands[1].Argv)
	assert.Equal(t, []string{"apt-get", "autoremove", "-y"}, fr.commands[2].Argv)
	assert.Equal(t, []string{"apt-get", "autoclean"}, fr.commands[3].Argv)
	assert.Equal(t, []string{"apt-get", "-s", "dist-upgrade"}, fr.commands[4].Argv)
	for _, cmd := range fr.commands {
		assert.True(t, cmd.Sudo, "step %q must escalate", cmd.Label)
	}
}

func TestRunOmitsFailedStepFromSummary(t *testing.T) {
	fr := &fakeRunner{failLabels: map[string]bool{"update": true}}
	fn := &fakeNotifier{}
	o := NewOrchestrator(fr, fn, journal.NewNop(), testHost(), "run-1")

	report := o.Run(context.Background())

	assert.Equal(t, []string{"upgrade", "autoremove", "autoclean"}, report.Performed)
	assert.Equal(t, []string{"update"}, report.Failed)

	require.Len(t, fn.sends, 1)
	lines := bodyLines(fn.sends[0].body)
	assert.Zero(t, lines["update"], "failed label must not be listed")
	assert.Equal(t, 1, lines["upgrade"])
	assert.Equal(t, 1, lines["autoremove"])
	assert.Equal(t, 1, lines["autoclean"])
}

func TestRunContinuesThroughTotalFailure(t *testing.T) {
	fr := &fakeRunner{failLabels: map[string]bool{
		"update": true, "upgrade": true, "autoremove": true, "autoclean": true,
	}}
	fn := &fakeNotifier{}
	o := NewOrchestrator(fr, fn, journal.NewNop(), testHost(), "run-1")

	report := o.Run(context.Background())

	assert.Empty(t, report.Performed)
	assert.Len(t, report.Failed, 4)
	assert.Empty(t, fn.sends, "no summary when nothing succeeded")
	assert.Len(t, fr.commands, 5, "dist-upgrade check still runs")
}

func TestRunNotifiesOnPendingDistUpgrade(t *testing.T) {
	simulated := "Reading package lists...\n" +
		"The following packages will be upgraded:\n  libexample1 libdemo2\n" +
		"2 upgraded, 0 newly installed, 0 to remove and 0 not upgraded.\n"
	fr := &fakeRunner{stdout: map[string]string{"dist-upgrade-check": simulated}}
	fn := &fakeNotifier{}
	o := NewOrchestrator(fr, fn, journal.NewNop(), testHost(), "run-1")

	report := o.Run(context.Background())

	assert.True(t, report.DistUpgradeAvailable)
	assert.Equal(t, simulated, report.DistUpgradeDetail)

	require.Len(t, fn.sends, 2)
	assert.Equal(t, "Distribution upgrade pending on host01.example.com", fn.sends[1].subject)
	assert.Equal(t, simulated, fn.sends[1].body, "dist notice carries the raw simulated output")
}

func TestRunNoDistNoticeWithoutMarker(t *testing.T) {
	fr := &fakeRunner{stdout: map[string]string{
		"dist-upgrade-check": "0 upgraded, 0 newly installed, 0 to remove and 0 not upgraded.\n",
	}}
	fn := &fakeNotifier{}
	o := NewOrchestrator(fr, fn, journal.NewNop(), testHost(), "run-1")

	report := o.Run(context.Background())

	assert.False(t, report.DistUpgradeAvailable)
	assert.Len(t, fn.sends, 1)
}

func TestRunNoDistNoticeWhenCheckFails(t *testing.T) {
	fr := &fakeRunner{
		failLabels: map[string]bool{"dist-upgrade-check": true},
		stdout:     map[string]string{"dist-upgrade-check": distUpgradeMarker},
	}
	fn := &fakeNotifier{}
	o := NewOrchestrator(fr, fn, journal.NewNop(), testHost(), "run-1")

	report := o.Run(context.Background())

	assert.False(t, report.DistUpgradeAvailable)
	assert.Len(t, fn.sends, 1)
}

func TestRunSurvivesNotifierFailure(t *testing.T) {
	simulated := "The following packages will be upgraded:\n  libexample1\n"
	fr := &fakeRunner{stdout: map[string]string{"dist-upgrade-check": simulated}}
	fn := &fakeNotifier{fail: true}
	o := NewOrchestrator(fr, fn, journal.NewNop(), testHost(), "run-1")

	report := o.Run(context.Background())

	assert.Len(t, fr.commands, 5, "failing notifier must not stop the sequence")
	assert.Equal(t, []string{"update", "upgrade", "autoremove", "autoclean"}, report.Performed)
	assert.True(t, report.DistUpgradeAvailable)
	assert.Len(t, fn.sends, 2, "both notifications attempted despite failures")
}
