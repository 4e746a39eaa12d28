package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

var registry = prometheus.NewRegistry()

var (
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "autoupdate_command_runs_total",
		Help: "Total number of maintenance commands attempted",
	}, []string{"label"})
	CommandFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "autoupdate_command_failures_total",
		Help: "Total number of maintenance commands that failed, by failure class",
	}, []string{"label", "class"})

	// Mail metrics
	MailSendSuccess = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "autoupdate_mail_send_success_total",
		Help: "Total number of successful mail sends",
	}, []string{"host"})
	MailSendFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "autoupdate_mail_send_failure_total",
		Help: "Total number of failed mail sends",
	}, []string{"host"})

	DistUpgradePending = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "autoupdate_dist_upgrade_pending_total",
		Help: "Total number of runs where the simulated dist-upgrade reported pending packages",
	})
	RebootsTriggered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "autoupdate_reboots_triggered_total",
		Help: "Total number of reboots triggered by the reboot-required marker",
	})
	RebootFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "autoupdate_reboot_failures_total",
		Help: "Total number of reboot commands that failed to execute",
	})
)

func init() {
	registry.MustRegister(CommandRuns)
	registry.MustRegister(CommandFailures)
	registry.MustRegister(MailSendSuccess)
	registry.MustRegister(MailSendFailure)
	registry.MustRegister(DistUpgradePending)
	registry.MustRegister(RebootsTriggered)
	registry.MustRegister(RebootFailures)
}

// Push delivers the run's counters to a Pushgateway, grouped by host.
// The workflow is a batch process with nothing listening between runs,
// so push is the only delivery path; callers treat errors as soft.
func Push(gatewayURL, instance string) error {
	return push.New(gatewayURL, "auto_update").
		Gatherer(registry).
		Grouping("instance", instance).
		Push()
}
