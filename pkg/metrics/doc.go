// Package metrics defines Prometheus metrics for the maintenance
// workflow, covering command execution, mail delivery, dist-upgrade
// detection, and reboots, with optional Pushgateway delivery at the end
// of a run.
package metrics
