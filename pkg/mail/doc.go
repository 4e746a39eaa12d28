// Package mail delivers workflow notifications through the configured
// outbound relay and provides the reachability probe the workflow runs
// before any maintenance work begins.
package mail
