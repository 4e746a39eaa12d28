// Package cli defines the flag configuration and parsing for the
// auto-update binary, including the journal destination, timeout knobs,
// and the environment-variable fallbacks used by systemd units.
package cli
