// Package cmd implements the cobra command tree for the relayctl CLI,
// including subcommands for relay installation, removal, test
// notifications, and version reporting.
package cmd
