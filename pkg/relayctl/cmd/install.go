package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Stephen-Kennedy/postfix-install/pkg/relay"
)

func NewInstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Install postfix and configure it as the notification relay",
		Long: "Install postfix and configure it as an authenticated send-only relay.\n" +
			"Relay address and credentials come from the environment file given with\n" +
			"--config; install copies it to the system location for later runs.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}

			prov := relay.NewProvisioner(rt.Runner(), rt.Journal(), relay.DefaultPaths())
			if err := prov.Install(cmd.Context(), rt.cfg); err != nil {
				return err
			}

			fmt.Fprintf(rt.Writer(), "Postfix relay installed, forwarding through %s\n", rt.cfg.RelayAddr())
			return nil
		},
	}
}
