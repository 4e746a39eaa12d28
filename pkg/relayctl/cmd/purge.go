package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Stephen-Kennedy/postfix-install/pkg/relay"
)

func NewPurgeCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove postfix and every relay artifact",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if !yes {
				fmt.Fprintln(rt.Writer(), "purge removes postfix, its configuration, credentials, and mail logs")
				return errors.New("refusing to purge without --yes")
			}

			prov := relay.NewProvisioner(rt.Runner(), rt.Journal(), relay.DefaultPaths())
			if err := prov.Purge(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintln(rt.Writer(), "Postfix relay purged")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm removal without prompting")

	return cmd
}
