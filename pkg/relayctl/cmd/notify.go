package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Stephen-Kennedy/postfix-install/pkg/system"
)

func NewNotifyCommand() *cobra.Command {
	var subject, body string

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a test notification through the configured relay",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			notifier, err := rt.Notifier()
			if err != nil {
				return err
			}

			host := system.Info()
			if subject == "" {
				subject = fmt.Sprintf("Test notification from %s", host.Hostname)
			}
			if body == "" {
				body = fmt.Sprintf("Relay test from %s (kernel %s).", host.Hostname, host.Kernel)
			}

			if err := notifier.Probe(); err != nil {
				return err
			}
			if err := notifier.Send(subject, body); err != nil {
				return err
			}

			fmt.Fprintf(rt.Writer(), "Notification sent via %s\n", notifier.Host())
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Subject line (default derived from the hostname)")
	cmd.Flags().StringVar(&body, "body", "", "Message body (default describes the sending host)")

	return cmd
}
