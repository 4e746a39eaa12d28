package relay

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Stephen-Kennedy/postfix-install/pkg/config"
	"github.com/Stephen-Kennedy/postfix-install/pkg/runner"
)

// debconfSelections answers the two prompts the postfix package asks at
// install time so apt can run unattended.
const debconfSelections = "postfix postfix/main_mailer_type select Internet Site\n" +
	"postfix postfix/mailname string localhost\n"

// mainCf is the relay half of the postfix configuration. The bracketed
// relayhost form disables MX lookups for the relay name.
const mainCf = `# Managed by postfix-install. Reinstalling overwrites manual edits.
relayhost = [%s]:%d
smtp_sasl_auth_enable = yes
smtp_sasl_password_maps = hash:/etc/postfix/sasl_passwd
smtp_sasl_security_options = noanonymous
smtp_tls_security_level = encrypt
smtp_tls_CAfile = /etc/ssl/certs/ca-certificates.crt
`

// Install provisions postfix as a send-only relay for cfg. Steps run in
// order and the first failure aborts with an error describing the step.
func (p *Provisioner) Install(ctx context.Context, cfg *config.Config) error {
	p.journal.Info("Installing postfix relay", "relay", cfg.RelayAddr())

	preseed := runner.Command{
		Label: "preseed-postfix",
		Argv:  []string{"debconf-set-selections"},
		Sudo:  true,
		Stdin: strings.NewReader(debconfSelections),
	}
	if out := p.runner.Run(ctx, preseed); !out.Succeeded {
		return stepError("preseeding debconf", out)
	}

	steps := []runner.Command{
		{Label: "apt-update", Argv: []string{"apt-get", "update"}, Sudo: true},
		{Label: "apt-install-postfix", Argv: []string{"apt-get", "install", "-y", "postfix"}, Sudo: true},
	}
	for _, step := range steps {
		if out := p.runner.Run(ctx, step); !out.Succeeded {
			return stepError("installing postfix", out)
		}
	}

	rendered := fmt.Sprintf(mainCf, cfg.RelayHost, cfg.RelayPort)
	if err := p.installFile(ctx, "install-main-cf", rendered, p.paths.MainCf, ""); err != nil {
		return err
	}

	saslLine := fmt.Sprintf("[%s]:%d %s:%s\n", cfg.RelayHost, cfg.RelayPort, cfg.FromAddress, cfg.Credential)
	if err := p.installFile(ctx, "install-sasl-passwd", saslLine, p.paths.SaslPasswd, "600"); err != nil {
		return err
	}
	postmap := runner.Command{
		Label: "postmap-sasl-passwd",
		Argv:  []string{"postmap", p.paths.SaslPasswd},
		Sudo:  true,
	}
	if out := p.runner.Run(ctx, postmap); !out.Succeeded {
		return stepError("hashing sasl_passwd", out)
	}

	if err := p.installFile(ctx, "install-env-file", envFile(cfg), p.paths.EnvFile, "600"); err != nil {
		return err
	}

	restart := runner.Command{
		Label: "restart-postfix",
		Argv:  []string{"systemctl", "restart", "postfix"},
		Sudo:  true,
	}
	if out := p.runner.Run(ctx, restart); !out.Succeeded {
		return stepError("restarting postfix", out)
	}

	p.journal.Info("Postfix relay installed", "relay", cfg.RelayAddr())
	return nil
}

// envFile renders the environment file the update workflow reads back
// through config.Load.
func envFile(cfg *config.Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s=%s\n", config.KeyFromEmail, cfg.FromAddress)
	fmt.Fprintf(&b, "%s=%s\n", config.KeyToEmail, cfg.ToAddress)
	fmt.Fprintf(&b, "%s=%s\n", config.KeySMTPServer, cfg.RelayHost)
	fmt.Fprintf(&b, "%s=%d\n", config.KeySMTPPort, cfg.RelayPort)
	fmt.Fprintf(&b, "%s=%s\n", config.KeyPassword, cfg.Credential)
	if cfg.PushgatewayURL != "" {
		fmt.Fprintf(&b, "%s=%s\n", config.KeyPushgatewayURL, cfg.PushgatewayURL)
	}
	return b.String()
}

// installFile stages content in a private temp file, then moves it into
// place with root privileges. mode is applied after the move when set;
// the staging file itself never carries the secret mode because it is
// removed on every path out.
func (p *Provisioner) installFile(ctx context.Context, label, content, dest, mode string) error {
	staging, err := os.CreateTemp("", "relay-staging-*")
	if err != nil {
		return fmt.Errorf("staging %s: %w", dest, err)
	}
	defer func() { _ = os.Remove(staging.Name()) }()
	if _, err := staging.WriteString(content); err != nil {
		_ = staging.Close()
		return fmt.Errorf("staging %s: %w", dest, err)
	}
	if err := staging.Close(); err != nil {
		return fmt.Errorf("staging %s: %w", dest, err)
	}

	move := runner.Command{
		Label: label,
		Argv:  []string{"mv", staging.Name(), dest},
		Sudo:  true,
	}
	if out := p.runner.Run(ctx, move); !out.Succeeded {
		return stepError("placing "+dest, out)
	}
	if mode == "" {
		return nil
	}
	chmod := runner.Command{
		Label: label + "-chmod",
		Argv:  []string{"chmod", mode, dest},
		Sudo:  true,
	}
	if out := p.runner.Run(ctx, chmod); !out.Succeeded {
		return stepError("restricting "+dest, out)
	}
	return nil
}
