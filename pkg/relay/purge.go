package relay

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/Stephen-Kennedy/postfix-install/pkg/runner"
)

// Purge removes postfix and every artifact Install placed. Unlike
// Install it keeps going after a failed step so a half-broken box still
// gets cleaned as far as possible; the collected failures come back as
// one joined error.
func (p *Provisioner) Purge(ctx context.Context) error {
	p.journal.Info("Purging postfix relay")

	var failures []error
	run := func(action string, cmd runner.Command) {
		if out := p.runner.Run(ctx, cmd); !out.Succeeded {
			failures = append(failures, stepError(action, out))
		}
	}

	run("removing postfix", runner.Command{
		Label: "apt-purge-postfix",
		Argv:  []string{"apt-get", "remove", "--purge", "-y", "postfix"},
		Sudo:  true,
	})
	run("removing unused packages", runner.Command{
		Label: "apt-autoremove",
		Argv:  []string{"apt-get", "autoremove", "-y"},
		Sudo:  true,
	})
	run("clearing package cache", runner.Command{
		Label: "apt-clean",
		Argv:  []string{"apt-get", "clean"},
		Sudo:  true,
	})

	run("removing config directory", runner.Command{
		Label: "remove-config-dir",
		Argv:  []string{"rm", "-rf", p.paths.ConfigDir},
		Sudo:  true,
	})
	for _, path := range []string{p.paths.AliasesDB, p.paths.LegacyEnv, p.paths.EnvFile} {
		run("removing "+path, runner.Command{
			Label: "remove-file",
			Argv:  []string{"rm", "-f", path},
			Sudo:  true,
		})
	}

	// Expand the log glob here so the runner only ever sees literal
	// paths. A glob that matches nothing is not a failure.
	logs, err := filepath.Glob(p.paths.MailLogGlob)
	if err != nil {
		failures = append(failures, err)
	}
	for _, path := range logs {
		run("removing "+path, runner.Command{
			Label: "remove-mail-log",
			Argv:  []string{"rm", "-f", path},
			Sudo:  true,
		})
	}

	if len(failures) > 0 {
		return errors.Join(failures...)
	}
	p.journal.Info("Postfix relay purged")
	return nil
}
