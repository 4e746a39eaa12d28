package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Stephen-Kennedy/postfix-install/pkg/config"
	"github.com/Stephen-Kennedy/postfix-install/pkg/journal"
	"github.com/Stephen-Kennedy/postfix-install/pkg/mail"
	"github.com/Stephen-Kennedy/postfix-install/pkg/runner"
)

// Config seeds the root command. Runner and Notifier are injection
// points; nil means build the real implementations on first use.
type Config struct {
	ConfigPath   string
	JournalPath  string
	OutputWriter io.Writer

	Runner   runner.Runner
	Notifier mail.Notifier
}

type runtimeState struct {
	configPath  string
	journalPath string
	cfg         *config.Config
	journal     *journal.Journal
	writer      io.Writer

	runner   runner.Runner
	notifier mail.Notifier
}

type runtimeKey struct{}

func DefaultConfig() Config {
	return Config{
		ConfigPath:   config.DefaultPath,
		JournalPath:  journal.DefaultPath,
		OutputWriter: os.Stdout,
	}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{
		configPath:  cfg.ConfigPath,
		journalPath: cfg.JournalPath,
		writer:      cfg.OutputWriter,
		runner:      cfg.Runner,
		notifier:    cfg.Notifier,
	}

	root := &cobra.Command{
		Use:   "relayctl",
		Short: "Manage the postfix relay used for maintenance notifications",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			if rt.configPath == "" {
				rt.configPath = os.Getenv("RELAYCTL_CONFIG")
			}
			if rt.configPath == "" {
				rt.configPath = config.DefaultPath
			}
			if rt.journalPath == "" {
				rt.journalPath = os.Getenv("RELAYCTL_JOURNAL")
			}
			if rt.journalPath == "" {
				rt.journalPath = journal.DefaultPath
			}

			// Commands that work without relay credentials skip config loading.
			switch cmd.Name() {
			case "version", "completion", "purge":
				return nil
			}

			loaded, err := config.Load(rt.configPath)
			if err != nil {
				return err
			}
			rt.cfg = loaded
			return nil
		},
	}

	root.PersistentFlags().StringVar(&rt.configPath, "config", rt.configPath, "Path to the relay environment file")
	root.PersistentFlags().StringVar(&rt.journalPath, "journal", rt.journalPath, "Path of the journal file commands log to")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))

	root.AddCommand(
		NewInstallCommand(),
		NewPurgeCommand(),
		NewNotifyCommand(),
		NewVersionCommand(),
	)

	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer != nil {
		return rt.writer
	}
	return os.Stdout
}

func (rt *runtimeState) EnsureConfigLoaded() error {
	if rt.cfg != nil {
		return nil
	}
	loaded, err := config.Load(rt.configPath)
	if err != nil {
		return err
	}
	rt.cfg = loaded
	return nil
}

// Journal opens the command journal once per invocation, teeing entries
// to the console so interactive runs show progress. When the file is
// not writable the entries still reach stderr.
func (rt *runtimeState) Journal() *journal.Journal {
	if rt.journal != nil {
		return rt.journal
	}
	j, err := journal.Open(journal.Options{Path: rt.journalPath, Console: true})
	if err != nil {
		fmt.Fprintf(rt.Writer(), "journal %s not writable, logging to console only\n", rt.journalPath)
		j = journal.NewConsole()
	}
	rt.journal = j
	return j
}

func (rt *runtimeState) Runner() runner.Runner {
	if rt.runner != nil {
		return rt.runner
	}
	return runner.New(rt.Journal(), runner.Options{})
}

func (rt *runtimeState) Notifier() (mail.Notifier, error) {
	if rt.notifier != nil {
		return rt.notifier, nil
	}
	if err := rt.EnsureConfigLoaded(); err != nil {
		return nil, err
	}
	return mail.NewNotifier(rt.cfg, rt.Journal(), mail.Options{}), nil
}
