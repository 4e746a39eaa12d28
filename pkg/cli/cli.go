package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Stephen-Kennedy/postfix-install/pkg/config"
	"github.com/Stephen-Kennedy/postfix-install/pkg/journal"
	"github.com/Stephen-Kennedy/postfix-install/pkg/mail"
	"github.com/Stephen-Kennedy/postfix-install/pkg/reboot"
	"github.com/Stephen-Kennedy/postfix-install/pkg/runner"
)

type Config struct {
	// Input paths
	ConfigPath string
	MarkerPath string

	// Journal destination
	JournalPath string
	Console     bool

	// Timeout flags, kept as strings and parsed on use so a bad value
	// degrades to the default instead of failing the run
	CommandTimeout string
	SendTimeout    string

	// Relay TLS
	InsecureTLS bool
}

func Parse() *Config {
	cfg := &Config{}
	// Define command-line flags with environment variable fallbacks.
	// The pattern: flag.XxxVar(&variable, "flag-name", defaultValueOrEnvValue, "help text")
	flag.StringVar(&cfg.ConfigPath, "config-path", getEnvString("AUTO_UPDATE_CONFIG_PATH", config.DefaultPath),
		"Path to the environment file carrying relay addresses and credentials")
	flag.StringVar(&cfg.MarkerPath, "marker-path", getEnvString("AUTO_UPDATE_MARKER_PATH", reboot.DefaultMarkerPath),
		"Path of the marker file the package manager leaves when a reboot is required")

	flag.StringVar(&cfg.JournalPath, "journal-path", getEnvString("AUTO_UPDATE_JOURNAL_PATH", journal.DefaultPath),
		"Path of the rotating journal file recording every command and event")
	flag.BoolVar(&cfg.Console, "console", getEnvBool("AUTO_UPDATE_CONSOLE", false),
		"Also write journal entries to stderr, for interactive runs")

	flag.StringVar(&cfg.CommandTimeout, "command-timeout", getEnvString("AUTO_UPDATE_COMMAND_TIMEOUT", runner.DefaultTimeout.String()),
		"How long a single maintenance command may run before it is killed (e.g. '30m')")
	flag.StringVar(&cfg.SendTimeout, "send-timeout", getEnvString("AUTO_UPDATE_SEND_TIMEOUT", mail.DefaultSendTimeout.String()),
		"How long one SMTP session may take before it is abandoned (e.g. '2m')")

	flag.BoolVar(&cfg.InsecureTLS, "insecure-tls", getEnvBool("AUTO_UPDATE_INSECURE_TLS", false),
		"Skip relay certificate verification. Only for relays with self-signed certificates")

	flag.Parse()

	return cfg
}

func (c *Config) Print(j *journal.Journal) {
	j.Info("CLI configuration",
		"config_path", c.ConfigPath,
		"marker_path", c.MarkerPath,
		"journal_path", c.JournalPath,
		"console", c.Console,
		"command_timeout", c.CommandTimeout,
		"send_timeout", c.SendTimeout,
		"insecure_tls", c.InsecureTLS,
	)
}

// ParseCommandTimeout returns the per-command deadline from the CLI flag
// (fallback to the runner default).
func ParseCommandTimeout(value string, j *journal.Journal) time.Duration {
	timeout, err := parseDuration("command-timeout", value, runner.DefaultTimeout)
	if err != nil {
		j.Warning(err.Error())
	}
	return timeout
}

// ParseSendTimeout returns the SMTP session deadline from the CLI flag
// (fallback to the mail default).
func ParseSendTimeout(value string, j *journal.Journal) time.Duration {
	timeout, err := parseDuration("send-timeout", value, mail.DefaultSendTimeout)
	if err != nil {
		j.Warning(err.Error())
	}
	return timeout
}

func parseDuration(name, value string, def time.Duration) (time.Duration, error) {
	duration := def
	if value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			duration = d
		} else {
			return duration, fmt.Errorf("invalid %s %q; using default %s: %w", name, value, def.String(), err)
		}
	}

	return duration, nil
}

// getEnvString returns the value of an environment variable, or the provided default if not set.
func getEnvString(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvBool returns the value of an environment variable as a bool, or the provided default if not set.
// Valid true values are "true", "1", "yes" (case-insensitive).
func getEnvBool(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(val) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return defaultVal
}
