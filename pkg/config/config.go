// Package config loads the relay credentials and addressing used by the
// update workflow and the relay provisioning commands. The source is a
// key=value environment file written at install time; it is read once at
// process start and handed to components explicitly.
package config

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultPath is where the installer places the environment file and
// where every consumer looks for it unless overridden.
const DefaultPath = "/etc/postfix/env_variables.env"

// DefaultSubmissionPort is the mail submission port used when the
// environment file does not carry an explicit SMTP_PORT.
const DefaultSubmissionPort = 587

// Required keys of the environment file. All four must be present and
// non-empty; a partial file is a fatal misconfiguration.
const (
	KeyFromEmail  = "FROM_EMAIL"
	KeyToEmail    = "TO_EMAIL"
	KeySMTPServer = "SMTP_SERVER"
	KeyPassword   = "EMAIL_PASSWORD"

	// Optional keys.
	KeySMTPPort       = "SMTP_PORT"
	KeyPushgatewayURL = "PUSHGATEWAY_URL"
)

// Config carries the relay settings consumed by the notifier and the
// provisioning commands. Immutable after Load.
type Config struct {
	FromAddress string
	ToAddress   string
	RelayHost   string
	RelayPort   int
	Credential  string

	// PushgatewayURL enables end-of-run metric delivery when non-empty.
	PushgatewayURL string
}

// Load reads the environment file at path, falling back to DefaultPath
// when no path is given. A missing file or any missing required key is
// an error; callers treat that as fatal.
func Load(configPath ...string) (*Config, error) {
	path := DefaultPath
	if len(configPath) > 0 && configPath[0] != "" {
		path = configPath[0]
	}

	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading environment file %s: %w", path, err)
	}

	var missing []string
	get := func(key string) string {
		v := strings.TrimSpace(values[key])
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := &Config{
		FromAddress:    get(KeyFromEmail),
		ToAddress:      get(KeyToEmail),
		Credential:     get(KeyPassword),
		PushgatewayURL: strings.TrimSpace(values[KeyPushgatewayURL]),
	}

	host, portFromHost, err := splitRelayHost(get(KeySMTPServer))
	if err != nil {
		return nil, fmt.Errorf("environment file %s: %w", path, err)
	}
	cfg.RelayHost = host
	cfg.RelayPort = portFromHost

	if raw := strings.TrimSpace(values[KeySMTPPort]); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("environment file %s: invalid %s %q", path, KeySMTPPort, raw)
		}
		cfg.RelayPort = port
	}
	if cfg.RelayPort == 0 {
		cfg.RelayPort = DefaultSubmissionPort
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("environment file %s is missing required keys: %s",
			path, strings.Join(missing, ", "))
	}

	return cfg, nil
}

// RelayAddr returns the host:port form of the relay endpoint.
func (c *Config) RelayAddr() string {
	return net.JoinHostPort(c.RelayHost, strconv.Itoa(c.RelayPort))
}

// splitRelayHost accepts "host" or "host:port". Port 0 means the value
// carried no port.
func splitRelayHost(value string) (string, int, error) {
	if value == "" {
		return "", 0, nil
	}
	if !strings.Contains(value, ":") {
		return value, 0, nil
	}
	host, portStr, err := net.SplitHostPort(value)
	if err != nil {
		return "", 0, fmt.Errorf("invalid %s %q: %w", KeySMTPServer, value, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid %s port in %q", KeySMTPServer, value)
	}
	return host, port, nil
}
