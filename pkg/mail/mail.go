package mail

import (
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/Stephen-Kennedy/postfix-install/pkg/config"
	"github.com/Stephen-Kennedy/postfix-install/pkg/journal"
	"github.com/Stephen-Kennedy/postfix-install/pkg/metrics"
)

// DefaultSendTimeout bounds one full relay session, dial through QUIT.
const DefaultSendTimeout = 2 * time.Minute

// ErrSessionTimeout marks a relay session abandoned at the deadline.
var ErrSessionTimeout = errors.New("relay session timed out")

// Notifier delivers status messages to the single configured recipient.
// Send is one attempt per call; callers in the maintenance workflow
// swallow send failures so reporting problems never discard the status
// of work already done.
type Notifier interface {
	Send(subject, body string) error
	Probe() error
	Host() string
}

// Options tunes notifier behavior.
type Options struct {
	// SendTimeout bounds a relay session; zero means DefaultSendTimeout.
	SendTimeout time.Duration
	// RunID, when set, is stamped on outgoing messages as an
	// X-Maintenance-Run header.
	RunID string
	// InsecureSkipVerify disables relay certificate validation for
	// lab relays with self-signed certificates.
	InsecureSkipVerify bool
}

type notifier struct {
	dialer      *gomail.Dialer
	from        string
	to          string
	runID       string
	journal     *journal.Journal
	sendTimeout time.Duration
}

// NewNotifier builds a Notifier for the relay in cfg. The from address
// doubles as the submission username, matching how the relay credential
// is provisioned.
func NewNotifier(cfg *config.Config, j *journal.Journal, opts Options) Notifier {
	d := gomail.NewDialer(cfg.RelayHost, cfg.RelayPort, cfg.FromAddress, cfg.Credential)
	d.TLSConfig = &tls.Config{ServerName: cfg.RelayHost}
	if opts.InsecureSkipVerify {
		d.TLSConfig.InsecureSkipVerify = true
	}

	timeout := opts.SendTimeout
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}

	return &notifier{
		dialer:      d,
		from:        cfg.FromAddress,
		to:          cfg.ToAddress,
		runID:       opts.RunID,
		journal:     j,
		sendTimeout: timeout,
	}
}

// Send submits a single plain-text message. One attempt, no retries;
// every failure is terminal for the message and reported to the caller
// after being journaled.
func (n *notifier) Send(subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", n.from)
	msg.SetHeader("To", n.to)
	msg.SetHeader("Subject", subject)
	if n.runID != "" {
		msg.SetHeader("X-Maintenance-Run", n.runID)
	}
	msg.SetBody("text/plain", body)

	if err := n.session(func() error { return n.dialer.DialAndSend(msg) }); err != nil {
		metrics.MailSendFailure.WithLabelValues(n.Host()).Inc()
		n.journal.Error("Failed to send notification",
			"subject", subject, "host", n.Host(), "error", err.Error())
		return fmt.Errorf("sending notification %q: %w", subject, err)
	}

	metrics.MailSendSuccess.WithLabelValues(n.Host()).Inc()
	n.journal.Info("Notification sent", "subject", subject, "to", n.to)
	return nil
}

// Probe opens an authenticated session to the relay and closes it again
// without submitting anything. The workflow treats a probe failure as a
// run-aborting precondition: every later notification rides the same
// channel, so an unreachable relay fails fast instead of deep in the
// command sequence.
func (n *notifier) Probe() error {
	err := n.session(func() error {
		sc, err := n.dialer.Dial()
		if err != nil {
			return err
		}
		return sc.Close()
	})
	if err != nil {
		n.journal.Error("Relay unreachable",
			"host", n.dialer.Host, "port", n.dialer.Port, "error", err.Error())
		return fmt.Errorf("probing relay %s:%d: %w", n.dialer.Host, n.dialer.Port, err)
	}

	n.journal.Info("Relay reachable", "host", n.dialer.Host, "port", n.dialer.Port)
	return nil
}

// Host returns the relay hostname, used as the metrics label.
func (n *notifier) Host() string {
	return n.dialer.Host
}

// session bounds one relay exchange. An abandoned exchange holds only
// its socket; the per-run process exits shortly after.
func (n *notifier) session(op func() error) error {
	done := make(chan error, 1)
	go func() { done <- op() }()

	select {
	case err := <-done:
		return err
	case <-time.After(n.sendTimeout):
		return fmt.Errorf("%w after %s", ErrSessionTimeout, n.sendTimeout)
	}
}
