package update

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
)

// Report aggregates what a maintenance run performed. It is built
// incrementally across the command sequence and discarded after the
// run; the journal is the durable record.
type Report struct {
	Host    string
	Kernel  string
	RunID   string
	Started time.Time

	// Performed holds the labels of succeeded commands in execution
	// order. Failed holds the rest; it feeds the journal and metrics
	// but never the summary notification.
	Performed []string
	Failed    []string

	DistUpgradeAvailable bool
	DistUpgradeDetail    string
}

// The summary body lists the succeeded labels one per line; recipients
// filter on these lines, so nothing else is interleaved with them.
const summaryTemplate = `Host: {{ .Host }} (kernel {{ .Kernel }})
Run: {{ .RunID }}

The following maintenance tasks completed successfully:

{{ .Performed | join "\n" }}
`

var summaryTmpl = template.Must(
	template.New("summary").Funcs(sprig.TxtFuncMap()).Parse(summaryTemplate))

// SummarySubject returns the subject of the performed-updates notice.
func (r *Report) SummarySubject() string {
	return fmt.Sprintf("Updates performed on %s", r.Host)
}

// SummaryBody renders the performed-updates notice.
func (r *Report) SummaryBody() (string, error) {
	var buf bytes.Buffer
	if err := summaryTmpl.Execute(&buf, r); err != nil {
		return "", fmt.Errorf("rendering summary body: %w", err)
	}
	return buf.String(), nil
}

// DistUpgradeSubject returns the subject of the pending-dist-upgrade
// notice. Its body is the raw simulated-upgrade output.
func (r *Report) DistUpgradeSubject() string {
	return fmt.Sprintf("Distribution upgrade pending on %s", r.Host)
}
