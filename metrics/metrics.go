package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// VerificationRuns counts finished verification runs by terminal outcome
	// (verified, email_not_found, parse_failed, amount_mismatch,
	// order_update_failed, aborted).
	VerificationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_verification_runs_total",
			Help: "Total verification runs by terminal outcome",
		},
		[]string{"outcome"},
	)

	// MailboxErrors counts swallowed poll-iteration failures.
	MailboxErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_verification_mailbox_errors_total",
			Help: "Mailbox search/fetch errors absorbed by the poll loop",
		},
	)
)

// Register installs the collectors on the default registry.
func Register() {
	prometheus.MustRegister(VerificationRuns, MailboxErrors)
}
