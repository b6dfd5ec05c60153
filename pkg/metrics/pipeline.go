package metrics

import "github.com/prometheus/client_golang/prometheus"

// Payment callback outcomes.
const (
	CallbackPaid             = "paid"
	CallbackAlreadyPaid      = "already_paid"
	CallbackUnknownReference = "unknown_reference"
	CallbackInvalidSignature = "invalid_signature"
	CallbackDuplicate        = "duplicate"
	CallbackStoreError       = "store_error"
)

// Invite operation results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultReused  = "reused"
)

// PipelineMetrics counts events along the payment to invite pipeline.
// A nil receiver is a no-op so services can run without metrics wired.
type PipelineMetrics struct {
	callbacks     *prometheus.CounterVec
	invitesIssued *prometheus.CounterVec
	invitesRevoke *prometheus.CounterVec
	paymentLinks  prometheus.Counter
}

// NewPipelineMetrics registers the pipeline counters on reg.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	callbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enroll_payment_callbacks_total",
		Help: "Payment result callbacks by outcome.",
	}, []string{"outcome"})
	issued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enroll_invites_issued_total",
		Help: "Invite issuance attempts by result.",
	}, []string{"result"})
	revoked := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enroll_invites_revoked_total",
		Help: "Invite revocation attempts by result.",
	}, []string{"result"})
	links := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "enroll_payment_links_total",
		Help: "Signed payment links generated.",
	})
	reg.MustRegister(callbacks, issued, revoked, links)
	return &PipelineMetrics{
		callbacks:     callbacks,
		invitesIssued: issued,
		invitesRevoke: revoked,
		paymentLinks:  links,
	}
}

func (p *PipelineMetrics) Callback(outcome string) {
	if p == nil || p.callbacks == nil {
		return
	}
	p.callbacks.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (p *PipelineMetrics) InviteIssued(result string) {
	if p == nil || p.invitesIssued == nil {
		return
	}
	p.invitesIssued.WithLabelValues(normalizeLabel(result)).Inc()
}

func (p *PipelineMetrics) InviteRevoked(result string) {
	if p == nil || p.invitesRevoke == nil {
		return
	}
	p.invitesRevoke.WithLabelValues(normalizeLabel(result)).Inc()
}

func (p *PipelineMetrics) PaymentLink() {
	if p == nil || p.paymentLinks == nil {
		return
	}
	p.paymentLinks.Inc()
}
