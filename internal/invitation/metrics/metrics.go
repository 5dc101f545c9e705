package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	InvitesIssued    *prometheus.CounterVec
	InvitesAccepted  prometheus.Counter
	AcceptConflicts  prometheus.Counter
	CollisionRetries prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		InvitesIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "homeroom_invitations_issued_total",
			Help: "Total number of invitations issued, by delivery mode",
		}, []string{"mode"}),
		InvitesAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "homeroom_invitations_accepted_total",
			Help: "Total number of invitations accepted",
		}),
		AcceptConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "homeroom_invitation_accept_conflicts_total",
			Help: "Acceptance attempts that lost the conditional status flip to another acceptor",
		}),
		CollisionRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "homeroom_invitation_code_collision_retries_total",
			Help: "Times a generated invitation code collided and was redrawn",
		}),
	}
}

func (m *Metrics) IncrementInvitesIssued(mode string) {
	m.InvitesIssued.WithLabelValues(mode).Inc()
}

func (m *Metrics) IncrementInvitesAccepted() {
	m.InvitesAccepted.Inc()
}

func (m *Metrics) IncrementAcceptConflicts() {
	m.AcceptConflicts.Inc()
}

func (m *Metrics) IncrementCollisionRetries() {
	m.CollisionRetries.Inc()
}
