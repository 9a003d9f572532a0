package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

var (
	gatewayMetricsOnce sync.Once

	invitesSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "friend_invites_sent_total",
			Help: "Total number of friend invite send attempts",
		},
		[]string{"status"},
	)

	inviteAcceptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "friend_invite_accepts_total",
			Help: "Total number of friend invite accept attempts",
		},
		[]string{"status"},
	)

	inviteDeclinesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "friend_invite_declines_total",
			Help: "Total number of friend invite decline attempts",
		},
		[]string{"status"},
	)

	heartbeatsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presence_heartbeats_total",
			Help: "Total number of presence heartbeat forwards",
		},
		[]string{"status"},
	)

	wsReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "presence_ws_reconnects_total",
			Help: "Total number of scheduled presence WebSocket reconnects",
		},
	)
)

func RegisterGatewayMetrics() {
	gatewayMetricsOnce.Do(func() {
		prometheus.MustRegister(invitesSentTotal, inviteAcceptsTotal, inviteDeclinesTotal, heartbeatsTotal, wsReconnectsTotal)
	})
}

func IncInviteSent(status string) {
	RegisterGatewayMetrics()
	invitesSentTotal.WithLabelValues(status).Inc()
}

func IncInviteAccept(status string) {
	RegisterGatewayMetrics()
	inviteAcceptsTotal.WithLabelValues(status).Inc()
}

func IncInviteDecline(status string) {
	RegisterGatewayMetrics()
	inviteDeclinesTotal.WithLabelValues(status).Inc()
}

func IncHeartbeat(status string) {
	RegisterGatewayMetrics()
	heartbeatsTotal.WithLabelValues(status).Inc()
}

func IncWSReconnect() {
	RegisterGatewayMetrics()
	wsReconnectsTotal.Inc()
}
