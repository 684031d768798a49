package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters a Gateway updates as it answers traffic.
// Nil is a valid Config.Metrics value: every call site checks for it
// before incrementing.
type Metrics struct {
	ArpRepliesSent      prometheus.Counter
	IcmpEchoRepliesSent prometheus.Counter
	TcpSegmentsSent     prometheus.Counter
}

// NewMetrics registers the gateway's counters against reg and returns
// them. Use a dedicated prometheus.Registry (not
// prometheus.DefaultRegisterer) when running more than one Gateway in
// the same process to avoid duplicate-registration panics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ArpRepliesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "netstack_gateway_arp_replies_sent_total",
			Help: "ARP responses sent by the gateway.",
		}),
		IcmpEchoRepliesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "netstack_gateway_icmp_echo_replies_sent_total",
			Help: "ICMP echo replies sent by the gateway.",
		}),
		TcpSegmentsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "netstack_gateway_tcp_segments_sent_total",
			Help: "TCP segments sent by the gateway's passive endpoints.",
		}),
	}
}
