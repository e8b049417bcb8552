package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	MessagesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mq_messages_received_total",
			Help: "Number of messages delivered by the broker",
		},
		[]string{"queue"},
	)
	MessagesCommitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mq_messages_committed_total",
			Help: "Number of messages acknowledged or committed",
		},
		[]string{"queue"},
	)
	MessagesRolledBack = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mq_messages_rolledback_total",
			Help: "Number of messages rolled back after a delivery failure",
		},
		[]string{"queue"},
	)
	MessagesDiscarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mq_messages_discarded_total",
			Help: "Messages received while the listener was not running",
		},
		[]string{"queue"},
	)
)

var (
	SinkDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mq_sink_deliveries_total",
			Help: "Per-sink delivery outcomes",
		},
		[]string{"sink", "result"}, // result: ok|fail
	)
	Reconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mq_reconnects_total",
			Help: "Reconnection attempts by trigger",
		},
		[]string{"trigger"}, // trigger: fault|idle
	)
	ListenerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mq_listener_state",
			Help: "Listener state (0=stopped 1=starting 2=active 3=recovering)",
		},
	)
)

var registerOnce sync.Once

// MustRegister регистрирует метрики в дефолтном реестре. Повторные вызовы — no-op.
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			MessagesReceived, MessagesCommitted, MessagesRolledBack, MessagesDiscarded,
			SinkDeliveries, Reconnects, ListenerState,
		)
	})
}
