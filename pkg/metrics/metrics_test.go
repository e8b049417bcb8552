package metrics_test

import (
	"testing"

	"github.com/Gunvolt24/mq_listener/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMustRegister_IsIdempotent(t *testing.T) {
	// Должно выполняться без паники даже при повторном вызове.
	metrics.MustRegister()
	metrics.MustRegister()
}

func TestMessageCounters_Inc(t *testing.T) {
	metrics.MustRegister()

	beforeReceived := testutil.ToFloat64(metrics.MessagesReceived.WithLabelValues("inbound"))
	beforeCommitted := testutil.ToFloat64(metrics.MessagesCommitted.WithLabelValues("inbound"))
	beforeRolledBack := testutil.ToFloat64(metrics.MessagesRolledBack.WithLabelValues("inbound"))

	metrics.MessagesReceived.WithLabelValues("inbound").Inc()
	metrics.MessagesCommitted.WithLabelValues("inbound").Inc()
	metrics.MessagesRolledBack.WithLabelValues("inbound").Inc()

	if got := testutil.ToFloat64(metrics.MessagesReceived.WithLabelValues("inbound")); got != beforeReceived+1 {
		t.Fatalf("MessagesReceived: got=%v want=%v", got, beforeReceived+1)
	}
	if got := testutil.ToFloat64(metrics.MessagesCommitted.WithLabelValues("inbound")); got != beforeCommitted+1 {
		t.Fatalf("MessagesCommitted: got=%v want=%v", got, beforeCommitted+1)
	}
	if got := testutil.ToFloat64(metrics.MessagesRolledBack.WithLabelValues("inbound")); got != beforeRolledBack+1 {
		t.Fatalf("MessagesRolledBack: got=%v want=%v", got, beforeRolledBack+1)
	}
}

func TestSinkDeliveries_CountersByLabel(t *testing.T) {
	metrics.MustRegister()

	okBefore := testutil.ToFloat64(metrics.SinkDeliveries.WithLabelValues("http", "ok"))
	failBefore := testutil.ToFloat64(metrics.SinkDeliveries.WithLabelValues("http", "fail"))

	metrics.SinkDeliveries.WithLabelValues("http", "ok").Inc()
	metrics.SinkDeliveries.WithLabelValues("http", "ok").Inc()

	if got := testutil.ToFloat64(metrics.SinkDeliveries.WithLabelValues("http", "ok")); got != okBefore+2 {
		t.Fatalf("SinkDeliveries(ok): got=%v want=%v", got, okBefore+2)
	}
	if got := testutil.ToFloat64(metrics.SinkDeliveries.WithLabelValues("http", "fail")); got != failBefore {
		t.Fatalf("SinkDeliveries(fail): got=%v want=%v", got, failBefore)
	}
}

func TestListenerState_GaugeSet(t *testing.T) {
	metrics.MustRegister()

	cur := testutil.ToFloat64(metrics.ListenerState)

	metrics.ListenerState.Set(2)
	if got := testutil.ToFloat64(metrics.ListenerState); got != 2 {
		t.Fatalf("ListenerState after set: got=%v want=2", got)
	}

	metrics.ListenerState.Set(cur) // вернуть как было
}
