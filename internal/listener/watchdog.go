package listener

import (
	"context"
	"time"

	"github.com/Gunvolt24/mq_listener/internal/ports"
	"github.com/Gunvolt24/mq_listener/pkg/metrics"
)

// Границы периода проверки вотчдога.
const (
	watchdogMaxCheck = time.Minute
	watchdogMinCheck = time.Second
)

// idleWatchdog переподключает слушателя, если сообщений не было дольше
// порога: молчащий консьюмер неотличим от тихо умершей подписки.
type idleWatchdog struct {
	sup       *Supervisor
	threshold time.Duration
	log       ports.Logger

	minCheck time.Duration
	maxCheck time.Duration
}

func newIdleWatchdog(sup *Supervisor, threshold time.Duration, log ports.Logger) *idleWatchdog {
	return &idleWatchdog{
		sup:       sup,
		threshold: threshold,
		log:       log,
		minCheck:  watchdogMinCheck,
		maxCheck:  watchdogMaxCheck,
	}
}

// checkInterval — половина порога, зажатая в [minCheck, maxCheck]:
// простой замечается не позже чем через полтора порога.
func (w *idleWatchdog) checkInterval() time.Duration {
	check := w.threshold / 2
	if check > w.maxCheck {
		check = w.maxCheck
	}
	if check < w.minCheck {
		check = w.minCheck
	}
	return check
}

func (w *idleWatchdog) run(stopCh <-chan struct{}) {
	ctx := context.Background()
	check := w.checkInterval()
	w.log.Infof(ctx, "idle monitor started: threshold=%s check=%s", w.threshold, check)

	for {
		select {
		case <-stopCh:
			w.log.Infof(ctx, "idle monitor stopped")
			return
		case <-time.After(check):
		}

		if !w.sup.fl.running.Load() {
			return
		}
		idle := w.sup.fl.idle()
		if idle <= w.threshold {
			continue
		}

		w.log.Warnf(ctx, "no messages for %s (threshold %s), reconnecting",
			idle.Round(time.Second), w.threshold)
		if !w.sup.fl.reconnecting.CompareAndSwap(false, true) {
			w.log.Infof(ctx, "reconnection already in progress, idle trigger skipped")
			continue
		}

		// Таймер сбрасывается в момент срабатывания, чтобы после
		// восстановления отсчёт простоя начался заново. Флаг
		// reconnecting снимает сам reconnectLoop по завершении.
		w.sup.fl.touch()
		metrics.Reconnects.WithLabelValues("idle").Inc()
		w.sup.reconnectLoop(ctx)
	}
}
