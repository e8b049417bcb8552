package listener

import (
	"context"
	"errors"
	"time"

	"github.com/Gunvolt24/mq_listener/internal/domain"
	"github.com/Gunvolt24/mq_listener/internal/errs"
	"github.com/Gunvolt24/mq_listener/internal/ports"
	"github.com/Gunvolt24/mq_listener/pkg/metrics"
)

// Сообщение, вернувшееся в очередь больше этого числа раз, считается
// подозрительным на «отравленное».
const poisonThreshold = 3

// Dispatcher обрабатывает одно сообщение за вызов: доставка в синк,
// затем подтверждение либо откат транзакции. Вызывается строго из
// потока доставки, поэтому собственной синхронизации не имеет.
type Dispatcher struct {
	sink          ports.DeliverySink
	log           ports.Logger
	fl            *flags
	queue         string
	ackMode       ports.AckMode
	rollbackDelay time.Duration
}

// Handle — границы транзакции для одного сообщения.
func (dp *Dispatcher) Handle(ctx context.Context, sess ports.Session, d ports.Delivery) {
	dp.fl.touch()

	env := d.Envelope()
	if !dp.fl.running.Load() {
		dp.log.Warnf(ctx, "message %s received while shutting down, ignoring", env.MessageID)
		metrics.MessagesDiscarded.WithLabelValues(dp.queue).Inc()
		return
	}

	metrics.MessagesReceived.WithLabelValues(dp.queue).Inc()
	dp.log.Infof(ctx, "received message %s from %s (redeliveries: %d)",
		env.MessageID, env.Destination, env.RedeliveryCount)

	start := time.Now()
	if err := dp.sink.Deliver(ctx, env); err != nil {
		dp.log.Errorf(ctx, "error processing message %s after %s: %v",
			env.MessageID, time.Since(start).Round(time.Millisecond), err)
		if !dp.ackMode.Transacted() {
			dp.log.Warnf(ctx, "session is not transacted, message %s cannot be rolled back", env.MessageID)
			return
		}
		dp.rollback(ctx, sess, env, err)
		return
	}

	dp.commit(ctx, sess, d, env, start)
}

func (dp *Dispatcher) commit(ctx context.Context, sess ports.Session, d ports.Delivery, env *domain.Envelope, start time.Time) {
	if dp.ackMode == ports.AckClient || dp.ackMode.Transacted() {
		if err := d.Ack(); err != nil {
			dp.log.Warnf(ctx, "failed to acknowledge message %s: %v", env.MessageID, err)
		}
	}

	if dp.ackMode.Transacted() {
		if err := sess.Commit(); err != nil {
			terr := &errs.TransactionError{Op: "commit", Err: err}
			dp.log.Errorf(ctx, "critical: %v for message %s, session state is uncertain", terr, env.MessageID)
			return
		}
		dp.log.Infof(ctx, "transaction committed for message %s (processing time: %s)",
			env.MessageID, time.Since(start).Round(time.Millisecond))
	}
	metrics.MessagesCommitted.WithLabelValues(dp.queue).Inc()
}

// rollback возвращает сообщение в очередь. Перед откатом выдерживается
// пауза, чтобы не раскручивать мгновенный цикл redeliver-fail для
// недоступного синка; пауза применяется только к сбоям доставки —
// прочие ошибки откатываются сразу.
func (dp *Dispatcher) rollback(ctx context.Context, sess ports.Session, env *domain.Envelope, cause error) {
	var dErr *errs.DeliveryError
	if dp.rollbackDelay > 0 && errors.As(cause, &dErr) {
		dp.log.Warnf(ctx, "sink failure for message %s, delaying rollback by %s to throttle redelivery",
			env.MessageID, dp.rollbackDelay)
		if !sleepCtx(ctx, dp.rollbackDelay) {
			dp.log.Warnf(ctx, "rollback delay interrupted for message %s", env.MessageID)
		}
	}

	if err := sess.Rollback(); err != nil {
		terr := &errs.TransactionError{Op: "rollback", Err: err}
		dp.log.Errorf(ctx, "critical: %v for message %s, session state is uncertain", terr, env.MessageID)
		return
	}

	metrics.MessagesRolledBack.WithLabelValues(dp.queue).Inc()
	dp.log.Warnf(ctx, "transaction rolled back, message %s will be redelivered", env.MessageID)

	if env.RedeliveryCount > poisonThreshold {
		dp.log.Warnf(ctx, "message %s has been redelivered %d times, possible poison message",
			env.MessageID, env.RedeliveryCount)
	}
}

// sleepCtx возвращает false, если пауза прервана отменой контекста.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
