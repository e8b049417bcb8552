package sink

import (
	"context"

	"github.com/Gunvolt24/mq_listener/internal/domain"
	"github.com/Gunvolt24/mq_listener/internal/errs"
	"github.com/Gunvolt24/mq_listener/internal/ports"
	"github.com/Gunvolt24/mq_listener/pkg/metrics"
)

// Composite — упорядоченный набор синков.
// continueOnError=false: первый отказ останавливает обход, итог — отказ.
// continueOnError=true: выполняются все синки; итог — отказ, только если
// отказали все. Частичный успех считается успехом доставки — осознанный
// выбор в пользу доступности хотя бы одного синка.
type Composite struct {
	sinks           []ports.DeliverySink
	continueOnError bool
	log             ports.Logger
}

func NewComposite(continueOnError bool, log ports.Logger, sinks ...ports.DeliverySink) *Composite {
	return &Composite{sinks: sinks, continueOnError: continueOnError, log: log}
}

func (c *Composite) Name() string { return "composite" }

// Len — число настроенных синков.
func (c *Composite) Len() int { return len(c.sinks) }

func (c *Composite) Deliver(ctx context.Context, env *domain.Envelope) error {
	if len(c.sinks) == 0 {
		c.log.Warnf(ctx, "no sinks configured, message %s ignored", env.MessageID)
		return nil
	}

	var failures []error
	for i, sk := range c.sinks {
		err := sk.Deliver(ctx, env)
		if err == nil {
			metrics.SinkDeliveries.WithLabelValues(sk.Name(), "ok").Inc()
			continue
		}

		metrics.SinkDeliveries.WithLabelValues(sk.Name(), "fail").Inc()
		c.log.Errorf(ctx, "sink %s (%d/%d) failed for message %s: %v", sk.Name(), i+1, len(c.sinks), env.MessageID, err)
		failures = append(failures, err)

		if !c.continueOnError {
			break
		}
	}

	switch {
	case len(failures) == 0:
		return nil
	case !c.continueOnError || len(failures) == len(c.sinks):
		return errs.NewDeliveryError(c.Name(), 0, failures...)
	default:
		c.log.Warnf(ctx, "message %s: %d of %d sinks failed, continuing due to continueOnError",
			env.MessageID, len(failures), len(c.sinks))
		return nil
	}
}
