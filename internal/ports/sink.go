package ports

import (
	"context"

	"github.com/Gunvolt24/mq_listener/internal/domain"
)

// DeliverySink — цель доставки одного сообщения: принять и либо
// успешно обработать (nil), либо вернуть ошибку (обычно *errs.DeliveryError).
type DeliverySink interface {
	Name() string
	Deliver(ctx context.Context, env *domain.Envelope) error
}
