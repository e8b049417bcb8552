package sink

import (
	"context"

	"github.com/Gunvolt24/mq_listener/internal/domain"
	"github.com/Gunvolt24/mq_listener/internal/ports"
)

// LogSink — синк, печатающий сообщение в лог. Никогда не падает.
type LogSink struct {
	log ports.Logger
}

func NewLogSink(log ports.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(ctx context.Context, env *domain.Envelope) error {
	s.log.Infof(ctx,
		"message received id=%s destination=%s correlation=%s redelivered=%v kind=%s size=%d content=%s",
		env.MessageID, env.Destination, env.CorrelationID, env.Redelivered,
		env.Kind, len(env.Body), preview(env),
	)
	return nil
}

// preview — содержимое для лога: текст как есть, бинарные — только длина.
func preview(env *domain.Envelope) string {
	switch env.Kind {
	case domain.ContentText, domain.ContentObject:
		return env.Text()
	default:
		return "<" + string(env.Kind) + ">"
	}
}
