package amqp

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	amqp091 "github.com/rabbitmq/amqp091-go"

	"github.com/Gunvolt24/mq_listener/internal/domain"
)

// Заголовок квотируемых очередей со счётчиком повторных доставок.
const deliveryCountHeader = "x-delivery-count"

// toEnvelope строит неизменяемое представление сообщения из AMQP-доставки.
func toEnvelope(d *amqp091.Delivery, queue string) *domain.Envelope {
	props := make(map[string]string, len(d.Headers))
	for k, v := range d.Headers {
		props[k] = fmt.Sprint(v)
	}

	env := &domain.Envelope{
		MessageID:       d.MessageId,
		ContentType:     d.ContentType,
		Kind:            kindOf(d.ContentType, d.Body),
		Body:            d.Body,
		BrokerTimestamp: d.Timestamp,
		CorrelationID:   d.CorrelationId,
		Destination:     destination(d, queue),
		ReplyTo:         d.ReplyTo,
		DeliveryMode:    d.DeliveryMode,
		Priority:        d.Priority,
		Redelivered:     d.Redelivered,
		RedeliveryCount: redeliveryCount(d),
		Properties:      props,
	}

	if env.MessageID == "" {
		// Не все продьюсеры проставляют message-id; тег доставки уникален
		// в рамках канала.
		env.MessageID = fmt.Sprintf("%s-%d", d.ConsumerTag, d.DeliveryTag)
	}
	if ms, err := strconv.ParseInt(d.Expiration, 10, 64); err == nil {
		env.Expiration = ms
	}
	return env
}

func destination(d *amqp091.Delivery, queue string) string {
	switch {
	case d.Exchange != "":
		return d.Exchange + "/" + d.RoutingKey
	case d.RoutingKey != "":
		return d.RoutingKey
	default:
		return queue
	}
}

func redeliveryCount(d *amqp091.Delivery) int {
	if v, ok := d.Headers[deliveryCountHeader]; ok {
		if n, ok := asInt(v); ok {
			return n
		}
	}
	if d.Redelivered {
		return 1
	}
	return 0
}

// asInt — числовые значения AMQP-таблиц приходят разными типами.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float32:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func kindOf(contentType string, body []byte) domain.ContentKind {
	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "text/"), strings.Contains(ct, "json"), strings.Contains(ct, "xml"):
		return domain.ContentText
	case ct == "":
		if utf8.Valid(body) {
			return domain.ContentText
		}
		return domain.ContentBytes
	default:
		return domain.ContentBytes
	}
}
