package sink

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/Gunvolt24/mq_listener/internal/domain"
)

// maxInlineBody — порог вложения бинарного содержимого в JSON (1 MiB).
const maxInlineBody = 1 << 20

const oversizePlaceholder = "Binary content too large or empty"

// httpEnvelope — исходящий JSON-документ. Набор полей фиксирован —
// это внешний контракт HTTP-приёмника.
type httpEnvelope struct {
	MessageID     string            `json:"messageId"`
	Timestamp     int64             `json:"timestamp"`
	MessageType   string            `json:"messageType"`
	JMSTimestamp  int64             `json:"jmsTimestamp,omitempty"`
	CorrelationID string            `json:"correlationId,omitempty"`
	Destination   string            `json:"destination,omitempty"`
	ReplyTo       string            `json:"replyTo,omitempty"`
	DeliveryMode  int               `json:"deliveryMode"`
	Priority      int               `json:"priority"`
	Expiration    int64             `json:"expiration"`
	Redelivered   bool              `json:"redelivered"`
	Properties    map[string]string `json:"properties"`
	ContentType   string            `json:"contentType"`
	Content       any               `json:"content"`
}

// EncodeEnvelope сериализует конверт в исходящий JSON-документ.
func EncodeEnvelope(env *domain.Envelope) ([]byte, error) {
	doc := httpEnvelope{
		MessageID:     env.MessageID,
		Timestamp:     time.Now().UnixMilli(),
		MessageType:   messageType(env),
		CorrelationID: env.CorrelationID,
		Destination:   env.Destination,
		ReplyTo:       env.ReplyTo,
		DeliveryMode:  int(env.DeliveryMode),
		Priority:      int(env.Priority),
		Expiration:    env.Expiration,
		Redelivered:   env.Redelivered,
		Properties:    env.Properties,
		ContentType:   string(env.Kind),
		Content:       content(env),
	}
	if !env.BrokerTimestamp.IsZero() {
		doc.JMSTimestamp = env.BrokerTimestamp.UnixMilli()
	}
	if doc.Properties == nil {
		doc.Properties = map[string]string{}
	}
	return json.Marshal(doc)
}

func messageType(env *domain.Envelope) string {
	if env.ContentType != "" {
		return env.ContentType
	}
	return string(env.Kind)
}

func content(env *domain.Envelope) any {
	switch env.Kind {
	case domain.ContentText:
		return env.Text()
	case domain.ContentBytes:
		if len(env.Body) == 0 || len(env.Body) > maxInlineBody {
			return oversizePlaceholder
		}
		return base64.StdEncoding.EncodeToString(env.Body)
	case domain.ContentMap:
		if env.MapBody == nil {
			return map[string]string{}
		}
		return env.MapBody
	case domain.ContentObject:
		return env.Text()
	case domain.ContentStream:
		return "Stream message content"
	default:
		return "Unknown message type"
	}
}
