package domain

import "time"

// ContentKind — вид содержимого сообщения (влияет на сериализацию в HTTP-синке).
type ContentKind string

const (
	ContentText    ContentKind = "text"
	ContentBytes   ContentKind = "bytes"
	ContentMap     ContentKind = "map"
	ContentObject  ContentKind = "object"
	ContentStream  ContentKind = "stream"
	ContentUnknown ContentKind = "unknown"
)

// Envelope — неизменяемое представление одного доставленного сообщения.
// Живёт только на время обработки в диспетчере; хранить ссылку после
// возврата из колбэка нельзя.
type Envelope struct {
	MessageID       string
	ContentType     string    // MIME-тип из брокера (как есть)
	Kind            ContentKind
	Body            []byte
	MapBody         map[string]string // заполняется только при Kind == ContentMap
	BrokerTimestamp time.Time         // метка времени, проставленная брокером
	CorrelationID   string
	Destination     string
	ReplyTo         string
	DeliveryMode    uint8
	Priority        uint8
	Expiration      int64 // мс; 0 — без ограничения
	Redelivered     bool
	RedeliveryCount int               // счётчик повторных доставок (x-delivery-count)
	Properties      map[string]string // произвольные строковые свойства
}

// Text — содержимое как строка (для текстовых сообщений и логирования).
func (e *Envelope) Text() string {
	return string(e.Body)
}
