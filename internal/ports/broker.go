package ports

import (
	"context"

	"github.com/Gunvolt24/mq_listener/internal/domain"
)

// AckMode — режим подтверждения сообщений.
type AckMode int

const (
	AckAuto AckMode = iota // брокер подтверждает сам при доставке
	AckClient              // явное подтверждение диспетчером
	AckDupsOK              // ленивое подтверждение, дубликаты допустимы
	AckTransacted          // подтверждение входит в границы транзакции
)

// ParseAckMode — разбор строки конфигурации. Второй результат false,
// если значение неизвестно (вызывающий решает, падать или брать дефолт).
func ParseAckMode(s string) (AckMode, bool) {
	switch s {
	case "auto":
		return AckAuto, true
	case "client":
		return AckClient, true
	case "dups_ok":
		return AckDupsOK, true
	case "transacted":
		return AckTransacted, true
	default:
		return AckAuto, false
	}
}

// Transacted — true, если режим требует commit/rollback вокруг обработки.
func (m AckMode) Transacted() bool { return m == AckTransacted }

func (m AckMode) String() string {
	switch m {
	case AckAuto:
		return "auto"
	case AckClient:
		return "client"
	case AckDupsOK:
		return "dups_ok"
	case AckTransacted:
		return "transacted"
	default:
		return "unknown"
	}
}

// Environment — свойства подключения к брокеру (из провайдер-файла).
// Применяются как есть при каждом connect/reconnect.
type Environment map[string]string

// Connector — фабрика подключений к брокеру. Единственная точка,
// знающая про конкретную клиентскую библиотеку.
type Connector interface {
	Connect(ctx context.Context, env Environment) (Connection, error)
}

// Connection — открытое подключение к брокеру.
type Connection interface {
	// Session создаёт сессию; при transacted все подтверждения входят
	// в транзакцию и требуют Commit/Rollback.
	Session(mode AckMode) (Session, error)
	// NotifyClose — канал асинхронных ошибок подключения. При штатном
	// закрытии канал закрывается без значения.
	NotifyClose() <-chan error
	Close() error
}

// Session — сессия с консьюмером и транзакционными примитивами.
// Хэндлы сессии небезопасны для конкурентного использования: поток
// доставки и поток восстановления не должны трогать их одновременно.
type Session interface {
	// Consume начинает доставку из очереди; канал закрывается при
	// Cancel/Close или потере подключения.
	Consume(queue, selector string, noLocal bool) (<-chan Delivery, error)
	// Cancel останавливает входящую доставку, не закрывая сессию.
	Cancel() error
	Commit() error
	Rollback() error
	Close() error
}

// Delivery — одно доставленное сообщение и его подтверждение.
type Delivery interface {
	Envelope() *domain.Envelope
	Ack() error
}
