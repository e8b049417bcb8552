// Пакет errs — типизированная таксономия ошибок слушателя.
// Диспетчер и main ветвятся по типу ошибки (errors.As), а не по тексту.
package errs

import (
	"fmt"
	"strings"
)

// ConfigError — некорректная или отсутствующая конфигурация. Фатальна на старте.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("config: %v", e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }

// NamingError — не удалось найти ресурс у брокера (аналог ошибки JNDI-lookup:
// очередь не объявлена, нет прав и т.п.). Фатальна на старте, в steady-state
// уходит в цикл переподключения.
type NamingError struct {
	Name string
	Err  error
}

func (e *NamingError) Error() string { return fmt.Sprintf("lookup %q: %v", e.Name, e.Err) }
func (e *NamingError) Unwrap() error { return e.Err }

// BrokerError — транспортная ошибка брокера (connect/session/consume).
// Всегда маршрутизируется в переподключение.
type BrokerError struct {
	Op  string
	Err error
}

func (e *BrokerError) Error() string { return fmt.Sprintf("broker %s: %v", e.Op, e.Err) }
func (e *BrokerError) Unwrap() error { return e.Err }

// DeliveryError — отказ синка для одного сообщения. Влияет только на
// исход транзакции этого сообщения, слушатель продолжает работать.
type DeliveryError struct {
	Sink     string
	Attempts int
	Causes   []error
}

func (e *DeliveryError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "sink %s failed", e.Sink)
	if e.Attempts > 0 {
		fmt.Fprintf(&b, " after %d attempt(s)", e.Attempts)
	}
	if len(e.Causes) > 0 {
		parts := make([]string, 0, len(e.Causes))
		for _, c := range e.Causes {
			parts = append(parts, c.Error())
		}
		b.WriteString(": ")
		b.WriteString(strings.Join(parts, "; "))
	}
	return b.String()
}

// Unwrap отдаёт все причины, чтобы errors.Is/As видели вложенные ошибки.
func (e *DeliveryError) Unwrap() []error { return e.Causes }

// NewDeliveryError — конструктор с фильтрацией nil-причин.
func NewDeliveryError(sink string, attempts int, causes ...error) *DeliveryError {
	kept := make([]error, 0, len(causes))
	for _, c := range causes {
		if c != nil {
			kept = append(kept, c)
		}
	}
	return &DeliveryError{Sink: sink, Attempts: attempts, Causes: kept}
}

// TransactionError — отказ самого commit/rollback. Состояние сессии после
// такой ошибки считается неопределённым; повторов не делаем, только лог.
type TransactionError struct {
	Op  string // "commit" | "rollback"
	Err error
}

func (e *TransactionError) Error() string { return fmt.Sprintf("transaction %s: %v", e.Op, e.Err) }
func (e *TransactionError) Unwrap() error { return e.Err }
