package listener

import (
	"sync/atomic"
	"time"

	"github.com/Gunvolt24/mq_listener/pkg/metrics"
)

// State — состояние жизненного цикла слушателя.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateActive
	StateRecovering
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateRecovering:
		return "recovering"
	default:
		return "unknown"
	}
}

// flags — разделяемое изменяемое состояние слушателя. Читается и пишется
// из потока доставки, потока восстановления и вотчдога, поэтому только
// атомарные скаляры, без блокировок.
type flags struct {
	running      atomic.Bool
	reconnecting atomic.Bool // single-flight gate восстановления
	lastMessage  atomic.Int64 // unix мс
	state        atomic.Int32
}

func (f *flags) setState(s State) {
	f.state.Store(int32(s))
	metrics.ListenerState.Set(float64(s))
}

func (f *flags) getState() State {
	return State(f.state.Load())
}

// touch фиксирует момент последней активности по сообщениям.
func (f *flags) touch() {
	f.lastMessage.Store(time.Now().UnixMilli())
}

func (f *flags) lastMessageAt() time.Time {
	return time.UnixMilli(f.lastMessage.Load())
}

// idle — время с момента последнего сообщения.
func (f *flags) idle() time.Duration {
	return time.Since(f.lastMessageAt())
}
