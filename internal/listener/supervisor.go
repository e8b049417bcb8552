// Пакет listener — ядро сервиса: супервизор подключения к брокеру,
// транзакционная обработка сообщений и вотчдог простоя.
package listener

import (
	"context"
	"sync"
	"time"

	"github.com/Gunvolt24/mq_listener/internal/ports"
	"github.com/Gunvolt24/mq_listener/pkg/metrics"
)

// Config — параметры работы супервизора.
type Config struct {
	Queue    string
	Selector string
	NoLocal  bool
	AckMode  ports.AckMode

	// Переподключение: 0 или меньше в MaxAttempts — без ограничения.
	MaxAttempts int
	RetryDelay  time.Duration

	// Порог простоя для вотчдога; 0 отключает его.
	IdleInterval time.Duration

	// Пауза перед откатом транзакции при сбое синка.
	RollbackDelay time.Duration
}

// Supervisor владеет подключением к брокеру и восстанавливает его при
// сбоях и простое. Поток доставки и поток восстановления никогда не
// работают с хэндлами одновременно: перед пересозданием подключения
// восстановление дожидается выхода потока доставки.
type Supervisor struct {
	cfg        Config
	connector  ports.Connector
	env        ports.Environment
	dispatcher *Dispatcher
	log        ports.Logger
	fl         flags

	mu   sync.Mutex
	conn ports.Connection
	sess ports.Session

	stopCh    chan struct{}
	runCtx    context.Context
	runCancel context.CancelFunc

	deliveryWG sync.WaitGroup
}

func NewSupervisor(cfg Config, connector ports.Connector, env ports.Environment, sink ports.DeliverySink, log ports.Logger) *Supervisor {
	s := &Supervisor{
		cfg:       cfg,
		connector: connector,
		env:       env,
		log:       log,
	}
	s.dispatcher = &Dispatcher{
		sink:          sink,
		log:           log,
		fl:            &s.fl,
		queue:         cfg.Queue,
		ackMode:       cfg.AckMode,
		rollbackDelay: cfg.RollbackDelay,
	}
	return s
}

// Start подключается к брокеру и запускает потребление. Повторный
// вызов на работающем слушателе — no-op.
func (s *Supervisor) Start(ctx context.Context) error {
	if !s.fl.running.CompareAndSwap(false, true) {
		s.log.Warnf(ctx, "listener is already running")
		return nil
	}

	s.log.Infof(ctx, "starting listener: queue=%s ack=%s selector=%q", s.cfg.Queue, s.cfg.AckMode, s.cfg.Selector)
	s.fl.setState(StateStarting)
	s.fl.touch()
	s.stopCh = make(chan struct{})
	s.runCtx, s.runCancel = context.WithCancel(context.Background())

	if err := s.initialize(ctx); err != nil {
		s.fl.running.Store(false)
		s.fl.setState(StateStopped)
		s.runCancel()
		close(s.stopCh)
		return err
	}

	s.fl.setState(StateActive)
	if s.cfg.IdleInterval > 0 {
		w := newIdleWatchdog(s, s.cfg.IdleInterval, s.log)
		go w.run(s.stopCh)
	}
	s.log.Infof(ctx, "listener started, consuming queue=%s", s.cfg.Queue)
	return nil
}

// Stop останавливает потребление и освобождает ресурсы. Идемпотентен.
func (s *Supervisor) Stop() {
	ctx := context.Background()
	if !s.fl.running.CompareAndSwap(true, false) {
		s.log.Warnf(ctx, "listener is not running")
		return
	}

	s.log.Infof(ctx, "stopping listener...")
	close(s.stopCh)
	// Отмена контекста прерывает паузы синка и отложенный rollback,
	// но текущая доставка всегда дорабатывает до конца.
	s.runCancel()
	s.releaseResources(ctx)
	s.fl.setState(StateStopped)
	s.log.Infof(ctx, "listener stopped")
}

// Done закрывается при остановке слушателя, включая аварийную после
// исчерпания попыток восстановления. Валиден после Start.
func (s *Supervisor) Done() <-chan struct{} {
	return s.stopCh
}

// Running — работает ли слушатель.
func (s *Supervisor) Running() bool { return s.fl.running.Load() }

// CurrentState — текущее состояние жизненного цикла.
func (s *Supervisor) CurrentState() State { return s.fl.getState() }

// LastMessageAt — момент последней активности по сообщениям.
func (s *Supervisor) LastMessageAt() time.Time { return s.fl.lastMessageAt() }

// Queue — имя потребляемой очереди.
func (s *Supervisor) Queue() string { return s.cfg.Queue }

// initialize создаёт полный стек: подключение, сессия, подписка,
// поток доставки и наблюдатель сбоев.
func (s *Supervisor) initialize(ctx context.Context) error {
	conn, err := s.connector.Connect(ctx, s.env)
	if err != nil {
		return err
	}

	sess, err := conn.Session(s.cfg.AckMode)
	if err != nil {
		_ = conn.Close()
		return err
	}

	deliveries, err := sess.Consume(s.cfg.Queue, s.cfg.Selector, s.cfg.NoLocal)
	if err != nil {
		_ = sess.Close()
		_ = conn.Close()
		return err
	}

	s.mu.Lock()
	s.conn, s.sess = conn, sess
	s.mu.Unlock()

	s.deliveryWG.Add(1)
	go s.deliveryLoop(sess, deliveries)
	go s.watchFaults(conn.NotifyClose())
	return nil
}

// deliveryLoop — единственный поток, обрабатывающий сообщения данной
// сессии. Завершается при закрытии канала доставки (Cancel, Close или
// потеря подключения).
func (s *Supervisor) deliveryLoop(sess ports.Session, deliveries <-chan ports.Delivery) {
	defer s.deliveryWG.Done()
	for d := range deliveries {
		s.dispatcher.Handle(s.runCtx, sess, d)
	}
}

// watchFaults ждёт асинхронного сбоя подключения. Штатное закрытие с
// нашей стороны приходит закрытием канала без значения.
func (s *Supervisor) watchFaults(closed <-chan error) {
	err, ok := <-closed
	if !ok || err == nil {
		return
	}
	s.log.Errorf(context.Background(), "broker connection fault: %v", err)
	s.requestReconnect("fault")
}

// requestReconnect запускает восстановление в отдельной горутине.
// Конкурирующие триггеры (сбой и вотчдог) схлопываются в один прогон
// через CAS на флаге reconnecting.
func (s *Supervisor) requestReconnect(trigger string) {
	ctx := context.Background()
	if !s.fl.running.Load() {
		s.log.Infof(ctx, "%s trigger ignored, listener is stopping", trigger)
		return
	}
	if !s.fl.reconnecting.CompareAndSwap(false, true) {
		s.log.Infof(ctx, "reconnection already in progress, %s trigger skipped", trigger)
		return
	}

	metrics.Reconnects.WithLabelValues(trigger).Inc()
	go s.reconnectLoop(ctx)
}

// reconnectLoop пересоздаёт стек подключения с паузами между
// попытками. При исчерпании лимита останавливает слушатель.
// Вызывается строго после выигранного CAS на reconnecting и является
// единственным владельцем флага: гейт открывается только по выходу.
func (s *Supervisor) reconnectLoop(ctx context.Context) {
	defer s.fl.reconnecting.Store(false)

	s.fl.setState(StateRecovering)
	if !s.fl.running.Load() {
		// Проиграли гонку с Stop: не перетираем его состояние.
		s.fl.setState(StateStopped)
		return
	}
	s.releaseResources(ctx)

	attempt := 0
	for s.fl.running.Load() && (s.cfg.MaxAttempts <= 0 || attempt < s.cfg.MaxAttempts) {
		attempt++
		if s.cfg.MaxAttempts > 0 {
			s.log.Infof(ctx, "reconnection attempt %d/%d", attempt, s.cfg.MaxAttempts)
		} else {
			s.log.Infof(ctx, "reconnection attempt %d", attempt)
		}

		err := s.initialize(ctx)
		if err == nil {
			if !s.fl.running.Load() {
				// Остановились прямо во время попытки.
				s.releaseResources(ctx)
				return
			}
			s.fl.setState(StateActive)
			s.fl.touch()
			s.log.Infof(ctx, "reconnected successfully on attempt %d", attempt)
			return
		}

		s.log.Errorf(ctx, "reconnection attempt %d failed: %v", attempt, err)
		if !s.sleep(s.cfg.RetryDelay) {
			s.log.Warnf(ctx, "reconnection interrupted by shutdown")
			return
		}
	}

	if s.fl.running.Load() {
		s.log.Errorf(ctx, "failed to reconnect after %d attempts, stopping listener", attempt)
		s.Stop()
	}
}

// releaseResources разбирает стек в порядке, гарантирующем выход
// потока доставки до закрытия хэндлов: отписка, ожидание доставки,
// закрытие сессии и подключения.
func (s *Supervisor) releaseResources(ctx context.Context) {
	s.mu.Lock()
	conn, sess := s.conn, s.sess
	s.conn, s.sess = nil, nil
	s.mu.Unlock()

	if sess != nil {
		if err := sess.Cancel(); err != nil {
			s.log.Warnf(ctx, "error cancelling consumer: %v", err)
		}
	}
	s.deliveryWG.Wait()
	if sess != nil {
		if err := sess.Close(); err != nil {
			s.log.Warnf(ctx, "error closing session: %v", err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			s.log.Warnf(ctx, "error closing connection: %v", err)
		}
	}
}

// sleep возвращает false, если пауза прервана остановкой слушателя.
func (s *Supervisor) sleep(d time.Duration) bool {
	select {
	case <-s.stopCh:
		return false
	case <-time.After(d):
		return true
	}
}
