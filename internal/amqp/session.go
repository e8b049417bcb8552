package amqp

import (
	"github.com/google/uuid"
	amqp091 "github.com/rabbitmq/amqp091-go"

	"github.com/Gunvolt24/mq_listener/internal/domain"
	"github.com/Gunvolt24/mq_listener/internal/errs"
	"github.com/Gunvolt24/mq_listener/internal/ports"
)

var _ ports.Session = (*session)(nil)

type session struct {
	ch   *amqp091.Channel
	mode ports.AckMode
	tag  string
}

// Consume проверяет существование очереди (passive declare — аналог
// lookup) и запускает доставку. Канал результата закрывается при
// Cancel/Close и при потере подключения.
func (s *session) Consume(queue, selector string, noLocal bool) (<-chan ports.Delivery, error) {
	if _, err := s.ch.QueueDeclarePassive(queue, true, false, false, false, nil); err != nil {
		return nil, &errs.NamingError{Name: queue, Err: err}
	}

	s.tag = "mq-listener-" + uuid.NewString()
	autoAck := s.mode == ports.AckAuto || s.mode == ports.AckDupsOK

	var args amqp091.Table
	if selector != "" {
		// Селектор передаётся аргументом консьюмера; учитывают его
		// только брокеры с серверной фильтрацией.
		args = amqp091.Table{"x-selector": selector}
	}

	src, err := s.ch.Consume(queue, s.tag, autoAck, false, noLocal, false, args)
	if err != nil {
		return nil, &errs.BrokerError{Op: "consume", Err: err}
	}

	out := make(chan ports.Delivery)
	go func() {
		defer close(out)
		for d := range src {
			out <- &delivery{d: d, env: toEnvelope(&d, queue)}
		}
	}()
	return out, nil
}

// Cancel останавливает входящую доставку, не закрывая канал: уже
// начатая транзакция остаётся доступной для commit/rollback.
func (s *session) Cancel() error {
	if s.tag == "" {
		return nil
	}
	return s.ch.Cancel(s.tag, false)
}

func (s *session) Commit() error {
	return s.ch.TxCommit()
}

// Rollback откатывает транзакцию и возвращает неподтверждённые
// сообщения в очередь для повторной доставки.
func (s *session) Rollback() error {
	if err := s.ch.TxRollback(); err != nil {
		return err
	}
	return s.ch.Recover(true)
}

func (s *session) Close() error {
	return s.ch.Close()
}

type delivery struct {
	d   amqp091.Delivery
	env *domain.Envelope
}

func (d *delivery) Envelope() *domain.Envelope { return d.env }

func (d *delivery) Ack() error { return d.d.Ack(false) }
