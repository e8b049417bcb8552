// Пакет amqp — реализация брокерных контрактов поверх amqp091-go.
// Канал AMQP 0.9.1 с tx.select/tx.commit/tx.rollback играет роль
// транзакционной сессии, basic.consume — push-доставки,
// Connection.NotifyClose — колбэка асинхронных ошибок подключения.
package amqp

import (
	"context"
	"time"

	amqp091 "github.com/rabbitmq/amqp091-go"

	"github.com/Gunvolt24/mq_listener/internal/errs"
	"github.com/Gunvolt24/mq_listener/internal/ports"
)

// Проверка соответствия порту.
var _ ports.Connector = (*Connector)(nil)

// Config — параметры подключения к брокеру.
type Config struct {
	URL            string
	Username       string
	Password       string
	Heartbeat      time.Duration
	ConnectTimeout time.Duration
	Prefetch       int
}

// Connector — фабрика AMQP-подключений.
type Connector struct {
	cfg Config
	log ports.Logger
}

func NewConnector(cfg Config, log ports.Logger) *Connector {
	return &Connector{cfg: cfg, log: log}
}

// Connect открывает подключение, применяя свойства окружения как есть
// в client-properties таблицу подключения. Вызывается и при старте,
// и при каждом переподключении.
func (c *Connector) Connect(ctx context.Context, env ports.Environment) (ports.Connection, error) {
	props := amqp091.Table{}
	for k, v := range env {
		props[k] = v
	}

	acfg := amqp091.Config{
		Heartbeat:  c.cfg.Heartbeat,
		Properties: props,
	}
	if c.cfg.ConnectTimeout > 0 {
		acfg.Dial = amqp091.DefaultDial(c.cfg.ConnectTimeout)
	}
	if c.cfg.Username != "" {
		acfg.SASL = []amqp091.Authentication{
			&amqp091.PlainAuth{Username: c.cfg.Username, Password: c.cfg.Password},
		}
	}

	conn, err := amqp091.DialConfig(c.cfg.URL, acfg)
	if err != nil {
		return nil, &errs.BrokerError{Op: "connect", Err: err}
	}

	c.log.Infof(ctx, "broker connection established url=%s heartbeat=%s", c.cfg.URL, c.cfg.Heartbeat)
	return &connection{conn: conn, prefetch: c.cfg.Prefetch, log: c.log}, nil
}

type connection struct {
	conn     *amqp091.Connection
	prefetch int
	log      ports.Logger
}

func (c *connection) Session(mode ports.AckMode) (ports.Session, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, &errs.BrokerError{Op: "open channel", Err: err}
	}

	if c.prefetch > 0 {
		if err := ch.Qos(c.prefetch, 0, false); err != nil {
			_ = ch.Close()
			return nil, &errs.BrokerError{Op: "qos", Err: err}
		}
	}

	if mode.Transacted() {
		if err := ch.Tx(); err != nil {
			_ = ch.Close()
			return nil, &errs.BrokerError{Op: "tx.select", Err: err}
		}
	}

	return &session{ch: ch, mode: mode}, nil
}

// NotifyClose переводит канал *amqp091.Error в канал error.
// При штатном закрытии исходный канал закрывается без значения —
// выходной тоже закрывается молча.
func (c *connection) NotifyClose() <-chan error {
	src := c.conn.NotifyClose(make(chan *amqp091.Error, 1))
	out := make(chan error, 1)
	go func() {
		defer close(out)
		if err, ok := <-src; ok && err != nil {
			out <- err
		}
	}()
	return out
}

func (c *connection) Close() error {
	return c.conn.Close()
}
