package config_test

import (
	"errors"
	"testing"
	"time"

	cfg "github.com/Gunvolt24/mq_listener/config"
	"github.com/Gunvolt24/mq_listener/internal/errs"
)

// TestLoadWithPrefix_Defaults — проверка наличия значений по умолчанию.
func TestLoadWithPrefix_Defaults(t *testing.T) {
	t.Parallel()

	c, err := cfg.LoadWithPrefix("LISTENER_TEST_DEFAULTS")
	if err != nil {
		t.Fatalf("LoadWithPrefix error: %v", err)
	}

	// HTTP
	if c.HTTP.Addr != ":8080" {
		t.Fatalf("HTTP.Addr: want :8080, got %q", c.HTTP.Addr)
	}
	if c.HTTP.GinMode != "debug" {
		t.Fatalf("HTTP.GinMode: want debug, got %q", c.HTTP.GinMode)
	}
	if c.HTTP.ReadTimeout != 10*time.Second || c.HTTP.WriteTimeout != 10*time.Second {
		t.Fatalf("HTTP timeouts wrong: %+v", c.HTTP)
	}
	if c.HTTP.HandlerTimeout != 3*time.Second {
		t.Fatalf("HTTP.HandlerTimeout: want 3s, got %v", c.HTTP.HandlerTimeout)
	}

	// Tracing
	if c.Tracing.Enabled {
		t.Fatalf("Tracing.Enabled: want false, got true")
	}
	if c.Tracing.ServiceName != "mq-listener" || c.Tracing.SampleRatio != 1 {
		t.Fatalf("Tracing defaults wrong: %+v", c.Tracing)
	}

	// Broker
	if c.Broker.URL == "" || c.Broker.Queue != "inbound" {
		t.Fatalf("Broker defaults wrong: %+v", c.Broker)
	}
	if c.Broker.AckMode != "transacted" || c.Broker.Prefetch != 1 {
		t.Fatalf("Broker defaults wrong: %+v", c.Broker)
	}
	if c.Broker.ConnectTimeout != 30*time.Second || c.Broker.Heartbeat != 10*time.Second {
		t.Fatalf("Broker timeouts wrong: %+v", c.Broker)
	}

	// Reconnect
	if c.Reconnect.MaxAttempts != 0 || c.Reconnect.RetryDelay != 30*time.Second {
		t.Fatalf("Reconnect defaults wrong: %+v", c.Reconnect)
	}
	if c.Reconnect.IdleInterval != 10*time.Minute || c.Reconnect.RollbackDelay != 5*time.Second {
		t.Fatalf("Reconnect defaults wrong: %+v", c.Reconnect)
	}

	// Синки
	if !c.LogSink.Enabled || c.HTTPSink.Enabled {
		t.Fatalf("sink defaults wrong: log=%+v http=%+v", c.LogSink, c.HTTPSink)
	}
	if c.HTTPSink.Method != "POST" || c.HTTPSink.RetryAttempts != 3 {
		t.Fatalf("HTTPSink defaults wrong: %+v", c.HTTPSink)
	}
	if !c.Sinks.ContinueOnError {
		t.Fatalf("Sinks.ContinueOnError: want true, got false")
	}

	// Logger
	if c.Logger.IsProd {
		t.Fatalf("Logger.IsProd: want false, got true")
	}

	// Служебные интервалы
	if c.Heartbeat.Interval != time.Minute || c.Shutdown.GracefulTimeout != 10*time.Second {
		t.Fatalf("service intervals wrong: %+v %+v", c.Heartbeat, c.Shutdown)
	}
}

// Меняем окружение.
func TestLoadWithPrefix_Overrides(t *testing.T) {
	const p = "LISTENER_TEST_OVR"

	// HTTP
	t.Setenv(p+"_HTTP_ADDR", ":9999")
	t.Setenv(p+"_HTTP_GIN_MODE", "release")

	// Broker
	t.Setenv(p+"_BROKER_URL", "amqp://broker:5672/")
	t.Setenv(p+"_BROKER_QUEUE", "orders.inbound")
	t.Setenv(p+"_BROKER_ACK_MODE", "client")
	t.Setenv(p+"_BROKER_SELECTOR", "type = 'order'")
	t.Setenv(p+"_BROKER_PREFETCH", "16")
	t.Setenv(p+"_BROKER_PROVIDER_FILE", "/etc/listener/provider.json")

	// Reconnect
	t.Setenv(p+"_RECONNECT_MAX_ATTEMPTS", "5")
	t.Setenv(p+"_RECONNECT_RETRY_DELAY", "2s")
	t.Setenv(p+"_RECONNECT_IDLE_INTERVAL", "90s")
	t.Setenv(p+"_RECONNECT_ROLLBACK_DELAY", "250ms")

	// Синки
	t.Setenv(p+"_LOG_SINK_ENABLED", "false")
	t.Setenv(p+"_HTTP_SINK_ENABLED", "true")
	t.Setenv(p+"_HTTP_SINK_URL", "http://endpoint:8080/messages")
	t.Setenv(p+"_HTTP_SINK_METHOD", "PUT")
	t.Setenv(p+"_HTTP_SINK_RETRY_ATTEMPTS", "7")
	t.Setenv(p+"_HTTP_SINK_HEADERS", "Authorization:Bearer t,X-Env:qa")
	t.Setenv(p+"_SINKS_CONTINUE_ON_ERROR", "false")

	// Logger
	t.Setenv(p+"_LOGGER_IS_PROD", "true")

	c, err := cfg.LoadWithPrefix(p)
	if err != nil {
		t.Fatalf("LoadWithPrefix error: %v", err)
	}

	if c.HTTP.Addr != ":9999" || c.HTTP.GinMode != "release" {
		t.Fatalf("HTTP overrides wrong: %+v", c.HTTP)
	}
	if c.Broker.URL != "amqp://broker:5672/" || c.Broker.Queue != "orders.inbound" {
		t.Fatalf("Broker overrides wrong: %+v", c.Broker)
	}
	if c.Broker.AckMode != "client" || c.Broker.Selector != "type = 'order'" || c.Broker.Prefetch != 16 {
		t.Fatalf("Broker overrides wrong: %+v", c.Broker)
	}
	if c.Broker.ProviderFile != "/etc/listener/provider.json" {
		t.Fatalf("Broker.ProviderFile override wrong: %q", c.Broker.ProviderFile)
	}
	if c.Reconnect.MaxAttempts != 5 || c.Reconnect.RetryDelay != 2*time.Second ||
		c.Reconnect.IdleInterval != 90*time.Second || c.Reconnect.RollbackDelay != 250*time.Millisecond {
		t.Fatalf("Reconnect overrides wrong: %+v", c.Reconnect)
	}
	if c.LogSink.Enabled || !c.HTTPSink.Enabled || c.HTTPSink.URL != "http://endpoint:8080/messages" {
		t.Fatalf("sink overrides wrong: log=%+v http=%+v", c.LogSink, c.HTTPSink)
	}
	if c.HTTPSink.Method != "PUT" || c.HTTPSink.RetryAttempts != 7 {
		t.Fatalf("HTTPSink overrides wrong: %+v", c.HTTPSink)
	}
	if c.HTTPSink.Headers["Authorization"] != "Bearer t" || c.HTTPSink.Headers["X-Env"] != "qa" {
		t.Fatalf("HTTPSink.Headers override wrong: %+v", c.HTTPSink.Headers)
	}
	if c.Sinks.ContinueOnError {
		t.Fatalf("Sinks.ContinueOnError override wrong: %+v", c.Sinks)
	}
	if !c.Logger.IsProd {
		t.Fatalf("Logger.IsProd override wrong: %+v", c.Logger)
	}
}

// Невалидные значения превращаются в ошибку конфигурации.
func TestLoadWithPrefix_InvalidValue_ReturnsError(t *testing.T) {
	const p = "LISTENER_TEST_BAD"
	t.Setenv(p+"_RECONNECT_RETRY_DELAY", "not-a-duration")

	_, err := cfg.LoadWithPrefix(p)
	var cErr *errs.ConfigError
	if !errors.As(err, &cErr) {
		t.Fatalf("expected ConfigError for invalid duration, got %v", err)
	}
}

// Неизвестный ack-режим не валит загрузку: bootstrap предупредит и
// возьмёт auto.
func TestLoadWithPrefix_UnknownAckMode_Tolerated(t *testing.T) {
	const p = "LISTENER_TEST_ACK"
	t.Setenv(p+"_BROKER_ACK_MODE", "maybe")

	c, err := cfg.LoadWithPrefix(p)
	if err != nil {
		t.Fatalf("LoadWithPrefix error: %v", err)
	}
	if c.Broker.AckMode != "maybe" {
		t.Fatalf("AckMode should pass through as-is, got %q", c.Broker.AckMode)
	}
}

func TestLoadWithPrefix_HTTPSinkWithoutURL_ReturnsError(t *testing.T) {
	const p = "LISTENER_TEST_SINK"
	t.Setenv(p+"_HTTP_SINK_ENABLED", "true")

	_, err := cfg.LoadWithPrefix(p)
	var cErr *errs.ConfigError
	if !errors.As(err, &cErr) {
		t.Fatalf("expected ConfigError for http sink without URL, got %v", err)
	}
}
