package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gunvolt24/mq_listener/config"
	"github.com/Gunvolt24/mq_listener/internal/amqp"
	"github.com/Gunvolt24/mq_listener/internal/listener"
	"github.com/Gunvolt24/mq_listener/internal/ports"
	"github.com/Gunvolt24/mq_listener/internal/provider"
	"github.com/Gunvolt24/mq_listener/internal/sink"
	rest "github.com/Gunvolt24/mq_listener/internal/transport/http"
	"github.com/Gunvolt24/mq_listener/pkg/logger"
	"github.com/Gunvolt24/mq_listener/pkg/metrics"
	"github.com/Gunvolt24/mq_listener/pkg/telemetry"
)

// App — собранное приложение: супервизор слушателя и служебный HTTP.
type App struct {
	Logger     ports.Logger
	HTTPServer *http.Server
	Supervisor *listener.Supervisor

	heartbeatInterval time.Duration
	gracefulTimeout   time.Duration
}

// Cleanup — функция освобождения ресурсов.
type Cleanup func()

// applyGinMode — устанавливает режим Gin по строке;
// неизвестное значение → debug и предупреждение в лог.
func applyGinMode(ctx context.Context, mode string, log ports.Logger) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	case "", "debug":
		gin.SetMode(gin.DebugMode)
	default:
		gin.SetMode(gin.DebugMode)
		log.Warnf(ctx, "unknown GIN_MODE=%q, fallback to debug", mode)
	}
}

// buildSinks собирает получателей сообщений по конфигурации.
// Без единого включённого синка сообщения потреблялись бы впустую,
// поэтому лог-синк остаётся как fallback.
func buildSinks(ctx context.Context, cfg *config.Config, log ports.Logger) (ports.DeliverySink, error) {
	var sinks []ports.DeliverySink

	if cfg.LogSink.Enabled {
		sinks = append(sinks, sink.NewLogSink(log))
	}
	if cfg.HTTPSink.Enabled {
		httpSink, err := sink.NewHTTPSink(sink.HTTPConfig{
			URL:            cfg.HTTPSink.URL,
			Method:         cfg.HTTPSink.Method,
			ContentType:    cfg.HTTPSink.ContentType,
			ConnectTimeout: cfg.HTTPSink.ConnectTimeout,
			SocketTimeout:  cfg.HTTPSink.SocketTimeout,
			RetryAttempts:  cfg.HTTPSink.RetryAttempts,
			RetryDelay:     cfg.HTTPSink.RetryDelay,
			Headers:        cfg.HTTPSink.Headers,
		}, log)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, httpSink)
	}

	if len(sinks) == 0 {
		log.Warnf(ctx, "no sinks enabled, falling back to log sink")
		sinks = append(sinks, sink.NewLogSink(log))
	}

	return sink.NewComposite(cfg.Sinks.ContinueOnError, log, sinks...), nil
}

// Bootstrap — собирает зависимости и возвращает приложение, функцию очистки и ошибку.
func Bootstrap(ctx context.Context, cfg *config.Config) (*App, Cleanup, error) {
	// Логгер (dev/prod режим задаётся конфигурацией).
	logg, cleanupLogger, err := logger.NewZapLogger(cfg.Logger.IsProd)
	if err != nil {
		return nil, func() {}, err
	}

	// Регистрация метрик (Prometheus).
	metrics.MustRegister()

	// Трейсинг OTEL (при включённой конфигурации); по умолчанию — no-op.
	shutdownTrace := func(context.Context) error { return nil }
	if cfg.Tracing.Enabled {
		setup, tErr := telemetry.SetupTracing(ctx, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint, cfg.Tracing.SampleRatio)
		if tErr != nil {
			logg.Warnf(ctx, "failed to setup tracing: %v", tErr)
		} else {
			logg.Infof(ctx, "otel tracing enabled service=%s endpoint=%s sample=%.2f",
				cfg.Tracing.ServiceName, cfg.Tracing.Endpoint, cfg.Tracing.SampleRatio)
			shutdownTrace = setup
		}
	}

	// Provider-свойства подключения из JSON-файла.
	env, err := provider.Load(ctx, cfg.Broker.ProviderFile, logg)
	if err != nil {
		if cErr := cleanupLogger(); cErr != nil {
			logg.Warnf(ctx, "cleanup logger: %v", cErr)
		}
		return nil, func() {}, err
	}

	// Получатели сообщений.
	deliverySink, err := buildSinks(ctx, cfg, logg)
	if err != nil {
		if cErr := cleanupLogger(); cErr != nil {
			logg.Warnf(ctx, "cleanup logger: %v", cErr)
		}
		return nil, func() {}, err
	}

	// Подключение к брокеру и супервизор потребления.
	ackMode, ok := ports.ParseAckMode(cfg.Broker.AckMode)
	if !ok {
		logg.Warnf(ctx, "unknown ack mode %q, falling back to auto", cfg.Broker.AckMode)
	}
	connector := amqp.NewConnector(amqp.Config{
		URL:            cfg.Broker.URL,
		Username:       cfg.Broker.Username,
		Password:       cfg.Broker.Password,
		Heartbeat:      cfg.Broker.Heartbeat,
		ConnectTimeout: cfg.Broker.ConnectTimeout,
		Prefetch:       cfg.Broker.Prefetch,
	}, logg)

	sup := listener.NewSupervisor(listener.Config{
		Queue:         cfg.Broker.Queue,
		Selector:      cfg.Broker.Selector,
		NoLocal:       cfg.Broker.NoLocal,
		AckMode:       ackMode,
		MaxAttempts:   cfg.Reconnect.MaxAttempts,
		RetryDelay:    cfg.Reconnect.RetryDelay,
		IdleInterval:  cfg.Reconnect.IdleInterval,
		RollbackDelay: cfg.Reconnect.RollbackDelay,
	}, connector, env, deliverySink, logg)

	// Режим Gin.
	applyGinMode(ctx, cfg.HTTP.GinMode, logg)

	// Имя сервиса для otelgin (только при включённом трейсинге).
	otelServiceName := ""
	if cfg.Tracing.Enabled {
		otelServiceName = cfg.Tracing.ServiceName
	}

	// Роутер и HTTP-сервер.
	httpHandler := rest.NewHandler(sup, logg, cfg.HTTP.HandlerTimeout)
	router := rest.NewRouter(httpHandler, otelServiceName)

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	app := &App{
		Logger:            logg,
		HTTPServer:        httpSrv,
		Supervisor:        sup,
		heartbeatInterval: cfg.Heartbeat.Interval,
		gracefulTimeout:   cfg.Shutdown.GracefulTimeout,
	}

	// Очистка ресурсов (в обратном порядке).
	cleanup := func() {
		if terr := shutdownTrace(context.Background()); terr != nil {
			logg.Warnf(ctx, "shutdown tracing: %v", terr)
		}
		if cerr := cleanupLogger(); cerr != nil {
			logg.Warnf(ctx, "cleanup logger: %v", cerr)
		}
	}

	return app, cleanup, nil
}

// Run — запускает слушателя и HTTP-сервер; ждёт отмены контекста,
// остановки слушателя или ошибки сервера, затем всё гасит.
func (a *App) Run(ctx context.Context) error {
	if err := a.Supervisor.Start(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Infof(ctx, "http server starting (addr=%s)", a.HTTPServer.Addr)
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Периодическая отметка «жив» в логе.
	heartbeatStop := make(chan struct{})
	if a.heartbeatInterval > 0 {
		go a.heartbeat(ctx, heartbeatStop)
	}

	// Ожидание сигнала остановки, гибели слушателя или ошибки сервера.
	select {
	case <-ctx.Done():
		a.Logger.Infof(ctx, "shutdown requested, starting graceful shutdown")
	case <-a.Supervisor.Done():
		a.Logger.Warnf(ctx, "listener stopped on its own, shutting down")
	case err := <-errCh:
		a.Logger.Warnf(ctx, "http server error: %v", err)
	}

	close(heartbeatStop)
	a.Supervisor.Stop()

	gt := a.gracefulTimeout
	if gt <= 0 {
		gt = 5 * time.Second
	}

	// Корректная остановка HTTP-сервера.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), gt)
	defer cancel()

	if err := a.HTTPServer.Shutdown(shutdownCtx); err != nil {
		a.Logger.Warnf(ctx, "http server shutdown failed: %v", err)
	} else {
		a.Logger.Infof(ctx, "http server stopped gracefully")
	}

	a.Logger.Infof(ctx, "service stopped")
	return nil
}

func (a *App) heartbeat(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(a.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			a.Logger.Infof(ctx, "listener alive: state=%s queue=%s idle=%s",
				a.Supervisor.CurrentState(), a.Supervisor.Queue(),
				time.Since(a.Supervisor.LastMessageAt()).Round(time.Second))
		}
	}
}
