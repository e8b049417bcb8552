// Пакет rest — служебный HTTP-интерфейс слушателя: health-пробы,
// статус потребления и метрики.
package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Gunvolt24/mq_listener/internal/listener"
	"github.com/Gunvolt24/mq_listener/internal/ports"
	"github.com/Gunvolt24/mq_listener/pkg/httpx"
)

// StatusReporter — срез состояния слушателя для ручек статуса.
type StatusReporter interface {
	Running() bool
	CurrentState() listener.State
	LastMessageAt() time.Time
	Queue() string
}

type Handler struct {
	status         StatusReporter
	log            ports.Logger
	handlerTimeout time.Duration
	started        time.Time
}

func NewHandler(status StatusReporter, log ports.Logger, handlerTimeout time.Duration) *Handler {
	return &Handler{status: status, log: log, handlerTimeout: handlerTimeout, started: time.Now()}
}

// NewRouter собирает служебный роутер. Непустое otelServiceName
// включает трассировку запросов.
func NewRouter(h *Handler, otelServiceName string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if otelServiceName != "" {
		r.Use(otelgin.Middleware(otelServiceName))
	}
	r.Use(httpx.RequestIDMiddleware())
	r.Use(httpx.RequestLogger(h.log))
	r.Use(httpx.ContextTimeout(h.handlerTimeout))

	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/healthz", h.healthz)
	r.GET("/status", h.getStatus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// healthz: 200 пока слушатель работает, 503 после остановки —
// оркестратору пора перезапускать процесс.
func (h *Handler) healthz(c *gin.Context) {
	if !h.status.Running() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "stopped"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) getStatus(c *gin.Context) {
	last := h.status.LastMessageAt()
	c.JSON(http.StatusOK, gin.H{
		"queue":           h.status.Queue(),
		"state":           h.status.CurrentState().String(),
		"running":         h.status.Running(),
		"uptime":          time.Since(h.started).Round(time.Second).String(),
		"last_message_at": last.Format(time.RFC3339),
		"idle":            time.Since(last).Round(time.Second).String(),
	})
}
