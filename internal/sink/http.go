package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Gunvolt24/mq_listener/internal/domain"
	"github.com/Gunvolt24/mq_listener/internal/errs"
	"github.com/Gunvolt24/mq_listener/internal/ports"
)

// HTTPConfig — настройки исходящего HTTP-синка.
type HTTPConfig struct {
	URL            string
	Method         string // POST | PUT
	ContentType    string
	ConnectTimeout time.Duration
	SocketTimeout  time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
	Headers        map[string]string
}

// HTTPSink — синк, отправляющий сообщение на HTTP-эндпоинт с повторами.
// Повторы с фиксированной задержкой (не экспоненциальной) на не-2xx,
// сетевую ошибку и таймаут.
type HTTPSink struct {
	cfg    HTTPConfig
	client *http.Client
	log    ports.Logger
}

func NewHTTPSink(cfg HTTPConfig, log ports.Logger) (*HTTPSink, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("http sink: url is required")
	}
	cfg.Method = strings.ToUpper(strings.TrimSpace(cfg.Method))
	switch cfg.Method {
	case http.MethodPost, http.MethodPut:
	case "":
		cfg.Method = http.MethodPost
	default:
		return nil, fmt.Errorf("http sink: unsupported method %q", cfg.Method)
	}
	if cfg.ContentType == "" {
		cfg.ContentType = "application/json"
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 1
	}

	client := &http.Client{
		Timeout: cfg.SocketTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
		},
	}
	return &HTTPSink{cfg: cfg, client: client, log: log}, nil
}

func (s *HTTPSink) Name() string { return "http" }

// Deliver сериализует конверт и шлёт его с повторами. Возвращает nil только
// при 2xx в пределах бюджета попыток; иначе *errs.DeliveryError со сводкой
// всех неудачных попыток. Прерывание паузы между попытками — тоже отказ.
func (s *HTTPSink) Deliver(ctx context.Context, env *domain.Envelope) error {
	payload, err := EncodeEnvelope(env)
	if err != nil {
		return errs.NewDeliveryError(s.Name(), 0, fmt.Errorf("encode message %s: %w", env.MessageID, err))
	}

	attempts := s.cfg.RetryAttempts
	causes := make([]error, 0, attempts)

	for attempt := 1; attempt <= attempts; attempt++ {
		err := s.send(ctx, payload)
		if err == nil {
			if attempt > 1 {
				s.log.Infof(ctx, "http request for message %s succeeded on attempt %d/%d", env.MessageID, attempt, attempts)
			}
			return nil
		}

		causes = append(causes, fmt.Errorf("attempt %d: %w", attempt, err))
		if attempt < attempts {
			s.log.Warnf(ctx, "http request for message %s failed on attempt %d/%d: %v (retry in %s)",
				env.MessageID, attempt, attempts, err, s.cfg.RetryDelay)
			if !sleep(ctx, s.cfg.RetryDelay) {
				causes = append(causes, fmt.Errorf("attempt %d: retry delay interrupted", attempt+1))
				break
			}
		}
	}

	derr := errs.NewDeliveryError(s.Name(), attempts, causes...)
	s.log.Errorf(ctx, "http delivery failed for message %s: %v", env.MessageID, derr)
	return derr
}

func (s *HTTPSink) send(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, s.cfg.Method, s.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", s.cfg.ContentType)
	req.Header.Set("X-Timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	for name, value := range s.cfg.Headers {
		if strings.TrimSpace(value) != "" {
			req.Header.Set(name, value)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		// Дочитываем тело, чтобы соединение вернулось в пул.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

// sleep ждёт d или прерывается по контексту; false — если прервали.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
