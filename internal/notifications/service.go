package notifications

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"loom/internal/config"
	"loom/internal/logging"
)

const userAgent = "Loom-Go/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// Sink receives rendered notifications for on-screen display.
type Sink interface {
	Notify(title, message string, payload map[string]any)
}

// NewService fans events out to every configured notifier: the console sink
// (when notifications.console is set and a sink is supplied), ntfy (when a
// topic is configured), and the logger. Disabled notifications yield a noop.
func NewService(cfg *config.Config, sink Sink, logger *slog.Logger) Service {
	if cfg == nil || !cfg.Notifications.Enabled {
		return noopService{}
	}
	var services []Service
	if sink != nil && cfg.Notifications.Console {
		services = append(services, &consoleService{sink: sink})
	}
	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		services = append(services, &ntfyService{endpoint: topic, client: &http.Client{Timeout: timeout}})
	}
	if logger != nil {
		services = append(services, &logService{logger: logging.NewComponentLogger(logger, "notify")})
	}
	switch len(services) {
	case 0:
		return noopService{}
	case 1:
		return services[0]
	default:
		return Multi(services...)
	}
}

// Multi publishes to every service and joins their errors.
func Multi(services ...Service) Service {
	return multiService(services)
}

type multiService []Service

func (m multiService) Publish(ctx context.Context, event Event, payload Payload) error {
	var errs []error
	for _, svc := range m {
		if svc == nil {
			continue
		}
		if err := svc.Publish(ctx, event, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ntfyOmitted lists events too chatty for push delivery.
var ntfyOmitted = map[Event]struct{}{
	EventSceneDrafted: {},
	EventBranchFailed: {},
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if _, skip := ntfyOmitted[event]; skip {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type consoleService struct {
	sink Sink
}

func (c *consoleService) Publish(_ context.Context, event Event, payload Payload) error {
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	c.sink.Notify(msg.title, msg.body, payload)
	return nil
}

type logService struct {
	logger *slog.Logger
}

func (l *logService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, string(event)),
		logging.String("title", msg.title),
	}
	logger := logging.WithContext(ctx, l.logger)
	if msg.priority == "high" {
		logger.Warn(msg.body, logging.Args(attrs...)...)
		return nil
	}
	logger.Info(msg.body, logging.Args(attrs...)...)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }

// Noop returns a Service that discards every event.
func Noop() Service { return noopService{} }
