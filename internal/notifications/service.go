package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cherrycake/internal/config"
)

const userAgent = "cherrycake/0.1.0"

// Event identifies a notification kind.
type Event string

const (
	EventContactReceived    Event = "contact_received"
	EventContactRelayFailed Event = "contact_relay_failed"
	EventDatasetFailed      Event = "dataset_failed"
	EventServerStarted      Event = "server_started"
	EventError              Event = "error"
	EventTest               Event = "test"
)

// Payload carries the string fields an event message is built from.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := config.Seconds(cfg.Notifications.RequestTimeout)
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		contact:  cfg.Notifications.Contact,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	contact  bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := n.format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventContactReceived:
		if !n.contact {
			return message{}, false
		}
		name := payload.text("name")
		if name == "" {
			name = "Anonymous"
		}
		body := fmt.Sprintf("✉️ %s <%s>", name, payload.text("email"))
		if preview := payload.text("preview"); preview != "" {
			body += "\n" + preview
		}
		return message{
			title: "cherrycake.me - New Message",
			body:  body,
			tags:  []string{"cherrycake", "contact", "received"},
		}, true
	case EventContactRelayFailed:
		return message{
			title:    "cherrycake.me - Relay Failed",
			body:     fmt.Sprintf("📪 Message %s stored but not relayed: %s", payload.text("id"), payload.text("error")),
			tags:     []string{"cherrycake", "contact", "relay"},
			priority: "high",
		}, true
	case EventDatasetFailed:
		return message{
			title: "cherrycake.me - Dataset Unavailable",
			body:  fmt.Sprintf("📉 %s failed to load: %s", payload.text("document"), payload.text("error")),
			tags:  []string{"cherrycake", "dataset", "failed"},
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if label := payload.text("context"); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		if text := payload.text("error"); text != "" {
			builder.WriteString(text)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "cherrycake.me - Error",
			body:     builder.String(),
			tags:     []string{"cherrycake", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "cherrycake.me - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"cherrycake", "test"},
			priority: "low",
		}, true
	default:
		// server_started and anything unknown stay local.
		return message{}, false
	}
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

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
