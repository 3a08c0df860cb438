package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipdeck/internal/config"
)

const userAgent = "clipdeck-ntfy/1"

// Event enumerates notification kinds.
type Event string

const (
	EventRenderStarted   Event = "render_started"
	EventRenderCompleted Event = "render_completed"
	EventRenderFailed    Event = "render_failed"
	EventWatchSettled    Event = "watch_settled"
	EventError           Event = "error"
	EventTest            Event = "test"
)

// Payload carries event fields such as "project", "quality", "videoURL",
// "completed", "failed", "duration", "context", and "error".
type Payload map[string]any

// Service defines the notification surface exposed to commands.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventRenderStarted:   cfg.Notifications.RenderStarted,
			EventRenderCompleted: cfg.Notifications.RenderCompleted,
			EventRenderFailed:    cfg.Notifications.RenderFailed,
			EventWatchSettled:    cfg.Notifications.RenderCompleted || cfg.Notifications.RenderFailed,
			EventError:           true,
			EventTest:            true,
		},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, data Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, data)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, data Payload) (payload, bool) {
	project := strings.TrimSpace(stringValue(data, "project"))
	if project == "" {
		project = "untitled project"
	}
	switch event {
	case EventRenderStarted:
		message := fmt.Sprintf("🎬 Render started: %s", project)
		if quality := stringValue(data, "quality"); quality != "" {
			message = fmt.Sprintf("%s (%s)", message, quality)
		}
		return payload{
			title:   "clipdeck - Render Started",
			message: message,
			tags:    []string{"clipdeck", "render", "started"},
		}, true
	case EventRenderCompleted:
		message := fmt.Sprintf("✅ Render complete: %s", project)
		if videoURL := stringValue(data, "videoURL"); videoURL != "" {
			message = fmt.Sprintf("%s\nVideo: %s", message, videoURL)
		}
		return payload{
			title:    "clipdeck - Render Complete",
			message:  message,
			tags:     []string{"clipdeck", "render", "completed"},
			priority: "high",
		}, true
	case EventRenderFailed:
		return payload{
			title:    "clipdeck - Render Failed",
			message:  fmt.Sprintf("❌ Render failed: %s", project),
			tags:     []string{"clipdeck", "render", "failed"},
			priority: "high",
		}, true
	case EventWatchSettled:
		completed := intValue(data, "completed")
		failed := intValue(data, "failed")
		duration := durationValue(data, "duration").Round(time.Second)
		if duration < 0 {
			duration = 0
		}
		title := "clipdeck - Renders Settled"
		message := fmt.Sprintf("All renders settled: %d completed in %s", completed, duration)
		if failed > 0 {
			title = "clipdeck - Renders Settled (with failures)"
			message = fmt.Sprintf("All renders settled: %d completed, %d failed in %s", completed, failed, duration)
		}
		return payload{
			title:   title,
			message: message,
			tags:    []string{"clipdeck", "watch", "settled"},
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if label := strings.TrimSpace(stringValue(data, "context")); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		if errText := strings.TrimSpace(stringValue(data, "error")); errText != "" {
			builder.WriteString(errText)
		} else {
			builder.WriteString("unknown")
		}
		return payload{
			title:    "clipdeck - Error",
			message:  builder.String(),
			tags:     []string{"clipdeck", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return payload{
			title:    "clipdeck - Test",
			message:  "🧪 Notification system test",
			tags:     []string{"clipdeck", "test"},
			priority: "low",
		}, true
	default:
		return payload{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
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

func stringValue(data Payload, key string) string {
	if data == nil {
		return ""
	}
	switch v := data[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case error:
		return v.Error()
	default:
		return fmt.Sprint(v)
	}
}

func intValue(data Payload, key string) int {
	if data == nil {
		return 0
	}
	switch v := data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func durationValue(data Payload, key string) time.Duration {
	if data == nil {
		return 0
	}
	if v, ok := data[key].(time.Duration); ok {
		return v
	}
	return 0
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }

// NewNoop returns a Service that discards every event.
func NewNoop() Service {
	return noopService{}
}
