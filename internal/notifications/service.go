package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mothtrap/internal/config"
)

const userAgent = "Mothtrap-Go/0.1.0"

// Service defines the notification surface exposed to the daemon.
type Service interface {
	NotifyStarted(ctx context.Context, deviceName string) error
	NotifyCaptureCommitted(ctx context.Context, deviceName, videoPath string, sequence uint64) error
	NotifyStorageLow(ctx context.Context, deviceName string, freeBytes int64) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
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

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint:        topic,
		client:          client,
		sendCommitted:   cfg.Notifications.Committed,
		sendErrorAlerts: cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint        string
	client          *http.Client
	sendCommitted   bool
	sendErrorAlerts bool
}

func (n *ntfyService) NotifyStarted(ctx context.Context, deviceName string) error {
	deviceName = strings.TrimSpace(deviceName)
	data := payload{
		title:   "Mothtrap - Online",
		message: fmt.Sprintf("Trap %s is armed and monitoring", deviceName),
		tags:    []string{"mothtrap", "daemon", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCaptureCommitted(ctx context.Context, deviceName, videoPath string, sequence uint64) error {
	if !n.sendCommitted {
		return nil
	}
	deviceName = strings.TrimSpace(deviceName)
	message := fmt.Sprintf("Detection #%d captured on %s", sequence, deviceName)
	if videoPath = strings.TrimSpace(videoPath); videoPath != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, videoPath)
	}
	data := payload{
		title:   "Mothtrap - Capture",
		message: message,
		tags:    []string{"mothtrap", "capture", "committed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyStorageLow(ctx context.Context, deviceName string, freeBytes int64) error {
	deviceName = strings.TrimSpace(deviceName)
	data := payload{
		title:    "Mothtrap - Storage Low",
		message:  fmt.Sprintf("Trap %s has %d MB free; captures will be dropped", deviceName, freeBytes/(1024*1024)),
		tags:     []string{"mothtrap", "storage", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.sendErrorAlerts {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Mothtrap - Error",
		message:  builder.String(),
		tags:     []string{"mothtrap", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Mothtrap - Test",
		message:  "Notification system test",
		tags:     []string{"mothtrap", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
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

type noopService struct{}

func (noopService) NotifyStarted(context.Context, string) error                          { return nil }
func (noopService) NotifyCaptureCommitted(context.Context, string, string, uint64) error { return nil }
func (noopService) NotifyStorageLow(context.Context, string, int64) error                { return nil }
func (noopService) NotifyError(context.Context, error, string) error                     { return nil }
func (noopService) TestNotification(context.Context) error                               { return nil }
