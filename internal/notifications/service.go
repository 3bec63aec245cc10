package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shuttle/internal/config"
)

// Service sends user-facing notifications for import lifecycle events.
type Service interface {
	NotifyImportCompleted(ctx context.Context, assetName, assetType string) error
	NotifyImportFailed(ctx context.Context, assetName, reason string) error
	NotifyPeerLost(ctx context.Context, sessionID string) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

const userAgent = "Shuttle-Go/0.1.0"

// NewService builds a notification service for the supplied configuration.
// When no ntfy topic is configured the returned service is a no-op.
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
		imports:  cfg.Notifications.Imports,
		errors:   cfg.Notifications.Errors,
	}
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	imports  bool
	errors   bool
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

func (n *ntfyService) NotifyImportCompleted(ctx context.Context, assetName, assetType string) error {
	if !n.imports {
		return nil
	}
	assetName = strings.TrimSpace(assetName)
	assetType = strings.TrimSpace(assetType)
	message := fmt.Sprintf("📦 Imported: %s", assetName)
	if assetType != "" {
		message = fmt.Sprintf("📦 Imported: %s (%s)", assetName, assetType)
	}
	data := payload{
		title:   "Shuttle - Import Complete",
		message: message,
		tags:    []string{"shuttle", "import", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyImportFailed(ctx context.Context, assetName, reason string) error {
	if !n.errors {
		return nil
	}
	assetName = strings.TrimSpace(assetName)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown cause"
	}
	data := payload{
		title:    "Shuttle - Import Failed",
		message:  fmt.Sprintf("Import failed: %s\n%s", assetName, reason),
		tags:     []string{"shuttle", "import", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPeerLost(ctx context.Context, sessionID string) error {
	if !n.errors {
		return nil
	}
	message := "Peer heartbeat stale, session presumed dead"
	if sessionID = strings.TrimSpace(sessionID); sessionID != "" {
		message = fmt.Sprintf("Peer heartbeat stale for session %s, session presumed dead", sessionID)
	}
	data := payload{
		title:    "Shuttle - Peer Lost",
		message:  message,
		tags:     []string{"shuttle", "session", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Error")
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
		title:    "Shuttle - Error",
		message:  builder.String(),
		tags:     []string{"shuttle", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Shuttle - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"shuttle", "test"},
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

func (noopService) NotifyImportCompleted(context.Context, string, string) error { return nil }
func (noopService) NotifyImportFailed(context.Context, string, string) error    { return nil }
func (noopService) NotifyPeerLost(context.Context, string) error                { return nil }
func (noopService) NotifyError(context.Context, error, string) error            { return nil }
func (noopService) TestNotification(context.Context) error                      { return nil }
