package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"shuttle/internal/config"
	"shuttle/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyImportCompleted(context.Background(), "Rock X1234", "model"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		notify         func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "import completed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyImportCompleted(context.Background(), "Rock X1234", "model")
			},
			expectTitle:   "Shuttle - Import Complete",
			expectMessage: "📦 Imported: Rock X1234 (model)",
			expectTags:    "shuttle,import,completed",
		},
		{
			name: "import completed without type",
			notify: func(svc notifications.Service) error {
				return svc.NotifyImportCompleted(context.Background(), "Rock X1234", "")
			},
			expectTitle:   "Shuttle - Import Complete",
			expectMessage: "📦 Imported: Rock X1234",
			expectTags:    "shuttle,import,completed",
		},
		{
			name: "import failed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyImportFailed(context.Background(), "Rock X1234", "no import completion before timeout")
			},
			expectTitle:    "Shuttle - Import Failed",
			expectMessage:  "Import failed: Rock X1234\nno import completion before timeout",
			expectTags:     "shuttle,import,failed",
			expectPriority: "high",
		},
		{
			name: "peer lost",
			notify: func(svc notifications.Service) error {
				return svc.NotifyPeerLost(context.Background(), "sess-42")
			},
			expectTitle:    "Shuttle - Peer Lost",
			expectMessage:  "Peer heartbeat stale for session sess-42, session presumed dead",
			expectTags:     "shuttle,session,alert",
			expectPriority: "high",
		},
		{
			name: "peer lost without session",
			notify: func(svc notifications.Service) error {
				return svc.NotifyPeerLost(context.Background(), "")
			},
			expectTitle:    "Shuttle - Peer Lost",
			expectMessage:  "Peer heartbeat stale, session presumed dead",
			expectTags:     "shuttle,session,alert",
			expectPriority: "high",
		},
		{
			name: "error",
			notify: func(svc notifications.Service) error {
				return svc.NotifyError(context.Background(), errors.New("bridge dir vanished"), "intake")
			},
			expectTitle:    "Shuttle - Error",
			expectMessage:  "❌ Error with intake: bridge dir vanished",
			expectTags:     "shuttle,error,alert",
			expectPriority: "high",
		},
		{
			name: "test notification",
			notify: func(svc notifications.Service) error {
				return svc.TestNotification(context.Background())
			},
			expectTitle:    "Shuttle - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "shuttle,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := tc.notify(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceHonorsToggles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for suppressed notification: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Imports = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	ctx := context.Background()
	if err := svc.NotifyImportCompleted(ctx, "Rock X1234", "model"); err != nil {
		t.Fatalf("suppressed completion returned error: %v", err)
	}
	if err := svc.NotifyImportFailed(ctx, "Rock X1234", "validation failed"); err != nil {
		t.Fatalf("suppressed failure returned error: %v", err)
	}
	if err := svc.NotifyPeerLost(ctx, "sess-42"); err != nil {
		t.Fatalf("suppressed peer-lost returned error: %v", err)
	}
	if err := svc.NotifyError(ctx, errors.New("boom"), "daemon"); err != nil {
		t.Fatalf("suppressed error returned error: %v", err)
	}
}

func TestNtfyServiceSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	err := svc.TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
