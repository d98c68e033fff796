package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"mothtrap/internal/config"
	"mothtrap/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyCaptureCommitted(context.Background(), "mothtrap-001", "/captures/x.avi", 1); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
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

	if err := svc.NotifyCaptureCommitted(context.Background(), "mothtrap-001", "/captures/moth_031500.avi", 12); err != nil {
		t.Fatalf("notification returned error: %v", err)
	}
	if captured.title != "Mothtrap - Capture" {
		t.Fatalf("title = %q", captured.title)
	}
	if captured.body != "Detection #12 captured on mothtrap-001\nFile: /captures/moth_031500.avi" {
		t.Fatalf("body = %q", captured.body)
	}
	if captured.tags != "mothtrap,capture,committed" {
		t.Fatalf("tags = %q", captured.tags)
	}
	if captured.priority != "" {
		t.Fatalf("priority = %q, want empty", captured.priority)
	}

	if err := svc.NotifyError(context.Background(), errors.New("sd card gone"), "commit"); err != nil {
		t.Fatalf("error notification: %v", err)
	}
	if captured.title != "Mothtrap - Error" {
		t.Fatalf("title = %q", captured.title)
	}
	if captured.body != "Error with commit: sd card gone" {
		t.Fatalf("body = %q", captured.body)
	}
	if captured.priority != "high" {
		t.Fatalf("priority = %q, want high", captured.priority)
	}
}

func TestNtfyServiceHonorsSuppressionFlags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for suppressed event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Committed = false
	cfg.Notifications.Errors = false
	svc := notifications.NewService(&cfg)

	if err := svc.NotifyCaptureCommitted(context.Background(), "mothtrap-001", "", 1); err != nil {
		t.Fatalf("suppressed committed notification errored: %v", err)
	}
	if err := svc.NotifyError(context.Background(), errors.New("boom"), "test"); err != nil {
		t.Fatalf("suppressed error notification errored: %v", err)
	}
}

func TestNtfyServiceReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)

	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
