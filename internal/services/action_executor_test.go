package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"omnidesk/internal/config"
	"omnidesk/pkg/webhook"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// recordedRequest captures one webhook delivery for assertions.
type recordedRequest struct {
	Path        string
	ContentType string
	Body        map[string]interface{}
}

func newWebhookRecorder(t *testing.T) (*httptest.Server, *[]recordedRequest, *sync.Mutex) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []recordedRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var decoded map[string]interface{}
		_ = json.Unmarshal(body, &decoded)
		mu.Lock()
		seen = append(seen, recordedRequest{
			Path:        r.URL.Path,
			ContentType: r.Header.Get("Content-Type"),
			Body:        decoded,
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, &seen, &mu
}

func TestActionExecutor_SendWebhook(t *testing.T) {
	server, seen, mu := newWebhookRecorder(t)

	client := webhook.NewClient(5*time.Second, quietLogger())
	executor := NewActionExecutor(config.AutomationConfig{}, client, nil, nil, nil, quietLogger())

	payload := map[string]interface{}{"priority": "urgent", "id": "T1"}
	executor.Execute(context.Background(), "send_webhook",
		map[string]interface{}{"url": server.URL + "/hook"}, payload)

	mu.Lock()
	defer mu.Unlock()
	if len(*seen) != 1 {
		t.Fatalf("expected 1 webhook delivery, got %d", len(*seen))
	}
	got := (*seen)[0]
	if got.Path != "/hook" {
		t.Errorf("path = %s, want /hook", got.Path)
	}
	if got.ContentType != "application/json" {
		t.Errorf("content type = %s, want application/json", got.ContentType)
	}
	if got.Body["priority"] != "urgent" || got.Body["id"] != "T1" {
		t.Errorf("body = %v, want the event payload", got.Body)
	}
}

func TestActionExecutor_SendWebhook_MissingURLDoesNotPanic(t *testing.T) {
	client := webhook.NewClient(time.Second, quietLogger())
	executor := NewActionExecutor(config.AutomationConfig{}, client, nil, nil, nil, quietLogger())

	// No url param: the handler errors, the executor logs and swallows.
	executor.Execute(context.Background(), "send_webhook", map[string]interface{}{}, map[string]interface{}{})
}

func TestActionExecutor_SendWebhook_EndpointFailureIsSwallowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := webhook.NewClient(time.Second, quietLogger())
	executor := NewActionExecutor(config.AutomationConfig{}, client, nil, nil, nil, quietLogger())

	// Must not panic or propagate despite the 500.
	executor.Execute(context.Background(), "send_webhook",
		map[string]interface{}{"url": server.URL}, map[string]interface{}{"k": "v"})
}

func TestActionExecutor_SendN8NWebhook_ComposesURL(t *testing.T) {
	server, seen, mu := newWebhookRecorder(t)

	client := webhook.NewClient(5*time.Second, quietLogger())
	cfg := config.AutomationConfig{N8NBaseURL: server.URL + "/"}
	executor := NewActionExecutor(cfg, client, nil, nil, nil, quietLogger())

	executor.Execute(context.Background(), "send_n8n_webhook",
		map[string]interface{}{"workflowId": "wf-42"},
		map[string]interface{}{"channel": "whatsapp"})

	mu.Lock()
	defer mu.Unlock()
	if len(*seen) != 1 {
		t.Fatalf("expected 1 n8n delivery, got %d", len(*seen))
	}
	if (*seen)[0].Path != "/webhook/wf-42" {
		t.Errorf("path = %s, want /webhook/wf-42", (*seen)[0].Path)
	}
	if (*seen)[0].Body["channel"] != "whatsapp" {
		t.Errorf("body = %v, want the event payload", (*seen)[0].Body)
	}
}

func TestActionExecutor_SendN8NWebhook_UnconfiguredNoOps(t *testing.T) {
	server, seen, mu := newWebhookRecorder(t)
	_ = server

	client := webhook.NewClient(time.Second, quietLogger())
	executor := NewActionExecutor(config.AutomationConfig{}, client, nil, nil, nil, quietLogger())

	executor.Execute(context.Background(), "send_n8n_webhook",
		map[string]interface{}{"workflowId": "wf-42"}, map[string]interface{}{})

	mu.Lock()
	defer mu.Unlock()
	if len(*seen) != 0 {
		t.Fatalf("unconfigured n8n action must not call out, got %d requests", len(*seen))
	}
}

func TestActionExecutor_UnknownActionTypeNoOps(t *testing.T) {
	client := webhook.NewClient(time.Second, quietLogger())
	executor := NewActionExecutor(config.AutomationConfig{}, client, nil, nil, nil, quietLogger())

	// Unknown tag logs a warning and returns; must never panic.
	executor.Execute(context.Background(), "launch_rocket", map[string]interface{}{}, map[string]interface{}{})
}

type captureCollaborator struct {
	mu    sync.Mutex
	calls []string
}

func (c *captureCollaborator) record(name string) {
	c.mu.Lock()
	c.calls = append(c.calls, name)
	c.mu.Unlock()
}

func (c *captureCollaborator) Assign(ctx context.Context, params, payload map[string]interface{}) error {
	c.record("assign_conversation")
	return nil
}

func (c *captureCollaborator) CreateFromAutomation(ctx context.Context, params, payload map[string]interface{}) error {
	c.record("create_ticket")
	return nil
}

func (c *captureCollaborator) SendFromAutomation(ctx context.Context, params, payload map[string]interface{}) error {
	c.record("send_notification")
	return fmt.Errorf("notification channel down")
}

func TestActionExecutor_DelegatesToCollaborators(t *testing.T) {
	collab := &captureCollaborator{}
	client := webhook.NewClient(time.Second, quietLogger())
	executor := NewActionExecutor(config.AutomationConfig{}, client, collab, collab, collab, quietLogger())

	ctx := context.Background()
	executor.Execute(ctx, "assign_conversation", map[string]interface{}{"assigneeId": "a1"}, map[string]interface{}{})
	executor.Execute(ctx, "create_ticket", map[string]interface{}{"title": "t"}, map[string]interface{}{})
	// The notification collaborator errors; the executor must swallow it.
	executor.Execute(ctx, "send_notification", map[string]interface{}{}, map[string]interface{}{})

	collab.mu.Lock()
	defer collab.mu.Unlock()
	want := []string{"assign_conversation", "create_ticket", "send_notification"}
	if len(collab.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", collab.calls, want)
	}
	for i, name := range want {
		if collab.calls[i] != name {
			t.Errorf("call %d = %s, want %s", i, collab.calls[i], name)
		}
	}
}

func TestActionExecutor_RegisterCustomHandler(t *testing.T) {
	client := webhook.NewClient(time.Second, quietLogger())
	executor := NewActionExecutor(config.AutomationConfig{}, client, nil, nil, nil, quietLogger())

	called := false
	executor.Register("custom_action", func(ctx context.Context, params, payload map[string]interface{}) error {
		called = true
		return nil
	})

	executor.Execute(context.Background(), "custom_action", nil, nil)
	if !called {
		t.Error("registered handler was not invoked")
	}
}
