package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestClient_PostDeliversJSON(t *testing.T) {
	var gotContentType string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(time.Second, testLogger())
	err := client.Post(context.Background(), server.URL, map[string]interface{}{"event": "ticket_created"})
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %s, want application/json", gotContentType)
	}
	if gotBody["event"] != "ticket_created" {
		t.Errorf("body = %v", gotBody)
	}
}

func TestClient_PostErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(time.Second, testLogger())
	err := client.Post(context.Background(), server.URL, map[string]interface{}{})
	if err == nil {
		t.Fatal("4xx responses must surface as errors")
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("error should carry the status code, got %v", err)
	}
}

func TestClient_PostTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(50*time.Millisecond, testLogger())
	if err := client.Post(context.Background(), server.URL, map[string]interface{}{}); err == nil {
		t.Fatal("a hung endpoint must time out")
	}
}

func TestClient_PostUnreachable(t *testing.T) {
	client := NewClient(time.Second, testLogger())
	if err := client.Post(context.Background(), "http://127.0.0.1:1/hook", map[string]interface{}{}); err == nil {
		t.Fatal("connection refusal must surface as an error")
	}
}

func TestClient_PostUnmarshalablePayload(t *testing.T) {
	client := NewClient(time.Second, testLogger())
	if err := client.Post(context.Background(), "http://example.invalid", map[string]interface{}{
		"bad": func() {},
	}); err == nil {
		t.Fatal("unmarshalable payloads must error before any request is made")
	}
}

func TestNewClient_ZeroTimeoutUsesDefault(t *testing.T) {
	client := NewClient(0, testLogger())
	if client.httpClient.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", client.httpClient.Timeout, DefaultTimeout)
	}
}
