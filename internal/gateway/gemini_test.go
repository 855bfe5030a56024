package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestGemini(t *testing.T, srv *httptest.Server) *GeminiClient {
	t.Helper()
	c, err := NewGeminiClient(context.Background(), GeminiOptions{
		APIKey:  "test-key",
		Model:   "gemini-2.0-flash",
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
		Backoff: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewGeminiClient: %v", err)
	}
	return c
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	if _, err := NewGeminiClient(context.Background(), GeminiOptions{}); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestGemini_Generate(t *testing.T) {
	var body map[string]any
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Hello from Gemini"}]}}]}`)
	}))
	defer srv.Close()

	req := testRequest()
	req.Model = ""
	text, err := newTestGemini(t, srv).Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "Hello from Gemini" {
		t.Errorf("text = %q", text)
	}
	if !strings.Contains(path, "gemini-2.0-flash:generateContent") {
		t.Errorf("path = %q, want configured model", path)
	}
	if _, ok := body["systemInstruction"]; !ok {
		t.Errorf("request body has no systemInstruction: %v", body)
	}
}

func TestGemini_ServerErrorRetriedOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"code":500,"message":"internal","status":"INTERNAL"}}`)
	}))
	defer srv.Close()

	_, err := newTestGemini(t, srv).Generate(context.Background(), testRequest())
	var gwErr *Error
	if !errors.As(err, &gwErr) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if gwErr.Backend != "gemini" {
		t.Errorf("Backend = %q", gwErr.Backend)
	}
	if gwErr.Status != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", gwErr.Status)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestGemini_ClientErrorNotRetried(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"bad request", http.StatusBadRequest},
		{"forbidden", http.StatusForbidden},
		{"not found", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprintf(w, `{"error":{"code":%d,"message":"rejected","status":"INVALID_ARGUMENT"}}`, tt.status)
			}))
			defer srv.Close()

			_, err := newTestGemini(t, srv).Generate(context.Background(), testRequest())
			var gwErr *Error
			if !errors.As(err, &gwErr) {
				t.Fatalf("err = %v, want *Error", err)
			}
			if gwErr.Status != tt.status {
				t.Errorf("Status = %d, want %d", gwErr.Status, tt.status)
			}
			if gwErr.Retryable() {
				t.Error("client error reported as retryable")
			}
			if calls.Load() != 1 {
				t.Errorf("calls = %d, want 1", calls.Load())
			}
		})
	}
}
