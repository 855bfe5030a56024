package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kalambet/tmvbd/internal/order"
	"github.com/kalambet/tmvbd/internal/pipeline"
	"github.com/kalambet/tmvbd/internal/profile"
	"github.com/kalambet/tmvbd/internal/response"
)

func init() {
	noColor = true
}

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, status int, body string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		buf.ReadFrom(r.Body)
		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   buf.String(),
		})

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		httpClient: ts.server.Client(),
	}
}

func writeProfileFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const rahimProfile = `{"name":"Rahim","subscription":"premium","devices":2,"loyaltyPoints":156,"vehicleInfo":{"plateNumber":"DHA-12","model":"Axio"}}`

func TestSendChat(t *testing.T) {
	ts := newTestServer(t, http.StatusOK, `{
		"message": "Your order is ready",
		"agent": "order-management",
		"confidence": 0.98,
		"intent": "general_inquiry",
		"orderCreated": {"orderId": "TMVBD_1_ABCDEF", "paymentLink": "https://pay/x", "totalAmount": 885},
		"visualElements": {},
		"customerContext": {"hasRealData": true, "deviceCount": 2, "subscriptionLevel": "premium", "loyaltyTier": "Gold"},
		"metadata": {"language": "bn", "timestamp": "2024-02-15T10:30:00Z", "customerDataUsed": true, "responsePersonalized": true}
	}`)

	resp, err := sendChat(context.Background(), ts.client(), pipeline.ChatRequest{
		Message:      "buy a tracker",
		SessionID:    "s-1",
		Language:     "bn",
		CustomerData: &profile.CustomerProfile{Name: "Rahim", LoyaltyPoints: 156},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Agent != "order-management" || resp.OrderCreated == nil || resp.OrderCreated.TotalAmount != 885 {
		t.Errorf("resp = %+v", resp)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	r := ts.requests[0]
	if r.Method != http.MethodPost || r.Path != "/api/enhanced-chat" {
		t.Errorf("request = %s %s", r.Method, r.Path)
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["message"] != "buy a tracker" || body["sessionId"] != "s-1" || body["language"] != "bn" {
		t.Errorf("body = %v", body)
	}
	cd, ok := body["customerData"].(map[string]any)
	if !ok || cd["loyaltyPoints"] != float64(156) {
		t.Errorf("customerData = %v", body["customerData"])
	}

	var out bytes.Buffer
	writeChatResponse(&out, resp)
	for _, want := range []string{"Your order is ready", "order-management", "0.98", "Gold tier", "TMVBD_1_ABCDEF", "৳885"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestSendChat_ServerError(t *testing.T) {
	ts := newTestServer(t, http.StatusInternalServerError,
		`{"error":"Internal server error","message":"Sorry","details":"generation backend returned status 502"}`)

	_, err := sendChat(context.Background(), ts.client(), pipeline.ChatRequest{Message: "hi", SessionID: "s"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "500") || !strings.Contains(err.Error(), "status 502") {
		t.Errorf("error = %q", err)
	}
}

func TestSendChat_BadRequest(t *testing.T) {
	ts := newTestServer(t, http.StatusBadRequest, `{"error":"Message and session ID are required"}`)

	_, err := sendChat(context.Background(), ts.client(), pipeline.ChatRequest{})
	if err == nil || !strings.Contains(err.Error(), "Message and session ID are required") {
		t.Errorf("error = %v", err)
	}
}

func TestSendChat_Unreachable(t *testing.T) {
	ts := newTestServer(t, http.StatusOK, `{}`)
	c := ts.client()
	ts.server.Close()

	_, err := sendChat(context.Background(), c, pipeline.ChatRequest{Message: "hi", SessionID: "s"})
	if err == nil || !strings.Contains(err.Error(), "is tmvbd running") {
		t.Errorf("error = %v", err)
	}
}

func TestLoadProfile(t *testing.T) {
	p, err := loadProfile(writeProfileFile(t, rahimProfile))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil || p.Name != "Rahim" || p.VehicleInfo == nil {
		t.Errorf("profile = %+v", p)
	}

	if p, err := loadProfile(""); p != nil || err != nil {
		t.Errorf("empty path = %+v, %v", p, err)
	}

	if _, err := loadProfile(writeProfileFile(t, `{"devices":-1}`)); err == nil {
		t.Error("expected validation error")
	}

	if _, err := loadProfile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected read error")
	}
}

func TestWriteClassification(t *testing.T) {
	var out bytes.Buffer
	writeClassification(&out, "My device status and battery")
	got := out.String()
	for _, want := range []string{"technical-support", "location_query", "Purchase action: false", "device=true"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestWriteQuote(t *testing.T) {
	var out bytes.Buffer
	writeQuote(&out, order.NewSynthesizer(0, ""), &profile.CustomerProfile{Name: "Rahim", LoyaltyPoints: 156})
	got := out.String()
	for _, want := range []string{"৳900", "৳15 (156 points)", "Total: ৳885", "TMVBD_", "customer=Rahim"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestPromptCommand(t *testing.T) {
	var out bytes.Buffer
	promptCmd.SetOut(&out)
	t.Cleanup(func() { promptCmd.SetOut(nil) })
	promptCmd.Flags().Set("lang", "bn")
	promptCmd.Flags().Set("profile", "")
	t.Cleanup(func() { promptCmd.Flags().Set("lang", "en") })

	if err := promptCmd.RunE(promptCmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "BENGALI") || !strings.Contains(out.String(), "LIMITED MODE") {
		t.Errorf("prompt output = %q", out.String())
	}
}

func TestLanguageFlag_Rejects(t *testing.T) {
	promptCmd.Flags().Set("lang", "fr")
	t.Cleanup(func() { promptCmd.Flags().Set("lang", "en") })

	if _, err := languageFlag(promptCmd); err == nil {
		t.Error("expected unsupported language error")
	}
}

func TestRootCommands(t *testing.T) {
	want := []string{"start", "status", "chat", "classify", "quote", "prompt", "config"}
	have := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("missing command %q", name)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestDecodeJSON_PlainErrorBody(t *testing.T) {
	ts := newTestServer(t, http.StatusBadGateway, `upstream down`)
	resp, err := ts.client().get(context.Background(), "/health")
	if err != nil {
		t.Fatal(err)
	}
	var v response.ChatResponse
	err = decodeJSON(resp, &v)
	if err == nil || !strings.Contains(err.Error(), "502: upstream down") {
		t.Errorf("error = %v", err)
	}
}
