package api

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/tmvbd/internal/composer"
	"github.com/kalambet/tmvbd/internal/order"
	"github.com/kalambet/tmvbd/internal/profile"
)

// --- helpers ---

func newTestMCPDeps(t *testing.T) MCPDeps {
	t.Helper()
	v, err := profile.NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	return MCPDeps{
		Composer: composer.New(""),
		Orders:   order.NewSynthesizer(0, ""),
		Profiles: v,
	}
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

const rahimJSON = `{"name":"Rahim","subscription":"premium","devices":2,"loyaltyPoints":156,"vehicleInfo":{"plateNumber":"DHA-12","model":"Axio"}}`

// --- tests ---

func TestMCPTool_ClassifyMessage(t *testing.T) {
	handler := mcpClassifyMessage()

	result, err := handler(context.Background(), makeCallToolRequest("classify_message", map[string]interface{}{
		"message": "I want to BUY a tracker",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}

	var got classification
	if err := json.Unmarshal([]byte(toolText(t, result)), &got); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if got.Agent != "order-management" || !got.PurchaseAction || got.Intent != "general_inquiry" {
		t.Errorf("classification = %+v", got)
	}
}

func TestMCPTool_ClassifyMessage_MissingMessage(t *testing.T) {
	result, err := mcpClassifyMessage()(context.Background(), makeCallToolRequest("classify_message", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error")
	}
}

func TestMCPTool_CompileContext(t *testing.T) {
	handler := mcpCompileContext(newTestMCPDeps(t))

	tests := []struct {
		name    string
		args    map[string]interface{}
		want    []string
		wantErr bool
	}{
		{
			name: "limited mode",
			args: map[string]interface{}{},
			want: []string{"RESPOND IN ENGLISH", "LIMITED MODE"},
		},
		{
			name: "bengali with profile",
			args: map[string]interface{}{"language": "bn", "customer_data": rahimJSON},
			want: []string{"BENGALI", `"Rahim"`, "REAL CUSTOMER PROFILE"},
		},
		{
			name:    "bad language",
			args:    map[string]interface{}{"language": "de"},
			wantErr: true,
		},
		{
			name:    "invalid profile",
			args:    map[string]interface{}{"customer_data": `{"devices":1}`},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := handler(context.Background(), makeCallToolRequest("compile_context", tt.args))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.IsError != tt.wantErr {
				t.Fatalf("IsError = %v, text = %s", result.IsError, toolText(t, result))
			}
			text := toolText(t, result)
			for _, w := range tt.want {
				if !strings.Contains(text, w) {
					t.Errorf("context missing %q", w)
				}
			}
		})
	}
}

func TestMCPTool_QuoteOrder(t *testing.T) {
	handler := mcpQuoteOrder(newTestMCPDeps(t))

	tests := []struct {
		name string
		args map[string]interface{}
		want float64
	}{
		{"from profile", map[string]interface{}{"customer_data": rahimJSON}, 885},
		{"from points", map[string]interface{}{"loyalty_points": float64(5000)}, 810},
		{"nothing", map[string]interface{}{}, 900},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := handler(context.Background(), makeCallToolRequest("quote_order", tt.args))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.IsError {
				t.Fatalf("tool error: %s", toolText(t, result))
			}
			var o order.Order
			if err := json.Unmarshal([]byte(toolText(t, result)), &o); err != nil {
				t.Fatalf("decoding order: %v", err)
			}
			if o.TotalAmount != tt.want {
				t.Errorf("TotalAmount = %v, want %v", o.TotalAmount, tt.want)
			}
			if !strings.HasPrefix(o.OrderID, "TMVBD_") || !strings.Contains(o.PaymentLink, "order=TMVBD_") {
				t.Errorf("order = %+v", o)
			}
		})
	}
}

func TestMCPResource_Rules(t *testing.T) {
	handler := mcpResourceRules()
	contents, err := handler(context.Background(), mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{URI: rulesURI},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d, want 1", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}

	var rules []ruleView
	if err := json.Unmarshal([]byte(tc.Text), &rules); err != nil {
		t.Fatalf("decoding rules: %v", err)
	}
	if len(rules) != 8 {
		t.Fatalf("rules = %d, want 8", len(rules))
	}
	if rules[0].Agent != "order-management" || rules[0].Rank != 1 {
		t.Errorf("first rule = %+v", rules[0])
	}
	for i := 1; i < len(rules); i++ {
		if rules[i].Rank < rules[i-1].Rank {
			t.Errorf("rules out of order at %d", i)
		}
	}
}

func TestNewMCPServer(t *testing.T) {
	if s := NewMCPServer(newTestMCPDeps(t)); s == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}
