package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/tmvbd/internal/composer"
	"github.com/kalambet/tmvbd/internal/intent"
	"github.com/kalambet/tmvbd/internal/order"
	"github.com/kalambet/tmvbd/internal/profile"
	"github.com/kalambet/tmvbd/internal/response"
)

const rulesURI = "tmvbd://rules"

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Composer *composer.Composer
	Orders   *order.Synthesizer
	Profiles *profile.Validator
}

// NewMCPServer creates an MCP server exposing the deterministic parts of the
// engine: classification, context compilation and order quoting.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"tmvbd",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("tmvbd: vehicle tracking support assistant. Classify customer messages, build personalized context, and quote device orders."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("classify_message",
			mcp.WithDescription("Route a customer message to a support agent and report display hints."),
			mcp.WithString("message", mcp.Description("Customer message in English or Bengali"), mcp.Required()),
		),
		mcpClassifyMessage(),
	)

	s.AddTool(
		mcp.NewTool("compile_context",
			mcp.WithDescription("Build the instruction context handed to the generation backend."),
			mcp.WithString("language", mcp.Description("Response language: en or bn (default en)")),
			mcp.WithString("customer_data", mcp.Description("Customer profile as a JSON object; omit for limited mode")),
		),
		mcpCompileContext(deps),
	)

	s.AddTool(
		mcp.NewTool("quote_order",
			mcp.WithDescription("Price a premium VTS device with the customer's loyalty discount."),
			mcp.WithString("customer_data", mcp.Description("Customer profile as a JSON object")),
			mcp.WithNumber("loyalty_points", mcp.Description("Point balance, used when customer_data is omitted")),
		),
		mcpQuoteOrder(deps),
	)

	s.AddResource(
		mcp.NewResource(
			rulesURI,
			"Classification Rules",
			mcp.WithResourceDescription("Ordered keyword rules used to route messages to agents"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRules(),
	)

	return s
}

type classification struct {
	Agent          intent.AgentTag         `json:"agent"`
	Intent         response.IntentTag      `json:"intent"`
	PurchaseAction bool                    `json:"purchaseAction"`
	VisualElements response.VisualElements `json:"visualElements"`
}

func mcpClassifyMessage() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := req.RequireString("message")
		if err != nil {
			return mcpError("message is required"), nil
		}

		b, err := json.Marshal(classification{
			Agent:          intent.Classify(message),
			Intent:         response.DetectIntent(message),
			PurchaseAction: intent.IsPurchaseAction(message),
			VisualElements: response.DetectVisuals(message),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal classification: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpCompileContext(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		lang := intent.Locale(req.GetString("language", "")).OrDefault()
		if !lang.Valid() {
			return mcpError(fmt.Sprintf("unsupported language %q", lang)), nil
		}

		p, err := deps.Profiles.Parse([]byte(req.GetString("customer_data", "")))
		if err != nil {
			return mcpError(err.Error()), nil
		}

		return mcpText(deps.Composer.Compile(p, lang)), nil
	}
}

func mcpQuoteOrder(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		p, err := deps.Profiles.Parse([]byte(req.GetString("customer_data", "")))
		if err != nil {
			return mcpError(err.Error()), nil
		}
		if p == nil {
			p = &profile.CustomerProfile{LoyaltyPoints: req.GetInt("loyalty_points", 0)}
		}

		b, err := json.Marshal(deps.Orders.Quote(p))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal order: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

type ruleView struct {
	Rank    int             `json:"rank"`
	Locale  intent.Locale   `json:"locale"`
	Agent   intent.AgentTag `json:"agent"`
	Pattern string          `json:"pattern"`
}

func mcpResourceRules() server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		rules := intent.Rules()
		views := make([]ruleView, len(rules))
		for i, r := range rules {
			views[i] = ruleView{
				Rank:    r.Rank,
				Locale:  r.Locale,
				Agent:   r.Tag,
				Pattern: r.Pattern.String(),
			}
		}

		b, err := json.Marshal(views)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal rules: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
