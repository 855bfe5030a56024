package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kalambet/tmvbd/internal/composer"
	"github.com/kalambet/tmvbd/internal/config"
	"github.com/kalambet/tmvbd/internal/intent"
	"github.com/kalambet/tmvbd/internal/order"
	"github.com/kalambet/tmvbd/internal/pipeline"
	"github.com/kalambet/tmvbd/internal/profile"
	"github.com/kalambet/tmvbd/internal/response"
)

// loadProfile reads and validates a customer profile JSON file. An empty
// path means no profile.
func loadProfile(path string) (*profile.CustomerProfile, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	v, err := profile.NewValidator()
	if err != nil {
		return nil, err
	}
	return v.Parse(data)
}

func languageFlag(cmd *cobra.Command) (intent.Locale, error) {
	raw, _ := cmd.Flags().GetString("lang")
	lang := intent.Locale(strings.ToLower(raw)).OrDefault()
	if !lang.Valid() {
		return "", fmt.Errorf("unsupported language %q (want en or bn)", raw)
	}
	return lang, nil
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Send a message to the running server",
	Long: `Send a message to the running server and print the reply.

Examples:
  tmvbd chat "Where is my car?"
  tmvbd chat --lang bn --profile ./rahim.json "আমি একটি ডিভাইস কিনতে চাই"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang, err := languageFlag(cmd)
		if err != nil {
			return err
		}
		profilePath, _ := cmd.Flags().GetString("profile")
		p, err := loadProfile(profilePath)
		if err != nil {
			return err
		}
		session, _ := cmd.Flags().GetString("session")
		if session == "" {
			session = uuid.NewString()
		}
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := sendChat(cmd.Context(), client, pipeline.ChatRequest{
			Message:      strings.Join(args, " "),
			SessionID:    session,
			Language:     lang,
			CustomerData: p,
		})
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		}
		writeChatResponse(cmd.OutOrStdout(), resp)
		return nil
	},
}

func init() {
	chatCmd.Flags().String("lang", "en", "response language (en or bn)")
	chatCmd.Flags().String("profile", "", "customer profile JSON file")
	chatCmd.Flags().String("session", "", "session ID (default: random)")
	chatCmd.Flags().Bool("json", false, "print the raw JSON response")
}

func sendChat(ctx context.Context, client *apiClient, req pipeline.ChatRequest) (response.ChatResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	httpResp, err := client.post(ctx, "/api/enhanced-chat", req)
	if err != nil {
		return response.ChatResponse{}, err
	}
	var resp response.ChatResponse
	if err := decodeJSON(httpResp, &resp); err != nil {
		return response.ChatResponse{}, err
	}
	return resp, nil
}

func writeChatResponse(w io.Writer, resp response.ChatResponse) {
	fmt.Fprintln(w, resp.Message)
	fmt.Fprintln(w)
	printField(w, "Agent", "%s", resp.Agent)
	printField(w, "Intent", "%s", resp.Intent)
	printField(w, "Confidence", "%.2f", resp.Confidence)
	if cc := resp.CustomerContext; cc != nil {
		printField(w, "Customer", "%s tier, %d devices, %s", cc.LoyaltyTier, cc.DeviceCount, cc.SubscriptionLevel)
	}
	if o := resp.OrderCreated; o != nil {
		printField(w, "Order", "%s (৳%.0f)", o.OrderID, o.TotalAmount)
		printField(w, "Pay", "%s", o.PaymentLink)
	}
}

// --- classify ---

var classifyCmd = &cobra.Command{
	Use:   "classify <message>",
	Short: "Show how a message would be routed",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		writeClassification(cmd.OutOrStdout(), strings.Join(args, " "))
		return nil
	},
}

func writeClassification(w io.Writer, message string) {
	v := response.DetectVisuals(message)
	printField(w, "Agent", "%s", intent.Classify(message))
	printField(w, "Intent", "%s", response.DetectIntent(message))
	printField(w, "Purchase action", "%t", intent.IsPurchaseAction(message))
	printField(w, "Visuals", "device=%t map=%t alerts=%t payments=%t",
		v.ShowDeviceStatus, v.ShowMap, v.ShowAlerts, v.ShowPaymentHistory)
}

// --- quote ---

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Price a premium VTS device with a loyalty discount",
	Long: `Price a premium VTS device with a loyalty discount.

Examples:
  tmvbd quote --points 156
  tmvbd quote --profile ./rahim.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		profilePath, _ := cmd.Flags().GetString("profile")
		p, err := loadProfile(profilePath)
		if err != nil {
			return err
		}
		if p == nil {
			points, _ := cmd.Flags().GetInt("points")
			p = &profile.CustomerProfile{LoyaltyPoints: points}
		}

		syn := order.NewSynthesizer(cfg.Order.BasePrice, cfg.Order.PaymentBaseURL)
		writeQuote(cmd.OutOrStdout(), syn, p)
		return nil
	},
}

func init() {
	quoteCmd.Flags().Int("points", 0, "loyalty point balance")
	quoteCmd.Flags().String("profile", "", "customer profile JSON file (overrides --points)")
}

func writeQuote(w io.Writer, syn *order.Synthesizer, p *profile.CustomerProfile) {
	o := syn.Quote(p)
	points := profile.Points(p)
	printField(w, "Base price", "৳%.0f", syn.BasePrice())
	printField(w, "Loyalty discount", "৳%d (%d points)", order.Discount(points), points)
	printField(w, "Total", "৳%.0f", o.TotalAmount)
	printField(w, "Order", "%s", o.OrderID)
	printField(w, "Pay", "%s", o.PaymentLink)
}

// --- prompt ---

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the instruction context sent to the generation backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		lang, err := languageFlag(cmd)
		if err != nil {
			return err
		}
		profilePath, _ := cmd.Flags().GetString("profile")
		p, err := loadProfile(profilePath)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), composer.New("").Compile(p, lang))
		return nil
	},
}

func init() {
	promptCmd.Flags().String("lang", "en", "response language (en or bn)")
	promptCmd.Flags().String("profile", "", "customer profile JSON file")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s  %s\n", colorize(colorBold, k.Key), k.Value, colorize(colorCyan, "("+k.EnvVar+")"))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value in the config file.\n\nValid keys:\n  " + strings.Join(config.ValidKeys(), "\n  "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
