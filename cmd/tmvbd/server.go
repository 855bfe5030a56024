package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/tmvbd/internal/api"
	"github.com/kalambet/tmvbd/internal/composer"
	"github.com/kalambet/tmvbd/internal/config"
	"github.com/kalambet/tmvbd/internal/gateway"
	"github.com/kalambet/tmvbd/internal/order"
	"github.com/kalambet/tmvbd/internal/pipeline"
	"github.com/kalambet/tmvbd/internal/profile"
	"github.com/kalambet/tmvbd/internal/response"
)

const shutdownTimeout = 10 * time.Second

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the tmvbd server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show tmvbd server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func init() {
	startCmd.Flags().Bool("mcp", false, "also serve MCP tools over stdio")
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func newGenerator(ctx context.Context, cfg config.Config) (gateway.Generator, error) {
	gw := cfg.Gateway
	if gw.Backend == config.BackendGemini {
		return gateway.NewGeminiClient(ctx, gateway.GeminiOptions{
			APIKey:  gw.APIKey,
			Model:   gw.Model,
			BaseURL: gw.Endpoint,
			Timeout: gw.Timeout,
			Backoff: gw.RetryBackoff,
		})
	}
	return gateway.NewOpenAIClient(gateway.OpenAIOptions{
		Endpoint:   gw.Endpoint,
		APIKey:     gw.APIKey,
		CustomerID: gw.CustomerID,
		Timeout:    gw.Timeout,
		Backoff:    gw.RetryBackoff,
	}), nil
}

func runServer(withMCP bool) error {
	fmt.Fprintf(os.Stderr, "tmvbd version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.Log.Level)})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen, err := newGenerator(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating %s gateway: %w", cfg.Gateway.Backend, err)
	}

	comp := composer.New("")
	orders := order.NewSynthesizer(cfg.Order.BasePrice, cfg.Order.PaymentBaseURL)
	pipe := pipeline.New(gen, comp, orders, response.NewAssembler(), pipeline.Options{
		Model:         cfg.Gateway.Model,
		Temperature:   &cfg.Gateway.Temperature,
		MaxTokens:     cfg.Gateway.MaxTokens,
		MaxConcurrent: int64(cfg.Limits.MaxConcurrentGenerations),
	})

	profiles, err := profile.NewValidator()
	if err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	ln = netutil.LimitListener(ln, cfg.Server.MaxConnections)

	srv := &http.Server{
		Handler:           api.NewChatHandler(pipe),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("tmvbd listening",
			"addr", ln.Addr().String(),
			"backend", gen.Backend(),
			"model", cfg.Gateway.Model,
			"max_connections", cfg.Server.MaxConnections,
			"max_concurrent_generations", cfg.Limits.MaxConcurrentGenerations,
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Composer: comp,
			Orders:   orders,
			Profiles: profiles,
		})
		g.Go(func() error {
			slog.Info("MCP server started (stdio transport)")
			err := server.NewStdioServer(mcpSrv).Listen(gctx, os.Stdin, os.Stdout)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("MCP stdio server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		printStep("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port))
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Backend", "%s", cfg.Gateway.Backend)
	printStatus("Model", "%s", cfg.Gateway.Model)
	endpoint := cfg.Gateway.Endpoint
	if endpoint == "" {
		endpoint = "(backend default)"
	}
	printStatus("Endpoint", "%s", endpoint)
	printStatus("Config file", "%s", config.FilePath())

	if err := cfg.RequireAPIKey(); err != nil {
		printWarning("gateway API key not set; the server will refuse to start")
	}
	return nil
}
