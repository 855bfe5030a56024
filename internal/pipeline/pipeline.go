package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/semaphore"

	"github.com/kalambet/tmvbd/internal/composer"
	"github.com/kalambet/tmvbd/internal/gateway"
	"github.com/kalambet/tmvbd/internal/intent"
	"github.com/kalambet/tmvbd/internal/metrics"
	"github.com/kalambet/tmvbd/internal/order"
	"github.com/kalambet/tmvbd/internal/response"
)

const (
	defaultMaxConcurrent = 16
	logPreviewRunes      = 50
)

// Options tunes the generation call. A nil Temperature selects
// gateway.DefaultTemperature; zero is a valid setting.
type Options struct {
	Model         string
	Temperature   *float64
	MaxTokens     int
	MaxConcurrent int64
}

// Pipeline runs one request through classification, context compilation,
// generation, order synthesis and response assembly. Only the generation
// step blocks; it holds a concurrency slot acquired with the request
// context, so abandoned requests release or never take a slot.
type Pipeline struct {
	generator   gateway.Generator
	composer    *composer.Composer
	orders      *order.Synthesizer
	assembler   *response.Assembler
	slots       *semaphore.Weighted
	opts        Options
	temperature float64
}

// New creates a Pipeline wired to its components.
func New(
	gen gateway.Generator,
	comp *composer.Composer,
	orders *order.Synthesizer,
	asm *response.Assembler,
	opts Options,
) *Pipeline {
	temperature := gateway.DefaultTemperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = gateway.DefaultMaxTokens
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = defaultMaxConcurrent
	}
	return &Pipeline{
		generator:   gen,
		composer:    comp,
		orders:      orders,
		assembler:   asm,
		slots:       semaphore.NewWeighted(opts.MaxConcurrent),
		opts:        opts,
		temperature: temperature,
	}
}

// Handle processes a validated request. Generation failures are returned
// wrapped; the caller owns the fallback reply.
func (p *Pipeline) Handle(ctx context.Context, req ChatRequest) (response.ChatResponse, error) {
	lang := req.Language.OrDefault()
	slog.Info("chat request",
		"session_id", req.SessionID,
		"user_id", req.UserID,
		"message", preview(req.Message),
		"language", lang,
		"has_customer_data", req.CustomerData != nil,
	)

	instruction := p.composer.Compile(req.CustomerData, lang)
	agent := intent.Classify(req.Message)
	slog.Debug("agent selected", "agent", agent)

	text, err := p.generate(ctx, instruction, req.Message)
	if err != nil {
		metrics.ChatRequests.WithLabelValues(string(agent), metrics.StatusFailed).Inc()
		return response.ChatResponse{}, err
	}

	ord := p.orders.Synthesize(agent, req.Message, req.CustomerData)
	if ord != nil {
		metrics.OrdersCreated.Inc()
	}

	resp := p.assembler.Assemble(response.Input{
		Message:   req.Message,
		Generated: text,
		Agent:     agent,
		Order:     ord,
		Profile:   req.CustomerData,
		Language:  lang,
	})

	metrics.ChatRequests.WithLabelValues(string(agent), metrics.StatusOK).Inc()
	slog.Info("chat response generated",
		"session_id", req.SessionID,
		"agent", resp.Agent,
		"confidence", resp.Confidence,
		"order_created", ord != nil,
		"personalized", resp.Metadata.ResponsePersonalized,
	)
	return resp, nil
}

func (p *Pipeline) generate(ctx context.Context, instruction, message string) (string, error) {
	if err := p.slots.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("waiting for generation slot: %w", err)
	}
	defer p.slots.Release(1)
	metrics.GenerationSlotsInUse.Inc()
	defer metrics.GenerationSlotsInUse.Dec()

	start := time.Now()
	text, err := p.generator.Generate(ctx, gateway.GenerationRequest{
		Model:       p.opts.Model,
		Messages:    composer.BuildTurns(instruction, message),
		Temperature: p.temperature,
		MaxTokens:   p.opts.MaxTokens,
	})

	outcome := metrics.StatusOK
	if err != nil {
		outcome = metrics.StatusFailed
	}
	metrics.GenerationDuration.WithLabelValues(p.generator.Backend(), outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		return "", fmt.Errorf("generating reply: %w", err)
	}
	return text, nil
}

func preview(s string) string {
	if utf8.RuneCountInString(s) <= logPreviewRunes {
		return s
	}
	return string([]rune(s)[:logPreviewRunes])
}
