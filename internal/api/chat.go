package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kalambet/tmvbd/internal/gateway"
	"github.com/kalambet/tmvbd/internal/metrics"
	"github.com/kalambet/tmvbd/internal/pipeline"
	"github.com/kalambet/tmvbd/internal/response"
)

const maxRequestBodySize = 1 << 20 // 1MB

// FallbackMessage is shown to end users whenever a request fails after
// validation.
const FallbackMessage = "😔 দুঃখিত, সমস্যা হয়েছে। / Sorry, something went wrong. Please try again."

// ChatPaths are the routes that accept chat turns.
var ChatPaths = []string{"/api/enhanced-chat", "/chat"}

// ChatPipeline handles one validated chat turn.
type ChatPipeline interface {
	Handle(ctx context.Context, req pipeline.ChatRequest) (response.ChatResponse, error)
}

// NewChatHandler returns the HTTP surface of the engine: the chat routes with
// their CORS preflight, plus health and metrics.
func NewChatHandler(p ChatPipeline) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(recoverToFallback)

	r.Get("/health", handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	for _, path := range ChatPaths {
		r.Post(path, handleChat(p))
		r.Options(path, handlePreflight)
	}

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handlePreflight(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.WriteHeader(http.StatusOK)
}

func handleChat(p ChatPipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req pipeline.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			metrics.ChatRequests.WithLabelValues("", metrics.StatusInvalid).Inc()
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if err := req.Validate(); err != nil {
			metrics.ChatRequests.WithLabelValues("", metrics.StatusInvalid).Inc()
			httpError(w, http.StatusBadRequest, "%v", err)
			return
		}

		resp, err := p.Handle(r.Context(), req)
		if err != nil {
			slog.Error("chat request failed",
				"request_id", middleware.GetReqID(r.Context()),
				"session_id", req.SessionID,
				"error", err,
			)
			writeFallback(w, failureDetail(err))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

// failureDetail reduces an error to a technical hint safe to show callers.
func failureDetail(err error) string {
	var gwErr *gateway.Error
	switch {
	case errors.As(err, &gwErr) && gwErr.Invalid():
		return "generation backend returned an invalid response"
	case errors.As(err, &gwErr) && gwErr.Status > 0:
		return fmt.Sprintf("generation backend returned status %d", gwErr.Status)
	case errors.As(err, &gwErr):
		return "generation backend unreachable"
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	}
	return "internal error"
}

func recoverToFallback(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			slog.Error("panic while handling request",
				"request_id", middleware.GetReqID(r.Context()),
				"path", r.URL.Path,
				"panic", rec,
			)
			w.Header().Set("Access-Control-Allow-Origin", "*")
			writeFallback(w, "internal error")
		}()
		next.ServeHTTP(w, r)
	})
}

func writeFallback(w http.ResponseWriter, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   "Internal server error",
		"message": FallbackMessage,
		"details": details,
	})
}

func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": fmt.Sprintf(format, args...),
	})
}
