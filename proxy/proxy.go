// Package proxy provides a transparent chat-completions proxy that runs a
// chain of inlet/outlet hooks around an upstream model call.
package proxy

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/papercomputeco/lens/filter"
	"github.com/papercomputeco/lens/pkg/llm"
)

// Proxy is a transparent chat-completions proxy. Incoming requests pass
// through the inlet hooks (ascending priority), are forwarded to the
// upstream provider with the client's own Authorization header, and the
// response passes back through the outlet hooks in reverse order. The proxy
// itself holds no per-conversation state.
type Proxy struct {
	config     Config
	hooks      []filter.Hook
	logger     *zap.Logger
	httpClient *http.Client
	server     *fiber.App
}

// New creates a Proxy applying the given hooks.
func New(config Config, logger *zap.Logger, hooks ...filter.Hook) *Proxy {
	sorted := make([]filter.Hook, len(hooks))
	copy(sorted, hooks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		// Enable streaming
		StreamRequestBody: true,
	})

	p := &Proxy{
		config: config,
		hooks:  sorted,
		logger: logger,
		server: app,
		httpClient: &http.Client{
			// LLM requests can be slow, especially on large contexts
			Timeout: 5 * time.Minute,
		},
	}

	app.Post("/v1/chat/completions", p.handleChatCompletions)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	return p
}

// Run starts the proxy server on the configured listening address.
func (p *Proxy) Run() error {
	p.logger.Info("starting proxy server",
		zap.String("listen", p.config.ListenAddr),
		zap.String("upstream", p.config.UpstreamURL),
		zap.Int("hooks", len(p.hooks)),
	)

	return p.server.Listen(p.config.ListenAddr)
}

// Shutdown gracefully stops the proxy server.
func (p *Proxy) Shutdown() error {
	return p.server.Shutdown()
}

// handleChatCompletions applies the hook chain around the upstream call.
func (p *Proxy) handleChatCompletions(c *fiber.Ctx) error {
	log := p.logger.With(zap.String("request_id", uuid.NewString()))

	var req llm.ChatRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		log.Error("failed to parse request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(llm.NewError("invalid request body"))
	}

	log.Debug("received chat request",
		zap.String("model", req.Model),
		zap.Int("message_count", len(req.Messages)),
		zap.Bool("stream", req.Stream != nil && *req.Stream),
	)

	notify := p.notifier(log)
	reqPtr := &req
	for _, h := range p.hooks {
		// A hook returning nil means "no change", not "drop the request".
		if next := h.Inlet(c.Context(), reqPtr, notify, nil); next != nil {
			reqPtr = next
		}
	}

	// OpenAI defaults to non-streaming
	if reqPtr.Stream != nil && *reqPtr.Stream {
		return p.handleStreaming(c, reqPtr, log)
	}
	return p.handleNonStreaming(c, reqPtr, notify, log)
}

// handleNonStreaming forwards the mutated request, runs the outlet chain on
// the parsed response, and returns it to the client.
func (p *Proxy) handleNonStreaming(c *fiber.Ctx, req *llm.ChatRequest, notify filter.Notifier, log *zap.Logger) error {
	startTime := time.Now()

	resp, err := p.forwardRequest(c.Context(), req, c.Get(fiber.HeaderAuthorization))
	if err != nil {
		log.Error("failed to forward request", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(llm.NewError("upstream request failed"))
	}

	log.Debug("received response from upstream",
		zap.String("model", resp.Model),
		zap.Int("choices", len(resp.Choices)),
		zap.Duration("duration", time.Since(startTime)),
	)

	// Outlets run in reverse so the highest-priority hook sees the
	// response last, mirroring its position on the way in.
	for i := len(p.hooks) - 1; i >= 0; i-- {
		if next := p.hooks[i].Outlet(c.Context(), resp, notify, nil); next != nil {
			resp = next
		}
	}

	return c.JSON(resp)
}

// handleStreaming relays the upstream SSE byte stream verbatim after the
// inlet chain has mutated the outgoing request. Outlet hooks do not apply
// to streamed responses.
func (p *Proxy) handleStreaming(c *fiber.Ctx, req *llm.ChatRequest, log *zap.Logger) error {
	reqBody, err := json.Marshal(req)
	if err != nil {
		log.Error("failed to marshal request", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(llm.NewError("internal error"))
	}

	upstreamURL := p.config.UpstreamURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(c.Context(), http.MethodPost, upstreamURL, bytes.NewReader(reqBody))
	if err != nil {
		log.Error("failed to create upstream request", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(llm.NewError("internal error"))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if auth := c.Get(fiber.HeaderAuthorization); auth != "" {
		httpReq.Header.Set("Authorization", auth)
	}

	log.Debug("forwarding streaming request to upstream", zap.String("url", upstreamURL))

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		log.Error("upstream request failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(llm.NewError("upstream request failed"))
	}

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()
		log.Error("upstream returned error",
			zap.Int("status", httpResp.StatusCode),
			zap.String("body", truncateStr(string(body), 200)),
		)
		return c.Status(httpResp.StatusCode).JSON(llm.NewError("upstream error"))
	}

	contentType := httpResp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/event-stream"
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderTransferEncoding, "chunked")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer httpResp.Body.Close()

		buf := make([]byte, 4096)
		for {
			n, err := httpResp.Body.Read(buf)
			if n > 0 {
				if _, werr := w.Write(buf[:n]); werr != nil {
					return
				}
				if werr := w.Flush(); werr != nil {
					return
				}
			}
			if err != nil {
				if err != io.EOF {
					log.Error("error relaying stream", zap.Error(err))
				}
				return
			}
		}
	}))

	return nil
}

// forwardRequest forwards a non-streaming request to the upstream provider.
func (p *Proxy) forwardRequest(ctx context.Context, req *llm.ChatRequest, authorization string) (*llm.ChatResponse, error) {
	// Ensure non-streaming
	streaming := false
	req.Stream = &streaming

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	upstreamURL := p.config.UpstreamURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, upstreamURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		httpReq.Header.Set("Authorization", authorization)
	}

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned %d: %s", httpResp.StatusCode, truncateStr(string(body), 200))
	}

	var resp llm.ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &resp, nil
}

// notifier logs hook status events. The proxy has no side channel back to
// the client before the model responds, so the log is the observer.
func (p *Proxy) notifier(log *zap.Logger) filter.Notifier {
	return filter.NotifierFunc(func(_ context.Context, event filter.Event) error {
		log.Info("filter status",
			zap.String("description", event.Data.Description),
			zap.Bool("done", event.Data.Done),
		)
		return nil
	})
}

func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
