package filter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/papercomputeco/lens/pkg/llm"
)

// Status descriptions emitted around an extraction.
const (
	statusProcessing = "recognizing text in the image, please wait..."
	statusForwarding = "recognition complete, forwarding to model..."
)

// ExtractionError reports that every attempt against the vision endpoint
// failed. It wraps the last attempt's cause.
type ExtractionError struct {
	Attempts int
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("ocr extraction failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Fetcher performs the remote text-extraction call with a bounded retry
// budget. A Fetcher is safe for concurrent use: each Extract call gets its
// own HTTP client and backoff state.
type Fetcher struct {
	config     Config
	logger     *zap.Logger
	newBackOff func() backoff.BackOff
	timeout    time.Duration
}

// FetcherOption customizes a Fetcher.
type FetcherOption func(*Fetcher)

// WithBackOff replaces the delay strategy between attempts. The factory is
// invoked once per Extract call so concurrent extractions never share
// backoff state.
func WithBackOff(factory func() backoff.BackOff) FetcherOption {
	return func(f *Fetcher) { f.newBackOff = factory }
}

// WithTimeout bounds each individual HTTP attempt.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) { f.timeout = d }
}

// NewFetcher creates a Fetcher for the given config.
func NewFetcher(config Config, logger *zap.Logger, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		config: config,
		logger: logger,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
		// Vision models can be slow on large images
		timeout: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Extract sends the image reference to the vision endpoint and returns the
// extracted text. The "processing" status event is emitted before the first
// network attempt and the "forwarding" event after the last successful one;
// no event follows a terminal failure.
func (f *Fetcher) Extract(ctx context.Context, imageURL string, notify Notifier) (string, error) {
	f.emit(ctx, notify, StatusEvent(statusProcessing, false))

	body, err := json.Marshal(f.extractionRequest(imageURL))
	if err != nil {
		return "", &ExtractionError{Attempts: 0, Err: fmt.Errorf("marshal extraction request: %w", err)}
	}

	// One session serves all attempts of this call and is released on
	// every exit path.
	client := &http.Client{Timeout: f.timeout}
	defer client.CloseIdleConnections()

	url := f.config.BaseURL + "/v1/chat/completions"
	wait := f.newBackOff()

	var lastErr error
	for attempt := 1; attempt <= f.config.MaxRetries; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, wait.NextBackOff()); err != nil {
				return "", &ExtractionError{Attempts: attempt - 1, Err: lastErr}
			}
		}

		text, err := f.attempt(ctx, client, url, body)
		if err == nil {
			f.emit(ctx, notify, StatusEvent(statusForwarding, true))
			return text, nil
		}
		lastErr = err
		f.logger.Warn("ocr attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", f.config.MaxRetries),
			zap.Error(err),
		)

		if ctx.Err() != nil {
			return "", &ExtractionError{Attempts: attempt, Err: lastErr}
		}
	}

	return "", &ExtractionError{Attempts: f.config.MaxRetries, Err: lastErr}
}

// attempt runs one request/response cycle. Transport failures, non-2xx
// statuses and malformed bodies are all retryable and reported the same way.
func (f *Fetcher) attempt(ctx context.Context, client *http.Client, url string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.config.APIKey)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("vision endpoint returned %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	var parsed llm.ChatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("response has no choices")
	}

	return parsed.Choices[0].Message.Content.PlainText(), nil
}

// extractionRequest builds the two-message chat body: the system message
// carries the prompt, the user message carries the prompt plus the image
// reference at high detail.
func (f *Fetcher) extractionRequest(imageURL string) llm.ChatRequest {
	return llm.ChatRequest{
		Model: f.config.Model,
		Messages: []llm.Message{
			{
				Role:    "system",
				Content: llm.PartsContent(llm.TextPart(f.config.Prompt)),
			},
			{
				Role: "user",
				Content: llm.PartsContent(
					llm.TextPart(f.config.Prompt),
					llm.ImagePart(imageURL, "high"),
				),
			},
		},
	}
}

// emit delivers an event, logging delivery failures without acting on them.
func (f *Fetcher) emit(ctx context.Context, notify Notifier, event Event) {
	if notify == nil {
		return
	}
	if err := notify.Notify(ctx, event); err != nil {
		f.logger.Warn("status notification failed",
			zap.String("description", event.Data.Description),
			zap.Error(err),
		)
	}
}

// sleepCtx waits for d or until the context is done, whichever comes first.
// backoff.Stop and non-positive delays skip the wait.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
