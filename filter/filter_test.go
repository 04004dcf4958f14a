package filter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/papercomputeco/lens/pkg/llm"
)

// newTestFilter wires a filter against the given OCR endpoint with no
// retry delay.
func newTestFilter(baseURL string) *Filter {
	return New(testConfig(baseURL), zap.NewNop(), WithBackOff(func() backoff.BackOff {
		return &backoff.ZeroBackOff{}
	}))
}

// ocrServer returns a vision endpoint double that always extracts the given
// text, counting attempts through the pointer.
func ocrServer(t *testing.T, text string, attempts *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*attempts++
		require.NoError(t, json.NewEncoder(w).Encode(ocrResponse(text)))
	}))
}

func marshal(t *testing.T, v any) string {
	t.Helper()
	out, err := json.Marshal(v)
	require.NoError(t, err)
	return string(out)
}

func TestInletNoImagePassThrough(t *testing.T) {
	attempts := 0
	server := ocrServer(t, "unused", &attempts)
	defer server.Close()

	req := &llm.ChatRequest{
		Model: "gpt-4o",
		Messages: []llm.Message{
			{Role: "user", Content: llm.Scalar("hello")},
			{Role: "assistant", Content: llm.Scalar("hi")},
			{Role: "user", Content: llm.PartsContent(llm.TextPart("still no image"))},
		},
	}
	before := marshal(t, req)

	f := newTestFilter(server.URL)
	got := f.Inlet(context.Background(), req, NopNotifier, nil)

	assert.JSONEq(t, before, marshal(t, got))
	assert.Equal(t, 0, attempts)
}

func TestInletFirstRoundSubstitution(t *testing.T) {
	attempts := 0
	server := ocrServer(t, "Invoice #42", &attempts)
	defer server.Close()

	req := &llm.ChatRequest{
		Model: "gpt-4o",
		Messages: []llm.Message{
			{Role: "user", Content: llm.PartsContent(
				llm.ImagePart("data:image/png;base64,xyz", "high"),
			)},
		},
	}

	f := newTestFilter(server.URL)
	got := f.Inlet(context.Background(), req, NopNotifier, nil)

	require.Len(t, got.Messages, 1)
	parts := got.Messages[0].Content.Parts
	require.Len(t, parts, 1)
	assert.Equal(t, llm.PartTypeText, parts[0].Type)
	assert.Equal(t, "Invoice #42", parts[0].Text)
	assert.Nil(t, parts[0].ImageURL, "no image field may remain on the retyped part")
	assert.Equal(t, 1, attempts)
}

func TestInletOnlyFirstImageActedOn(t *testing.T) {
	attempts := 0
	server := ocrServer(t, "extracted", &attempts)
	defer server.Close()

	req := &llm.ChatRequest{
		Model: "gpt-4o",
		Messages: []llm.Message{
			{Role: "user", Content: llm.PartsContent(
				llm.TextPart("two attachments:"),
				llm.ImagePart("https://x/first.png", "high"),
				llm.ImagePart("https://x/second.png", "high"),
			)},
		},
	}

	f := newTestFilter(server.URL)
	got := f.Inlet(context.Background(), req, NopNotifier, nil)

	parts := got.Messages[0].Content.Parts
	require.Len(t, parts, 3)

	// Untouched neighbors on both sides.
	assert.Equal(t, llm.TextPart("two attachments:"), parts[0])
	assert.Equal(t, "extracted", parts[1].Text)
	assert.Nil(t, parts[1].ImageURL)
	require.NotNil(t, parts[2].ImageURL)
	assert.Equal(t, "https://x/second.png", parts[2].ImageURL.URL)
	assert.Equal(t, 1, attempts)
}

func TestInletLaterRoundRemovesImage(t *testing.T) {
	attempts := 0
	server := ocrServer(t, "unused", &attempts)
	defer server.Close()

	req := &llm.ChatRequest{
		Model: "gpt-4o",
		Messages: []llm.Message{
			{Role: "user", Content: llm.PartsContent(
				llm.TextPart("look at this"),
				llm.ImagePart("data:image/png;base64,xyz", "high"),
			)},
			{Role: "assistant", Content: llm.Scalar("I see an invoice")},
			{Role: "user", Content: llm.Scalar("what is the total?")},
		},
	}

	f := newTestFilter(server.URL)
	got := f.Inlet(context.Background(), req, NopNotifier, nil)

	parts := got.Messages[0].Content.Parts
	require.Len(t, parts, 1, "image part must be deleted, not replaced")
	assert.Equal(t, llm.TextPart("look at this"), parts[0])
	assert.Equal(t, 0, attempts, "later rounds must not call the vision endpoint")
}

func TestInletExtractionFailureLeavesPayloadUnchanged(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	req := &llm.ChatRequest{
		Model: "gpt-4o",
		Messages: []llm.Message{
			{Role: "user", Content: llm.PartsContent(
				llm.ImagePart("data:image/png;base64,xyz", "high"),
			)},
		},
	}
	before := marshal(t, req)

	f := newTestFilter(server.URL)
	got := f.Inlet(context.Background(), req, NopNotifier, nil)

	assert.JSONEq(t, before, marshal(t, got), "original image reference must stay intact")
	assert.Equal(t, 3, attempts, "the full retry budget is spent before degrading")
}

func TestInletNilRequest(t *testing.T) {
	f := newTestFilter("http://127.0.0.1:0")
	assert.Nil(t, f.Inlet(context.Background(), nil, NopNotifier, nil))
}

func TestOutletPassThrough(t *testing.T) {
	f := newTestFilter("http://127.0.0.1:0")

	resp := &llm.ChatResponse{
		Model: "gpt-4o",
		Choices: []llm.Choice{
			{Message: llm.Message{Role: "assistant", Content: llm.Scalar("done")}},
		},
	}
	got := f.Outlet(context.Background(), resp, NopNotifier, nil)
	assert.Same(t, resp, got)
}

func TestFilterPriority(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:0")
	cfg.Priority = 7
	f := New(cfg, zap.NewNop())
	assert.Equal(t, 7, f.Priority())
}
