// Package filter implements an inlet/outlet hook pair that replaces an
// image embedded in the first user turn of a conversation with text
// extracted by a remote vision model. Later turns drop stray images rather
// than paying the extraction cost again.
package filter

import (
	"context"

	"go.uber.org/zap"

	"github.com/papercomputeco/lens/pkg/llm"
)

// HookInfo carries optional host-supplied context about the calling user
// and the primary model. Either map may be nil.
type HookInfo struct {
	User  map[string]any
	Model map[string]any
}

// Hook is the surface a pipeline host invokes around the primary model
// call. Hooks never fail the turn: they return the payload, mutated or not.
// Hosts treat a nil return as "no change" and keep the payload they passed
// in. Priority is an ordering hint among sibling hooks on the host.
type Hook interface {
	Priority() int
	Inlet(ctx context.Context, req *llm.ChatRequest, notify Notifier, info *HookInfo) *llm.ChatRequest
	Outlet(ctx context.Context, resp *llm.ChatResponse, notify Notifier, info *HookInfo) *llm.ChatResponse
}

// Filter substitutes machine-extracted text for the first image reference
// in the first round of a conversation. A Filter holds no per-conversation
// state and is safe for concurrent use.
type Filter struct {
	config  Config
	fetcher *Fetcher
	logger  *zap.Logger
}

var _ Hook = (*Filter)(nil)

// New creates a Filter. Fetcher options are forwarded to the underlying
// extraction fetcher.
func New(config Config, logger *zap.Logger, opts ...FetcherOption) *Filter {
	return &Filter{
		config:  config,
		fetcher: NewFetcher(config, logger, opts...),
		logger:  logger,
	}
}

// Priority exposes the host-side ordering hint.
func (f *Filter) Priority() int { return f.config.Priority }

// Inlet runs before the primary model call. It performs exactly one of
// four outcomes per invocation: no image found (payload unchanged), later
// round (the located image part is deleted, no network call), first-round
// success (the part is retyped to text in place), or first-round failure
// (the failure is logged and the payload returned untouched).
func (f *Filter) Inlet(ctx context.Context, req *llm.ChatRequest, notify Notifier, info *HookInfo) *llm.ChatRequest {
	if req == nil {
		return req
	}

	loc, ok := FindImage(req.Messages)
	if !ok {
		return req
	}

	// A full user+assistant pair already present means this is not the
	// first round: drop the stray image instead of re-extracting.
	if len(req.Messages)/2 >= 1 {
		parts := req.Messages[loc.MessageIndex].Content.Parts
		req.Messages[loc.MessageIndex].Content.Parts = append(parts[:loc.PartIndex], parts[loc.PartIndex+1:]...)
		f.logger.Debug("dropped stray image on a later round",
			zap.Int("message_index", loc.MessageIndex),
			zap.Int("part_index", loc.PartIndex),
		)
		return req
	}

	text, err := f.fetcher.Extract(ctx, loc.URL, notify)
	if err != nil {
		// Degrade gracefully: the turn proceeds with the original payload
		// and the failure stays out of the notification channel.
		f.logger.Error("ocr extraction failed", zap.Error(err))
		return req
	}

	req.Messages[loc.MessageIndex].Content.Parts[loc.PartIndex].SetText(text)
	f.logger.Info("substituted image with extracted text",
		zap.Int("message_index", loc.MessageIndex),
		zap.Int("part_index", loc.PartIndex),
		zap.Int("chars", len(text)),
	)
	return req
}

// Outlet runs after the primary model call. It is a pass-through, retained
// as an extension point for post-processing.
func (f *Filter) Outlet(ctx context.Context, resp *llm.ChatResponse, notify Notifier, info *HookInfo) *llm.ChatResponse {
	return resp
}
