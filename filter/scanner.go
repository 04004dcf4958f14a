package filter

import "github.com/papercomputeco/lens/pkg/llm"

// ImageLocation points at an image part inside a message list. It is a
// back-reference, not a copy: it goes stale the moment the part it names is
// removed or retyped, so locations are computed fresh per invocation and
// used once.
type ImageLocation struct {
	MessageIndex int    // Index into the message list
	PartIndex    int    // Index into that message's content parts
	URL          string // The image reference itself
}

// FindImage returns the location of the first image_url part in the message
// list, scanning messages in order and parts in order. Only user messages
// with part-shaped content are scanned; scalar-content user messages are
// skipped, not failed. The second return is false when no image exists
// anywhere. The input is never mutated.
func FindImage(messages []llm.Message) (ImageLocation, bool) {
	for m, msg := range messages {
		if msg.Role != "user" || msg.Content.Parts == nil {
			continue
		}
		for p, part := range msg.Content.Parts {
			if part.Type == llm.PartTypeImageURL && part.ImageURL != nil {
				return ImageLocation{MessageIndex: m, PartIndex: p, URL: part.ImageURL.URL}, true
			}
		}
	}
	return ImageLocation{}, false
}
