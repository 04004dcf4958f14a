// Package llm provides internal representations of LLM inference API
// requests and responses which are then further mutated and handled.
package llm

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Message represents a single message in a conversation.
type Message struct {
	Role    string         `json:"role"`    // "system", "user", "assistant"
	Content MessageContent `json:"content"` // Scalar text or ordered content parts
}

// MessageContent is the content field of a message. On the wire it is
// either a plain string or an array of content parts; both shapes are
// preserved through a round trip.
type MessageContent struct {
	Text  string        // Scalar content, valid when Parts is nil
	Parts []ContentPart // Part-shaped content, nil for scalar messages

	// raw holds a scalar of an unrecognized shape (null, number, object)
	// verbatim so it survives re-marshaling untouched.
	raw json.RawMessage
}

// Scalar builds string-valued message content.
func Scalar(text string) MessageContent {
	return MessageContent{Text: text}
}

// PartsContent builds part-shaped message content.
func PartsContent(parts ...ContentPart) MessageContent {
	return MessageContent{Parts: parts}
}

// UnmarshalJSON accepts both content shapes. A scalar that is not a string
// is kept verbatim rather than failing the parse.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	d := bytes.TrimSpace(data)
	c.Text, c.Parts, c.raw = "", nil, nil

	if len(d) > 0 && d[0] == '[' {
		return json.Unmarshal(d, &c.Parts)
	}
	if err := json.Unmarshal(d, &c.Text); err == nil {
		return nil
	}
	c.raw = append(json.RawMessage(nil), d...)
	return nil
}

// MarshalJSON re-encodes the content in the shape it arrived in.
func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.Parts != nil {
		return json.Marshal(c.Parts)
	}
	if c.raw != nil {
		return []byte(c.raw), nil
	}
	return json.Marshal(c.Text)
}

// PlainText flattens the content to a single string: the scalar text as-is,
// or the concatenation of all text parts.
func (c MessageContent) PlainText() string {
	if c.Parts == nil {
		return c.Text
	}
	var b strings.Builder
	for _, p := range c.Parts {
		if p.Type == PartTypeText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
