package llm

// Part type tags recognized in part-shaped message content.
const (
	PartTypeText     = "text"
	PartTypeImageURL = "image_url"
)

// ContentPart is one unit of part-shaped message content, tagged as text or
// an image reference. Exactly one payload is set per tag.
type ContentPart struct {
	Type     string    `json:"type"`                // "text" or "image_url"
	Text     string    `json:"text,omitempty"`      // For Type == "text"
	ImageURL *ImageURL `json:"image_url,omitempty"` // For Type == "image_url"
}

// ImageURL is the payload of an image_url part.
type ImageURL struct {
	URL    string `json:"url"`              // https:// or data: reference
	Detail string `json:"detail,omitempty"` // "low", "high" or "auto"
}

// TextPart builds a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: PartTypeText, Text: text}
}

// ImagePart builds an image_url content part.
func ImagePart(url, detail string) ContentPart {
	return ContentPart{Type: PartTypeImageURL, ImageURL: &ImageURL{URL: url, Detail: detail}}
}

// SetText retypes the part to a text part in place. The tag and the payload
// change together, so no image field is left behind on a text part.
func (p *ContentPart) SetText(text string) {
	p.Type = PartTypeText
	p.Text = text
	p.ImageURL = nil
}
