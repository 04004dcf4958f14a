package llm

// ChatRequest represents a chat completion request (OpenAI-compatible).
type ChatRequest struct {
	Model    string    `json:"model"`            // Model name (e.g., "gpt-4o", "gemini-1.5-flash-latest")
	Messages []Message `json:"messages"`         // Conversation history
	Stream   *bool     `json:"stream,omitempty"` // Whether to stream responses (default: false)

	// Generation parameters, forwarded to the upstream untouched
	Temperature *float64 `json:"temperature,omitempty"` // Creativity (0.0-2.0)
	TopP        *float64 `json:"top_p,omitempty"`       // Nucleus sampling threshold
	MaxTokens   *int     `json:"max_tokens,omitempty"`  // Max tokens to generate
	Seed        *int     `json:"seed,omitempty"`        // Random seed for reproducibility
	Stop        []string `json:"stop,omitempty"`        // Stop generation at these sequences
	User        string   `json:"user,omitempty"`        // End-user identifier
}
