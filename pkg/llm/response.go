package llm

// ChatResponse represents a chat completion response (OpenAI-compatible).
type ChatResponse struct {
	ID      string   `json:"id,omitempty"`      // Completion identifier
	Object  string   `json:"object,omitempty"`  // "chat.completion"
	Created int64    `json:"created,omitempty"` // Unix timestamp
	Model   string   `json:"model"`             // Model that generated the response
	Choices []Choice `json:"choices"`           // Candidate completions
	Usage   *Usage   `json:"usage,omitempty"`   // Token accounting
}

// Choice is one candidate completion.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// Usage reports token accounting for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
