package llm

// ErrorResponse is the error envelope returned to clients.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes what went wrong.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

// NewError builds an ErrorResponse with the given message.
func NewError(message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Message: message, Type: "proxy_error"}}
}
