package chat

// ErrorResponse is the generic error body returned by the API.
// Rejections never carry provider detail; credential mismatches are
// reported as not-found to mask whether a key exists at all.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   int    `json:"error"`
	Message string `json:"message"`
}
