package chat

// AskRequest is the body of POST /api/ask.
// History carries the full conversation so far; the server is
// stateless with respect to conversations.
type AskRequest struct {
	History  []Exchange `json:"history"`  // Prior exchanges, oldest first
	APIKey   string     `json:"api_key"`  // Shared-secret credential
	Question string     `json:"question"` // The new user question

	// Conversation optionally names the conversation this exchange
	// belongs to so the server can record it in its own log. The
	// completion itself never depends on it.
	Conversation string `json:"conversation,omitempty"`
}

// SpeechRequest is the body of POST /api/speech.
type SpeechRequest struct {
	Key     string `json:"key"`     // Shared-secret credential
	Message string `json:"message"` // Text to synthesize
}

// VideoRequest is the body of POST /api/video.
type VideoRequest struct {
	Key     string `json:"key"`     // Shared-secret credential
	Message string `json:"message"` // Text the avatar should speak
}
