package chat

// AskResponse is the body returned by POST /api/ask.
// Code mirrors the HTTP status: 200 means the completion succeeded,
// anything else is a remote failure.
type AskResponse struct {
	Code     int    `json:"code"`               // 200 on success
	Response string `json:"response,omitempty"` // The assistant's answer
}

// SpeechResponse is the body returned by POST /api/speech.
// On success Error is null and Response holds the artifact token the
// synthesized audio was saved under.
type SpeechResponse struct {
	Error    *string `json:"error"`              // nil on success
	Response string  `json:"response,omitempty"` // Artifact token
}

// VideoResponse is the body returned by POST /api/video.
type VideoResponse struct {
	Error *string `json:"error"`         // nil on success
	URL   string  `json:"url,omitempty"` // Playable video URL
}
