// Package chat provides the wire representations of the quip ask,
// speech, and video API requests and responses shared by the server
// and the client gateways.
package chat

// Exchange is a single question/response pair within a conversation.
// An Exchange is immutable once appended to a history.
type Exchange struct {
	Question string `json:"question"` // What the user asked
	Response string `json:"response"` // What the assistant answered
}
