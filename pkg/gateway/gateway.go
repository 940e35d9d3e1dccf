// Package gateway defines the client-side adapters to the quip
// backend's three remote pipelines. The interfaces carry only the
// request/response contract; everything behind them is an opaque
// remote service.
package gateway

import (
	"context"

	"github.com/quiplabs/quip/pkg/chat"
)

// Chat requests a text completion for a question plus its
// conversation history. A response with Code != 200 is a remote
// failure; a returned error is a transport or parse failure.
type Chat interface {
	Ask(ctx context.Context, req chat.AskRequest) (*chat.AskResponse, error)
}

// Speech synthesizes response text into an audio artifact and returns
// its token.
type Speech interface {
	Synthesize(ctx context.Context, req chat.SpeechRequest) (*chat.SpeechResponse, error)
}

// Video turns response text into a talking-avatar video and returns a
// playable URL.
type Video interface {
	Generate(ctx context.Context, req chat.VideoRequest) (*chat.VideoResponse, error)
}
