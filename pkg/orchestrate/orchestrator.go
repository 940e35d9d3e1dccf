// Package orchestrate chains the text, speech, and video pipelines
// behind the three user actions. Text generation is always the first
// stage; its failure short-circuits everything downstream, and no
// stage is ever retried.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/quiplabs/quip/pkg/artifact"
	"github.com/quiplabs/quip/pkg/chat"
	"github.com/quiplabs/quip/pkg/convo"
	"github.com/quiplabs/quip/pkg/gateway"
)

var (
	// ErrEmptyQuestion rejects an empty question before any token is
	// taken or any network call is made.
	ErrEmptyQuestion = errors.New("question must not be empty")

	// ErrBusy means the same action kind is already in flight.
	ErrBusy = errors.New("action already in flight")

	// ErrTransport is a network or parse failure talking to a gateway.
	ErrTransport = errors.New("transport failure")

	// ErrRemote is a non-success outcome reported by a gateway.
	ErrRemote = errors.New("remote failure")
)

// Orchestrator sequences gateway calls and conversation-store updates
// for the ask, voice, and video actions. Failures are logged with
// detail here and surfaced to callers only as the sentinel errors
// above.
type Orchestrator struct {
	store    convo.Store
	chatGW   gateway.Chat
	speechGW gateway.Speech
	videoGW  gateway.Video
	key      string
	logger   *zap.Logger

	inflight *inflight
}

// New creates an orchestrator over the given store and gateways. key
// is the shared-secret credential sent with every gateway call.
func New(store convo.Store, chatGW gateway.Chat, speechGW gateway.Speech, videoGW gateway.Video, key string, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		store:    store,
		chatGW:   chatGW,
		speechGW: speechGW,
		videoGW:  videoGW,
		key:      key,
		logger:   logger,
		inflight: newInflight(),
	}
}

// InFlight reports whether an action of the given kind is running.
// UIs use it to disable resubmission.
func (o *Orchestrator) InFlight(a Action) bool {
	return o.inflight.held(a)
}

// Release clears the token an AskVoice or AskVideo success left held.
// Playback completion is the usual caller.
func (o *Orchestrator) Release(a Action) {
	o.inflight.end(a)
}

// AskText runs the text pipeline: one chat gateway call, then exactly
// one exchange appended to the conversation on success. The in-flight
// token is cleared on every exit path.
func (o *Orchestrator) AskText(ctx context.Context, conversationID, question string) (string, error) {
	// Validated before the token is taken, so this path can never
	// leave the gate held.
	if question == "" {
		return "", ErrEmptyQuestion
	}

	if !o.inflight.begin(ActionAsk) {
		return "", ErrBusy
	}
	defer o.inflight.end(ActionAsk)

	conversation, err := o.store.Get(ctx, conversationID)
	if err != nil {
		o.logger.Error("conversation lookup failed", zap.String("id", conversationID), zap.Error(err))
		return "", err
	}

	resp, err := o.chatGW.Ask(ctx, chat.AskRequest{
		History:      conversation.History,
		APIKey:       o.key,
		Question:     question,
		Conversation: conversationID,
	})
	if err != nil {
		o.logger.Error("chat gateway call failed", zap.Error(err))
		return "", fmt.Errorf("%w: chat", ErrTransport)
	}

	if resp.Code != http.StatusOK {
		o.logger.Error("chat gateway rejected request", zap.Int("code", resp.Code))
		return "", fmt.Errorf("%w: chat returned %d", ErrRemote, resp.Code)
	}

	history, err := o.store.AppendExchange(ctx, conversationID, chat.Exchange{
		Question: question,
		Response: resp.Response,
	})
	if err != nil {
		o.logger.Error("could not append exchange", zap.String("id", conversationID), zap.Error(err))
		return "", err
	}

	o.logger.Info("response received",
		zap.String("conversation", conversationID),
		zap.Int("history_len", len(history)),
	)
	return resp.Response, nil
}

// AskVoice runs the text pipeline and, on success, synthesizes the
// response into an audio artifact. The voice token stays held after a
// successful return; the caller releases it when playback finishes.
func (o *Orchestrator) AskVoice(ctx context.Context, conversationID, question string) (artifact.Handle, error) {
	if question == "" {
		return artifact.Handle{}, ErrEmptyQuestion
	}

	// The voice token is taken before the text stage so a rejected
	// resubmission never reaches the chat gateway or the store.
	if !o.inflight.begin(ActionVoice) {
		return artifact.Handle{}, ErrBusy
	}

	text, err := o.AskText(ctx, conversationID, question)
	if err != nil {
		// Text failure terminates the whole action; no speech call.
		o.inflight.end(ActionVoice)
		return artifact.Handle{}, err
	}

	resp, err := o.speechGW.Synthesize(ctx, chat.SpeechRequest{
		Key:     o.key,
		Message: text,
	})
	if err != nil {
		o.inflight.end(ActionVoice)
		o.logger.Error("speech gateway call failed", zap.Error(err))
		return artifact.Handle{}, fmt.Errorf("%w: speech", ErrTransport)
	}

	if resp.Error != nil {
		o.inflight.end(ActionVoice)
		o.logger.Error("speech gateway rejected request", zap.String("reason", *resp.Error))
		return artifact.Handle{}, fmt.Errorf("%w: speech", ErrRemote)
	}

	o.logger.Info("voice received", zap.String("token", resp.Response))

	// Token held until Release(ActionVoice) after playback.
	return artifact.Handle{Token: resp.Response}, nil
}

// AskVideo runs the text pipeline and, on success, requests a
// talking-avatar video for the response. The video token stays held
// after a successful return; the caller releases it when the video
// finishes playing.
func (o *Orchestrator) AskVideo(ctx context.Context, conversationID, question string) (string, error) {
	if question == "" {
		return "", ErrEmptyQuestion
	}

	if !o.inflight.begin(ActionVideo) {
		return "", ErrBusy
	}

	text, err := o.AskText(ctx, conversationID, question)
	if err != nil {
		o.inflight.end(ActionVideo)
		return "", err
	}

	resp, err := o.videoGW.Generate(ctx, chat.VideoRequest{
		Key:     o.key,
		Message: text,
	})
	if err != nil {
		o.inflight.end(ActionVideo)
		o.logger.Error("video gateway call failed", zap.Error(err))
		return "", fmt.Errorf("%w: video", ErrTransport)
	}

	if resp.Error != nil {
		o.inflight.end(ActionVideo)
		o.logger.Error("video gateway rejected request", zap.String("reason", *resp.Error))
		return "", fmt.Errorf("%w: video", ErrRemote)
	}

	o.logger.Info("video generated", zap.String("url", resp.URL))

	// Token held until Release(ActionVideo) after the video ends.
	return resp.URL, nil
}
