// Package server implements the quipd HTTP backend: the ask, speech,
// and video endpoints that proxy to the remote SaaS providers, plus
// artifact serving and the conversation-update feed.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/quiplabs/quip/pkg/artifact"
	"github.com/quiplabs/quip/pkg/chat"
	"github.com/quiplabs/quip/pkg/convo"
)

// Server is the quipd backend. It is stateless with respect to the
// clients' conversations; the store here is a server-side log of the
// exchanges that flowed through this instance, kept for the update
// feed and inspection endpoints.
type Server struct {
	config  Config
	store   convo.Store
	janitor *artifact.Janitor
	logger  *zap.Logger
	app     *fiber.App

	openai *openaiClient
	eleven *elevenClient
	talks  *talksClient
}

// New creates a new Server.
func New(config Config, logger *zap.Logger) (*Server, error) {
	var store convo.Store
	if config.DBPath != "" {
		var err error
		store, err = convo.NewSQLiteStore(config.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite store: %w", err)
		}
		logger.Info("using SQLite conversation log", zap.String("path", config.DBPath))
	} else {
		store = convo.NewMemoryStore()
		logger.Info("using in-memory conversation log")
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
	})

	timeout := config.UpstreamTimeout.Duration
	s := &Server{
		config:  config,
		store:   store,
		janitor: artifact.NewJanitor(config.StaticRoot, logger.Named("janitor")),
		logger:  logger,
		app:     app,
		openai:  newOpenAIClient(config.Chat, config.OpenAIKey, timeout),
		eleven:  newElevenClient(config.Speech, config.ElevenKey, timeout),
		talks:   newTalksClient(config.Video, config.TalksKey, timeout),
	}

	// Register routes
	app.Post("/api/ask", s.handleAsk)
	app.Post("/api/speech", s.handleSpeech)
	app.Post("/api/video", s.handleVideo)

	app.Get("/resp/:file", s.handleArtifact)

	app.Get("/api/conversations", s.handleListConversations)
	app.Get("/api/conversations/:id", s.handleGetConversation)
	app.Get("/ws/updates", s.handleUpdates())

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	return s, nil
}

// Run starts the server on the configured listening address.
func (s *Server) Run() error {
	s.logger.Info("starting server",
		zap.String("listen", s.config.ListenAddr),
		zap.String("chat_upstream", s.config.Chat.URL),
		zap.String("speech_upstream", s.config.Speech.URL),
	)

	return s.app.Listen(s.config.ListenAddr)
}

// Close shuts down the server and releases resources.
func (s *Server) Close() error {
	return s.store.Close()
}

// keyNotFound is the credential-mismatch rejection. It masks whether
// the key exists at all by answering not-found instead of 401/403,
// matching the wire contract the UI already speaks.
func keyNotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(chat.ErrorResponse{
		Success: false,
		Error:   fiber.StatusNotFound,
		Message: "API key not found",
	})
}

// handleAsk answers POST /api/ask: one chat-completion round trip.
func (s *Server) handleAsk(c *fiber.Ctx) error {
	startTime := time.Now()

	var req chat.AskRequest
	if err := c.BodyParser(&req); err != nil {
		s.logger.Error("failed to parse ask request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(chat.ErrorResponse{
			Success: false,
			Error:   fiber.StatusBadRequest,
			Message: "invalid request body",
		})
	}

	if req.APIKey != s.config.LocalKey {
		s.logger.Warn("ask with bad credential")
		return keyNotFound(c)
	}

	s.logger.Debug("received ask request",
		zap.Int("history_len", len(req.History)),
		zap.String("conversation", req.Conversation),
	)

	answer, err := s.openai.complete(c.Context(), req.History, req.Question)
	if err != nil {
		s.logger.Error("chat completion failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(chat.AskResponse{
			Code: fiber.StatusInternalServerError,
		})
	}

	s.logger.Debug("received completion",
		zap.String("answer_preview", truncate(answer, 100)),
		zap.Duration("duration", time.Since(startTime)),
	)

	// Record the exchange in the server-side log. Never fail the
	// request just because recording failed.
	if req.Conversation != "" {
		s.recordExchange(c.Context(), req.Conversation, chat.Exchange{
			Question: req.Question,
			Response: answer,
		})
	}

	return c.JSON(chat.AskResponse{Code: fiber.StatusOK, Response: answer})
}

// handleSpeech answers POST /api/speech: sweep expired artifacts,
// synthesize the message, save it under a fresh token.
func (s *Server) handleSpeech(c *fiber.Ctx) error {
	// Cleanup is pre-work of every speech request; a failed sweep
	// must not block synthesis.
	if deleted, err := s.janitor.Sweep(c.Context(), s.config.RetentionDays); err != nil {
		s.logger.Warn("artifact sweep failed", zap.Error(err))
	} else if deleted > 0 {
		s.logger.Info("swept expired artifacts", zap.Int("deleted", deleted))
	}

	var req chat.SpeechRequest
	if err := c.BodyParser(&req); err != nil {
		s.logger.Error("failed to parse speech request", zap.Error(err))
		msg := "invalid request body"
		return c.Status(fiber.StatusBadRequest).JSON(chat.SpeechResponse{Error: &msg})
	}

	if req.Key != s.config.LocalKey {
		s.logger.Warn("speech with bad credential")
		return keyNotFound(c)
	}

	if len(req.Message) == 0 {
		msg := "Empty message"
		return c.Status(fiber.StatusNotFound).JSON(chat.SpeechResponse{Error: &msg})
	}

	audio, err := s.eleven.synthesize(c.Context(), req.Message)
	if err != nil {
		s.logger.Error("speech synthesis failed", zap.Error(err))
		msg := "An error occurred while converting text to speech"
		return c.Status(fiber.StatusInternalServerError).JSON(chat.SpeechResponse{Error: &msg})
	}

	handle := artifact.Handle{Token: artifact.NewToken(time.Now())}
	path := handle.Path(s.config.StaticRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		s.logger.Error("could not create artifact dir", zap.Error(err))
		msg := "An error occurred while converting text to speech"
		return c.Status(fiber.StatusInternalServerError).JSON(chat.SpeechResponse{Error: &msg})
	}
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		s.logger.Error("could not save artifact", zap.String("path", path), zap.Error(err))
		msg := "An error occurred while converting text to speech"
		return c.Status(fiber.StatusInternalServerError).JSON(chat.SpeechResponse{Error: &msg})
	}

	s.logger.Info("audio saved", zap.String("path", path), zap.Int("bytes", len(audio)))

	return c.JSON(chat.SpeechResponse{Error: nil, Response: handle.Token})
}

// handleVideo answers POST /api/video: request a talking-avatar
// render of the message and return its playable URL.
func (s *Server) handleVideo(c *fiber.Ctx) error {
	var req chat.VideoRequest
	if err := c.BodyParser(&req); err != nil {
		s.logger.Error("failed to parse video request", zap.Error(err))
		msg := "invalid request body"
		return c.Status(fiber.StatusBadRequest).JSON(chat.VideoResponse{Error: &msg})
	}

	if req.Key != s.config.LocalKey {
		s.logger.Warn("video with bad credential")
		return keyNotFound(c)
	}

	if len(req.Message) == 0 {
		msg := "Empty message"
		return c.Status(fiber.StatusNotFound).JSON(chat.VideoResponse{Error: &msg})
	}

	url, err := s.talks.generate(c.Context(), req.Message)
	if err != nil {
		s.logger.Error("video generation failed", zap.Error(err))
		msg := "An error occurred while generating the video"
		return c.Status(fiber.StatusInternalServerError).JSON(chat.VideoResponse{Error: &msg})
	}

	s.logger.Info("video ready", zap.String("url", url))

	return c.JSON(chat.VideoResponse{Error: nil, URL: url})
}

// handleArtifact streams a generated audio file.
func (s *Server) handleArtifact(c *fiber.Ctx) error {
	name := c.Params("file")
	if !artifact.ValidFilename(name) {
		return c.Status(fiber.StatusNotFound).JSON(chat.ErrorResponse{
			Success: false,
			Error:   fiber.StatusNotFound,
			Message: "no such artifact",
		})
	}

	path := filepath.Join(artifact.Dir(s.config.StaticRoot), name)
	file, err := os.Open(path)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(chat.ErrorResponse{
			Success: false,
			Error:   fiber.StatusNotFound,
			Message: "no such artifact",
		})
	}

	c.Set("Content-Type", "audio/mpeg")
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer file.Close()
		if _, err := w.ReadFrom(file); err != nil {
			s.logger.Warn("artifact stream interrupted", zap.String("name", name), zap.Error(err))
		}
	}))

	return nil
}

// handleListConversations returns the server-side conversation log.
func (s *Server) handleListConversations(c *fiber.Ctx) error {
	conversations, err := s.store.List(c.Context())
	if err != nil {
		s.logger.Error("could not list conversations", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(chat.ErrorResponse{
			Success: false,
			Error:   fiber.StatusInternalServerError,
			Message: "could not list conversations",
		})
	}

	return c.JSON(map[string]any{
		"count":         len(conversations),
		"conversations": conversations,
	})
}

// handleGetConversation returns one logged conversation by id.
func (s *Server) handleGetConversation(c *fiber.Ctx) error {
	conversation, err := s.store.Get(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(chat.ErrorResponse{
			Success: false,
			Error:   fiber.StatusNotFound,
			Message: "conversation not found",
		})
	}

	return c.JSON(conversation)
}

// recordExchange appends to the server-side conversation log,
// creating the conversation on first sight of its id.
func (s *Server) recordExchange(ctx context.Context, id string, ex chat.Exchange) {
	if _, err := s.store.AppendExchange(ctx, id, ex); err != nil {
		var notFound convo.ErrNotFound
		if !errors.As(err, &notFound) {
			s.logger.Error("could not record exchange", zap.String("id", id), zap.Error(err))
			return
		}

		if _, err := s.store.Create(ctx, id); err != nil {
			// A duplicate-id failure means a concurrent request created
			// the conversation first; the append below still applies.
			var dup convo.ErrDuplicateID
			if !errors.As(err, &dup) {
				s.logger.Error("could not create conversation", zap.String("id", id), zap.Error(err))
				return
			}
		}
		if _, err := s.store.AppendExchange(ctx, id, ex); err != nil {
			s.logger.Error("could not record exchange", zap.String("id", id), zap.Error(err))
			return
		}
	}

	s.logger.Debug("exchange recorded", zap.String("id", id))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
