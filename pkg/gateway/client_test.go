package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiplabs/quip/pkg/chat"
)

func TestAskDecodesSuccess(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ask", r.URL.Path)

		var req chat.AskRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2+2?", req.Question)

		json.NewEncoder(w).Encode(chat.AskResponse{Code: 200, Response: "4, obviously"})
	}))
	defer backend.Close()

	c := NewClient(backend.URL, 5*time.Second)
	resp, err := c.Ask(context.Background(), chat.AskRequest{APIKey: "k", Question: "2+2?"})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Code)
	assert.Equal(t, "4, obviously", resp.Response)
}

func TestAskCredentialRejectionCarriesStatus(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(chat.ErrorResponse{Success: false, Error: 404, Message: "API key not found"})
	}))
	defer backend.Close()

	c := NewClient(backend.URL, 5*time.Second)
	resp, err := c.Ask(context.Background(), chat.AskRequest{APIKey: "wrong", Question: "2+2?"})
	require.NoError(t, err)
	// The error body has no code field; the HTTP status fills it in.
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestAskTransportFailureIsAnError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 200*time.Millisecond)
	_, err := c.Ask(context.Background(), chat.AskRequest{Question: "2+2?"})
	require.Error(t, err)
}

func TestSynthesizeFillsErrorOnRejection(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(chat.SpeechResponse{})
	}))
	defer backend.Close()

	c := NewClient(backend.URL, 5*time.Second)
	resp, err := c.Synthesize(context.Background(), chat.SpeechRequest{Key: "k", Message: "hello"})
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
}

func TestSynthesizeCredentialRejectionIsARemoteError(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(chat.ErrorResponse{Success: false, Error: 404, Message: "API key not found"})
	}))
	defer backend.Close()

	c := NewClient(backend.URL, 5*time.Second)
	// The generic error body carries an integer error field; it must
	// surface as a rejection, not a decode failure.
	resp, err := c.Synthesize(context.Background(), chat.SpeechRequest{Key: "wrong", Message: "hello"})
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "API key not found", *resp.Error)
}

func TestGenerateCredentialRejectionIsARemoteError(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(chat.ErrorResponse{Success: false, Error: 404, Message: "API key not found"})
	}))
	defer backend.Close()

	c := NewClient(backend.URL, 5*time.Second)
	resp, err := c.Generate(context.Background(), chat.VideoRequest{Key: "wrong", Message: "hello"})
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "API key not found", *resp.Error)
}

func TestArtifactURL(t *testing.T) {
	c := NewClient("http://localhost:8080/", 5*time.Second)
	assert.Equal(t, "http://localhost:8080/resp/r_1.mp3", c.ArtifactURL("/resp/r_1.mp3"))
}
