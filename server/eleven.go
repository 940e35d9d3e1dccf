package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// elevenClient is the text-to-speech upstream adapter (ElevenLabs
// contract). It returns raw MP3 bytes; the speech handler owns
// writing them into the artifact directory.
type elevenClient struct {
	config     SpeechConfig
	key        string
	httpClient *http.Client
}

func newElevenClient(config SpeechConfig, key string, timeout time.Duration) *elevenClient {
	return &elevenClient{
		config: config,
		key:    key,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type synthesisRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id,omitempty"`
}

// synthesize converts text to speech and returns the audio bytes.
func (c *elevenClient) synthesize(ctx context.Context, text string) ([]byte, error) {
	reqBody, err := json.Marshal(synthesisRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", c.config.URL, c.config.VoiceID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")
	httpReq.Header.Set("xi-api-key", c.key)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("upstream returned %d: %s", httpResp.StatusCode, body)
	}

	audio, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("upstream returned no audio")
	}

	return audio, nil
}
