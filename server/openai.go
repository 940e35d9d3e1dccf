package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/quiplabs/quip/pkg/chat"
)

// openaiClient is the chat-completion upstream adapter. It speaks the
// OpenAI-compatible /v1/chat/completions contract and flattens the
// conversation history into the messages array.
type openaiClient struct {
	config     ChatConfig
	key        string
	httpClient *http.Client
}

func newOpenAIClient(config ChatConfig, key string, timeout time.Duration) *openaiClient {
	return &openaiClient{
		config: config,
		key:    key,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// completionMessage is one entry in the upstream messages array.
type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string              `json:"model"`
	Messages    []completionMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message completionMessage `json:"message"`
	} `json:"choices"`
}

// complete sends the system prompt, the prior exchanges, and the new
// question upstream and returns the assistant's answer.
func (c *openaiClient) complete(ctx context.Context, history []chat.Exchange, question string) (string, error) {
	messages := make([]completionMessage, 0, 2*len(history)+2)
	messages = append(messages, completionMessage{Role: "system", Content: c.config.SystemPrompt})
	for _, ex := range history {
		messages = append(messages, completionMessage{Role: "user", Content: ex.Question})
		messages = append(messages, completionMessage{Role: "assistant", Content: ex.Response})
	}
	messages = append(messages, completionMessage{Role: "user", Content: question})

	reqBody, err := json.Marshal(completionRequest{
		Model:       c.config.Model,
		Messages:    messages,
		Temperature: c.config.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.URL+"/v1/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.key)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upstream returned %d: %s", httpResp.StatusCode, body)
	}

	var resp completionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("upstream returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
