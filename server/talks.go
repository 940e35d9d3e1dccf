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

// talksClient is the talking-avatar upstream adapter. The upstream is
// asynchronous: creating a talk returns an id, and the result URL
// appears once rendering is done, so generate polls until then.
type talksClient struct {
	config     VideoConfig
	key        string
	httpClient *http.Client
}

func newTalksClient(config VideoConfig, key string, timeout time.Duration) *talksClient {
	return &talksClient{
		config: config,
		key:    key,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type talkScript struct {
	Type  string `json:"type"`
	Input string `json:"input"`
}

type createTalkRequest struct {
	Script    talkScript `json:"script"`
	SourceURL string     `json:"source_url,omitempty"`
}

type talkStatus struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	ResultURL string `json:"result_url,omitempty"`
	Error     any    `json:"error,omitempty"`
}

// generate creates a talk for the given text and polls until the
// rendered video URL is available. The context bounds the whole wait.
func (c *talksClient) generate(ctx context.Context, text string) (string, error) {
	created, err := c.createTalk(ctx, text)
	if err != nil {
		return "", err
	}

	ticker := time.NewTicker(c.config.PollInterval.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		status, err := c.getTalk(ctx, created.ID)
		if err != nil {
			return "", err
		}

		switch status.Status {
		case "done":
			if status.ResultURL == "" {
				return "", fmt.Errorf("talk %s done without result url", created.ID)
			}
			return status.ResultURL, nil
		case "error", "rejected":
			return "", fmt.Errorf("talk %s failed: %v", created.ID, status.Error)
		default:
			// created/started: keep polling
		}
	}
}

func (c *talksClient) createTalk(ctx context.Context, text string) (*talkStatus, error) {
	reqBody, err := json.Marshal(createTalkRequest{
		Script:    talkScript{Type: "text", Input: text},
		SourceURL: c.config.SourceURL,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL+"/talks", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Basic "+c.key)

	return c.doTalk(httpReq)
}

func (c *talksClient) getTalk(ctx context.Context, id string) (*talkStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.URL+"/talks/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Basic "+c.key)

	return c.doTalk(httpReq)
}

func (c *talksClient) doTalk(req *http.Request) (*talkStatus, error) {
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK && httpResp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("upstream returned %d: %s", httpResp.StatusCode, body)
	}

	var status talkStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &status, nil
}
