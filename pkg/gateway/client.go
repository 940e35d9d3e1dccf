package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/quiplabs/quip/pkg/chat"
)

// Client implements the Chat, Speech, and Video gateways against a
// quip backend over HTTP. All three share one http.Client with an
// explicit timeout so a hung remote call can't pin an action forever.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a gateway client for the backend at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Ask(ctx context.Context, req chat.AskRequest) (*chat.AskResponse, error) {
	status, body, err := c.post(ctx, "/api/ask", req)
	if err != nil {
		return nil, err
	}

	var resp chat.AskResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	// The backend mirrors the HTTP status in the body's code field;
	// when it can't (credential rejections use the generic error
	// shape), fall back to the status itself.
	if resp.Code == 0 {
		resp.Code = status
	}
	return &resp, nil
}

func (c *Client) Synthesize(ctx context.Context, req chat.SpeechRequest) (*chat.SpeechResponse, error) {
	status, body, err := c.post(ctx, "/api/speech", req)
	if err != nil {
		return nil, err
	}

	var resp chat.SpeechResponse
	if status == http.StatusOK {
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
		return &resp, nil
	}

	// Rejections come in two shapes: the typed body with a string
	// error, or the generic error body whose error field is the
	// status code. The latter does not decode into the typed body.
	if err := json.Unmarshal(body, &resp); err != nil || resp.Error == nil {
		msg := rejectionMessage(body, "speech", status)
		resp = chat.SpeechResponse{Error: &msg}
	}
	return &resp, nil
}

func (c *Client) Generate(ctx context.Context, req chat.VideoRequest) (*chat.VideoResponse, error) {
	status, body, err := c.post(ctx, "/api/video", req)
	if err != nil {
		return nil, err
	}

	var resp chat.VideoResponse
	if status == http.StatusOK {
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
		return &resp, nil
	}

	if err := json.Unmarshal(body, &resp); err != nil || resp.Error == nil {
		msg := rejectionMessage(body, "video", status)
		resp = chat.VideoResponse{Error: &msg}
	}
	return &resp, nil
}

// rejectionMessage extracts the message from a generic error body,
// falling back to the HTTP status when there is none.
func rejectionMessage(body []byte, action string, status int) string {
	var generic chat.ErrorResponse
	if err := json.Unmarshal(body, &generic); err == nil && generic.Message != "" {
		return generic.Message
	}
	return fmt.Sprintf("%s request rejected with status %d", action, status)
}

// ArtifactURL resolves an artifact URL path (e.g. /resp/r_123.mp3)
// against the backend base URL.
func (c *Client) ArtifactURL(urlPath string) string {
	return c.baseURL + urlPath
}

// post sends body as JSON and returns the HTTP status and raw
// response body. Network and read failures are errors; non-200
// statuses are not, the caller interprets the body.
func (c *Client) post(ctx context.Context, path string, body any) (int, []byte, error) {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("do request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}

	return httpResp.StatusCode, respBody, nil
}
