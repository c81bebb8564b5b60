// Package agent implements the HTTP client for the loan-agent streaming
// backend.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrRequestFailed is returned when the backend rejects a stream request.
var ErrRequestFailed = errors.New("agent request failed")

const streamPath = "/loan-agent/stream"

// Client talks to the loan-agent backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client for the given base URL. The timeout bounds
// dialing and response headers, not the stream body.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Transport: transport,
		},
		logger: logger,
	}
}

// messageContent is one content block of an outbound message.
type messageContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// message is one outbound chat message.
type message struct {
	Role    string           `json:"role"`
	Content []messageContent `json:"content"`
}

// streamRequest is the stream-start request body.
type streamRequest struct {
	Input struct {
		Messages []message `json:"messages"`
	} `json:"input"`
	ThreadID string `json:"thread_id"`
}

// StartStream opens a streaming response from the agent. An empty text
// sends an empty content array, which bootstraps the thread. The caller
// owns the returned body and must close it.
func (c *Client) StartStream(ctx context.Context, threadID, text string) (io.ReadCloser, error) {
	content := []messageContent{}
	if text != "" {
		content = append(content, messageContent{Type: "text", Text: text})
	}

	reqBody := streamRequest{ThreadID: threadID}
	reqBody.Input.Messages = []message{{Role: "user", Content: content}}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + streamPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("starting agent stream",
		zap.String("url", url),
		zap.String("thread_id", threadID),
		zap.Bool("bootstrap", text == ""))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agent request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		resp.Body.Close()
		c.logger.Error("agent returned error status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return nil, fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, body)
	}

	if resp.Body == nil {
		return nil, fmt.Errorf("%w: response has no body", ErrRequestFailed)
	}
	return resp.Body, nil
}
