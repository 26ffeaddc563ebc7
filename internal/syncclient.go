package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	messagesPath = "/chatmessages/"
	// SessionHeader scopes every request to one session
	SessionHeader = "X-Session-Id"

	maxResponseBytes = 4 << 20
)

// Syncer is the message store as the conversation engine sees it
type Syncer interface {
	FetchHistory(ctx context.Context, token SessionToken) ([]Message, error)
	PostMessage(ctx context.Context, token SessionToken, content string) (Message, error)
}

// SyncClient talks to the remote message store over HTTP. It never retries.
type SyncClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewSyncClient creates a client for the message store at baseURL. A
// non-positive timeout leaves requests bounded only by their context.
func NewSyncClient(baseURL string, timeout time.Duration) *SyncClient {
	client := &http.Client{}
	if timeout > 0 {
		client.Timeout = timeout
	}
	return &SyncClient{
		endpoint:   strings.TrimRight(baseURL, "/") + messagesPath,
		httpClient: client,
	}
}

// Endpoint returns the collection URL requests are sent to
func (c *SyncClient) Endpoint() string {
	return c.endpoint
}

// FetchHistory returns every stored message for token in chronological order
func (c *SyncClient) FetchHistory(ctx context.Context, token SessionToken) ([]Message, error) {
	body, status, err := c.do(ctx, "fetch", http.MethodGet, token, nil)
	if err != nil {
		return nil, err
	}

	messages, err := ParseHistory(body)
	if err != nil {
		return nil, &ProtocolError{Op: "fetch", URL: c.endpoint, Status: status, Err: err}
	}

	LogDebug("Fetched %d messages", len(messages))
	return messages, nil
}

// PostMessage submits content and returns the bot reply
func (c *SyncClient) PostMessage(ctx context.Context, token SessionToken, content string) (Message, error) {
	if strings.TrimSpace(content) == "" {
		return Message{}, ErrEmptyContent
	}

	payload, err := json.Marshal(struct {
		Content string `json:"content"`
	}{Content: content})
	if err != nil {
		return Message{}, fmt.Errorf("failed to encode message: %w", err)
	}

	body, status, err := c.do(ctx, "post", http.MethodPost, token, payload)
	if err != nil {
		return Message{}, err
	}

	reply, err := ParseReply(body)
	if err != nil {
		return Message{}, &ProtocolError{Op: "post", URL: c.endpoint, Status: status, Err: err}
	}
	return reply, nil
}

func (c *SyncClient) do(ctx context.Context, op, method string, token SessionToken, payload []byte) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint, reqBody)
	if err != nil {
		return nil, 0, &NetworkError{Op: op, URL: c.endpoint, Err: err}
	}
	req.Header.Set(SessionHeader, token.String())
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	LogDebug("%s %s", method, c.endpoint)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &NetworkError{Op: op, URL: c.endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, resp.StatusCode, &NetworkError{Op: op, URL: c.endpoint, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, &ProtocolError{
			Op:     op,
			URL:    c.endpoint,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected status %s", http.StatusText(resp.StatusCode)),
		}
	}
	if len(body) > maxResponseBytes {
		return nil, resp.StatusCode, &ProtocolError{
			Op:     op,
			URL:    c.endpoint,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("response body exceeds %d bytes", maxResponseBytes),
		}
	}

	return body, resp.StatusCode, nil
}
