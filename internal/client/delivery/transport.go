package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zhouzirui/serene/backend/internal/model/chat"
)

// Transport carries one turn to the gateway and returns its result.
type Transport interface {
	Exchange(ctx context.Context, turn chat.Turn) (chat.Result, error)
}

// StatusError is returned when the gateway answers with a non-2xx status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway returned status %d", e.Code)
	}
	return fmt.Sprintf("gateway returned status %d: %s", e.Code, e.Message)
}

// HTTPTransport posts turns to /api/chat.
type HTTPTransport struct {
	endpoint string
	client   *http.Client
}

// NewHTTPTransport targets the gateway at baseURL. A nil client gets a 60s timeout.
func NewHTTPTransport(baseURL string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPTransport{
		endpoint: strings.TrimRight(baseURL, "/") + "/api/chat",
		client:   client,
	}
}

// Exchange implements Transport.
func (t *HTTPTransport) Exchange(ctx context.Context, turn chat.Turn) (chat.Result, error) {
	body, err := json.Marshal(turn)
	if err != nil {
		return nil, fmt.Errorf("encode turn: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send turn: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		_ = json.Unmarshal(raw, &errBody)
		return nil, &StatusError{Code: resp.StatusCode, Message: errBody.Error}
	}

	var envelope chat.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return chat.Decode(envelope)
}
