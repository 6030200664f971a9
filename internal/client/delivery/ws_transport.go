package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/serene/backend/internal/model/chat"
)

const wsDefaultTimeout = 60 * time.Second

type wsFrame struct {
	Mode    chat.Mode `json:"mode,omitempty"`
	Content string    `json:"content,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// WSTransport sends each turn as one JSON frame over a persistent
// connection to /api/chat/ws. The connection is dialed lazily and
// redialed on the next turn after any failure.
type WSTransport struct {
	url    string
	dialer *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSTransport targets the gateway at baseURL (http, https, ws or wss).
func NewWSTransport(baseURL string) *WSTransport {
	url := strings.TrimRight(baseURL, "/") + "/api/chat/ws"
	switch {
	case strings.HasPrefix(url, "https://"):
		url = "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		url = "ws://" + strings.TrimPrefix(url, "http://")
	}
	return &WSTransport{url: url, dialer: websocket.DefaultDialer}
}

// Exchange implements Transport.
func (t *WSTransport) Exchange(ctx context.Context, turn chat.Turn) (chat.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	conn, err := t.connect(ctx)
	if err != nil {
		return nil, err
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(wsDefaultTimeout)
	}
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.SetReadDeadline(deadline)

	// Unblock the read if the caller gives up early.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if err := conn.WriteJSON(turn); err != nil {
		t.dropLocked()
		return nil, fmt.Errorf("send turn: %w", err)
	}

	var frame wsFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.dropLocked()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("read result: %w", err)
	}

	if frame.Error != "" {
		return nil, errors.New("gateway error: " + frame.Error)
	}
	return chat.Decode(chat.Envelope{Mode: frame.Mode, Content: frame.Content})
}

// Close closes the underlying connection, if any.
func (t *WSTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := t.conn.Close()
	t.conn = nil
	return err
}

func (t *WSTransport) connect(ctx context.Context) (*websocket.Conn, error) {
	if t.conn != nil {
		return t.conn, nil
	}
	conn, _, err := t.dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial gateway: %w", err)
	}
	t.conn = conn
	return conn, nil
}

func (t *WSTransport) dropLocked() {
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}
}
