package chat

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/serene/backend/internal/model/chat"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsIdleTimeout  = 10 * time.Minute
)

// wsReply is either a result envelope or an error, never both.
type wsReply struct {
	Mode    chat.Mode `json:"mode,omitempty"`
	Content string    `json:"content,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// handleWebSocket answers turns over a persistent connection. Each text frame
// is one turn payload; frames are handled strictly in order, one at a time.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(MaxBodyBytes)
	ctx := r.Context()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				h.gateway.RecordRejected(chat.KindConstraint)
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket closed", zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			if !h.writeReply(conn, wsReply{Error: ErrMsgInvalidPayload}) {
				return
			}
			continue
		}

		var reply wsReply
		result, err := h.gateway.Handle(ctx, data)
		if err != nil {
			_, reply.Error = h.classifyError(err)
		} else {
			envelope := chat.Encode(result)
			reply.Mode = envelope.Mode
			reply.Content = envelope.Content
		}

		if !h.writeReply(conn, reply) {
			return
		}
	}
}

func (h *Handler) writeReply(conn *websocket.Conn, reply wsReply) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(reply); err != nil {
		if !errors.Is(err, websocket.ErrCloseSent) {
			h.logger.Debug("websocket write failed", zap.Error(err))
		}
		return false
	}
	return true
}
