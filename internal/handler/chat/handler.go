package chat

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/serene/backend/internal/middleware"
	"github.com/zhouzirui/serene/backend/internal/model/chat"
	"github.com/zhouzirui/serene/backend/internal/service/gateway"
	"github.com/zhouzirui/serene/backend/pkg/utils"
)

// MaxBodyBytes caps an inbound turn payload. It admits every turn the
// validator would accept.
const MaxBodyBytes = chat.MaxTurnBytes

// Client-visible error strings. They never include request content.
const (
	ErrMsgInvalidPayload        = "invalid payload"
	ErrMsgCompletionUnavailable = "completion unavailable"
	ErrMsgInternal              = "internal error"
)

// TurnResponder is the part of the gateway the handlers depend on.
type TurnResponder interface {
	Handle(ctx context.Context, raw []byte) (chat.Result, error)
	RecordRejected(kind chat.ValidationKind)
}

// Handler 聊天服务的HTTP处理器
type Handler struct {
	gateway  TurnResponder
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// New 创建聊天处理器。allowedOrigins 同时约束 websocket 握手。
func New(gw TurnResponder, logger *zap.Logger, allowedOrigins []string) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := middleware.NewOriginPolicy(allowedOrigins)

	return &Handler{
		gateway: gw,
		logger:  logger.Named("chat"),
		upgrader: websocket.Upgrader{
			// Non-browser clients send no Origin header.
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || policy.Allows(origin)
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Get("/chat/ws", h.handleWebSocket)
}

// handleChat answers a single turn.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		kind := chat.KindMalformed
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			kind = chat.KindConstraint
		}
		h.gateway.RecordRejected(kind)
		h.logger.Debug("rejected turn body", zap.String("kind", string(kind)), zap.Error(err))
		utils.RespondError(w, http.StatusBadRequest, ErrMsgInvalidPayload)
		return
	}

	result, err := h.gateway.Handle(r.Context(), raw)
	if err != nil {
		status, message := h.classifyError(err)
		utils.RespondError(w, status, message)
		return
	}

	utils.RespondJSON(w, http.StatusOK, chat.Encode(result))
}

// classifyError maps gateway failures to a status and a fixed client message.
func (h *Handler) classifyError(err error) (int, string) {
	var verr *chat.ValidationError
	switch {
	case errors.As(err, &verr):
		h.logger.Debug("rejected turn",
			zap.String("kind", string(verr.Kind)),
			zap.String("field", verr.Field),
			zap.String("rule", verr.Rule),
		)
		return http.StatusBadRequest, ErrMsgInvalidPayload
	case errors.Is(err, gateway.ErrCompletionFailed):
		return http.StatusBadGateway, ErrMsgCompletionUnavailable
	default:
		h.logger.Error("turn handling failed", zap.Error(err))
		return http.StatusInternalServerError, ErrMsgInternal
	}
}
