package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/serene/backend/internal/model/persona"
	"github.com/zhouzirui/serene/backend/pkg/utils"
)

// Handler persona服务的HTTP处理器
type Handler struct {
	profile persona.Persona
}

// New 创建persona处理器
func New(profile persona.Persona) *Handler {
	return &Handler{profile: profile}
}

// RegisterRoutes 注册persona相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/persona", h.handleGetPersona)
}

// handleGetPersona returns the assistant profile the client seeds its transcript with.
func (h *Handler) handleGetPersona(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.profile)
}
