package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/zhouzirui/serene/backend/internal/handler/chat"
	"github.com/zhouzirui/serene/backend/internal/handler/persona"
	middlewarePkg "github.com/zhouzirui/serene/backend/internal/middleware"
	personaModel "github.com/zhouzirui/serene/backend/internal/model/persona"
	"github.com/zhouzirui/serene/backend/pkg/utils"
)

// RouterConfig carries everything NewRouter wires together.
type RouterConfig struct {
	Gateway        chat.TurnResponder
	Persona        personaModel.Persona
	Gatherer       prometheus.Gatherer
	Logger         *zap.Logger
	AllowedOrigins []string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(cfg.AllowedOrigins))

	personaHandler := persona.New(cfg.Persona)
	chatHandler := chat.New(cfg.Gateway, logger, cfg.AllowedOrigins)

	r.Route("/api", func(api chi.Router) {
		personaHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	return r
}
