package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nwestfall/scribe/backend/internal/handler/chat"
	"github.com/nwestfall/scribe/backend/internal/handler/knowledge"
	"github.com/nwestfall/scribe/backend/internal/handler/web"
	"github.com/nwestfall/scribe/backend/internal/metrics"
	middlewarePkg "github.com/nwestfall/scribe/backend/internal/middleware"
	chatService "github.com/nwestfall/scribe/backend/internal/service/chat"
	knowledgeService "github.com/nwestfall/scribe/backend/internal/service/knowledge"
	"github.com/nwestfall/scribe/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(chatSvc *chatService.Service, knowledgeSvc *knowledgeService.Service, sender chat.TurnSender, m *metrics.Metrics, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	// Create handlers
	chatHandler := chat.New(chatSvc, knowledgeSvc, sender, m, log)
	knowledgeHandler := knowledge.New(knowledgeSvc, m, log)

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		knowledgeHandler.RegisterRoutes(api)
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": "scribe",
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	// Embedded single page frontend
	web.New().RegisterRoutes(r)

	return r
}
