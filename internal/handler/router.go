package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/fixmycar/assistant/backend/internal/handler/chat"
	"github.com/fixmycar/assistant/backend/internal/handler/stream"
	"github.com/fixmycar/assistant/backend/internal/handler/team"
	"github.com/fixmycar/assistant/backend/internal/handler/ws"
	middlewarePkg "github.com/fixmycar/assistant/backend/internal/middleware"
	teamModel "github.com/fixmycar/assistant/backend/internal/model/team"
	chatService "github.com/fixmycar/assistant/backend/internal/service/chat"
	"github.com/fixmycar/assistant/backend/pkg/utils"
)

// Options carries the cross-cutting router settings.
type Options struct {
	AllowedOrigins []string
	Logger         zerolog.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(members teamModel.Store, chatSvc *chatService.Service, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(opts.AllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": chatSvc.Count(),
		})
	})

	r.Route("/api", func(api chi.Router) {
		team.New(members).RegisterRoutes(api)
		chat.New(chatSvc).RegisterRoutes(api)
		stream.New(chatSvc, opts.Logger).RegisterRoutes(api)
		ws.New(chatSvc, originChecker(opts.AllowedOrigins), opts.Logger).RegisterRoutes(api)
	})

	return r
}

// originChecker applies the CORS allow-list to WebSocket upgrades.
func originChecker(allowed []string) func(r *http.Request) bool {
	matches := middlewarePkg.OriginMatcher(allowed)
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return matches(origin)
	}
}
