package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/z-interview/backend/internal/config"
	"github.com/zhouzirui/z-interview/backend/internal/handler/interview"
	"github.com/zhouzirui/z-interview/backend/internal/handler/persona"
	middlewarePkg "github.com/zhouzirui/z-interview/backend/internal/middleware"
	personaModel "github.com/zhouzirui/z-interview/backend/internal/model/persona"
	interviewService "github.com/zhouzirui/z-interview/backend/internal/service/interview"
	"github.com/zhouzirui/z-interview/backend/pkg/utils"
)

const statusMessage = "Interview Simulator API is running"

// NewRouter wires HTTP routes to core services.
func NewRouter(personas personaModel.Store, svc *interviewService.Service, serverCfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(serverCfg.AllowedOrigins))

	personaHandler := persona.New(personas)
	interviewHandler := interview.New(svc, interview.Options{
		MaxUploadBytes: serverCfg.UploadMaxBytes,
		AllowedOrigins: serverCfg.AllowedOrigins,
	})

	r.Get("/status", handleStatus)

	r.Route("/api", func(api chi.Router) {
		api.Get("/", handleStatus)
		api.Get("/status", handleStatus)

		personaHandler.RegisterRoutes(api)
		interviewHandler.RegisterRoutes(api)
	})

	return r
}

func handleStatus(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": statusMessage})
}
