package server

import (
	"net/http"

	"kiadisa/internal/config"
	"kiadisa/internal/realtime"
	"kiadisa/internal/session"
	"kiadisa/internal/store"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Server struct {
	coordinator *session.Coordinator
	store       store.Store
	channel     realtime.Channel
	cfg         config.Config
	log         *zap.SugaredLogger
	ws          *wsHub
}

func New(coordinator *session.Coordinator, st store.Store, ch realtime.Channel, cfg config.Config, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Server{
		coordinator: coordinator,
		store:       st,
		channel:     ch,
		cfg:         cfg,
		log:         log,
		ws:          newWSHub(log),
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealthz)
	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireUser)
		r.Post("/games", s.handleCreateGame)
		r.Post("/games/{code}/join", s.handleJoinGame)
		r.Get("/games/{id}", s.handleGetGame)
		r.Post("/games/{id}/start", s.handleStartGame)
		r.Post("/games/{id}/ready", s.handleSetReady)
		r.Post("/games/{id}/answers", s.handleSubmitAnswer)
		r.Post("/games/{id}/votes", s.handleSubmitVote)
		r.Get("/games/{id}/results", s.handleResults)
		r.Get("/games/{id}/events", s.handleEvents)
		r.Get("/profiles/{id}", s.handleGetProfile)
	})
	r.Get("/ws/games/{id}", s.handleWebsocket)
	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
