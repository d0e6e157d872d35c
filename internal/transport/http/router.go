package http

import (
	"net/http"

	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/app"
	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/auth"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewRouter wires the stub session API.
func NewRouter(service *app.SessionService, issuer *auth.Issuer, logger *zap.Logger) http.Handler {
	sessions := NewSessionHandler(service, logger)
	stream := NewStreamHandler(service, logger)
	authn := NewAuthenticator(issuer)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(authn.Middleware)
		r.Get("/users/me", sessions.Me)
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessions.Create)
			r.Post("/join", sessions.Join)
			r.Get("/{id}/status", sessions.Status)
			r.Post("/{id}/start", sessions.Start)
			r.Get("/{id}/stream", stream.ServeWS)
		})
	})
	return r
}
