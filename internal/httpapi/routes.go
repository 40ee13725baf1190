package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/wheel-spinner/internal/hub"
	"github.com/DoyleJ11/wheel-spinner/internal/logging"
	"github.com/DoyleJ11/wheel-spinner/internal/ws"
)

func SetupRoutes(h *hub.Hub, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	api := NewHandler(h, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, logger))

	r.Group(func(r chi.Router) {
		r.Use(logging.RequestLogger(logger))
		r.Route("/wheels/{roomID}", func(r chi.Router) {
			r.Get("/", api.GetWheel)
			r.Post("/draw", api.Draw)
			r.Post("/reset", api.Reset)
		})
	})
	return r
}
