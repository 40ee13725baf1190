package roomsvc

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/wheel-spinner/internal/logging"
	"github.com/DoyleJ11/wheel-spinner/pkg/types"
)

type Handler struct {
	svc    *Service
	logger *zap.Logger
}

func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logging.RequestLogger(h.logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/rooms", func(r chi.Router) {
		r.Post("/", h.CreateRoom)
		r.Route("/{roomID}", func(r chi.Router) {
			r.Get("/", h.GetRoom)
			r.Post("/draw", h.Draw)
			r.Post("/reset_draw", h.ResetDraw)
			r.Post("/participants", h.AddParticipant)
			r.Delete("/participants/{participantID}", h.RemoveParticipant)
		})
	})
	return r
}

func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req types.CreateRoomRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: "bad_request", Message: "invalid JSON body"})
			return
		}
	}
	room, err := h.svc.CreateRoom(r.Context(), req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWire(room))
}

func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.svc.GetRoom(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWire(room))
}

func (h *Handler) Draw(w http.ResponseWriter, r *http.Request) {
	winner, err := h.svc.Draw(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.DrawResponse{
		Winner: types.Participant{ID: winner.ID, Label: winner.Label},
	})
}

func (h *Handler) ResetDraw(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ResetDraw(r.Context(), chi.URLParam(r, "roomID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	var req types.AddParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: "bad_request", Message: "invalid JSON body"})
		return
	}
	p, err := h.svc.AddParticipant(r.Context(), chi.URLParam(r, "roomID"), req.Label)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.Participant{ID: p.ID, Label: p.Label})
}

func (h *Handler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	err := h.svc.RemoveParticipant(r.Context(), chi.URLParam(r, "roomID"), chi.URLParam(r, "participantID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrParticipantNotFound):
		writeJSON(w, http.StatusNotFound, types.ErrorResponse{Error: "not_found", Message: err.Error()})
	case errors.Is(err, ErrDrawFinalized):
		writeJSON(w, http.StatusConflict, types.ErrorResponse{Error: "conflict", Message: err.Error()})
	case errors.Is(err, ErrNoParticipants):
		writeJSON(w, http.StatusUnprocessableEntity, types.ErrorResponse{Error: "no_participants", Message: err.Error()})
	case errors.Is(err, ErrInvalidLabel):
		writeJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: "bad_request", Message: err.Error()})
	default:
		h.logger.Error("internal error",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, types.ErrorResponse{Error: "internal", Message: "internal error"})
	}
}

func toWire(r Room) types.Room {
	out := types.Room{
		ID:            r.ID,
		Name:          r.Name,
		Participants:  make([]types.Participant, 0, len(r.Participants)),
		DrawCompleted: r.DrawCompleted,
		WinnerID:      r.WinnerID,
	}
	for _, p := range r.Participants {
		out.Participants = append(out.Participants, types.Participant{ID: p.ID, Label: p.Label})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
