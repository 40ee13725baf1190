package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/wheel-spinner/internal/engine"
	"github.com/DoyleJ11/wheel-spinner/internal/hub"
	"github.com/DoyleJ11/wheel-spinner/internal/orchestrator"
	"github.com/DoyleJ11/wheel-spinner/internal/roomclient"
	"github.com/DoyleJ11/wheel-spinner/internal/types"
	wire "github.com/DoyleJ11/wheel-spinner/pkg/types"
)

type Handler struct {
	hub    *hub.Hub
	logger *zap.Logger
	now    func() time.Time
}

func NewHandler(h *hub.Hub, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{hub: h, logger: logger, now: time.Now}
}

// GetWheel syncs the room and returns the wheel as it looks right now.
func (h *Handler) GetWheel(w http.ResponseWriter, r *http.Request) {
	o, ok := h.room(w, r)
	if !ok {
		return
	}
	if err := o.Sync(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	view, err := o.Wheel().View(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := types.WheelView{
		RoomID:   o.RoomID(),
		Version:  view.Version,
		Geometry: engine.Render(view.Items, view.Rotation, view.Selection, h.now()),
		Spin:     types.SpinOf(view.Rotation),
	}
	if winner, ok := o.Winner(); ok {
		out.Winner = &winner
	}
	writeJSON(w, http.StatusOK, out)
}

// Draw starts a spin toward the Room Service's winner. The response does
// not name the winner; it is revealed when the wheel settles.
func (h *Handler) Draw(w http.ResponseWriter, r *http.Request) {
	o, ok := h.room(w, r)
	if !ok {
		return
	}
	if err := o.Draw(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, struct {
		Status string `json:"status"`
	}{Status: string(engine.PhaseSpinning)})
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	o, ok := h.room(w, r)
	if !ok {
		return
	}
	if err := o.ResetDraw(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) room(w http.ResponseWriter, r *http.Request) (*orchestrator.Orchestrator, bool) {
	o := h.hub.Ensure(r.Context(), chi.URLParam(r, "roomID"))
	if o == nil {
		writeJSON(w, http.StatusServiceUnavailable, wire.ErrorResponse{Error: "unavailable", Message: "shutting down"})
		return nil, false
	}
	return o, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	msg := orchestrator.UserMessage(err)
	switch {
	case errors.Is(err, roomclient.ErrRoomNotFound):
		h.hub.Inbox() <- hub.RemoveRoom{RoomID: chi.URLParam(r, "roomID")}
		writeJSON(w, http.StatusNotFound, wire.ErrorResponse{Error: "not_found", Message: msg})
	case errors.Is(err, orchestrator.ErrDrawFinalized), errors.Is(err, engine.ErrInvalidState),
		errors.Is(err, engine.ErrInvalidTarget):
		writeJSON(w, http.StatusConflict, wire.ErrorResponse{Error: "conflict", Message: msg})
	case errors.Is(err, roomclient.ErrNoParticipants), errors.Is(err, engine.ErrNoItems):
		writeJSON(w, http.StatusUnprocessableEntity, wire.ErrorResponse{Error: "no_participants", Message: msg})
	default:
		h.logger.Error("internal error",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("room", chi.URLParam(r, "roomID")),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, wire.ErrorResponse{Error: "internal", Message: msg})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
