package ws

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/DoyleJ11/wheel-spinner/internal/engine"
	"github.com/DoyleJ11/wheel-spinner/internal/hub"
	"github.com/DoyleJ11/wheel-spinner/internal/orchestrator"
	"github.com/DoyleJ11/wheel-spinner/internal/roomclient"
	"github.com/DoyleJ11/wheel-spinner/internal/spinner"
	"github.com/DoyleJ11/wheel-spinner/internal/types"
)

const (
	writeTimeout = 3 * time.Second
	readTimeout  = 60 * time.Second
)

// Handler streams a room's wheel to the client and accepts Sync, Draw and
// Reset commands from it.
func Handler(h *hub.Hub, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := r.URL.Query().Get("room")
		if roomID == "" {
			http.Error(w, "missing room", http.StatusBadRequest)
			return
		}

		o := h.Ensure(r.Context(), roomID)
		if o == nil {
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
			return
		}
		if err := o.Sync(r.Context()); err != nil {
			if errors.Is(err, roomclient.ErrRoomNotFound) {
				h.Inbox() <- hub.RemoveRoom{RoomID: roomID}
				http.Error(w, "room not found", http.StatusNotFound)
				return
			}
			logger.Warn("initial sync failed", zap.String("room", roomID), zap.Error(err))
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := randID(6)
		log := logger.With(zap.String("room", roomID), zap.String("client", clientID))
		log.Debug("viewer joined")

		out := make(chan spinner.Snapshot, 8)
		o.Wheel().Inbox() <- spinner.Join{ClientID: clientID, Outbox: out}
		defer func() {
			select {
			case o.Wheel().Inbox() <- spinner.Leave{ClientID: clientID}:
			case <-time.After(time.Second):
			}
		}()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				for _, msg := range snapshotMessages(snap, time.Now()) {
					ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
					err := wsjson.Write(ctx, conn, msg)
					cancel()
					if err != nil {
						log.Debug("write failed", zap.Error(err))
						return
					}
				}
			}
			// Out closed: the wheel dropped us or shut down.
			conn.Close(websocket.StatusTryAgainLater, "wheel closed")
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			var cm types.ClientMessage
			err := wsjson.Read(ctx, conn, &cm)
			cancel()
			if err != nil {
				var syntax *json.SyntaxError
				var typeErr *json.UnmarshalTypeError
				if errors.As(err, &syntax) || errors.As(err, &typeErr) {
					writeError(r.Context(), conn, "bad json")
					continue
				}
				// Close, timeout, or the writer hung up; Leave runs in the defer.
				return
			}

			err = dispatch(r.Context(), o, cm)
			switch {
			case err == nil:
			case errors.Is(err, errUnknownType):
				writeError(r.Context(), conn, "unknown type")
			default:
				log.Info("command failed", zap.String("type", cm.Type), zap.Error(err))
				writeError(r.Context(), conn, orchestrator.UserMessage(err))
			}
		}
	}
}

var errUnknownType = errors.New("unknown message type")

func dispatch(ctx context.Context, o *orchestrator.Orchestrator, cm types.ClientMessage) error {
	switch cm.Type {
	case types.MsgSync:
		return o.Sync(ctx)
	case types.MsgDraw:
		return o.Draw(ctx)
	case types.MsgReset:
		return o.ResetDraw(ctx)
	default:
		return errUnknownType
	}
}

// snapshotMessages renders one snapshot. A settled wheel is followed by the
// winner announcement.
func snapshotMessages(snap spinner.Snapshot, now time.Time) []types.ServerMessage {
	geo := engine.Render(snap.Items, snap.Rotation, snap.Selection, now)
	msgs := []types.ServerMessage{{
		Type:     types.MsgWheelSnapshot,
		Version:  snap.Version,
		Geometry: &geo,
		Spin:     types.SpinOf(snap.Rotation),
	}}
	if snap.Rotation.Phase != engine.PhaseSettled {
		return msgs
	}
	if i := engine.IndexOf(snap.Items, snap.Selection.SelectedID); i >= 0 {
		w := snap.Items[i]
		msgs = append(msgs, types.ServerMessage{
			Type:    types.MsgWinnerAnnounced,
			Version: snap.Version,
			Winner:  &w,
		})
	}
	return msgs
}

func writeError(ctx context.Context, conn *websocket.Conn, msg string) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = wsjson.Write(ctx, conn, types.ServerMessage{Type: types.MsgError, Error: msg})
}

func randID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
