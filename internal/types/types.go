package types

import "github.com/DoyleJ11/wheel-spinner/internal/engine"

// Client -> server message types.
const (
	MsgSync  = "Sync"
	MsgDraw  = "Draw"
	MsgReset = "Reset"
)

// Server -> client message types.
const (
	MsgWheelSnapshot   = "WheelSnapshot"
	MsgWinnerAnnounced = "WinnerAnnounced"
	MsgError           = "Error"
)

type ClientMessage struct {
	Type string `json:"type"`
}

type SpinInfo struct {
	FromDeg    float64 `json:"from_deg"`
	TargetDeg  float64 `json:"target_deg"`
	DurationMS int64   `json:"duration_ms"`
}

type ServerMessage struct {
	Type     string            `json:"type"`
	Version  int               `json:"version,omitempty"`
	Geometry *engine.Geometry  `json:"geometry,omitempty"`
	Spin     *SpinInfo         `json:"spin,omitempty"`
	Winner   *engine.WheelItem `json:"winner,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// WheelView is the REST rendering of a room's wheel.
type WheelView struct {
	RoomID   string            `json:"room_id"`
	Version  int               `json:"version"`
	Geometry engine.Geometry   `json:"geometry"`
	Spin     *SpinInfo         `json:"spin,omitempty"`
	Winner   *engine.WheelItem `json:"winner,omitempty"`
}

// SpinOf describes the in-flight spin, or nil when the wheel is at rest.
func SpinOf(rot engine.RotationState) *SpinInfo {
	if rot.Phase != engine.PhaseSpinning {
		return nil
	}
	return &SpinInfo{
		FromDeg:    rot.CurrentDeg,
		TargetDeg:  rot.TargetDeg,
		DurationMS: rot.Duration.Milliseconds(),
	}
}
