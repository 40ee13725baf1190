package engine

import (
	"errors"
	"time"
)

var ErrInvalidTarget = errors.New("target item not on wheel")
var ErrInvalidState = errors.New("operation not allowed in current phase")
var ErrNoItems = errors.New("wheel has no items")
var ErrInvalidRequest = errors.New("invalid spin request")

const (
	DefaultSpinCount = 6
	DefaultDuration  = 4800 * time.Millisecond
)

type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseSpinning Phase = "spinning"
	PhaseSettled  Phase = "settled"
)

type WheelItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// RotationState is the wheel's orientation. CurrentDeg is unbounded and only
// moves at settle (to the canonical target) or on reset (to 0). While
// spinning, the visible angle is Angle(now).
type RotationState struct {
	CurrentDeg float64       `json:"current_deg"`
	TargetDeg  float64       `json:"target_deg"`
	Phase      Phase         `json:"phase"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
}

type Selection struct {
	SelectedID string `json:"selected_id,omitempty"`
}

type SpinRequest struct {
	TargetItemID string
	SpinCount    int
	Duration     time.Duration
}

// NewSpinRequest returns a request for targetID with the default spin count
// and duration.
func NewSpinRequest(targetID string) SpinRequest {
	return SpinRequest{
		TargetItemID: targetID,
		SpinCount:    DefaultSpinCount,
		Duration:     DefaultDuration,
	}
}

func (r SpinRequest) Validate() error {
	if r.SpinCount < 0 || r.Duration <= 0 {
		return ErrInvalidRequest
	}
	return nil
}

// CanTransition reports whether the controller may move from one phase to
// another. Spinning can only be left by completion or reset.
func CanTransition(from, to Phase) bool {
	switch {
	case to == PhaseIdle:
		return true
	case to == PhaseSpinning:
		return from == PhaseIdle || from == PhaseSettled
	case to == PhaseSettled:
		return from == PhaseSpinning
	default:
		return false
	}
}

func IndexOf(items []WheelItem, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
