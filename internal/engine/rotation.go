package engine

import (
	"math"
	"time"
)

// PointerDeg is where the pointer sits in wheel degrees: slice 0 starts
// directly under it when the wheel is at rest at 0.
const PointerDeg = 0.0

// PointerSVGDeg is the SVG angle (clockwise from 3 o'clock) the renderer
// uses for wheel angle 0. -90 puts the pointer at 12 o'clock.
const PointerSVGDeg = -90.0

const fullTurn = 360.0

// angles closer than this to a full turn are treated as zero residual
const epsilon = 1e-9

func Mod360(deg float64) float64 {
	m := math.Mod(deg, fullTurn)
	if m < 0 {
		m += fullTurn
	}
	if fullTurn-m < epsilon {
		return 0
	}
	return m
}

// Canonicalize maps an unbounded rotation to the equivalent angle in [0,360).
func Canonicalize(deg float64) float64 { return Mod360(deg) }

func SliceWidth(n int) float64 {
	if n <= 0 {
		return 0
	}
	return fullTurn / float64(n)
}

func SliceMidDeg(i, n int) float64 {
	return (float64(i) + 0.5) * SliceWidth(n)
}

// ForwardDelta returns how far the wheel must turn clockwise from current so
// that winnerMid ends under the pointer, after spinCount full turns. The
// result is always >= spinCount*360 and never negative.
func ForwardDelta(current, winnerMid float64, spinCount int) float64 {
	if spinCount < 0 {
		spinCount = 0
	}
	residual := Mod360(PointerDeg - winnerMid - Mod360(current))
	return float64(spinCount)*fullTurn + residual
}

// TargetDelta resolves targetID against items and computes the forward delta
// from currentDeg.
func TargetDelta(items []WheelItem, targetID string, currentDeg float64, spinCount int) (float64, error) {
	if len(items) == 0 {
		return 0, ErrNoItems
	}
	idx := IndexOf(items, targetID)
	if idx < 0 {
		return 0, ErrInvalidTarget
	}
	return ForwardDelta(currentDeg, SliceMidDeg(idx, len(items)), spinCount), nil
}

// IndexUnderPointer returns the slice index the pointer rests on for the
// given rotation, or -1 for an empty wheel.
func IndexUnderPointer(rotationDeg float64, n int) int {
	if n <= 0 {
		return -1
	}
	a := Mod360(PointerDeg - rotationDeg)
	idx := int(a / SliceWidth(n))
	if idx >= n {
		idx = n - 1
	}
	return idx
}

// Angle is the visible rotation at now. It eases out from CurrentDeg to
// TargetDeg over Duration and holds CurrentDeg outside a spin.
func (r RotationState) Angle(now time.Time) float64 {
	if r.Phase != PhaseSpinning || r.Duration <= 0 {
		return r.CurrentDeg
	}
	t := float64(now.Sub(r.StartedAt)) / float64(r.Duration)
	switch {
	case t <= 0:
		return r.CurrentDeg
	case t >= 1:
		return r.TargetDeg
	}
	return r.CurrentDeg + (r.TargetDeg-r.CurrentDeg)*easeOutCubic(t)
}

func easeOutCubic(t float64) float64 {
	u := 1 - t
	return 1 - u*u*u
}
