package engine

import (
	"fmt"
	"math"
	"time"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// DefaultRadius is the wheel radius in SVG user units. The view box is
// 2*radius square with the hub at (radius, radius).
const DefaultRadius = 200.0

// labels sit at this fraction of the radius
const labelRadiusRatio = 0.62

type Slice struct {
	Index         int     `json:"index"`
	ID            string  `json:"id"`
	Label         string  `json:"label"`
	StartDeg      float64 `json:"start_deg"`
	EndDeg        float64 `json:"end_deg"`
	MidDeg        float64 `json:"mid_deg"`
	Path          string  `json:"path"`
	Color         string  `json:"color"`
	LabelX        float64 `json:"label_x"`
	LabelY        float64 `json:"label_y"`
	LabelRotation float64 `json:"label_rotation"`
	Selected      bool    `json:"selected"`
}

type Pointer struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	AngleDeg float64 `json:"angle_deg"`
}

// Geometry is everything a client needs to draw the wheel at one instant.
type Geometry struct {
	Radius      float64 `json:"radius"`
	RotationDeg float64 `json:"rotation_deg"`
	Transform   string  `json:"transform"`
	Slices      []Slice `json:"slices"`
	Pointer     Pointer `json:"pointer"`
	Phase       Phase   `json:"phase"`
	SelectedID  string  `json:"selected_id,omitempty"`
	Status      string  `json:"status"`
}

// Render projects items and controller state onto drawable geometry. It
// reads its inputs only.
func Render(items []WheelItem, rot RotationState, sel Selection, now time.Time) Geometry {
	r := DefaultRadius
	angle := rot.Angle(now)
	g := Geometry{
		Radius:      r,
		RotationDeg: angle,
		Transform:   fmt.Sprintf("rotate(%.3f %.0f %.0f)", angle, r, r),
		Slices:      make([]Slice, 0, len(items)),
		Pointer:     Pointer{X: r, Y: 0, AngleDeg: PointerSVGDeg},
		Phase:       phaseOrIdle(rot.Phase),
		SelectedID:  sel.SelectedID,
		Status:      Status(items, rot.Phase, sel),
	}

	n := len(items)
	w := SliceWidth(n)
	for i, it := range items {
		start := float64(i) * w
		end := start + w
		mid := start + w/2
		lx, ly := polar(r, r*labelRadiusRatio, mid)
		g.Slices = append(g.Slices, Slice{
			Index:         i,
			ID:            it.ID,
			Label:         it.Label,
			StartDeg:      start,
			EndDeg:        end,
			MidDeg:        mid,
			Path:          sectorPath(r, start, end, n),
			Color:         SliceColor(i, n),
			LabelX:        lx,
			LabelY:        ly,
			LabelRotation: uprightRotation(mid),
			Selected:      sel.SelectedID != "" && sel.SelectedID == it.ID,
		})
	}
	return g
}

// Status is the human readable line shown under the wheel.
func Status(items []WheelItem, phase Phase, sel Selection) string {
	switch phase {
	case PhaseSpinning:
		return "Spinning…"
	case PhaseSettled:
		if i := IndexOf(items, sel.SelectedID); i >= 0 {
			return "Winner: " + items[i].Label
		}
		return "Winner: " + sel.SelectedID
	}
	if len(items) == 0 {
		return "No participants"
	}
	return "Waiting for draw"
}

// SliceColor derives a stable color from the slice index and count. Hues are
// spread evenly round the wheel with a small index hash so neighbours on
// small wheels still differ; saturation alternates.
func SliceColor(i, n int) string {
	if n <= 0 {
		return "#cccccc"
	}
	hue := Mod360(SliceMidDeg(i, n) + float64((i*7919)%31))
	sat := 0.70
	if i%2 == 1 {
		sat = 0.58
	}
	return colorful.Hsl(hue, sat, 0.55).Hex()
}

func sectorPath(r, startDeg, endDeg float64, n int) string {
	if n == 1 {
		// a single arc cannot start and end on the same point
		return fmt.Sprintf("M %.2f %.2f A %.2f %.2f 0 1 1 %.2f %.2f A %.2f %.2f 0 1 1 %.2f %.2f Z",
			r, 0.0, r, r, r, 2*r, r, r, r, 0.0)
	}
	x0, y0 := polar(r, r, startDeg)
	x1, y1 := polar(r, r, endDeg)
	large := 0
	if endDeg-startDeg > 180 {
		large = 1
	}
	return fmt.Sprintf("M %.2f %.2f L %.2f %.2f A %.2f %.2f 0 %d 1 %.2f %.2f Z",
		r, r, x0, y0, r, r, large, x1, y1)
}

// polar returns the SVG point at distance dist from the hub for a wheel angle.
func polar(hub, dist, wheelDeg float64) (float64, float64) {
	rad := (wheelDeg + PointerSVGDeg) * math.Pi / 180
	return hub + dist*math.Cos(rad), hub + dist*math.Sin(rad)
}

// uprightRotation turns a label along its slice radius, flipping the left
// half of the wheel so text never reads upside down at rest.
func uprightRotation(wheelDeg float64) float64 {
	svg := Mod360(wheelDeg + PointerSVGDeg)
	if svg > 90 && svg < 270 {
		return Mod360(svg + 180)
	}
	return svg
}

func phaseOrIdle(p Phase) Phase {
	if p == "" {
		return PhaseIdle
	}
	return p
}
