package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/wheel-spinner/internal/engine"
	"github.com/DoyleJ11/wheel-spinner/internal/roomclient"
	"github.com/DoyleJ11/wheel-spinner/internal/spinner"
	"github.com/DoyleJ11/wheel-spinner/pkg/types"
)

var ErrDrawFinalized = errors.New("draw already completed")

// RoomService is the authority for participants and winners.
type RoomService interface {
	GetRoom(ctx context.Context, roomID string) (types.Room, error)
	Draw(ctx context.Context, roomID string) (types.Participant, error)
	ResetDraw(ctx context.Context, roomID string) error
}

// Celebrator runs side effects once a winner is committed.
type Celebrator interface {
	Celebrate(ctx context.Context, roomID string, winner engine.WheelItem)
}

type CelebratorFunc func(ctx context.Context, roomID string, winner engine.WheelItem)

func (f CelebratorFunc) Celebrate(ctx context.Context, roomID string, winner engine.WheelItem) {
	f(ctx, roomID, winner)
}

// Options tune the spin. A negative SpinCount means engine.DefaultSpinCount;
// zero lands on the winner without full turns.
type Options struct {
	SpinCount    int
	SpinDuration time.Duration
	Scheduler    spinner.Scheduler
	Logger       *zap.Logger
	Celebrators  []Celebrator
}

// Orchestrator drives one room's wheel: it pulls participants and winners
// from the Room Service, feeds them to the controller, and commits the
// winner once the wheel settles.
type Orchestrator struct {
	roomID string
	rooms  RoomService
	wheel  *spinner.Controller
	opts   Options
	log    *zap.Logger
	ctx    context.Context

	mu           sync.Mutex
	participants []engine.WheelItem
	winner       *engine.WheelItem
	restoring    string // winner id being shown without celebration
}

func New(ctx context.Context, roomID string, rooms RoomService, opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.SpinDuration <= 0 {
		opts.SpinDuration = engine.DefaultDuration
	}
	if opts.SpinCount < 0 {
		opts.SpinCount = engine.DefaultSpinCount
	}

	o := &Orchestrator{
		roomID: roomID,
		rooms:  rooms,
		opts:   opts,
		log:    opts.Logger.With(zap.String("room", roomID)),
		ctx:    ctx,
	}
	o.wheel = spinner.NewController(ctx, nil, spinner.Options{
		Scheduler:  opts.Scheduler,
		Logger:     o.log,
		OnComplete: o.complete,
	})
	return o
}

func (o *Orchestrator) RoomID() string { return o.roomID }

// Wheel exposes the controller so viewers can subscribe to snapshots.
func (o *Orchestrator) Wheel() *spinner.Controller { return o.wheel }

// Sync reloads the room. A changed participant set resets the wheel. A draw
// the Room Service already finalized is shown with a snap to the winner.
func (o *Orchestrator) Sync(ctx context.Context) error {
	room, err := o.rooms.GetRoom(ctx, o.roomID)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	items := toItems(room.Participants)

	o.mu.Lock()
	changed := !slices.Equal(o.participants, items)
	if changed {
		o.participants = items
	}
	o.mu.Unlock()

	if changed {
		if err := o.wheel.SetItems(ctx, items); err != nil {
			return fmt.Errorf("sync: %w", err)
		}
		// after SetItems so a completion queued ahead of it cannot linger
		o.clearWinner()
		o.log.Info("participants changed", zap.Int("count", len(items)))
	}

	view, err := o.wheel.View(ctx)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	switch {
	case room.DrawCompleted && room.WinnerID != "" && view.Rotation.Phase == engine.PhaseIdle:
		return o.restore(ctx, room.WinnerID)
	case !room.DrawCompleted && view.Rotation.Phase != engine.PhaseIdle:
		// reset elsewhere, possibly mid-spin; follow it
		return o.resetWheel(ctx)
	}
	return nil
}

// Draw asks the Room Service for a winner and starts the spin toward it. The
// winner becomes visible through Winner only after the wheel settles.
func (o *Orchestrator) Draw(ctx context.Context) error {
	if err := o.Sync(ctx); err != nil {
		return err
	}
	// a spin in flight means the room is finalized; the 409 says so
	winner, err := o.rooms.Draw(ctx, o.roomID)
	if errors.Is(err, roomclient.ErrConflict) {
		return fmt.Errorf("%w: %w", ErrDrawFinalized, err)
	}
	if err != nil {
		return fmt.Errorf("draw: %w", err)
	}

	req := engine.SpinRequest{
		TargetItemID: winner.ID,
		SpinCount:    o.opts.SpinCount,
		Duration:     o.opts.SpinDuration,
	}
	if err := o.wheel.SpinTo(ctx, req); err != nil {
		return fmt.Errorf("spin to %s: %w", winner.ID, err)
	}
	o.log.Info("draw spinning", zap.String("winner", winner.ID))
	return nil
}

// ResetDraw clears the draw upstream, then resets the wheel.
func (o *Orchestrator) ResetDraw(ctx context.Context) error {
	if err := o.rooms.ResetDraw(ctx, o.roomID); err != nil {
		return fmt.Errorf("reset draw: %w", err)
	}
	return o.resetWheel(ctx)
}

// resetWheel resets the controller, then forgets the winner. A completion
// queued ahead of the reset runs before Reset replies, so the clear is last.
func (o *Orchestrator) resetWheel(ctx context.Context) error {
	if err := o.wheel.Reset(ctx); err != nil {
		return err
	}
	o.clearWinner()
	return nil
}

// Winner is the committed winner, set once the wheel has settled on it.
func (o *Orchestrator) Winner() (engine.WheelItem, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.winner == nil {
		return engine.WheelItem{}, false
	}
	return *o.winner, true
}

func (o *Orchestrator) Geometry(ctx context.Context, now time.Time) (engine.Geometry, error) {
	view, err := o.wheel.View(ctx)
	if err != nil {
		return engine.Geometry{}, err
	}
	return engine.Render(view.Items, view.Rotation, view.Selection, now), nil
}

func (o *Orchestrator) Close() { o.wheel.Close() }

func (o *Orchestrator) restore(ctx context.Context, winnerID string) error {
	o.mu.Lock()
	o.restoring = winnerID
	o.mu.Unlock()

	req := engine.SpinRequest{TargetItemID: winnerID, SpinCount: 0, Duration: time.Millisecond}
	if err := o.wheel.SpinTo(ctx, req); err != nil {
		o.mu.Lock()
		o.restoring = ""
		o.mu.Unlock()
		return fmt.Errorf("restore winner %s: %w", winnerID, err)
	}
	return nil
}

func (o *Orchestrator) clearWinner() {
	o.mu.Lock()
	o.winner = nil
	o.restoring = ""
	o.mu.Unlock()
}

// complete runs on the controller goroutine.
func (o *Orchestrator) complete(c spinner.Completion) {
	o.mu.Lock()
	w := c.Item
	o.winner = &w
	restored := o.restoring == w.ID
	o.restoring = ""
	o.mu.Unlock()

	o.log.Info("winner committed", zap.String("winner", w.ID), zap.Bool("restored", restored))
	if restored {
		return
	}
	for _, cb := range o.opts.Celebrators {
		go cb.Celebrate(o.ctx, o.roomID, w)
	}
}

// UserMessage turns an orchestration error into text fit for the person at
// the wheel.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrDrawFinalized):
		return "A winner has already been drawn. Reset the draw to spin again."
	case errors.Is(err, roomclient.ErrNoParticipants), errors.Is(err, engine.ErrNoItems):
		return "Add participants before drawing."
	case errors.Is(err, roomclient.ErrRoomNotFound):
		return "This room does not exist."
	case errors.Is(err, engine.ErrInvalidState):
		return "The wheel is already spinning."
	case errors.Is(err, engine.ErrInvalidTarget):
		return "Participants changed during the draw. Reset and try again."
	default:
		return "Something went wrong. Please try again."
	}
}

func toItems(ps []types.Participant) []engine.WheelItem {
	items := make([]engine.WheelItem, 0, len(ps))
	for _, p := range ps {
		items = append(items, engine.WheelItem{ID: p.ID, Label: p.Label})
	}
	return items
}
