package spinner

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/wheel-spinner/internal/engine"
)

var ErrClosed = errors.New("spinner closed")

// Spinner is the handle the orchestration layer drives.
type Spinner interface {
	SpinTo(ctx context.Context, req engine.SpinRequest) error
	Reset(ctx context.Context) error
}

type Msg interface{ isSpinnerMsg() }

type spinTo struct {
	Req   engine.SpinRequest
	Reply chan error
}

func (spinTo) isSpinnerMsg() {}

type reset struct{ Reply chan error }

func (reset) isSpinnerMsg() {}

type setItems struct {
	Items []engine.WheelItem
	Reply chan error
}

func (setItems) isSpinnerMsg() {}

// timerFired is posted by the scheduler. Gen ties it to the spin that armed it.
type timerFired struct{ Gen uint64 }

func (timerFired) isSpinnerMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isSpinnerMsg() {}

type Leave struct{ ClientID string }

func (Leave) isSpinnerMsg() {}

type Shutdown struct{}

func (Shutdown) isSpinnerMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isSpinnerMsg() {}

type Snapshot struct {
	Version   int
	Items     []engine.WheelItem
	Rotation  engine.RotationState
	Selection engine.Selection
}

type View struct {
	Snapshot
	NumClients int
	Pending    bool // a completion is armed
}

// Completion is handed to OnComplete once per finished spin.
type Completion struct {
	Item     engine.WheelItem
	Rotation engine.RotationState
	Version  int
}

type Options struct {
	Scheduler Scheduler
	Logger    *zap.Logger
	Now       func() time.Time
	// OnComplete runs on the controller goroutine. It must not call back
	// into the controller synchronously.
	OnComplete func(Completion)
}

// Controller owns one wheel's rotation, phase, and in-flight spin. All state
// lives on a single goroutine; callers talk to it through the inbox.
type Controller struct {
	inbox   chan Msg
	items   []engine.WheelItem
	rot     engine.RotationState
	sel     engine.Selection
	version int
	clients map[string]chan Snapshot

	gen     uint64
	timer   Timer
	target  engine.WheelItem
	sched   Scheduler
	now     func() time.Time
	onDone  func(Completion)
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
}

var _ Spinner = (*Controller)(nil)

func NewController(parent context.Context, items []engine.WheelItem, opts Options) *Controller {
	ctx, cancel := context.WithCancel(parent)

	c := &Controller{
		inbox:   make(chan Msg, 64),
		items:   cloneItems(items),
		rot:     engine.RotationState{Phase: engine.PhaseIdle},
		clients: make(map[string]chan Snapshot),
		sched:   opts.Scheduler,
		now:     opts.Now,
		onDone:  opts.OnComplete,
		log:     opts.Logger,
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
	if c.sched == nil {
		c.sched = RealScheduler()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}

	go c.loop()
	return c
}

// Inbox exposes the raw message channel for the websocket layer and tests.
func (c *Controller) Inbox() chan<- Msg { return c.inbox }

// SpinTo arms a spin toward req.TargetItemID and returns without waiting for
// it to finish. It fails with engine.ErrInvalidState while a spin is in
// flight, engine.ErrNoItems / engine.ErrInvalidTarget when the target cannot
// be placed, and engine.ErrInvalidRequest for bad parameters. A failed call
// leaves the wheel untouched.
func (c *Controller) SpinTo(ctx context.Context, req engine.SpinRequest) error {
	reply := make(chan error, 1)
	if err := c.send(ctx, spinTo{Req: req, Reply: reply}); err != nil {
		return err
	}
	return c.await(ctx, reply)
}

// Reset cancels any pending completion and returns the wheel to idle at 0.
func (c *Controller) Reset(ctx context.Context) error {
	reply := make(chan error, 1)
	if err := c.send(ctx, reset{Reply: reply}); err != nil {
		return err
	}
	return c.await(ctx, reply)
}

// SetItems replaces the participant list. The wheel is reset because slice
// positions no longer match the previous rotation.
func (c *Controller) SetItems(ctx context.Context, items []engine.WheelItem) error {
	reply := make(chan error, 1)
	if err := c.send(ctx, setItems{Items: cloneItems(items), Reply: reply}); err != nil {
		return err
	}
	return c.await(ctx, reply)
}

func (c *Controller) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := c.send(ctx, GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-c.stopped:
		return View{}, ErrClosed
	}
}

// Close stops the loop. A pending completion never fires afterwards.
func (c *Controller) Close() {
	c.cancel()
	<-c.stopped
}

func (c *Controller) send(ctx context.Context, m Msg) error {
	select {
	case c.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopped:
		return ErrClosed
	}
}

func (c *Controller) await(ctx context.Context, reply <-chan error) error {
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopped:
		return ErrClosed
	}
}

// post is used from timer goroutines; it gives up once the loop is gone.
func (c *Controller) post(m Msg) {
	select {
	case c.inbox <- m:
	case <-c.stopped:
	}
}

func (c *Controller) loop() {
	defer close(c.stopped)
	for {
		select {
		case <-c.ctx.Done():
			c.shutdown()
			return

		case m := <-c.inbox:
			switch msg := m.(type) {
			case spinTo:
				msg.Reply <- c.startSpin(msg.Req)

			case timerFired:
				c.settle(msg.Gen)

			case reset:
				c.reset()
				msg.Reply <- nil

			case setItems:
				c.items = msg.Items
				c.disarm()
				c.rot = engine.RotationState{Phase: engine.PhaseIdle}
				c.sel = engine.Selection{}
				c.bump()
				msg.Reply <- nil

			case Join:
				// Register client + send current snapshot immediately
				c.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- c.snapshot()

			case Leave:
				if ch, ok := c.clients[msg.ClientID]; ok {
					close(ch)
					delete(c.clients, msg.ClientID)
				}

			case GetState:
				msg.Reply <- View{
					Snapshot:   c.snapshot(),
					NumClients: len(c.clients),
					Pending:    c.timer != nil,
				}

			case Shutdown:
				c.shutdown()
				return
			}
		}
	}
}

func (c *Controller) startSpin(req engine.SpinRequest) error {
	if !engine.CanTransition(c.rot.Phase, engine.PhaseSpinning) {
		c.log.Debug("spin rejected", zap.String("phase", string(c.rot.Phase)), zap.String("target", req.TargetItemID))
		return engine.ErrInvalidState
	}
	if err := req.Validate(); err != nil {
		return err
	}
	delta, err := engine.TargetDelta(c.items, req.TargetItemID, c.rot.CurrentDeg, req.SpinCount)
	if err != nil {
		c.log.Warn("spin target rejected", zap.String("target", req.TargetItemID), zap.Error(err))
		return err
	}

	c.disarm()
	c.target = c.items[engine.IndexOf(c.items, req.TargetItemID)]
	c.rot = engine.RotationState{
		CurrentDeg: c.rot.CurrentDeg,
		TargetDeg:  c.rot.CurrentDeg + delta,
		Phase:      engine.PhaseSpinning,
		StartedAt:  c.now(),
		Duration:   req.Duration,
	}
	c.sel = engine.Selection{}

	gen := c.gen
	c.timer = c.sched.AfterFunc(req.Duration, func() { c.post(timerFired{Gen: gen}) })

	c.log.Info("spin started",
		zap.String("target", req.TargetItemID),
		zap.Int("spin_count", req.SpinCount),
		zap.Float64("delta_deg", delta),
		zap.Duration("duration", req.Duration),
	)
	c.bump()
	return nil
}

func (c *Controller) settle(gen uint64) {
	if gen != c.gen || c.rot.Phase != engine.PhaseSpinning {
		c.log.Debug("stale completion dropped", zap.Uint64("gen", gen), zap.Uint64("live", c.gen))
		return
	}
	// One-shot: nothing armed under this generation can settle again.
	c.gen++
	c.timer = nil

	final := engine.Canonicalize(c.rot.TargetDeg)
	c.rot = engine.RotationState{
		CurrentDeg: final,
		TargetDeg:  final,
		Phase:      engine.PhaseSettled,
	}
	c.sel = engine.Selection{SelectedID: c.target.ID}
	c.bump()

	c.log.Info("spin settled", zap.String("winner", c.target.ID), zap.Float64("rotation_deg", final))
	if c.onDone != nil {
		c.onDone(Completion{Item: c.target, Rotation: c.rot, Version: c.version})
	}
}

func (c *Controller) reset() {
	idle := c.rot.Phase == engine.PhaseIdle && c.rot.CurrentDeg == 0 && c.sel.SelectedID == "" && c.timer == nil
	c.disarm()
	if idle {
		return
	}
	c.rot = engine.RotationState{Phase: engine.PhaseIdle}
	c.sel = engine.Selection{}
	c.bump()
}

// disarm invalidates the pending completion, if any. Bumping gen also covers
// a timer that already fired and whose message is still queued.
func (c *Controller) disarm() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
}

func (c *Controller) bump() {
	c.version++
	c.broadcast(c.snapshot())
}

func (c *Controller) snapshot() Snapshot {
	return Snapshot{
		Version:   c.version,
		Items:     cloneItems(c.items),
		Rotation:  c.rot,
		Selection: c.sel,
	}
}

func (c *Controller) shutdown() {
	c.disarm()
	for id, ch := range c.clients {
		close(ch) // Tell client no more snapshots
		delete(c.clients, id)
	}
	c.cancel()
}

func (c *Controller) broadcast(snap Snapshot) {
	for id, ch := range c.clients {
		select {
		case ch <- snap:
			//ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(c.clients, id)
		}
	}
}

func cloneItems(items []engine.WheelItem) []engine.WheelItem {
	if items == nil {
		return nil
	}
	return append([]engine.WheelItem(nil), items...)
}
