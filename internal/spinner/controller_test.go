package spinner_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/wheel-spinner/internal/engine"
	"github.com/DoyleJ11/wheel-spinner/internal/spinner"
	"github.com/DoyleJ11/wheel-spinner/internal/spinner/spinnertest"
)

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot(t *testing.T, ch <-chan spinner.Snapshot, within time.Duration) spinner.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return spinner.Snapshot{} // unreachable
	}
}

func recvNoCompletion(t *testing.T, ch <-chan spinner.Completion, within time.Duration) {
	t.Helper()
	select {
	case c := <-ch:
		t.Fatalf("expected no completion within %v, but got: %+v", within, c)
	case <-time.After(within):
		// good: nothing fired
	}
}

func abcd() []engine.WheelItem {
	return []engine.WheelItem{
		{ID: "A", Label: "Alice"},
		{ID: "B", Label: "Bob"},
		{ID: "C", Label: "Cara"},
		{ID: "D", Label: "Dan"},
	}
}

type fixture struct {
	ctx   context.Context
	c     *spinner.Controller
	sched *spinnertest.ManualScheduler
	done  chan spinner.Completion
}

func newFixture(t *testing.T, items []engine.WheelItem) fixture {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	sched := spinnertest.NewManualScheduler()
	done := make(chan spinner.Completion, 8)
	c := spinner.NewController(ctx, items, spinner.Options{
		Scheduler:  sched,
		OnComplete: func(comp spinner.Completion) { done <- comp },
	})
	t.Cleanup(c.Close)
	return fixture{ctx: ctx, c: c, sched: sched, done: done}
}

func (f fixture) view(t *testing.T) spinner.View {
	t.Helper()
	v, err := f.c.View(f.ctx)
	require.NoError(t, err)
	return v
}

func TestController_SpinSettlesOnTargetAndSignalsOnce(t *testing.T) {
	f := newFixture(t, abcd())

	out := make(chan spinner.Snapshot, 4)
	f.c.Inbox() <- spinner.Join{ClientID: "ch1", Outbox: out}
	first := recvSnapshot(t, out, 100*time.Millisecond)
	require.Equal(t, 0, first.Version)
	require.Equal(t, engine.PhaseIdle, first.Rotation.Phase)

	req := engine.NewSpinRequest("C")
	require.NoError(t, f.c.SpinTo(f.ctx, req))

	spinning := recvSnapshot(t, out, 100*time.Millisecond)
	assert.Equal(t, 1, spinning.Version)
	assert.Equal(t, engine.PhaseSpinning, spinning.Rotation.Phase)
	assert.InDelta(t, 6*360+135, spinning.Rotation.TargetDeg, 1e-9)
	assert.Empty(t, spinning.Selection.SelectedID)

	timer := f.sched.Last()
	require.NotNil(t, timer)
	assert.Equal(t, 4800*time.Millisecond, timer.After)
	require.True(t, timer.Fire())

	settled := recvSnapshot(t, out, 100*time.Millisecond)
	assert.Equal(t, 2, settled.Version)
	assert.Equal(t, engine.PhaseSettled, settled.Rotation.Phase)
	assert.Equal(t, "C", settled.Selection.SelectedID)
	assert.InDelta(t, 135, settled.Rotation.CurrentDeg, 1e-9)

	comp := <-f.done
	assert.Equal(t, "C", comp.Item.ID)

	// firing the same token again, even forcibly, must not settle twice
	assert.False(t, timer.Fire())
	timer.ForceFire()
	recvNoCompletion(t, f.done, 50*time.Millisecond)
	assert.Equal(t, 2, f.view(t).Version)
}

func TestController_UnknownTargetLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t, abcd())
	before := f.view(t)

	err := f.c.SpinTo(f.ctx, engine.NewSpinRequest("Z"))
	require.ErrorIs(t, err, engine.ErrInvalidTarget)

	after := f.view(t)
	assert.Equal(t, before.Snapshot, after.Snapshot)
	assert.False(t, after.Pending)
	assert.Empty(t, f.sched.Timers())
}

func TestController_EmptyWheelIsNoOp(t *testing.T) {
	f := newFixture(t, nil)

	err := f.c.SpinTo(f.ctx, engine.NewSpinRequest("A"))
	require.ErrorIs(t, err, engine.ErrNoItems)
	assert.Equal(t, engine.PhaseIdle, f.view(t).Rotation.Phase)
}

func TestController_InvalidRequestRejected(t *testing.T) {
	f := newFixture(t, abcd())

	err := f.c.SpinTo(f.ctx, engine.SpinRequest{TargetItemID: "A", SpinCount: -2, Duration: time.Second})
	require.ErrorIs(t, err, engine.ErrInvalidRequest)
	assert.Equal(t, 0, f.view(t).Version)
}

func TestController_SpinWhileSpinningRejected(t *testing.T) {
	f := newFixture(t, abcd())
	require.NoError(t, f.c.SpinTo(f.ctx, engine.NewSpinRequest("B")))
	target := f.view(t).Rotation.TargetDeg

	err := f.c.SpinTo(f.ctx, engine.NewSpinRequest("D"))
	require.ErrorIs(t, err, engine.ErrInvalidState)

	v := f.view(t)
	assert.Equal(t, engine.PhaseSpinning, v.Rotation.Phase)
	assert.Equal(t, target, v.Rotation.TargetDeg)
	assert.Len(t, f.sched.Timers(), 1)

	f.sched.FireAll()
	comp := <-f.done
	assert.Equal(t, "B", comp.Item.ID)
}

func TestController_ResetWhileSpinningCancelsCompletion(t *testing.T) {
	f := newFixture(t, abcd())
	require.NoError(t, f.c.SpinTo(f.ctx, engine.NewSpinRequest("C")))
	timer := f.sched.Last()

	require.NoError(t, f.c.Reset(f.ctx))

	// the timer was stopped; pretend it had already fired anyway
	assert.False(t, timer.Fire())
	timer.ForceFire()
	recvNoCompletion(t, f.done, 50*time.Millisecond)

	v := f.view(t)
	assert.Equal(t, engine.PhaseIdle, v.Rotation.Phase)
	assert.Equal(t, 0.0, v.Rotation.CurrentDeg)
	assert.Empty(t, v.Selection.SelectedID)
	assert.False(t, v.Pending)
}

func TestController_ResetIsIdempotent(t *testing.T) {
	f := newFixture(t, abcd())
	require.NoError(t, f.c.SpinTo(f.ctx, engine.NewSpinRequest("A")))
	f.sched.FireAll()
	<-f.done

	require.NoError(t, f.c.Reset(f.ctx))
	once := f.view(t)
	require.NoError(t, f.c.Reset(f.ctx))
	twice := f.view(t)

	assert.Equal(t, once.Snapshot, twice.Snapshot)
	assert.Equal(t, engine.RotationState{Phase: engine.PhaseIdle}, twice.Rotation)
	assert.Equal(t, engine.Selection{}, twice.Selection)
}

func TestController_SequentialSpinsChainForward(t *testing.T) {
	f := newFixture(t, abcd())

	for _, target := range []string{"C", "A", "A", "D", "B"} {
		before := f.view(t).Rotation.CurrentDeg
		require.NoError(t, f.c.SpinTo(f.ctx, engine.NewSpinRequest(target)))

		spinning := f.view(t).Rotation
		assert.GreaterOrEqual(t, spinning.TargetDeg-before, 6*360.0)
		assert.Equal(t, before, spinning.CurrentDeg)
		assert.Equal(t, engine.IndexOf(abcd(), target), engine.IndexUnderPointer(spinning.TargetDeg, 4))

		require.True(t, f.sched.Last().Fire())
		comp := <-f.done
		assert.Equal(t, target, comp.Item.ID)

		settled := f.view(t)
		assert.Equal(t, target, settled.Selection.SelectedID)
		assert.Less(t, settled.Rotation.CurrentDeg, 360.0)
		assert.InDelta(t, engine.Mod360(spinning.TargetDeg), settled.Rotation.CurrentDeg, 1e-9)
	}
}

func TestController_SnapWithZeroSpins(t *testing.T) {
	f := newFixture(t, abcd())
	req := engine.SpinRequest{TargetItemID: "A", SpinCount: 0, Duration: 10 * time.Millisecond}
	require.NoError(t, f.c.SpinTo(f.ctx, req))

	rot := f.view(t).Rotation
	assert.GreaterOrEqual(t, rot.TargetDeg, rot.CurrentDeg)
	assert.Less(t, rot.TargetDeg-rot.CurrentDeg, 360.0)
	f.sched.FireAll()
	assert.Equal(t, "A", (<-f.done).Item.ID)
}

func TestController_SetItemsResetsAndDropsPending(t *testing.T) {
	f := newFixture(t, abcd())
	require.NoError(t, f.c.SpinTo(f.ctx, engine.NewSpinRequest("C")))
	timer := f.sched.Last()

	require.NoError(t, f.c.SetItems(f.ctx, []engine.WheelItem{{ID: "X", Label: "Xena"}}))
	timer.ForceFire()
	recvNoCompletion(t, f.done, 50*time.Millisecond)

	v := f.view(t)
	assert.Equal(t, engine.PhaseIdle, v.Rotation.Phase)
	assert.Equal(t, []engine.WheelItem{{ID: "X", Label: "Xena"}}, v.Items)

	err := f.c.SpinTo(f.ctx, engine.NewSpinRequest("C"))
	assert.ErrorIs(t, err, engine.ErrInvalidTarget)
}

func TestController_DropSlowClient(t *testing.T) {
	f := newFixture(t, abcd())

	clientOut := make(chan spinner.Snapshot, 1)
	f.c.Inbox() <- spinner.Join{ClientID: "ch1", Outbox: clientOut}

	require.NoError(t, f.c.SpinTo(f.ctx, engine.NewSpinRequest("A")))

	assert.Equal(t, 0, f.view(t).NumClients)
}

func TestController_RealTimerFires(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan spinner.Completion, 2)
	c := spinner.NewController(ctx, abcd(), spinner.Options{
		OnComplete: func(comp spinner.Completion) { done <- comp },
	})
	defer c.Close()

	req := engine.SpinRequest{TargetItemID: "D", SpinCount: 2, Duration: 20 * time.Millisecond}
	require.NoError(t, c.SpinTo(ctx, req))

	select {
	case comp := <-done:
		assert.Equal(t, "D", comp.Item.ID)
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for completion")
	}
	recvNoCompletion(t, done, 60*time.Millisecond)
}

func TestController_CloseStopsTimer_NoFire(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan spinner.Completion, 1)
	c := spinner.NewController(ctx, abcd(), spinner.Options{
		OnComplete: func(comp spinner.Completion) { done <- comp },
	})

	req := engine.SpinRequest{TargetItemID: "B", SpinCount: 1, Duration: 40 * time.Millisecond}
	require.NoError(t, c.SpinTo(ctx, req))
	c.Close()

	recvNoCompletion(t, done, 120*time.Millisecond)
	assert.ErrorIs(t, c.Reset(ctx), spinner.ErrClosed)
}
