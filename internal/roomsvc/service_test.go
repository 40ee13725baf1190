package roomsvc

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedRNG struct{ val int }

func (r fixedRNG) Intn(n int) int { return r.val % n }

func newTestService(t *testing.T, rng RNG, labels ...string) (*Service, Room) {
	t.Helper()
	ctx := context.Background()
	svc := NewService(NewMemoryStore(), rng, nil)
	room, err := svc.CreateRoom(ctx, " Friday lunch ")
	require.NoError(t, err)
	for _, l := range labels {
		_, err := svc.AddParticipant(ctx, room.ID, l)
		require.NoError(t, err)
	}
	room, err = svc.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	return svc, room
}

func TestService_CreateAndAdd(t *testing.T) {
	_, room := newTestService(t, nil, "Alice", "Bob", "Cara")

	assert.Equal(t, "Friday lunch", room.Name)
	require.Len(t, room.Participants, 3)
	for i, p := range room.Participants {
		assert.Equal(t, i, p.Position)
		assert.NotEmpty(t, p.ID)
	}
	assert.False(t, room.DrawCompleted)
}

func TestService_AddParticipant_RejectsBlankLabel(t *testing.T) {
	svc, room := newTestService(t, nil)
	_, err := svc.AddParticipant(context.Background(), room.ID, "   ")
	assert.ErrorIs(t, err, ErrInvalidLabel)
}

func TestService_DrawPicksWithRNG(t *testing.T) {
	ctx := context.Background()
	svc, room := newTestService(t, fixedRNG{val: 2}, "Alice", "Bob", "Cara", "Dan")

	winner, err := svc.Draw(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cara", winner.Label)

	got, err := svc.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, got.DrawCompleted)
	assert.Equal(t, winner.ID, got.WinnerID)
}

func TestService_DrawTwiceConflicts(t *testing.T) {
	ctx := context.Background()
	svc, room := newTestService(t, nil, "Alice", "Bob")

	_, err := svc.Draw(ctx, room.ID)
	require.NoError(t, err)
	_, err = svc.Draw(ctx, room.ID)
	assert.ErrorIs(t, err, ErrDrawFinalized)
}

func TestService_DrawEmptyRoom(t *testing.T) {
	svc, room := newTestService(t, nil)
	_, err := svc.Draw(context.Background(), room.ID)
	assert.ErrorIs(t, err, ErrNoParticipants)
}

func TestService_ParticipantsFrozenWhileFinalized(t *testing.T) {
	ctx := context.Background()
	svc, room := newTestService(t, fixedRNG{}, "Alice", "Bob")
	_, err := svc.Draw(ctx, room.ID)
	require.NoError(t, err)

	_, err = svc.AddParticipant(ctx, room.ID, "Late")
	assert.ErrorIs(t, err, ErrDrawFinalized)
	err = svc.RemoveParticipant(ctx, room.ID, room.Participants[1].ID)
	assert.ErrorIs(t, err, ErrDrawFinalized)

	require.NoError(t, svc.ResetDraw(ctx, room.ID))
	got, err := svc.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.False(t, got.DrawCompleted)
	assert.Empty(t, got.WinnerID)

	require.NoError(t, svc.RemoveParticipant(ctx, room.ID, room.Participants[1].ID))
	got, err = svc.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, got.Participants, 1)
	assert.Equal(t, "Alice", got.Participants[0].Label)
}

func TestService_RemoveUnknownParticipant(t *testing.T) {
	svc, room := newTestService(t, nil, "Alice")
	err := svc.RemoveParticipant(context.Background(), room.ID, "ghost")
	assert.ErrorIs(t, err, ErrParticipantNotFound)
}

func TestService_UnknownRoom(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.GetRoom(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRoomNotFound)
	_, err = svc.Draw(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestService_ConcurrentDrawsHaveOneWinner(t *testing.T) {
	ctx := context.Background()
	svc, room := newTestService(t, nil, "Alice", "Bob", "Cara")

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, conflicts := 0, 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Draw(ctx, room.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrDrawFinalized):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, 15, conflicts)
}

func TestMemoryStore_UpdateErrorDoesNotSave(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := s.Create(ctx, Room{ID: "r1"})
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = s.Update(ctx, "r1", func(r *Room) error {
		r.DrawCompleted = true
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, got.DrawCompleted)
}

func TestDiffParticipants(t *testing.T) {
	before := []Participant{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	after := []Participant{{ID: "a"}, {ID: "c"}, {ID: "d", Label: "Dee"}}

	removed, added := diffParticipants(before, after)
	assert.Equal(t, []string{"b"}, removed)
	assert.Equal(t, []Participant{{ID: "d", Label: "Dee"}}, added)
}

func TestRecordRoundTrip(t *testing.T) {
	room := Room{
		ID:            "r1",
		Name:          "Lunch",
		DrawCompleted: true,
		WinnerID:      "p2",
		Participants:  []Participant{{ID: "p1", Label: "A", Position: 0}, {ID: "p2", Label: "B", Position: 1}},
	}
	rec := toRecord(room)
	assert.Equal(t, "r1", rec.Participants[1].RoomID)
	assert.Equal(t, room, fromRecord(rec))
}

func TestCryptoRNG_InRange(t *testing.T) {
	var rng CryptoRNG
	for i := 0; i < 100; i++ {
		v := rng.Intn(3)
		assert.True(t, v >= 0 && v < 3)
	}
}
