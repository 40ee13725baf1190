package roomsvc

import (
	"context"
	"sync"
	"time"
)

// Store persists rooms. Update runs fn against the current room and saves
// the result atomically; an error from fn aborts without saving.
type Store interface {
	Create(ctx context.Context, room Room) (Room, error)
	Get(ctx context.Context, id string) (Room, error)
	Update(ctx context.Context, id string, fn func(*Room) error) (Room, error)
}

type MemoryStore struct {
	mu    sync.Mutex
	rooms map[string]Room
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rooms: make(map[string]Room), now: time.Now}
}

func (s *MemoryStore) Create(_ context.Context, room Room) (Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	room.CreatedAt, room.UpdatedAt = now, now
	s.rooms[room.ID] = room.clone()
	return room.clone(), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return Room{}, ErrRoomNotFound
	}
	return room.clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn func(*Room) error) (Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return Room{}, ErrRoomNotFound
	}
	next := room.clone()
	if err := fn(&next); err != nil {
		return Room{}, err
	}
	next.UpdatedAt = s.now()
	s.rooms[id] = next.clone()
	return next, nil
}
