package hub

import (
	"context"

	"github.com/DoyleJ11/wheel-spinner/internal/orchestrator"
)

// Factory builds the orchestrator for a room the first time it is asked for.
type Factory func(ctx context.Context, roomID string) *orchestrator.Orchestrator

type HubMsg interface{ isHubMsg() }

type GetRoom struct {
	RoomID string
	Reply  chan *orchestrator.Orchestrator
}

type EnsureRoom struct {
	RoomID string
	Reply  chan *orchestrator.Orchestrator
}

type RemoveRoom struct {
	RoomID string
}

type ShutdownHub struct{}

type countRooms struct{ Reply chan int }

func (GetRoom) isHubMsg()     {}
func (EnsureRoom) isHubMsg()  {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}
func (countRooms) isHubMsg()  {}

// Hub keeps one orchestrator per room so every viewer of a room watches the
// same wheel.
type Hub struct {
	inbox   chan HubMsg
	rooms   map[string]*orchestrator.Orchestrator
	factory Factory
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
}

func NewHub(parent context.Context, factory Factory) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		rooms:   make(map[string]*orchestrator.Orchestrator),
		factory: factory,
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Ensure returns the room's orchestrator, creating it if needed. It returns
// nil once the hub is shut down.
func (h *Hub) Ensure(ctx context.Context, roomID string) *orchestrator.Orchestrator {
	return h.ask(ctx, EnsureRoom{RoomID: roomID, Reply: make(chan *orchestrator.Orchestrator, 1)})
}

// Get returns the room's orchestrator or nil.
func (h *Hub) Get(ctx context.Context, roomID string) *orchestrator.Orchestrator {
	return h.ask(ctx, GetRoom{RoomID: roomID, Reply: make(chan *orchestrator.Orchestrator, 1)})
}

func (h *Hub) Len(ctx context.Context) int {
	reply := make(chan int, 1)
	select {
	case h.inbox <- countRooms{Reply: reply}:
	case <-ctx.Done():
		return 0
	case <-h.stopped:
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-ctx.Done():
		return 0
	case <-h.stopped:
		return 0
	}
}

// Shutdown closes every orchestrator and waits for the loop to exit.
func (h *Hub) Shutdown() {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.stopped:
	}
	<-h.stopped
}

func (h *Hub) ask(ctx context.Context, m HubMsg) *orchestrator.Orchestrator {
	var reply chan *orchestrator.Orchestrator
	switch msg := m.(type) {
	case GetRoom:
		reply = msg.Reply
	case EnsureRoom:
		reply = msg.Reply
	}
	select {
	case h.inbox <- m:
	case <-ctx.Done():
		return nil
	case <-h.stopped:
		return nil
	}
	select {
	case o := <-reply:
		return o
	case <-ctx.Done():
		return nil
	case <-h.stopped:
		return nil
	}
}

func (h *Hub) loop() {
	defer close(h.stopped)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case GetRoom:
				msg.Reply <- h.rooms[msg.RoomID] // May be nil

			case EnsureRoom:
				if o := h.rooms[msg.RoomID]; o != nil {
					msg.Reply <- o
					break
				}
				o := h.factory(h.ctx, msg.RoomID)
				h.rooms[msg.RoomID] = o
				msg.Reply <- o

			case RemoveRoom:
				if o := h.rooms[msg.RoomID]; o != nil {
					o.Close()
					delete(h.rooms, msg.RoomID)
				}

			case countRooms:
				msg.Reply <- len(h.rooms)

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for id, o := range h.rooms {
		o.Close()
		delete(h.rooms, id)
	}
	h.cancel()
}
