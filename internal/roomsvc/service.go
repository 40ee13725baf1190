package roomsvc

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service holds the Room Service rules: participants are frozen while a
// draw is finalized, and the winner is chosen here and nowhere else.
type Service struct {
	store  Store
	rng    RNG
	logger *zap.Logger
}

func NewService(store Store, rng RNG, logger *zap.Logger) *Service {
	if rng == nil {
		rng = CryptoRNG{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, rng: rng, logger: logger}
}

func (s *Service) CreateRoom(ctx context.Context, name string) (Room, error) {
	room := Room{ID: uuid.NewString(), Name: strings.TrimSpace(name)}
	created, err := s.store.Create(ctx, room)
	if err != nil {
		return Room{}, err
	}
	s.logger.Info("room created", zap.String("room", created.ID))
	return created, nil
}

func (s *Service) GetRoom(ctx context.Context, id string) (Room, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) AddParticipant(ctx context.Context, roomID, label string) (Participant, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return Participant{}, ErrInvalidLabel
	}

	p := Participant{ID: uuid.NewString(), Label: label}
	_, err := s.store.Update(ctx, roomID, func(r *Room) error {
		if r.DrawCompleted {
			return ErrDrawFinalized
		}
		p.Position = nextPosition(r.Participants)
		r.Participants = append(r.Participants, p)
		return nil
	})
	if err != nil {
		return Participant{}, err
	}
	return p, nil
}

func (s *Service) RemoveParticipant(ctx context.Context, roomID, participantID string) error {
	_, err := s.store.Update(ctx, roomID, func(r *Room) error {
		if r.DrawCompleted {
			return ErrDrawFinalized
		}
		kept := r.Participants[:0]
		found := false
		for _, p := range r.Participants {
			if p.ID == participantID {
				found = true
				continue
			}
			kept = append(kept, p)
		}
		if !found {
			return ErrParticipantNotFound
		}
		r.Participants = kept
		return nil
	})
	return err
}

// Draw picks and records the winner. A room can be drawn once until reset.
func (s *Service) Draw(ctx context.Context, roomID string) (Participant, error) {
	var winner Participant
	_, err := s.store.Update(ctx, roomID, func(r *Room) error {
		if r.DrawCompleted {
			return ErrDrawFinalized
		}
		if len(r.Participants) == 0 {
			return ErrNoParticipants
		}
		winner = r.Participants[s.rng.Intn(len(r.Participants))]
		r.DrawCompleted = true
		r.WinnerID = winner.ID
		return nil
	})
	if err != nil {
		return Participant{}, fmt.Errorf("draw: %w", err)
	}
	s.logger.Info("draw completed", zap.String("room", roomID), zap.String("winner", winner.ID))
	return winner, nil
}

func (s *Service) ResetDraw(ctx context.Context, roomID string) error {
	_, err := s.store.Update(ctx, roomID, func(r *Room) error {
		r.DrawCompleted = false
		r.WinnerID = ""
		return nil
	})
	if err != nil {
		return fmt.Errorf("reset draw: %w", err)
	}
	s.logger.Info("draw reset", zap.String("room", roomID))
	return nil
}

func nextPosition(ps []Participant) int {
	next := 0
	for _, p := range ps {
		if p.Position >= next {
			next = p.Position + 1
		}
	}
	return next
}
