package roomsvc

import (
	"crypto/rand"
	"errors"
	"math/big"
	"time"
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrDrawFinalized       = errors.New("draw already finalized")
	ErrNoParticipants      = errors.New("room has no participants")
	ErrInvalidLabel        = errors.New("participant label required")
)

type Participant struct {
	ID       string
	Label    string
	Position int
}

type Room struct {
	ID            string
	Name          string
	Participants  []Participant
	DrawCompleted bool
	WinnerID      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (r Room) clone() Room {
	r.Participants = append([]Participant(nil), r.Participants...)
	return r
}

// RNG abstracts winner selection for deterministic testing.
type RNG interface {
	// Intn returns a non-negative random int in [0, n).
	Intn(n int) int
}

// CryptoRNG draws from crypto/rand.
type CryptoRNG struct{}

func (CryptoRNG) Intn(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic(err)
	}
	return int(v.Int64())
}
