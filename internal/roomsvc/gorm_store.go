package roomsvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type roomRecord struct {
	ID            string `gorm:"primaryKey"`
	Name          string
	DrawCompleted bool
	WinnerID      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Participants  []participantRecord `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE;"`
}

func (roomRecord) TableName() string { return "rooms" }

type participantRecord struct {
	ID       string `gorm:"primaryKey"`
	RoomID   string `gorm:"index"`
	Label    string
	Position int
}

func (participantRecord) TableName() string { return "participants" }

// GormStore keeps rooms in a SQL database through gorm. Postgres is the
// deployed target.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the rooms and participants tables.
func (s *GormStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&roomRecord{}, &participantRecord{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *GormStore) Create(ctx context.Context, room Room) (Room, error) {
	rec := toRecord(room)
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return Room{}, fmt.Errorf("create room: %w", err)
	}
	return fromRecord(rec), nil
}

func (s *GormStore) Get(ctx context.Context, id string) (Room, error) {
	rec, err := loadRoom(s.db.WithContext(ctx), id)
	if err != nil {
		return Room{}, err
	}
	return fromRecord(rec), nil
}

// Update locks the room row for the duration of fn so concurrent draws
// serialize.
func (s *GormStore) Update(ctx context.Context, id string, fn func(*Room) error) (Room, error) {
	var out Room
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := loadRoom(tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
		if err != nil {
			return err
		}
		before := fromRecord(rec)
		next := before.clone()
		if err := fn(&next); err != nil {
			return err
		}

		if err := tx.Model(&roomRecord{ID: id}).Updates(map[string]any{
			"name":           next.Name,
			"draw_completed": next.DrawCompleted,
			"winner_id":      next.WinnerID,
			"updated_at":     time.Now(),
		}).Error; err != nil {
			return fmt.Errorf("update room: %w", err)
		}

		removed, added := diffParticipants(before.Participants, next.Participants)
		if len(removed) > 0 {
			if err := tx.Where("room_id = ? AND id IN ?", id, removed).Delete(&participantRecord{}).Error; err != nil {
				return fmt.Errorf("delete participants: %w", err)
			}
		}
		for _, p := range added {
			rec := participantRecord{ID: p.ID, RoomID: id, Label: p.Label, Position: p.Position}
			if err := tx.Create(&rec).Error; err != nil {
				return fmt.Errorf("add participant: %w", err)
			}
		}

		reloaded, err := loadRoom(tx, id)
		if err != nil {
			return err
		}
		out = fromRecord(reloaded)
		return nil
	})
	if err != nil {
		return Room{}, err
	}
	return out, nil
}

func loadRoom(db *gorm.DB, id string) (roomRecord, error) {
	var rec roomRecord
	err := db.Preload("Participants", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return roomRecord{}, ErrRoomNotFound
	}
	if err != nil {
		return roomRecord{}, fmt.Errorf("load room: %w", err)
	}
	return rec, nil
}

// diffParticipants returns ids present only in before and participants
// present only in after.
func diffParticipants(before, after []Participant) ([]string, []Participant) {
	inAfter := make(map[string]bool, len(after))
	for _, p := range after {
		inAfter[p.ID] = true
	}
	inBefore := make(map[string]bool, len(before))
	var removed []string
	for _, p := range before {
		inBefore[p.ID] = true
		if !inAfter[p.ID] {
			removed = append(removed, p.ID)
		}
	}
	var added []Participant
	for _, p := range after {
		if !inBefore[p.ID] {
			added = append(added, p)
		}
	}
	return removed, added
}

func toRecord(r Room) roomRecord {
	rec := roomRecord{
		ID:            r.ID,
		Name:          r.Name,
		DrawCompleted: r.DrawCompleted,
		WinnerID:      r.WinnerID,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	for _, p := range r.Participants {
		rec.Participants = append(rec.Participants, participantRecord{
			ID: p.ID, RoomID: r.ID, Label: p.Label, Position: p.Position,
		})
	}
	return rec
}

func fromRecord(rec roomRecord) Room {
	r := Room{
		ID:            rec.ID,
		Name:          rec.Name,
		DrawCompleted: rec.DrawCompleted,
		WinnerID:      rec.WinnerID,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
	for _, p := range rec.Participants {
		r.Participants = append(r.Participants, Participant{ID: p.ID, Label: p.Label, Position: p.Position})
	}
	return r
}
