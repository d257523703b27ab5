package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"quizroom-service/internal/domain"

	"github.com/uptrace/bun"
)

type scoreModel struct {
	bun.BaseModel `bun:"table:scores"`

	RoomID    string            `bun:"room_id,pk"`
	Status    int               `bun:"status,notnull"`
	Index     int               `bun:"current_index,notnull"`
	Sequence  map[string]string `bun:"sequence,type:jsonb,notnull"`
	Detail    map[string]int    `bun:"detail,type:jsonb,notnull"`
	UpdatedAt time.Time         `bun:"updated_at,notnull"`
}

// ScoreStore persists score records in the scores table, one row per room.
type ScoreStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewScoreStore(db *bun.DB) *ScoreStore {
	return &ScoreStore{db: db, now: time.Now}
}

func (s *ScoreStore) LoadScore(ctx context.Context, roomID string) (domain.ScoreRecord, error) {
	var row scoreModel
	err := s.db.NewSelect().Model(&row).Where("room_id = ?", roomID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ScoreRecord{}, domain.ErrScoreNotFound
	}
	if err != nil {
		return domain.ScoreRecord{}, fmt.Errorf("load score %s: %w", roomID, err)
	}
	record := domain.ScoreRecord{
		RoomID:   row.RoomID,
		Status:   domain.Status(row.Status),
		Index:    row.Index,
		Sequence: row.Sequence,
		Detail:   row.Detail,
	}
	if record.Sequence == nil {
		record.Sequence = map[string]string{}
	}
	if record.Detail == nil {
		record.Detail = map[string]int{}
	}
	return record, nil
}

func (s *ScoreStore) SaveScore(ctx context.Context, record domain.ScoreRecord) error {
	row := scoreModel{
		RoomID:    record.RoomID,
		Status:    int(record.Status),
		Index:     record.Index,
		Sequence:  record.Sequence,
		Detail:    record.Detail,
		UpdatedAt: s.now(),
	}
	_, err := s.db.NewInsert().
		Model(&row).
		On("CONFLICT (room_id) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("current_index = EXCLUDED.current_index").
		Set("sequence = EXCLUDED.sequence").
		Set("detail = EXCLUDED.detail").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save score %s: %w", record.RoomID, err)
	}
	return nil
}
