package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"quizroom-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

// ScoreStore keeps each room's score record as a JSON string at
// quizroom:score:{roomID}. Records do not expire.
type ScoreStore struct {
	client *redis.Client
}

func NewScoreStore(client *redis.Client) *ScoreStore {
	return &ScoreStore{client: client}
}

func (s *ScoreStore) LoadScore(ctx context.Context, roomID string) (domain.ScoreRecord, error) {
	raw, err := s.client.Get(ctx, s.key(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ScoreRecord{}, domain.ErrScoreNotFound
	}
	if err != nil {
		return domain.ScoreRecord{}, fmt.Errorf("get score %s: %w", roomID, err)
	}
	var record domain.ScoreRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return domain.ScoreRecord{}, fmt.Errorf("decode score %s: %w", roomID, err)
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
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode score %s: %w", record.RoomID, err)
	}
	if err := s.client.Set(ctx, s.key(record.RoomID), raw, 0).Err(); err != nil {
		return fmt.Errorf("set score %s: %w", record.RoomID, err)
	}
	return nil
}

func (s *ScoreStore) key(roomID string) string {
	return "quizroom:score:" + roomID
}
