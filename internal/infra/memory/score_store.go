package memory

import (
	"context"
	"sync"

	"quizroom-service/internal/domain"
)

// ScoreStore keeps score records in process memory. Records are cloned on
// the way in and out so callers never share maps with the store.
type ScoreStore struct {
	mu     sync.RWMutex
	scores map[string]domain.ScoreRecord
}

func NewScoreStore() *ScoreStore {
	return &ScoreStore{scores: make(map[string]domain.ScoreRecord)}
}

func (s *ScoreStore) LoadScore(_ context.Context, roomID string) (domain.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.scores[roomID]
	if !ok {
		return domain.ScoreRecord{}, domain.ErrScoreNotFound
	}
	return record.Clone(), nil
}

func (s *ScoreStore) SaveScore(_ context.Context, record domain.ScoreRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[record.RoomID] = record.Clone()
	return nil
}
