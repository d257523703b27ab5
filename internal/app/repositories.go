package app

import (
	"context"

	"quizroom-service/internal/domain"
)

// RoomRepository resolves room membership. Implementations return
// domain.ErrRoomNotFound for unknown rooms.
type RoomRepository interface {
	GetRoom(ctx context.Context, roomID string) (domain.Room, error)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ListQuizIDs(ctx context.Context, filter domain.QuizFilter) ([]string, error)
}

// ScoreRepository persists per-room score records. LoadScore returns
// domain.ErrScoreNotFound when the room has never been saved.
type ScoreRepository interface {
	LoadScore(ctx context.Context, roomID string) (domain.ScoreRecord, error)
	SaveScore(ctx context.Context, record domain.ScoreRecord) error
}

// RoomTracker is notified when a room becomes live in this process and when it is torn down.
type RoomTracker interface {
	MarkActive(ctx context.Context, roomKey string) error
	MarkInactive(ctx context.Context, roomKey string) error
}
