package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"quizroom-service/internal/domain"
)

func TestScoreStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewScoreStore()

	if _, err := store.LoadScore(ctx, "1"); !errors.Is(err, domain.ErrScoreNotFound) {
		t.Fatalf("expected ErrScoreNotFound, got %v", err)
	}

	record := domain.NewScoreRecord("1")
	record.Detail["alice"] = 2
	if err := store.SaveScore(ctx, record); err != nil {
		t.Fatalf("save: %v", err)
	}
	record.Detail["alice"] = 99

	loaded, err := store.LoadScore(ctx, "1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Detail["alice"] != 2 {
		t.Fatalf("expected stored copy to be isolated, got %d", loaded.Detail["alice"])
	}
}

func TestRoomRepositoryLookup(t *testing.T) {
	repo := NewRoomRepository(SampleFixtures().Rooms...)

	room, err := repo.GetRoom(context.Background(), "1")
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if room.RoleOf("owner") != domain.RoleOwner {
		t.Fatalf("expected owner role")
	}
	if _, err := repo.GetRoom(context.Background(), "2"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestLoadFixtures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.yaml")
	data := `
rooms:
  - id: "7"
    name: friday-quiz
    owner: o1
    creators: [c1]
    players: [p1, p2]
    genres: [science]
    max_question: 2
    enabled: true
quizzes:
  - id: s1
    creator: c1
    genre: science
    question: H2O is?
    answer: water
    completed: true
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write fixtures: %v", err)
	}

	fx, err := LoadFixtures(path)
	if err != nil {
		t.Fatalf("load fixtures: %v", err)
	}
	if len(fx.Rooms) != 1 || fx.Rooms[0].MaxQuestion != 2 || !fx.Rooms[0].Enabled {
		t.Fatalf("unexpected rooms %+v", fx.Rooms)
	}
	if q := fx.QuizMap()["s1"]; q.Answer != "water" || !q.Completed {
		t.Fatalf("unexpected quiz %+v", q)
	}
}
