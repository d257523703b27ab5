package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"quizroom-service/internal/config"
	"quizroom-service/internal/infra/memory"
	infraredis "quizroom-service/internal/infra/redis"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildBackendsInMemory(t *testing.T) {
	b, err := buildBackends(context.Background(), config.Config{})
	require.NoError(t, err)
	defer b.close()

	assert.IsType(t, &memory.ScoreStore{}, b.scores)
	assert.IsType(t, &memory.QuizRepository{}, b.quizzes)
	assert.Nil(t, b.tracker)

	room, err := b.rooms.GetRoom(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "sample-room", room.Name)
}

func TestBuildBackendsWithRedisAndFixtures(t *testing.T) {
	mr := miniredis.RunT(t)
	path := filepath.Join(t.TempDir(), "fixtures.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rooms:
  - id: "7"
    name: friday
    owner: host
    players: [p1]
    max_question: 1
    enabled: true
quizzes:
  - id: q1
    creator: host
    question: Capital of France?
    answer: Paris
    completed: true
`), 0o600))

	var cfg config.Config
	cfg.Redis.Addr = mr.Addr()
	cfg.Room.Fixtures = path

	b, err := buildBackends(context.Background(), cfg)
	require.NoError(t, err)
	defer b.close()

	assert.IsType(t, &infraredis.ScoreStore{}, b.scores)
	assert.IsType(t, &infraredis.QuizRepository{}, b.quizzes)
	assert.IsType(t, &infraredis.RoomTracker{}, b.tracker)

	room, err := b.rooms.GetRoom(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "host", room.OwnerID)

	quiz, err := b.quizzes.GetQuiz(context.Background(), "q1")
	require.NoError(t, err)
	assert.Equal(t, "Paris", quiz.Answer)
	assert.True(t, mr.Exists("quiz:q1"))
}

func TestBuildBackendsMissingFixtures(t *testing.T) {
	var cfg config.Config
	cfg.Room.Fixtures = filepath.Join(t.TempDir(), "absent.yaml")

	_, err := buildBackends(context.Background(), cfg)
	assert.Error(t, err)
}

func TestRootCommandWiring(t *testing.T) {
	cmd := newRootCmd()
	assert.Equal(t, "quizroom", cmd.Use)

	names := make([]string, 0, len(cmd.Commands()))
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "start")
	assert.Contains(t, names, "migrate")
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}
