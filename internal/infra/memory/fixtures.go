package memory

import (
	"fmt"
	"os"

	"quizroom-service/internal/domain"

	"gopkg.in/yaml.v3"
)

// Fixtures seeds rooms and quizzes when no database is configured.
type Fixtures struct {
	Rooms   []domain.Room `yaml:"rooms"`
	Quizzes []domain.Quiz `yaml:"quizzes"`
}

// LoadFixtures reads a YAML fixtures file.
func LoadFixtures(path string) (Fixtures, error) {
	var fx Fixtures
	data, err := os.ReadFile(path)
	if err != nil {
		return fx, err
	}
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return fx, fmt.Errorf("parse fixtures %s: %w", path, err)
	}
	return fx, nil
}

// QuizMap indexes the quizzes by id for StaticQuizLoader.
func (f Fixtures) QuizMap() map[string]domain.Quiz {
	out := make(map[string]domain.Quiz, len(f.Quizzes))
	for _, q := range f.Quizzes {
		out[q.ID] = q
	}
	return out
}

// SampleFixtures provides a minimal demo room; swap it with a fixtures file or Postgres in production.
func SampleFixtures() Fixtures {
	return Fixtures{
		Rooms: []domain.Room{
			{
				ID:          "1",
				Name:        "sample-room",
				OwnerID:     "owner",
				CreatorIDs:  []string{"creator"},
				PlayerIDs:   []string{"alice", "bob"},
				GenreIDs:    []string{"math"},
				MaxQuestion: 3,
				Enabled:     true,
			},
		},
		Quizzes: []domain.Quiz{
			{ID: "q1", CreatorID: "creator", GenreID: "math", Question: "What is 2 + 2?", Answer: "4", Completed: true},
			{ID: "q2", CreatorID: "creator", GenreID: "math", Question: "What is 3 * 3?", Answer: "9", Completed: true},
			{ID: "q3", CreatorID: "creator", GenreID: "math", Question: "What is 10 / 2?", Answer: "5", Completed: true},
			{ID: "q4", CreatorID: "creator", GenreID: "math", Question: "What is 7 - 5?", Answer: "2", Completed: true},
		},
	}
}
