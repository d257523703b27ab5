package memory

import (
	"context"
	"reflect"
	"testing"
	"time"

	"quizroom-service/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(sampleQuizzes()),
	}
	repo := NewQuizRepository(loader, time.Minute)

	quiz, err := repo.GetQuiz(context.Background(), "q1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if quiz.Answer != "4" {
		t.Fatalf("expected answer 4, got %q", quiz.Answer)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetQuiz(context.Background(), "q1"); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryLifetimeJitter(t *testing.T) {
	repo := NewQuizRepository(NewStaticQuizLoader(nil), time.Minute)
	for i := 0; i < 100; i++ {
		if d := repo.lifetime(); d < time.Minute || d > time.Minute+6*time.Second {
			t.Fatalf("lifetime %v outside [1m, 1m6s]", d)
		}
	}
	if d := NewQuizRepository(NewStaticQuizLoader(nil), 0).lifetime(); d != 0 {
		t.Fatalf("expected no lifetime without ttl, got %v", d)
	}
}

func TestQuizRepositoryReloadsAfterExpiry(t *testing.T) {
	loader := &countingLoader{QuizLoader: NewStaticQuizLoader(sampleQuizzes())}
	repo := NewQuizRepository(loader, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	_, _ = repo.GetQuiz(context.Background(), "q1")
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetQuiz(context.Background(), "q1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryUnknownQuiz(t *testing.T) {
	repo := NewQuizRepository(NewStaticQuizLoader(sampleQuizzes()), time.Minute)
	if _, err := repo.GetQuiz(context.Background(), "missing"); err != domain.ErrQuizNotFound {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestStaticQuizLoaderListFilters(t *testing.T) {
	loader := NewStaticQuizLoader(sampleQuizzes())

	cases := []struct {
		name   string
		filter domain.QuizFilter
		want   []string
	}{
		{name: "empty filter matches completed", filter: domain.QuizFilter{}, want: []string{"q1", "q2", "q3"}},
		{name: "creator", filter: domain.QuizFilter{CreatorIDs: []string{"c1"}}, want: []string{"q1"}},
		{name: "creator or genre", filter: domain.QuizFilter{CreatorIDs: []string{"c1"}, GenreIDs: []string{"history"}}, want: []string{"q1", "q3"}},
		{name: "no match", filter: domain.QuizFilter{GenreIDs: []string{"art"}}, want: []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := loader.ListQuizIDs(context.Background(), tc.filter)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

type countingLoader struct {
	QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"q1": {ID: "q1", CreatorID: "c1", GenreID: "math", Question: "What is 2 + 2?", Answer: "4", Completed: true},
		"q2": {ID: "q2", CreatorID: "c2", GenreID: "math", Question: "What is 3 * 3?", Answer: "9", Completed: true},
		"q3": {ID: "q3", CreatorID: "c2", GenreID: "history", Question: "Year of Meiji restoration?", Answer: "1868", Completed: true},
		"q4": {ID: "q4", CreatorID: "c1", GenreID: "history", Question: "Draft", Answer: "", Completed: false},
	}
}
