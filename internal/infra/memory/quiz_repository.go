package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"quizroom-service/internal/domain"

	"golang.org/x/sync/singleflight"
)

// QuizLoader fetches quiz content from a backing store (fixtures, Postgres).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ListQuizIDs(ctx context.Context, filter domain.QuizFilter) ([]string, error)
}

// QuizRepository keeps loaded quizzes in process for ttl (plus jitter).
// Concurrent misses for one id share a single load. Listing is not
// cached: it only runs on reset.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	loads  singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu      sync.RWMutex
	entries map[string]quizEntry
}

type quizEntry struct {
	quiz    domain.Quiz
	staleAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader:  loader,
		ttl:     ttl,
		clock:   time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		entries: make(map[string]quizEntry),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.fresh(quizID); ok {
		return quiz, nil
	}
	v, err, _ := r.loads.Do(quizID, func() (interface{}, error) {
		if quiz, ok := r.fresh(quizID); ok {
			return quiz, nil
		}
		loadedAt := r.clock()
		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		r.remember(quizID, quiz, loadedAt)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return v.(domain.Quiz), nil
}

func (r *QuizRepository) ListQuizIDs(ctx context.Context, filter domain.QuizFilter) ([]string, error) {
	return r.loader.ListQuizIDs(ctx, filter)
}

// fresh returns the cached quiz unless it has gone stale.
func (r *QuizRepository) fresh(quizID string) (domain.Quiz, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[quizID]
	if !ok || !r.clock().Before(entry.staleAt) {
		return domain.Quiz{}, false
	}
	return entry.quiz, true
}

func (r *QuizRepository) remember(quizID string, quiz domain.Quiz, loadedAt time.Time) {
	staleAt := loadedAt.Add(r.lifetime())
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[quizID] = quizEntry{quiz: quiz, staleAt: staleAt}
}

// lifetime spreads expirations by up to a tenth of ttl.
func (r *QuizRepository) lifetime() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(int64(r.ttl)/10+1))
}

// StaticQuizLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticQuizLoader struct {
	quizzes map[string]domain.Quiz
}

func NewStaticQuizLoader(quizzes map[string]domain.Quiz) *StaticQuizLoader {
	return &StaticQuizLoader{quizzes: quizzes}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := l.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

// ListQuizIDs returns matching ids in ascending order.
func (l *StaticQuizLoader) ListQuizIDs(_ context.Context, filter domain.QuizFilter) ([]string, error) {
	ids := make([]string, 0, len(l.quizzes))
	for id, quiz := range l.quizzes {
		if filter.Matches(quiz) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
