package redis

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"quizroom-service/internal/domain"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuizLoader fetches quiz content from a backing store (e.g., Postgres).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ListQuizIDs(ctx context.Context, filter domain.QuizFilter) ([]string, error)
}

// QuizRepository caches quizzes in Redis (hash per quiz) and falls back to a loader on cache miss.
// Quizzes are stored as: HSET quiz:{quizID} question .. answer .. creator .. genre .. completed ..
type QuizRepository struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewQuizRepository(client *redis.Client, loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	key := r.key(quizID)

	fields, err := r.client.HGetAll(ctx, key).Result()
	if err == nil && len(fields) > 0 {
		return buildQuizFromCache(quizID, fields), nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		fields, err := r.client.HGetAll(ctx, key).Result()
		if err == nil && len(fields) > 0 {
			return buildQuizFromCache(quizID, fields), nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		pipe := r.client.Pipeline()
		pipe.HSet(ctx, key,
			"question", quiz.Question,
			"answer", quiz.Answer,
			"creator", quiz.CreatorID,
			"genre", quiz.GenreID,
			"completed", strconv.FormatBool(quiz.Completed),
		)
		if ttl := r.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		// cache fill is best effort
		_, _ = pipe.Exec(ctx)

		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// ListQuizIDs is served by the loader; it only runs on reset.
func (r *QuizRepository) ListQuizIDs(ctx context.Context, filter domain.QuizFilter) ([]string, error) {
	return r.loader.ListQuizIDs(ctx, filter)
}

func (r *QuizRepository) key(quizID string) string {
	return "quiz:" + quizID
}

func buildQuizFromCache(quizID string, fields map[string]string) domain.Quiz {
	completed, _ := strconv.ParseBool(fields["completed"])
	return domain.Quiz{
		ID:        quizID,
		CreatorID: fields["creator"],
		GenreID:   fields["genre"],
		Question:  fields["question"],
		Answer:    fields["answer"],
		Completed: completed,
	}
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
