package postgres

import (
	"context"
	"errors"
	"fmt"

	"quizroom-service/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuizLoader loads quizzes from the quizzes table.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	quiz := domain.Quiz{ID: quizID}
	err := l.pool.QueryRow(ctx,
		`SELECT creator_id, genre_id, question, answer, is_completed FROM quizzes WHERE id=$1`, quizID,
	).Scan(&quiz.CreatorID, &quiz.GenreID, &quiz.Question, &quiz.Answer, &quiz.Completed)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, fmt.Errorf("%s: %w", quizID, domain.ErrQuizNotFound)
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	return quiz, nil
}

// ListQuizIDs returns completed quizzes written by one of the creators or
// tagged with one of the genres. An empty filter matches every completed quiz.
func (l *QuizLoader) ListQuizIDs(ctx context.Context, filter domain.QuizFilter) ([]string, error) {
	creators := append([]string{}, filter.CreatorIDs...)
	genres := append([]string{}, filter.GenreIDs...)
	rows, err := l.pool.Query(ctx, `
		SELECT id FROM quizzes
		WHERE is_completed
		  AND ((cardinality($1::text[]) = 0 AND cardinality($2::text[]) = 0)
		       OR creator_id = ANY($1::text[])
		       OR genre_id = ANY($2::text[]))
		ORDER BY id`, creators, genres)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan quiz id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return ids, nil
}
