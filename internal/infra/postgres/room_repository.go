package postgres

import (
	"context"
	"errors"
	"fmt"

	"quizroom-service/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// RoomRepository reads rooms with their members and genres.
type RoomRepository struct {
	pool *pgxpool.Pool
}

func NewRoomRepository(pool *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

func (r *RoomRepository) GetRoom(ctx context.Context, roomID string) (domain.Room, error) {
	room := domain.Room{ID: roomID}
	err := r.pool.QueryRow(ctx,
		`SELECT name, owner_id, max_question, is_enabled FROM rooms WHERE id=$1`, roomID,
	).Scan(&room.Name, &room.OwnerID, &room.MaxQuestion, &room.Enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Room{}, fmt.Errorf("%s: %w", roomID, domain.ErrRoomNotFound)
	}
	if err != nil {
		return domain.Room{}, fmt.Errorf("load room: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT user_id, role FROM room_members WHERE room_id=$1 ORDER BY user_id`, roomID)
	if err != nil {
		return domain.Room{}, fmt.Errorf("load room members: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var userID, role string
		if err := rows.Scan(&userID, &role); err != nil {
			return domain.Room{}, fmt.Errorf("scan room member: %w", err)
		}
		switch role {
		case "creator":
			room.CreatorIDs = append(room.CreatorIDs, userID)
		case "player":
			room.PlayerIDs = append(room.PlayerIDs, userID)
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Room{}, fmt.Errorf("load room members: %w", err)
	}

	genres, err := r.pool.Query(ctx,
		`SELECT genre_id FROM room_genres WHERE room_id=$1 ORDER BY genre_id`, roomID)
	if err != nil {
		return domain.Room{}, fmt.Errorf("load room genres: %w", err)
	}
	defer genres.Close()
	for genres.Next() {
		var genreID string
		if err := genres.Scan(&genreID); err != nil {
			return domain.Room{}, fmt.Errorf("scan room genre: %w", err)
		}
		room.GenreIDs = append(room.GenreIDs, genreID)
	}
	if err := genres.Err(); err != nil {
		return domain.Room{}, fmt.Errorf("load room genres: %w", err)
	}
	return room, nil
}
