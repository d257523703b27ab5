package memory

import (
	"context"
	"sync"

	"quizroom-service/internal/domain"
)

// RoomRepository serves room membership from memory.
type RoomRepository struct {
	mu    sync.RWMutex
	rooms map[string]domain.Room
}

func NewRoomRepository(rooms ...domain.Room) *RoomRepository {
	r := &RoomRepository{rooms: make(map[string]domain.Room, len(rooms))}
	for _, room := range rooms {
		r.rooms[room.ID] = room
	}
	return r
}

func (r *RoomRepository) GetRoom(_ context.Context, roomID string) (domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return room, nil
}

// Put adds or replaces a room.
func (r *RoomRepository) Put(room domain.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[room.ID] = room
}
