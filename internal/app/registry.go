package app

import "sync"

// Room couples a room's QuizState with its broadcast group. mu serializes
// every command, join and leave for the room so state transitions and the
// frames they produce are observed in one order.
type Room struct {
	key   string
	mu    sync.Mutex
	state QuizState
	group *Group

	refs int // guarded by Registry.mu
}

func NewRoom(key string, state QuizState) *Room {
	return &Room{key: key, state: state, group: newGroup()}
}

// Key is the room's group name.
func (r *Room) Key() string { return r.key }

// State exposes the room's QuizState. Callers must not mutate it outside the room's command path.
func (r *Room) State() QuizState { return r.state }

// Registry maps room keys to live rooms for this process.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// GetState returns the live room for key. RoomService uses it to skip
// liveness refreshes for rooms already torn down.
func (r *Registry) GetState(key string) (*Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[key]
	return room, ok
}

// SetState installs room under key without touching reference counts.
// Connections go through Acquire instead.
func (r *Registry) SetState(key string, room *Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[key] = room
}

// DeleteState drops the entry; a missing key is a no-op. Teardown on
// disconnect goes through Release, which deletes on the last reference.
func (r *Registry) DeleteState(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, key)
}

// Acquire returns the live room for key, creating it with newRoom when
// absent, and counts one more connection against it.
func (r *Registry) Acquire(key string, newRoom func() *Room) (*Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[key]
	if !ok {
		room = newRoom()
		r.rooms[key] = room
	}
	room.refs++
	return room, !ok
}

// Release undoes one Acquire and removes the room once no connection holds
// it. It reports whether the room was removed.
func (r *Registry) Release(key string, room *Room) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if room.refs > 0 {
		room.refs--
	}
	if room.refs > 0 {
		return false
	}
	if current, ok := r.rooms[key]; ok && current == room {
		delete(r.rooms, key)
		return true
	}
	return false
}

// Len reports the number of live rooms.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}
