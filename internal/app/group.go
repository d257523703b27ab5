package app

import (
	"quizroom-service/internal/domain"

	"github.com/google/uuid"
)

// Subscription is one connection's membership in a room group.
type Subscription struct {
	ID          string
	Participant domain.Participant
	Role        domain.Role

	room   *Room
	info   domain.Room
	send   chan domain.Event
	closed bool // guarded by room.mu
	left   bool // guarded by room.mu
}

func newSubscription(room *Room, info domain.Room, participant domain.Participant, role domain.Role, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 1
	}
	return &Subscription{
		ID:          uuid.NewString(),
		Participant: participant,
		Role:        role,
		room:        room,
		info:        info,
		send:        make(chan domain.Event, buffer),
	}
}

// Events is closed when the subscription leaves the group or is evicted.
func (s *Subscription) Events() <-chan domain.Event { return s.send }

// RoomKey is the group name of the subscribed room.
func (s *Subscription) RoomKey() string { return s.room.key }

// IsOwner reports whether the subscriber owns the room.
func (s *Subscription) IsOwner() bool { return s.Role == domain.RoleOwner }

func (s *Subscription) close() {
	if !s.closed {
		s.closed = true
		close(s.send)
	}
}

// Group fans events out to every subscription of a room. All methods must
// be called with the room lock held.
type Group struct {
	subscribers map[string]*Subscription
}

func newGroup() *Group {
	return &Group{subscribers: make(map[string]*Subscription)}
}

func (g *Group) add(sub *Subscription) {
	g.subscribers[sub.ID] = sub
}

// discard removes the subscription and closes its stream; repeated calls are no-ops.
func (g *Group) discard(sub *Subscription) {
	delete(g.subscribers, sub.ID)
	sub.close()
}

// publish enqueues ev for every subscriber. A subscriber whose buffer is
// full is evicted instead of skipping the frame, so every delivered stream
// keeps the publish order. Evicted subscriptions are returned.
func (g *Group) publish(ev domain.Event) []*Subscription {
	var evicted []*Subscription
	for _, sub := range g.subscribers {
		select {
		case sub.send <- ev:
		default:
			evicted = append(evicted, sub)
		}
	}
	for _, sub := range evicted {
		g.discard(sub)
	}
	return evicted
}

func (g *Group) hasParticipant(userID string) bool {
	for _, sub := range g.subscribers {
		if sub.Participant.UserID == userID {
			return true
		}
	}
	return false
}

func (g *Group) len() int { return len(g.subscribers) }
