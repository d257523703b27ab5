package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"quizroom-service/internal/domain"
	"quizroom-service/internal/metrics"

	"github.com/sirupsen/logrus"
)

// Inbound command names.
const (
	CommandResetQuiz    = "resetQuiz"
	CommandGetNextQuiz  = "getNextQuiz"
	CommandReceivedQuiz = "receivedQuiz"
	CommandStartAnswer  = "startAnswer"
	CommandAnswerQuiz   = "answerQuiz"
	CommandStopAnswer   = "stopAnswer"
	CommandGetAnswers   = "getAnswers"
	CommandSendResult   = "sendResult"
)

// Outbound event types.
const (
	EventSystem           = "system"
	EventResetCompleted   = "resetCompleted"
	EventSentNextQuiz     = "sentNextQuiz"
	EventSentAllQuizzes   = "sentAllQuizzes"
	EventStartedAnswering = "startedAnswering"
	EventStoppedAnswering = "stoppedAnswering"
	EventSentAnswers      = "sentAnswers"
	EventShareResult      = "shareResult"
)

const datetimeLayout = "2006-01-02 15:04:05"

// GroupName is the registry key and log tag of a room.
func GroupName(roomID string) string {
	return "quiz-" + roomID
}

// Command is an inbound frame.
type Command struct {
	Name string          `json:"command"`
	Data json.RawMessage `json:"data,omitempty"`
}

// RoomService runs the room protocol: membership checks, join/leave and
// command dispatch onto each room's QuizState.
type RoomService struct {
	rooms    RoomRepository
	quizzes  QuizRepository
	scores   ScoreRepository
	registry *Registry
	tracker  RoomTracker
	newState func(roomID string) QuizState
	now      func() time.Time
	location *time.Location
	buffer   int
	log      logrus.FieldLogger
}

type Option func(*RoomService)

// WithTracker reports room liveness to an external store.
func WithTracker(tracker RoomTracker) Option {
	return func(s *RoomService) { s.tracker = tracker }
}

// WithStateFactory replaces how a new room's QuizState is built.
func WithStateFactory(factory func(roomID string) QuizState) Option {
	return func(s *RoomService) { s.newState = factory }
}

// WithClock sets the clock used to stamp outbound frames.
func WithClock(now func() time.Time) Option {
	return func(s *RoomService) { s.now = now }
}

// WithLocation sets the timezone of the datetime field.
func WithLocation(loc *time.Location) Option {
	return func(s *RoomService) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithSendBuffer sets the per-subscription outbound buffer.
func WithSendBuffer(size int) Option {
	return func(s *RoomService) { s.buffer = size }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *RoomService) { s.log = log }
}

func NewRoomService(rooms RoomRepository, quizzes QuizRepository, scores ScoreRepository, registry *Registry, opts ...Option) *RoomService {
	s := &RoomService{
		rooms:    rooms,
		quizzes:  quizzes,
		scores:   scores,
		registry: registry,
		now:      time.Now,
		location: time.UTC,
		buffer:   64,
		log:      logrus.StandardLogger(),
	}
	s.newState = func(roomID string) QuizState {
		return NewRoomState(roomID, s.scores, s.quizzes)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authorize resolves the room and the caller's role in it. Unknown rooms,
// disabled rooms and non-members are rejected with domain errors.
func (s *RoomService) Authorize(ctx context.Context, roomID, userID string) (domain.Room, domain.Role, error) {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return domain.Room{}, domain.RoleNone, err
	}
	if !room.Enabled {
		return room, domain.RoleNone, domain.ErrRoomDisabled
	}
	role := room.RoleOf(userID)
	if role == domain.RoleNone {
		return room, domain.RoleNone, domain.ErrForbidden
	}
	return room, role, nil
}

// Join subscribes a connection to the room group, creating the room on
// first use, and broadcasts the join notice.
func (s *RoomService) Join(ctx context.Context, info domain.Room, participant domain.Participant, role domain.Role) (*Subscription, error) {
	key := GroupName(info.ID)
	room, created := s.registry.Acquire(key, func() *Room {
		return NewRoom(key, s.newState(info.ID))
	})
	if created {
		metrics.ActiveRooms.Inc()
	}

	sub, err := s.join(ctx, room, info, participant, role)
	if err != nil {
		s.release(ctx, room)
		return nil, err
	}
	metrics.Connections.Inc()
	s.refresh(ctx, room)
	return sub, nil
}

func (s *RoomService) join(ctx context.Context, room *Room, info domain.Room, participant domain.Participant, role domain.Role) (*Subscription, error) {
	room.mu.Lock()
	defer room.mu.Unlock()

	if err := room.state.Load(ctx); err != nil {
		return nil, err
	}
	sub := newSubscription(room, info, participant, role, s.buffer)
	room.group.add(sub)
	room.state.UpdatePlayer(participant.UserID, false)
	s.broadcastLocked(room, domain.Event{
		Type:    EventSystem,
		Message: fmt.Sprintf("Join %s to %s", participant.DisplayName, info.Name),
	})
	s.roomLog(room).WithFields(logrus.Fields{
		"user":         participant.UserID,
		"role":         role.String(),
		"subscription": sub.ID,
	}).Info("participant joined")
	return sub, nil
}

// Leave removes the subscription, notifies the remaining members and tears
// the room down when its last connection is gone. Safe to call more than once.
func (s *RoomService) Leave(ctx context.Context, sub *Subscription) {
	room := sub.room

	room.mu.Lock()
	if sub.left {
		room.mu.Unlock()
		return
	}
	sub.left = true
	room.group.discard(sub)
	if !room.group.hasParticipant(sub.Participant.UserID) {
		room.state.UpdatePlayer(sub.Participant.UserID, true)
	}
	s.broadcastLocked(room, domain.Event{
		Type:    EventSystem,
		Message: fmt.Sprintf("Leave %s from %s", sub.Participant.DisplayName, sub.info.Name),
	})
	remaining := room.group.len()
	room.mu.Unlock()

	metrics.Connections.Dec()
	s.roomLog(room).WithFields(logrus.Fields{
		"user":         sub.Participant.UserID,
		"subscription": sub.ID,
		"remaining":    remaining,
	}).Info("participant left")
	s.release(ctx, room)
}

func (s *RoomService) release(ctx context.Context, room *Room) {
	if !s.registry.Release(room.key, room) {
		return
	}
	metrics.ActiveRooms.Dec()
	s.track(ctx, room.key, false)
	s.roomLog(room).Info("room state discarded")
}

// refresh re-marks a room that is still registered so its liveness key
// outlives games longer than the tracker TTL.
func (s *RoomService) refresh(ctx context.Context, room *Room) {
	if s.tracker == nil {
		return
	}
	if current, ok := s.registry.GetState(room.key); !ok || current != room {
		return
	}
	s.track(ctx, room.key, true)
}

func (s *RoomService) track(ctx context.Context, key string, active bool) {
	if s.tracker == nil {
		return
	}
	var err error
	if active {
		err = s.tracker.MarkActive(ctx, key)
	} else {
		err = s.tracker.MarkInactive(ctx, key)
	}
	if err != nil {
		s.log.WithField("room", key).WithError(err).Warn("room tracker update failed")
	}
}

// Handle dispatches one inbound command. Owner-only commands from other
// participants are dropped without a reply; faults are logged and never
// reach the client.
func (s *RoomService) Handle(ctx context.Context, sub *Subscription, cmd Command) {
	room := sub.room
	room.mu.Lock()
	if sub.left {
		room.mu.Unlock()
		return
	}
	outcome, err := s.dispatchLocked(ctx, room, sub, cmd)
	room.mu.Unlock()

	if err != nil {
		outcome = metrics.OutcomeFailed
		s.roomLog(room).WithFields(logrus.Fields{
			"command": cmd.Name,
			"user":    sub.Participant.UserID,
		}).Errorf("[%s] %v", room.key, err)
	}
	metrics.Commands.WithLabelValues(CommandLabel(cmd.Name), outcome).Inc()
	if outcome == metrics.OutcomeApplied {
		s.refresh(ctx, room)
	}
}

func (s *RoomService) dispatchLocked(ctx context.Context, room *Room, sub *Subscription, cmd Command) (string, error) {
	state := room.state
	switch cmd.Name {
	case CommandReceivedQuiz:
		if state.UpdateMemberStatus(sub.Participant.UserID) {
			s.broadcastLocked(room, domain.Event{Type: EventSentAllQuizzes, Message: "All players received the quiz."})
		}
		return metrics.OutcomeApplied, nil
	case CommandAnswerQuiz:
		if !state.CanAnswer() {
			return metrics.OutcomeIgnored, nil
		}
		answer, err := decodeAnswer(cmd.Data)
		if err != nil {
			return "", err
		}
		state.UpdateAnswer(sub.Participant.UserID, answer)
		return metrics.OutcomeApplied, nil
	case CommandResetQuiz, CommandGetNextQuiz, CommandStartAnswer, CommandStopAnswer, CommandGetAnswers, CommandSendResult:
		if !sub.IsOwner() {
			s.roomLog(room).WithFields(logrus.Fields{
				"command": cmd.Name,
				"user":    sub.Participant.UserID,
			}).Debug("owner-only command ignored")
			return metrics.OutcomeIgnored, nil
		}
		return metrics.OutcomeApplied, s.dispatchOwnerLocked(ctx, room, sub, cmd)
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownCommand, cmd.Name)
	}
}

func (s *RoomService) dispatchOwnerLocked(ctx context.Context, room *Room, sub *Subscription, cmd Command) error {
	state := room.state
	maxQuestion := sub.info.MaxQuestion

	switch cmd.Name {
	case CommandResetQuiz:
		if err := state.Reset(ctx, sub.info); err != nil {
			return err
		}
		s.broadcastLocked(room, domain.Event{Type: EventResetCompleted, Message: "Status reset is completed"})
	case CommandGetNextQuiz:
		question, index, err := state.GetNextQuiz(ctx, maxQuestion)
		if err != nil {
			return err
		}
		s.broadcastLocked(room, domain.Event{
			Type:    EventSentNextQuiz,
			Data:    question,
			Index:   &index,
			Message: "The next quiz is received.",
		})
	case CommandStartAnswer:
		if err := state.AnsweringPhase(ctx); err != nil {
			return err
		}
		s.broadcastLocked(room, domain.Event{Type: EventStartedAnswering})
	case CommandStopAnswer:
		if err := state.ReceivedAllAnswersPhase(ctx); err != nil {
			return err
		}
		s.broadcastLocked(room, domain.Event{
			Type:    EventStoppedAnswering,
			Message: "Responses have ended. No more responses will be accepted.",
		})
	case CommandGetAnswers:
		answers, correct, err := state.GetAnswers(ctx)
		if err != nil {
			return err
		}
		s.broadcastLocked(room, domain.Event{
			Type:          EventSentAnswers,
			Data:          answers,
			CorrectAnswer: &correct,
			Message:       "All player's answers are received.",
		})
	case CommandSendResult:
		judgement, err := decodeJudgement(cmd.Data)
		if err != nil {
			return err
		}
		detail, isEnded, err := state.UpdateState(ctx, maxQuestion, judgement)
		if err != nil {
			return err
		}
		message := "The score is updated. Please next quiz."
		if isEnded {
			message = "All quizzes have been asked. Please press the reset button."
		}
		s.broadcastLocked(room, domain.Event{
			Type:    EventShareResult,
			Data:    detail,
			IsEnded: &isEnded,
			Message: message,
		})
	}
	return nil
}

// broadcastLocked stamps and publishes ev to the room group. Delivery
// faults are logged and swallowed.
func (s *RoomService) broadcastLocked(room *Room, ev domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.roomLog(room).Errorf("[%s]Send group message: %v", room.key, r)
		}
	}()
	ev.Datetime = s.now().In(s.location).Format(datetimeLayout)
	for _, sub := range room.group.publish(ev) {
		metrics.Evictions.Inc()
		s.roomLog(room).WithFields(logrus.Fields{
			"user":         sub.Participant.UserID,
			"subscription": sub.ID,
		}).Errorf("[%s]Send group message: send buffer full, subscriber evicted", room.key)
	}
}

func (s *RoomService) roomLog(room *Room) logrus.FieldLogger {
	return s.log.WithField("room", room.key)
}

func decodeAnswer(raw json.RawMessage) (string, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", nil
	}
	var answer string
	if err := json.Unmarshal(raw, &answer); err != nil {
		return "", fmt.Errorf("%w: answer must be a string", domain.ErrInvalidPayload)
	}
	return answer, nil
}

// decodeJudgement reads {participantId: delta}. Deltas must be integers;
// numeric strings are accepted the way the browser client may send them.
func decodeJudgement(raw json.RawMessage) (map[string]int, error) {
	var values map[string]json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&values); err != nil || values == nil {
		return nil, fmt.Errorf("%w: expected an object of integer deltas", domain.ErrInvalidJudgement)
	}
	judgement := make(map[string]int, len(values))
	for id, value := range values {
		delta, err := value.Int64()
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%s", domain.ErrInvalidJudgement, id, value)
		}
		judgement[id] = int(delta)
	}
	return judgement, nil
}

// CommandLabel bounds the metric label set to known command names.
func CommandLabel(name string) string {
	switch name {
	case CommandResetQuiz, CommandGetNextQuiz, CommandReceivedQuiz, CommandStartAnswer,
		CommandAnswerQuiz, CommandStopAnswer, CommandGetAnswers, CommandSendResult:
		return name
	default:
		return "unknown"
	}
}
