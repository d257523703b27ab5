package domain

import "errors"

var (
	// ErrRoomNotFound is returned when the room id does not resolve to a configured room.
	ErrRoomNotFound = errors.New("quiz room not found")
	// ErrRoomDisabled is returned for rooms that exist but are not open for play.
	ErrRoomDisabled = errors.New("quiz room is disabled")
	// ErrForbidden is returned when a principal is neither owner nor member of a room.
	ErrForbidden = errors.New("not a member of the quiz room")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrScoreNotFound indicates the room has no persisted score record yet.
	ErrScoreNotFound = errors.New("score not found")
	// ErrNoActiveQuiz is returned when answers are requested with no question in flight.
	ErrNoActiveQuiz = errors.New("no active quiz")
	// ErrUnknownParticipant is returned when a judgement names someone without a detail entry.
	ErrUnknownParticipant = errors.New("participant has no score entry")
	// ErrInvalidJudgement indicates a non-integer or malformed score delta.
	ErrInvalidJudgement = errors.New("invalid judgement")
	// ErrUnknownCommand is returned for inbound commands outside the protocol.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrInvalidPayload indicates the data field of a command could not be decoded.
	ErrInvalidPayload = errors.New("invalid command payload")
)
