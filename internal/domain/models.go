package domain

import (
	"slices"
	"strconv"
)

// Status is the phase tag persisted in a room's score record.
type Status int

const (
	StatusStart Status = iota + 1
	StatusWaiting
	StatusSentQuestion
	StatusAnswering
	StatusReceivedAnswers
	StatusJudging
	StatusEnd
)

func (s Status) String() string {
	switch s {
	case StatusStart:
		return "START"
	case StatusWaiting:
		return "WAITING"
	case StatusSentQuestion:
		return "SENT_QUESTION"
	case StatusAnswering:
		return "ANSWERING"
	case StatusReceivedAnswers:
		return "RECEIVED_ANSWERS"
	case StatusJudging:
		return "JUDGING"
	case StatusEnd:
		return "END"
	default:
		return "UNKNOWN(" + strconv.Itoa(int(s)) + ")"
	}
}

// ScoreRecord is the persisted scoring state of a room.
// Sequence maps the 1-based index (as a string) to a quiz id.
type ScoreRecord struct {
	RoomID   string            `json:"roomId"`
	Status   Status            `json:"status"`
	Index    int               `json:"index"`
	Sequence map[string]string `json:"sequence"`
	Detail   map[string]int    `json:"detail"`
}

// NewScoreRecord returns the record a room starts with before its first reset.
func NewScoreRecord(roomID string) ScoreRecord {
	return ScoreRecord{
		RoomID:   roomID,
		Status:   StatusStart,
		Index:    1,
		Sequence: map[string]string{},
		Detail:   map[string]int{},
	}
}

// Clone returns a deep copy so callers can mutate it before persisting.
func (r ScoreRecord) Clone() ScoreRecord {
	out := r
	out.Sequence = make(map[string]string, len(r.Sequence))
	for k, v := range r.Sequence {
		out.Sequence[k] = v
	}
	out.Detail = make(map[string]int, len(r.Detail))
	for k, v := range r.Detail {
		out.Detail[k] = v
	}
	return out
}

// QuizIDAt returns the quiz id scheduled at the 1-based index.
func (r ScoreRecord) QuizIDAt(index int) (string, bool) {
	id, ok := r.Sequence[strconv.Itoa(index)]
	return id, ok
}

// Role is a participant's relation to a room.
type Role int

const (
	RoleNone Role = iota
	RolePlayer
	RoleCreator
	RoleOwner
)

func (r Role) String() string {
	switch r {
	case RolePlayer:
		return "player"
	case RoleCreator:
		return "creator"
	case RoleOwner:
		return "owner"
	default:
		return "none"
	}
}

// Room is the membership view of a configured quiz room.
type Room struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	OwnerID     string   `json:"ownerId" yaml:"owner"`
	CreatorIDs  []string `json:"creatorIds" yaml:"creators"`
	PlayerIDs   []string `json:"playerIds" yaml:"players"`
	GenreIDs    []string `json:"genreIds" yaml:"genres"`
	MaxQuestion int      `json:"maxQuestion" yaml:"max_question"`
	Enabled     bool     `json:"enabled" yaml:"enabled"`
}

// RoleOf reports how userID relates to the room; owner wins over membership.
func (r Room) RoleOf(userID string) Role {
	switch {
	case userID == "":
		return RoleNone
	case r.OwnerID == userID:
		return RoleOwner
	case slices.Contains(r.CreatorIDs, userID):
		return RoleCreator
	case slices.Contains(r.PlayerIDs, userID):
		return RolePlayer
	default:
		return RoleNone
	}
}

// ParticipantIDs lists everyone who may take part in the room, owner first, without duplicates.
func (r Room) ParticipantIDs() []string {
	ids := make([]string, 0, 1+len(r.CreatorIDs)+len(r.PlayerIDs))
	seen := make(map[string]struct{}, cap(ids))
	for _, group := range [][]string{{r.OwnerID}, r.CreatorIDs, r.PlayerIDs} {
		for _, id := range group {
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// Quiz is one question/answer pair.
type Quiz struct {
	ID        string `json:"id" yaml:"id"`
	CreatorID string `json:"creatorId" yaml:"creator"`
	GenreID   string `json:"genreId" yaml:"genre"`
	Question  string `json:"question" yaml:"question"`
	Answer    string `json:"answer" yaml:"answer"`
	Completed bool   `json:"completed" yaml:"completed"`
}

// QuizFilter selects quizzes by creator OR genre. Empty filter matches all completed quizzes.
type QuizFilter struct {
	CreatorIDs []string
	GenreIDs   []string
}

// Matches applies the filter to a single quiz.
func (f QuizFilter) Matches(q Quiz) bool {
	if !q.Completed {
		return false
	}
	if len(f.CreatorIDs) == 0 && len(f.GenreIDs) == 0 {
		return true
	}
	return slices.Contains(f.CreatorIDs, q.CreatorID) || slices.Contains(f.GenreIDs, q.GenreID)
}

// Answer is a submitted answer and the seconds elapsed since answering opened.
type Answer struct {
	Answer string  `json:"answer"`
	Time   float64 `json:"time"`
}

// Participant identifies a connected principal.
type Participant struct {
	UserID      string
	DisplayName string
}

// Event is an outbound frame. Pointer fields are only set for the event types that carry them.
type Event struct {
	Type          string  `json:"type"`
	Datetime      string  `json:"datetime,omitempty"`
	Message       string  `json:"message,omitempty"`
	Data          any     `json:"data,omitempty"`
	Index         *int    `json:"index,omitempty"`
	CorrectAnswer *string `json:"correctAnswer,omitempty"`
	IsEnded       *bool   `json:"isEnded,omitempty"`
}
