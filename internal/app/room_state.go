package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"quizroom-service/internal/domain"
)

// QuizState is the per-room state machine driven by connection commands.
// Implementations are not safe for concurrent use; the owning Room serializes access.
type QuizState interface {
	Load(ctx context.Context) error
	Reset(ctx context.Context, room domain.Room) error
	GetNextQuiz(ctx context.Context, maxQuestion int) (string, int, error)
	UpdateMemberStatus(participantID string) bool
	AnsweringPhase(ctx context.Context) error
	CanAnswer() bool
	UpdateAnswer(participantID, answer string)
	ReceivedAllAnswersPhase(ctx context.Context) error
	GetAnswers(ctx context.Context) (map[string]*domain.Answer, string, error)
	UpdateState(ctx context.Context, maxQuestion int, judgement map[string]int) (map[string]int, bool, error)
	UpdatePlayer(participantID string, remove bool)
	HasPlayer() bool
}

// RoomState is the default QuizState. Every transition persists the new
// score record first and only then applies it in memory, so a failed save
// leaves the state untouched.
type RoomState struct {
	roomID  string
	scores  ScoreRepository
	quizzes QuizRepository
	now     func() time.Time
	rnd     *rand.Rand

	score      *domain.ScoreRecord
	quiz       *domain.Quiz
	players    map[string]bool
	answers    map[string]*domain.Answer
	phaseStart time.Time
}

var _ QuizState = (*RoomState)(nil)

func NewRoomState(roomID string, scores ScoreRepository, quizzes QuizRepository) *RoomState {
	return NewRoomStateWithClock(roomID, scores, quizzes, time.Now, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewRoomStateWithClock allows deterministic timing and shuffling in tests.
func NewRoomStateWithClock(roomID string, scores ScoreRepository, quizzes QuizRepository, now func() time.Time, rnd *rand.Rand) *RoomState {
	return &RoomState{
		roomID:     roomID,
		scores:     scores,
		quizzes:    quizzes,
		now:        now,
		rnd:        rnd,
		players:    make(map[string]bool),
		answers:    make(map[string]*domain.Answer),
		phaseStart: now(),
	}
}

// Load fetches the score record once; later calls are no-ops.
func (s *RoomState) Load(ctx context.Context) error {
	if s.score != nil {
		return nil
	}
	record, err := s.scores.LoadScore(ctx, s.roomID)
	switch {
	case errors.Is(err, domain.ErrScoreNotFound):
		record = domain.NewScoreRecord(s.roomID)
	case err != nil:
		return fmt.Errorf("load score: %w", err)
	}
	s.UpdateScore(record)
	return nil
}

// UpdateScore replaces the score reference and drops the active quiz.
func (s *RoomState) UpdateScore(record domain.ScoreRecord) {
	s.score = &record
	s.quiz = nil
}

// Score returns a copy of the current score record.
func (s *RoomState) Score() (domain.ScoreRecord, bool) {
	if s.score == nil {
		return domain.ScoreRecord{}, false
	}
	return s.score.Clone(), true
}

func (s *RoomState) Reset(ctx context.Context, room domain.Room) error {
	current, err := s.current(ctx)
	if err != nil {
		return err
	}
	ids, err := s.quizzes.ListQuizIDs(ctx, domain.QuizFilter{CreatorIDs: room.CreatorIDs, GenreIDs: room.GenreIDs})
	if err != nil {
		return fmt.Errorf("list quizzes: %w", err)
	}
	ids = append([]string(nil), ids...)
	s.rnd.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	count := min(room.MaxQuestion, len(ids))

	next := current.Clone()
	next.Status = domain.StatusStart
	next.Index = 1
	next.Sequence = make(map[string]string, count)
	for i := 0; i < count; i++ {
		next.Sequence[strconv.Itoa(i+1)] = ids[i]
	}
	next.Detail = make(map[string]int)
	for _, id := range room.ParticipantIDs() {
		next.Detail[id] = 0
	}
	if err := s.save(ctx, next); err != nil {
		return err
	}
	s.quiz = nil
	s.answers = make(map[string]*domain.Answer)
	return nil
}

func (s *RoomState) GetNextQuiz(ctx context.Context, maxQuestion int) (string, int, error) {
	current, err := s.current(ctx)
	if err != nil {
		return "", 0, err
	}
	index := current.Index
	if index > maxQuestion {
		index = 1
	}
	quizID, ok := current.QuizIDAt(index)
	if !ok {
		return "", 0, fmt.Errorf("sequence slot %d: %w", index, domain.ErrQuizNotFound)
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return "", 0, fmt.Errorf("get quiz %s: %w", quizID, err)
	}

	next := current.Clone()
	next.Status = domain.StatusSentQuestion
	if err := s.save(ctx, next); err != nil {
		return "", 0, err
	}
	s.quiz = &quiz
	s.answers = make(map[string]*domain.Answer)
	return quiz.Question, index, nil
}

// UpdateMemberStatus marks receipt of the current question and reports
// whether every connected player has now acknowledged it.
func (s *RoomState) UpdateMemberStatus(participantID string) bool {
	if !s.players[participantID] {
		return false
	}
	if _, ok := s.answers[participantID]; !ok {
		s.answers[participantID] = nil
	}
	for id := range s.players {
		if _, ok := s.answers[id]; !ok {
			return false
		}
	}
	return true
}

func (s *RoomState) AnsweringPhase(ctx context.Context) error {
	current, err := s.current(ctx)
	if err != nil {
		return err
	}
	next := current.Clone()
	next.Status = domain.StatusAnswering
	if err := s.save(ctx, next); err != nil {
		return err
	}
	s.answers = make(map[string]*domain.Answer, len(s.players))
	for id := range s.players {
		s.answers[id] = &domain.Answer{}
	}
	s.phaseStart = s.now()
	return nil
}

func (s *RoomState) CanAnswer() bool {
	return s.score != nil && s.score.Status == domain.StatusAnswering
}

// UpdateAnswer overwrites the participant's answer with the elapsed time since answering opened.
func (s *RoomState) UpdateAnswer(participantID, answer string) {
	if !s.players[participantID] {
		return
	}
	elapsed := s.now().Sub(s.phaseStart).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	s.answers[participantID] = &domain.Answer{Answer: answer, Time: elapsed}
}

func (s *RoomState) ReceivedAllAnswersPhase(ctx context.Context) error {
	current, err := s.current(ctx)
	if err != nil {
		return err
	}
	next := current.Clone()
	next.Status = domain.StatusReceivedAnswers
	return s.save(ctx, next)
}

// GetAnswers moves to judging and returns a copy of the collected answers with the correct answer.
func (s *RoomState) GetAnswers(ctx context.Context) (map[string]*domain.Answer, string, error) {
	current, err := s.current(ctx)
	if err != nil {
		return nil, "", err
	}
	if s.quiz == nil {
		return nil, "", domain.ErrNoActiveQuiz
	}
	next := current.Clone()
	next.Status = domain.StatusJudging
	if err := s.save(ctx, next); err != nil {
		return nil, "", err
	}

	answers := make(map[string]*domain.Answer, len(s.answers))
	for id, answer := range s.answers {
		if answer == nil {
			answers[id] = nil
			continue
		}
		copied := *answer
		answers[id] = &copied
	}
	return answers, s.quiz.Answer, nil
}

// UpdateState applies score deltas and advances the index. The second
// return value reports whether the last question has been judged.
func (s *RoomState) UpdateState(ctx context.Context, maxQuestion int, judgement map[string]int) (map[string]int, bool, error) {
	current, err := s.current(ctx)
	if err != nil {
		return nil, false, err
	}
	next := current.Clone()
	for id, delta := range judgement {
		value, ok := next.Detail[id]
		if !ok {
			return nil, false, fmt.Errorf("%s: %w", id, domain.ErrUnknownParticipant)
		}
		next.Detail[id] = value + delta
	}
	isEnded := next.Index >= maxQuestion
	if isEnded {
		next.Status = domain.StatusEnd
	} else {
		next.Status = domain.StatusWaiting
	}
	next.Index++
	if err := s.save(ctx, next); err != nil {
		return nil, false, err
	}
	s.quiz = nil

	detail := make(map[string]int, len(next.Detail))
	for id, value := range next.Detail {
		detail[id] = value
	}
	return detail, isEnded, nil
}

// UpdatePlayer adds a connected participant, or removes it together with any in-flight answer.
func (s *RoomState) UpdatePlayer(participantID string, remove bool) {
	if remove {
		delete(s.players, participantID)
		delete(s.answers, participantID)
		return
	}
	s.players[participantID] = true
}

// HasPlayer reports whether any participant is connected. Room teardown is
// driven by Registry.Release reference counts, not by this check.
func (s *RoomState) HasPlayer() bool {
	return len(s.players) > 0
}

func (s *RoomState) current(ctx context.Context) (domain.ScoreRecord, error) {
	if err := s.Load(ctx); err != nil {
		return domain.ScoreRecord{}, err
	}
	return *s.score, nil
}

func (s *RoomState) save(ctx context.Context, next domain.ScoreRecord) error {
	if err := s.scores.SaveScore(ctx, next); err != nil {
		return fmt.Errorf("save score: %w", err)
	}
	s.score = &next
	return nil
}
