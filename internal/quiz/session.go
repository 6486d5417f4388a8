// Package quiz holds the quiz session state machine and scoring engine.
//
// A Session moves Active -> Results once, either when the user advances past
// the last question or when the countdown expires, whichever fires first.
// Quit is a side exit that discards the session without persisting anything.
package quiz

import (
	"errors"
	"sync"
	"time"

	"studi/internal/models"

	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound is returned when no active session matches the ID.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionFinished is returned for mutations after the Results transition.
	ErrSessionFinished = errors.New("quiz session already finished")
	// ErrInvalidOption is returned when an option index is out of range.
	ErrInvalidOption = errors.New("option index out of range")
	// ErrEmptyQuiz is returned when a session is requested for a quiz with no questions.
	ErrEmptyQuiz = errors.New("quiz has no questions")
)

// State is the lifecycle phase of a session. Sessions are only constructed
// once quiz content is available, so the loading phase lives with the caller.
type State string

const (
	StateActive  State = "active"
	StateResults State = "results"
)

// Outcome is the terminal summary of a finished session.
type Outcome struct {
	Score          int                   `json:"score"`
	TotalQuestions int                   `json:"totalQuestions"`
	Percentage     int                   `json:"percentage"`
	Points         int                   `json:"points"`
	TimeElapsed    string                `json:"timeElapsed"`
	FileName       string                `json:"fileName"`
	Difficulty     models.Difficulty     `json:"difficulty"`
	History        []models.AnswerRecord `json:"history"`
}

// View is a point-in-time snapshot for clients. The current question is
// exposed without its correct answer set.
type View struct {
	ID               uuid.UUID         `json:"id"`
	State            State             `json:"state"`
	QuestionIndex    int               `json:"questionIndex"`
	TotalQuestions   int               `json:"totalQuestions"`
	Question         *ViewQuestion     `json:"question,omitempty"`
	SelectedAnswers  []int             `json:"selectedAnswers"`
	RemainingSeconds int               `json:"remainingSeconds"`
	TotalPoints      int               `json:"totalPoints"`
	CurrentStreak    int               `json:"currentStreak"`
	Difficulty       models.Difficulty `json:"difficulty"`
	Outcome          *Outcome          `json:"outcome,omitempty"`
}

// ViewQuestion is a question stripped of its answer key.
type ViewQuestion struct {
	ID      int                 `json:"id"`
	Text    string              `json:"question"`
	Options []string            `json:"options"`
	Type    models.QuestionType `json:"type"`
}

// Session drives one attempt at a generated quiz. All mutation goes through
// the mutex; HTTP handlers and the expiry timer are the only writers.
type Session struct {
	ID     uuid.UUID
	UserID uuid.UUID
	FileID uuid.UUID

	quiz       models.Quiz
	difficulty models.Difficulty
	now        func() time.Time

	mu              sync.Mutex
	state           State
	currentIndex    int
	selected        map[int][]int // questionID -> selected option indices
	totalPoints     int
	currentStreak   int
	history         []models.AnswerRecord
	startedAt       time.Time
	deadline        time.Time
	questionStarted time.Time
	outcome         *Outcome
	onFinish        func(Outcome) // invoked exactly once, outside the lock
	expireTimer     *time.Timer
}

func newSession(userID, fileID uuid.UUID, quiz models.Quiz, totalMinutes int, difficulty models.Difficulty, now func() time.Time) *Session {
	start := now()
	return &Session{
		ID:              uuid.New(),
		UserID:          userID,
		FileID:          fileID,
		quiz:            quiz,
		difficulty:      difficulty,
		now:             now,
		state:           StateActive,
		selected:        make(map[int][]int),
		startedAt:       start,
		deadline:        start.Add(time.Duration(totalMinutes) * time.Minute),
		questionStarted: start,
	}
}

// SelectAnswer records an option choice for the current question. Single-select
// replaces the selection set; multi-select toggles membership. Correctness is
// never evaluated here; feedback is deferred to scoring on Next.
func (s *Session) SelectAnswer(optionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return ErrSessionFinished
	}
	q := s.quiz.Questions[s.currentIndex]
	if optionIndex < 0 || optionIndex >= len(q.Options) {
		return ErrInvalidOption
	}

	if q.Type == models.QuestionTypeSingle {
		s.selected[q.ID] = []int{optionIndex}
		return nil
	}
	current := s.selected[q.ID]
	for i, idx := range current {
		if idx == optionIndex {
			s.selected[q.ID] = append(current[:i], current[i+1:]...)
			return nil
		}
	}
	s.selected[q.ID] = append(current, optionIndex)
	return nil
}

// Next scores the current question, appends it to the answer history, and
// advances, or finishes the session when on the last question. It returns
// the outcome when the call caused (or raced into) the Results transition.
func (s *Session) Next() (*Outcome, error) {
	s.mu.Lock()

	if s.state != StateActive {
		outcome := s.outcome
		s.mu.Unlock()
		if outcome != nil {
			return outcome, nil
		}
		return nil, ErrSessionFinished
	}

	q := s.quiz.Questions[s.currentIndex]
	timeSpent := int(s.now().Sub(s.questionStarted).Seconds())
	correct := IsCorrect(q, s.selected[q.ID])

	s.history = append(s.history, models.AnswerRecord{
		QuestionID:       q.ID,
		IsCorrect:        correct,
		TimeSpentSeconds: timeSpent,
	})
	s.totalPoints, s.currentStreak = Score(correct, timeSpent, s.totalPoints, s.currentStreak)

	if s.currentIndex == len(s.quiz.Questions)-1 {
		outcome, finish := s.finishLocked()
		s.mu.Unlock()
		if finish != nil {
			finish(*outcome)
		}
		return outcome, nil
	}

	s.currentIndex++
	s.questionStarted = s.now()
	s.mu.Unlock()
	return nil, nil
}

// Previous steps back one question without touching history or points.
// Selections persist, so navigation is non-destructive.
func (s *Session) Previous() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return ErrSessionFinished
	}
	if s.currentIndex > 0 {
		s.currentIndex--
		s.questionStarted = s.now()
	}
	return nil
}

// Expire force-finishes the session when the countdown reaches zero. Questions
// never advanced past are recorded as incorrect with zero time spent; points
// accumulated so far stand. A session that already reached Results is left alone.
func (s *Session) Expire() {
	s.mu.Lock()

	if s.state != StateActive {
		s.mu.Unlock()
		return
	}

	answered := make(map[int]bool, len(s.history))
	for _, rec := range s.history {
		answered[rec.QuestionID] = true
	}
	for _, q := range s.quiz.Questions {
		if !answered[q.ID] {
			s.history = append(s.history, models.AnswerRecord{QuestionID: q.ID, IsCorrect: IsCorrect(q, s.selected[q.ID])})
		}
	}

	outcome, finish := s.finishLocked()
	s.mu.Unlock()
	if finish != nil {
		finish(*outcome)
	}
}

// Quit tears the session down with no result save. The Results transition is
// bypassed, so a later Expire or Next is a no-op.
func (s *Session) Quit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return
	}
	s.state = StateResults
	s.onFinish = nil
	if s.expireTimer != nil {
		s.expireTimer.Stop()
	}
}

// finishLocked performs the single Results transition. It returns the outcome
// and the one-shot finish callback for the caller to invoke after unlocking;
// the callback is cleared so a racing terminal transition cannot save twice.
func (s *Session) finishLocked() (*Outcome, func(Outcome)) {
	s.state = StateResults
	if s.expireTimer != nil {
		s.expireTimer.Stop()
	}

	elapsed := int(s.now().Sub(s.startedAt).Seconds())
	if total := int(s.deadline.Sub(s.startedAt).Seconds()); elapsed > total {
		elapsed = total
	}

	score := FinalScore(s.quiz.Questions, s.selected)
	total := len(s.quiz.Questions)
	outcome := &Outcome{
		Score:          score,
		TotalQuestions: total,
		Percentage:     int(float64(score)/float64(total)*100 + 0.5),
		Points:         s.totalPoints,
		TimeElapsed:    models.FormatTime(elapsed),
		FileName:       s.quiz.FileName,
		Difficulty:     s.difficulty,
		History:        append([]models.AnswerRecord(nil), s.history...),
	}
	s.outcome = outcome

	finish := s.onFinish
	s.onFinish = nil
	return outcome, finish
}

// RemainingSeconds reports the countdown value, floored at zero.
func (s *Session) RemainingSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingLocked()
}

func (s *Session) remainingLocked() int {
	if s.state != StateActive {
		return 0
	}
	remaining := int(s.deadline.Sub(s.now()).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// View snapshots the session for clients without exposing answer keys.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:               s.ID,
		State:            s.state,
		QuestionIndex:    s.currentIndex,
		TotalQuestions:   len(s.quiz.Questions),
		RemainingSeconds: s.remainingLocked(),
		TotalPoints:      s.totalPoints,
		CurrentStreak:    s.currentStreak,
		Difficulty:       s.difficulty,
		Outcome:          s.outcome,
	}
	if s.state == StateActive {
		q := s.quiz.Questions[s.currentIndex]
		v.Question = &ViewQuestion{ID: q.ID, Text: q.Text, Options: q.Options, Type: q.Type}
		v.SelectedAnswers = append([]int{}, s.selected[q.ID]...)
	}
	return v
}
