package quiz

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"studi/internal/models"

	"github.com/google/uuid"
)

// ResultSaver persists the durable record of a finished session. A save that
// falls inside the store's duplicate-submission window must return
// models.ErrDuplicateResult; it is the second line of defense behind the
// session's one-shot finish callback.
type ResultSaver interface {
	SaveResult(ctx context.Context, result models.QuizResult) (models.QuizResult, error)
}

// Manager owns the active quiz sessions for the process and arms the
// wall-clock expiry timer for each.
type Manager struct {
	saver ResultSaver
	now   func() time.Time

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewManager creates a Manager that saves results through saver.
func NewManager(saver ResultSaver) *Manager {
	return NewManagerWithClock(saver, time.Now)
}

// NewManagerWithClock is test-only for deterministic timestamps.
func NewManagerWithClock(saver ResultSaver, now func() time.Time) *Manager {
	return &Manager{
		saver:    saver,
		now:      now,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Create starts a session for a generated quiz. The countdown runs against
// wall-clock time from this moment regardless of in-flight network calls.
func (m *Manager) Create(userID, fileID uuid.UUID, qz models.Quiz, totalMinutes int, difficulty models.Difficulty) (*Session, error) {
	if len(qz.Questions) == 0 {
		return nil, ErrEmptyQuiz
	}
	if totalMinutes <= 0 {
		totalMinutes = 15
	}

	s := newSession(userID, fileID, qz, totalMinutes, difficulty, m.now)
	s.onFinish = func(outcome Outcome) {
		m.persist(s, outcome)
		m.remove(s.ID)
	}
	s.expireTimer = time.AfterFunc(time.Duration(totalMinutes)*time.Minute, s.Expire)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

// Get returns a session by ID, scoped to its owner.
func (m *Manager) Get(id, userID uuid.UUID) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || s.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Quit discards a session without saving anything.
func (m *Manager) Quit(id, userID uuid.UUID) error {
	s, err := m.Get(id, userID)
	if err != nil {
		return err
	}
	s.Quit()
	m.remove(id)
	return nil
}

func (m *Manager) remove(id uuid.UUID) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// persist writes the result record for a finished session. A duplicate within
// the store's submission window is benign (double-invocation) and is logged,
// not surfaced.
func (m *Manager) persist(s *Session, outcome Outcome) {
	result := models.QuizResult{
		UserID:         s.UserID,
		FileID:         s.FileID,
		FileName:       outcome.FileName,
		Score:          outcome.Score,
		TotalQuestions: outcome.TotalQuestions,
		TimeElapsed:    outcome.TimeElapsed,
		Difficulty:     outcome.Difficulty,
		Points:         outcome.Points,
		CompletedAt:    m.now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := m.saver.SaveResult(ctx, result); err != nil {
		if errors.Is(err, models.ErrDuplicateResult) {
			log.Printf("INFO: duplicate quiz result for file %s skipped", s.FileID)
			return
		}
		log.Printf("ERROR: failed to save quiz result for session %s: %v", s.ID, err)
	}
}
