package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// QuestionType distinguishes single-select from multi-select questions.
type QuestionType string

const (
	QuestionTypeSingle   QuestionType = "single"
	QuestionTypeMultiple QuestionType = "multiple"
)

// Difficulty is passed to the content generator and stored with results.
// It does not alter scoring.
type Difficulty string

const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyModerate Difficulty = "moderate"
	DifficultyHard     Difficulty = "hard"
)

// ParseDifficulty normalizes a difficulty string, falling back to moderate.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(s) {
	case DifficultyEasy, DifficultyModerate, DifficultyHard:
		return Difficulty(s)
	default:
		return DifficultyModerate
	}
}

// Question is a single multiple-choice question with four options.
// CorrectAnswers holds indices into Options; exactly one for single-select.
type Question struct {
	ID             int          `json:"id"`
	Text           string       `json:"question"`
	Options        []string     `json:"options"`
	CorrectAnswers []int        `json:"correctAnswers"`
	Type           QuestionType `json:"type"`
}

// Validate checks the structural invariants of a generated question.
func (q Question) Validate() error {
	if q.Text == "" {
		return fmt.Errorf("question %d: empty text", q.ID)
	}
	if len(q.Options) != 4 {
		return fmt.Errorf("question %d: expected 4 options, got %d", q.ID, len(q.Options))
	}
	if len(q.CorrectAnswers) == 0 {
		return fmt.Errorf("question %d: no correct answers", q.ID)
	}
	seen := make(map[int]bool, len(q.CorrectAnswers))
	for _, idx := range q.CorrectAnswers {
		if idx < 0 || idx >= len(q.Options) {
			return fmt.Errorf("question %d: correct answer index %d out of range", q.ID, idx)
		}
		if seen[idx] {
			return fmt.Errorf("question %d: duplicate correct answer index %d", q.ID, idx)
		}
		seen[idx] = true
	}
	switch q.Type {
	case QuestionTypeSingle:
		if len(q.CorrectAnswers) != 1 {
			return fmt.Errorf("question %d: single-select must have exactly one correct answer", q.ID)
		}
	case QuestionTypeMultiple:
	default:
		return fmt.Errorf("question %d: unknown type %q", q.ID, q.Type)
	}
	return nil
}

// Quiz is an ordered set of questions generated from one study file.
// It is immutable for the lifetime of a session.
type Quiz struct {
	FileName  string     `json:"fileName"`
	Questions []Question `json:"questions"`
}

// Validate checks every question and requires a non-empty question list.
func (qz Quiz) Validate() error {
	if len(qz.Questions) == 0 {
		return fmt.Errorf("quiz has no questions")
	}
	for _, q := range qz.Questions {
		if err := q.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// AnswerRecord is one entry of a session's answer history.
type AnswerRecord struct {
	QuestionID       int  `json:"questionId"`
	IsCorrect        bool `json:"isCorrect"`
	TimeSpentSeconds int  `json:"timeSpentSeconds"`
}

// StudyFile is an uploaded study document. FileData holds the raw payload;
// it is base64-encoded on the wire.
type StudyFile struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"userId"`
	FileName     string    `json:"fileName"`
	DisplayName  string    `json:"displayName"`
	FileSize     int64     `json:"fileSize"`
	FileType     string    `json:"fileType"`
	FileData     []byte    `json:"-"`
	UploadedAt   time.Time `json:"uploadedAt"`
	LastModified time.Time `json:"lastModified"`
}

// QuizResult is the durable record of one completed quiz session.
// Written exactly once per session; removed only by cascading file deletion.
type QuizResult struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"userId"`
	FileID         uuid.UUID  `json:"fileId"`
	FileName       string     `json:"fileName"`
	Score          int        `json:"score"`
	TotalQuestions int        `json:"totalQuestions"`
	TimeElapsed    string     `json:"timeElapsed"`
	Difficulty     Difficulty `json:"difficulty"`
	Points         int        `json:"points"`
	CompletedAt    time.Time  `json:"completedAt"`
}

// User is an account record. PasswordHash is empty for OAuth-only accounts.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	GoogleID     string    `json:"-"`
	Picture      string    `json:"picture,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// ChatTurn is one prior exchange in a tutor conversation.
type ChatTurn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// FormatTime renders elapsed seconds as "M:SS" for result records.
func FormatTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
