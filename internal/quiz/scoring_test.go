package quiz

import (
	"testing"

	"studi/internal/models"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name        string
		isCorrect   bool
		timeSpent   int
		priorTotal  int
		priorStreak int
		wantTotal   int
		wantStreak  int
	}{
		{name: "incorrect halves total and resets streak", isCorrect: false, timeSpent: 5, priorTotal: 100, priorStreak: 5, wantTotal: 50, wantStreak: 0},
		{name: "incorrect floors the halving", isCorrect: false, timeSpent: 5, priorTotal: 75, priorStreak: 2, wantTotal: 37, wantStreak: 0},
		{name: "fast correct from zero", isCorrect: true, timeSpent: 10, priorTotal: 0, priorStreak: 0, wantTotal: 30, wantStreak: 1},
		{name: "fast correct at window boundary", isCorrect: true, timeSpent: 15, priorTotal: 0, priorStreak: 0, wantTotal: 30, wantStreak: 1},
		{name: "slow correct extends streak", isCorrect: true, timeSpent: 20, priorTotal: 100, priorStreak: 2, wantTotal: 175, wantStreak: 3},
		{name: "slow correct just past window", isCorrect: true, timeSpent: 16, priorTotal: 0, priorStreak: 0, wantTotal: 25, wantStreak: 1},
		{name: "fast correct on long streak", isCorrect: true, timeSpent: 3, priorTotal: 200, priorStreak: 3, wantTotal: 320, wantStreak: 4},
		{name: "incorrect at zero stays zero", isCorrect: false, timeSpent: 1, priorTotal: 0, priorStreak: 0, wantTotal: 0, wantStreak: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotTotal, gotStreak := Score(tt.isCorrect, tt.timeSpent, tt.priorTotal, tt.priorStreak)
			if gotTotal != tt.wantTotal || gotStreak != tt.wantStreak {
				t.Errorf("Score(%v, %d, %d, %d) = (%d, %d), want (%d, %d)",
					tt.isCorrect, tt.timeSpent, tt.priorTotal, tt.priorStreak,
					gotTotal, gotStreak, tt.wantTotal, tt.wantStreak)
			}
		})
	}
}

func TestScoreNeverNegative(t *testing.T) {
	total := 1
	for i := 0; i < 10; i++ {
		total, _ = Score(false, 5, total, 0)
		if total < 0 {
			t.Fatalf("total went negative after %d misses: %d", i+1, total)
		}
	}
	if total != 0 {
		t.Errorf("repeated halving should bottom out at 0, got %d", total)
	}
}

func TestIsCorrect(t *testing.T) {
	single := models.Question{ID: 1, Text: "q", Options: []string{"a", "b", "c", "d"}, CorrectAnswers: []int{2}, Type: models.QuestionTypeSingle}
	multi := models.Question{ID: 2, Text: "q", Options: []string{"a", "b", "c", "d"}, CorrectAnswers: []int{0, 3}, Type: models.QuestionTypeMultiple}

	tests := []struct {
		name     string
		question models.Question
		selected []int
		want     bool
	}{
		{"single exact match", single, []int{2}, true},
		{"single wrong option", single, []int{1}, false},
		{"empty selection never matches", single, nil, false},
		{"multi exact set", multi, []int{0, 3}, true},
		{"multi order irrelevant", multi, []int{3, 0}, true},
		{"multi subset fails", multi, []int{0}, false},
		{"multi superset fails", multi, []int{0, 1, 3}, false},
		{"multi wrong member fails", multi, []int{0, 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCorrect(tt.question, tt.selected); got != tt.want {
				t.Errorf("IsCorrect(%d, %v) = %v, want %v", tt.question.ID, tt.selected, got, tt.want)
			}
		})
	}
}

func TestFinalScoreIdempotent(t *testing.T) {
	questions := []models.Question{
		{ID: 1, Text: "q1", Options: []string{"a", "b", "c", "d"}, CorrectAnswers: []int{0}, Type: models.QuestionTypeSingle},
		{ID: 2, Text: "q2", Options: []string{"a", "b", "c", "d"}, CorrectAnswers: []int{1, 2}, Type: models.QuestionTypeMultiple},
		{ID: 3, Text: "q3", Options: []string{"a", "b", "c", "d"}, CorrectAnswers: []int{3}, Type: models.QuestionTypeSingle},
	}
	selected := map[int][]int{
		1: {0},
		2: {2, 1},
		3: {0},
	}

	first := FinalScore(questions, selected)
	if first != 2 {
		t.Fatalf("FinalScore = %d, want 2", first)
	}
	if again := FinalScore(questions, selected); again != first {
		t.Errorf("FinalScore not idempotent: %d then %d", first, again)
	}
}
