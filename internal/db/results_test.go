package db

import (
	"testing"
	"time"

	"studi/internal/models"

	"github.com/google/uuid"
)

func TestDeduplicateResults(t *testing.T) {
	fileA := uuid.New()
	fileB := uuid.New()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	result := func(fileID uuid.UUID, score, total int, at time.Time) models.QuizResult {
		return models.QuizResult{
			ID:             uuid.New(),
			FileID:         fileID,
			Score:          score,
			TotalQuestions: total,
			CompletedAt:    at,
		}
	}

	tests := []struct {
		name    string
		results []models.QuizResult
		want    int
	}{
		{
			name:    "empty",
			results: nil,
			want:    0,
		},
		{
			name: "identical results in same minute collapse",
			results: []models.QuizResult{
				result(fileA, 8, 10, base),
				result(fileA, 8, 10, base.Add(20*time.Second)),
			},
			want: 1,
		},
		{
			name: "same signature in different minute buckets survives",
			results: []models.QuizResult{
				result(fileA, 8, 10, base),
				result(fileA, 8, 10, base.Add(2*time.Minute)),
			},
			want: 2,
		},
		{
			name: "different score is not a duplicate",
			results: []models.QuizResult{
				result(fileA, 8, 10, base),
				result(fileA, 7, 10, base.Add(5*time.Second)),
			},
			want: 2,
		},
		{
			name: "different file is not a duplicate",
			results: []models.QuizResult{
				result(fileA, 8, 10, base),
				result(fileB, 8, 10, base),
			},
			want: 2,
		},
		{
			name: "triplicate keeps one",
			results: []models.QuizResult{
				result(fileA, 5, 5, base),
				result(fileA, 5, 5, base.Add(3*time.Second)),
				result(fileA, 5, 5, base.Add(6*time.Second)),
			},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeduplicateResults(tt.results)
			if len(got) != tt.want {
				t.Errorf("kept %d results, want %d", len(got), tt.want)
			}
		})
	}
}

func TestDeduplicateResultsKeepsFirst(t *testing.T) {
	fileA := uuid.New()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	first := models.QuizResult{ID: uuid.New(), FileID: fileA, Score: 8, TotalQuestions: 10, CompletedAt: at.Add(30 * time.Second)}
	second := models.QuizResult{ID: uuid.New(), FileID: fileA, Score: 8, TotalQuestions: 10, CompletedAt: at}

	got := DeduplicateResults([]models.QuizResult{first, second})
	if len(got) != 1 || got[0].ID != first.ID {
		t.Errorf("expected the first occurrence to win, got %+v", got)
	}
}
