package quiz

import (
	"math"

	"studi/internal/models"
)

// Scoring model: a correct answer earns a base award scaled by the running
// streak, with a speed bonus for fast answers. Any miss resets the streak and
// halves accumulated points (rounding down), so totals never go negative.
const (
	basePoints          = 25
	speedBonusWindowSec = 15
	speedMultiplier     = 1.2
)

// Score computes the new point total and streak after one answered question.
func Score(isCorrect bool, timeSpentSeconds, priorTotal, priorStreak int) (newTotal, newStreak int) {
	if !isCorrect {
		return priorTotal / 2, 0
	}

	newStreak = priorStreak + 1
	multiplier := 1.0
	if timeSpentSeconds <= speedBonusWindowSec {
		multiplier = speedMultiplier
	}
	award := int(math.Round(basePoints * multiplier * float64(newStreak)))
	return priorTotal + award, newStreak
}

// IsCorrect reports whether a selection set exactly matches a question's
// correct answer set. Order is irrelevant; an empty selection never matches.
func IsCorrect(q models.Question, selected []int) bool {
	if len(selected) != len(q.CorrectAnswers) || len(selected) == 0 {
		return false
	}
	correct := make(map[int]bool, len(q.CorrectAnswers))
	for _, idx := range q.CorrectAnswers {
		correct[idx] = true
	}
	for _, idx := range selected {
		if !correct[idx] {
			return false
		}
	}
	return true
}

// FinalScore counts correctly answered questions by re-evaluating every
// question's final selection set. It is idempotent and independent of the
// order in which answers were given.
func FinalScore(questions []models.Question, selected map[int][]int) int {
	count := 0
	for _, q := range questions {
		if IsCorrect(q, selected[q.ID]) {
			count++
		}
	}
	return count
}
