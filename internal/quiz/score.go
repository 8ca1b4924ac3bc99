package quiz

import (
	"math"

	"github.com/samber/lo"
)

// Score computes the percentage of correctly answered multiple-choice
// questions. Essay questions are excluded from the denominator entirely:
// they are self-graded by reveal, never scored. Correctness is exact string
// equality between the submitted answer (keyed by question index) and the
// answer key, with no normalization. Returns 0 when the quiz has no
// multiple-choice entries. Pure function.
func Score(questions []Question, answers map[int]string) int {
	total := lo.CountBy(questions, func(q Question) bool {
		return q.Kind == MultipleChoice
	})
	if total == 0 {
		return 0
	}

	correct := 0
	for i, q := range questions {
		if q.Kind != MultipleChoice {
			continue
		}
		if submitted, ok := answers[i]; ok && submitted == q.Answer {
			correct++
		}
	}

	return int(math.Round(float64(correct) / float64(total) * 100))
}
