package models

type Question struct {
	ID               string   `json:"id"`
	QuestionText     string   `json:"questionText"`
	TimeLimitSeconds int      `json:"timeLimitSeconds"`
	AnswerOptions    []Option `json:"answerOptions"`
}

// CorrectCount reports how many options are marked correct.
func (q *Question) CorrectCount() int {
	n := 0
	for _, opt := range q.AnswerOptions {
		if opt.IsCorrect {
			n++
		}
	}
	return n
}
