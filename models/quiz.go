package models

import "time"

// Quiz is the published record shared by the authoring and take-quiz flows.
// The JSON shape is the wire contract of the quiz store blob.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions"`
	CreatedBy   string     `json:"createdBy"`
	CreatedAt   int64      `json:"createdAt"` // epoch millis
}

// TotalQuestions returns the number of questions in the quiz.
func (q *Quiz) TotalQuestions() int {
	return len(q.Questions)
}

// CreatedTime converts CreatedAt back to a time.Time.
func (q *Quiz) CreatedTime() time.Time {
	return time.UnixMilli(q.CreatedAt)
}
