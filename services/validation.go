package services

import (
	"errors"
	"fmt"
	"strings"

	"cbtportal/models"
)

var ErrInvalidQuiz = errors.New("quiz is not publishable")

// ValidationError carries the reasons a draft was rejected.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return ErrInvalidQuiz.Error() + ": " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidQuiz
}

// IsValid reports whether a draft can be published.
func IsValid(d *Draft) bool {
	return len(ValidateDraft(d)) == 0
}

// ValidateDraft lists everything that keeps the draft from being published. It
// looks only at its argument, so callers recompute it after every edit.
func ValidateDraft(d *Draft) []string {
	if d == nil {
		return []string{"draft is empty"}
	}

	var problems []string
	if strings.TrimSpace(d.Title) == "" {
		problems = append(problems, "title is required")
	}
	if strings.TrimSpace(d.Description) == "" {
		problems = append(problems, "description is required")
	}
	if len(d.Questions) == 0 {
		problems = append(problems, "at least one question is required")
	}

	for i, q := range d.Questions {
		problems = append(problems, validateQuestion(i+1, &q)...)
	}
	return problems
}

func validateQuestion(n int, q *models.Question) []string {
	var problems []string
	if strings.TrimSpace(q.QuestionText) == "" {
		problems = append(problems, fmt.Sprintf("question %d: text is required", n))
	}
	if q.TimeLimitSeconds <= 0 {
		problems = append(problems, fmt.Sprintf("question %d: time limit must be positive", n))
	}
	if c := q.CorrectCount(); c != 1 {
		problems = append(problems, fmt.Sprintf("question %d: exactly one correct option is required, found %d", n, c))
	}
	for j, opt := range q.AnswerOptions {
		if strings.TrimSpace(opt.Text) == "" {
			problems = append(problems, fmt.Sprintf("question %d: option %d text is required", n, j+1))
		}
	}
	return problems
}
