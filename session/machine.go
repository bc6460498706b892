// Package session drives one learner's attempt at a quiz: a four-state machine
// (loading, active, finished, error) plus the per-question countdown that feeds it.
package session

import (
	"errors"
	"fmt"
	"math"

	"cbtportal/models"
)

type State int

const (
	StateLoading State = iota
	StateActive
	StateFinished
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateActive:
		return "active"
	case StateFinished:
		return "finished"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for st := StateLoading; st <= StateError; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", text)
}

var (
	ErrNotActive     = errors.New("session is not active")
	ErrInvalidOption = errors.New("answer option out of range")
	ErrStaleAnswer   = errors.New("answer is for a question that is no longer current")
	ErrNoQuizID      = errors.New("no quiz id supplied")
	ErrEmptyQuiz     = errors.New("quiz has no questions")

	errNoQuiz = errors.New("lookup returned no quiz")
)

// Machine holds the attempt state. It is not safe for concurrent use; a Session
// confines it to a single goroutine.
type Machine struct {
	quiz     *models.Quiz
	state    State
	index    int
	score    int
	timeLeft int
	cause    error
}

func NewMachine() *Machine {
	return &Machine{state: StateLoading}
}

// Load completes the loading phase with the result of the store lookup.
func (m *Machine) Load(quiz *models.Quiz, err error) {
	if m.state != StateLoading {
		return
	}

	switch {
	case err != nil:
		m.fail(err)
	case quiz == nil:
		m.fail(errNoQuiz)
	case len(quiz.Questions) == 0:
		m.fail(ErrEmptyQuiz)
	default:
		m.quiz = quiz
		m.state = StateActive
		m.index = 0
		m.score = 0
		m.enter(0)
	}
}

// Fail moves a loading machine to the error state.
func (m *Machine) Fail(err error) {
	if m.state == StateLoading {
		m.fail(err)
	}
}

func (m *Machine) fail(err error) {
	m.state = StateError
	m.cause = err
}

// Answer records the learner's choice for the current question and advances.
func (m *Machine) Answer(option int) (bool, error) {
	if m.state != StateActive {
		return false, ErrNotActive
	}
	q := m.quiz.Questions[m.index]
	if option < 0 || option >= len(q.AnswerOptions) {
		return false, ErrInvalidOption
	}

	correct := q.AnswerOptions[option].IsCorrect
	m.advance(correct)
	return correct, nil
}

// Tick accounts for one elapsed second. It reports whether the countdown ran out
// and the machine moved on.
func (m *Machine) Tick() bool {
	if m.state != StateActive {
		return false
	}
	m.timeLeft--
	if m.timeLeft > 0 {
		return false
	}
	m.advance(false)
	return true
}

func (m *Machine) advance(correct bool) {
	if correct {
		m.score++
	}

	next := m.index + 1
	if next >= len(m.quiz.Questions) {
		m.state = StateFinished
		m.timeLeft = 0
		return
	}
	m.enter(next)
}

// enter makes question i current. A question without a positive limit is
// skipped as unanswered rather than armed.
func (m *Machine) enter(i int) {
	m.index = i
	m.timeLeft = m.quiz.Questions[i].TimeLimitSeconds
	if m.timeLeft <= 0 {
		m.advance(false)
	}
}

func (m *Machine) State() State { return m.state }
func (m *Machine) Index() int   { return m.index }
func (m *Machine) Score() int   { return m.score }
func (m *Machine) TimeLeft() int {
	return m.timeLeft
}

// Cause is the error that put the machine into StateError.
func (m *Machine) Cause() error { return m.cause }

func (m *Machine) Total() int {
	if m.quiz == nil {
		return 0
	}
	return m.quiz.TotalQuestions()
}

// Percent is round(score/total*100).
func (m *Machine) Percent() int {
	return Percent(m.score, m.Total())
}

func Percent(score, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}

// Snapshot copies the learner-visible state. Correct answers are never exposed.
func (m *Machine) Snapshot() Snapshot {
	snap := Snapshot{
		State:                m.state,
		CurrentQuestionIndex: m.index,
		Score:                m.score,
		TimeLeft:             m.timeLeft,
		Total:                m.Total(),
	}
	if m.quiz != nil {
		snap.QuizID = m.quiz.ID
		snap.QuizTitle = m.quiz.Title
	}

	switch m.state {
	case StateActive:
		q := m.quiz.Questions[m.index]
		view := &QuestionView{
			ID:               q.ID,
			QuestionText:     q.QuestionText,
			TimeLimitSeconds: q.TimeLimitSeconds,
			Options:          make([]string, len(q.AnswerOptions)),
		}
		for i, opt := range q.AnswerOptions {
			view.Options[i] = opt.Text
		}
		snap.Question = view
	case StateFinished:
		pct := m.Percent()
		snap.Percent = &pct
	}
	return snap
}

type QuestionView struct {
	ID               string   `json:"id"`
	QuestionText     string   `json:"question_text"`
	TimeLimitSeconds int      `json:"time_limit_seconds"`
	Options          []string `json:"options"`
}

type Snapshot struct {
	SessionID            string        `json:"session_id,omitempty"`
	QuizID               string        `json:"quiz_id,omitempty"`
	QuizTitle            string        `json:"quiz_title,omitempty"`
	State                State         `json:"state"`
	CurrentQuestionIndex int           `json:"current_question_index"`
	Score                int           `json:"score"`
	Total                int           `json:"total"`
	TimeLeft             int           `json:"time_left"`
	Percent              *int          `json:"percent,omitempty"`
	Question             *QuestionView `json:"question,omitempty"`
}
