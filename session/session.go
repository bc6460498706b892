package session

import (
	"context"
	"sync"
	"time"

	"cbtportal/models"

	"go.uber.org/zap"
)

type EventType string

const (
	EventQuestionStart EventType = "question_start"
	EventTimerUpdate   EventType = "timer_update"
	EventFinished      EventType = "quiz_finished"
	EventError         EventType = "quiz_error"
)

type Event struct {
	Type     EventType `json:"type"`
	Snapshot Snapshot  `json:"snapshot"`
}

// Loader is the part of the quiz store a session needs.
type Loader interface {
	Get(ctx context.Context, id string) (*models.Quiz, error)
}

type Option func(*Session)

// WithObserver registers fn to receive every event. fn runs on the session
// goroutine, so events arrive in order and must not block for long.
func WithObserver(fn func(Event)) Option {
	return func(s *Session) { s.observer = fn }
}

func WithTicker(fn TickerFunc) Option {
	return func(s *Session) { s.newTicker = fn }
}

// WithTickInterval changes the countdown step; one step is one "second" of
// timeLimitSeconds.
func WithTickInterval(d time.Duration) Option {
	return func(s *Session) { s.interval = d }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Session) { s.log = log }
}

type answerCmd struct {
	question int
	option   int
	reply    chan error
}

// Session runs a Machine on its own goroutine. The goroutine owns the countdown
// ticker: advancing stops the old ticker before arming a new one, and returning
// from Run stops whatever is armed.
type Session struct {
	id     string
	quizID string
	loader Loader

	observer  func(Event)
	newTicker TickerFunc
	interval  time.Duration
	log       *zap.Logger

	machine *Machine
	answers chan answerCmd
	ready   chan struct{}
	done    chan struct{}

	mu   sync.RWMutex
	snap Snapshot
}

func New(id, quizID string, loader Loader, opts ...Option) *Session {
	s := &Session{
		id:        id,
		quizID:    quizID,
		loader:    loader,
		newTicker: NewRealTicker,
		interval:  time.Second,
		log:       zap.NewNop(),
		machine:   NewMachine(),
		answers:   make(chan answerCmd),
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.snap = s.machine.Snapshot()
	s.snap.SessionID = id
	s.snap.QuizID = quizID
	return s
}

func (s *Session) ID() string     { return s.id }
func (s *Session) QuizID() string { return s.quizID }

// Ready is closed once the session has left the loading state.
func (s *Session) Ready() <-chan struct{} { return s.ready }

// Done is closed when Run has returned.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Run loads the quiz and drives the attempt until it finishes, fails to load,
// or ctx is cancelled. It must be called once.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)

	s.load(ctx)
	close(s.ready)

	switch s.machine.State() {
	case StateError:
		s.log.Info("session failed to load",
			zap.String("session_id", s.id),
			zap.String("quiz_id", s.quizID),
			zap.Error(s.machine.Cause()),
		)
		s.emit(EventError)
		return nil
	case StateFinished:
		s.emit(EventFinished)
		return nil
	}

	ticker := s.newTicker(s.interval)
	s.emit(EventQuestionStart)

	for {
		select {
		case <-ctx.Done():
			ticker.Stop()
			s.log.Debug("session torn down", zap.String("session_id", s.id), zap.Error(ctx.Err()))
			return ctx.Err()

		case <-ticker.C():
			if !s.machine.Tick() {
				s.emit(EventTimerUpdate)
				continue
			}
			ticker.Stop()
			if s.machine.State() == StateFinished {
				s.emit(EventFinished)
				return nil
			}
			ticker = s.newTicker(s.interval)
			s.emit(EventQuestionStart)

		case cmd := <-s.answers:
			if cmd.question != s.machine.Index() {
				cmd.reply <- ErrStaleAnswer
				continue
			}
			if _, err := s.machine.Answer(cmd.option); err != nil {
				cmd.reply <- err
				continue
			}
			ticker.Stop()
			if s.machine.State() == StateFinished {
				s.emit(EventFinished)
				cmd.reply <- nil
				return nil
			}
			ticker = s.newTicker(s.interval)
			s.emit(EventQuestionStart)
			cmd.reply <- nil
		}
	}
}

func (s *Session) load(ctx context.Context) {
	if s.quizID == "" {
		s.machine.Fail(ErrNoQuizID)
		s.publish()
		return
	}
	quiz, err := s.loader.Get(ctx, s.quizID)
	s.machine.Load(quiz, err)
	s.publish()
}

// Answer submits option for the question at index question. The event for the
// resulting transition has been delivered by the time Answer returns nil.
func (s *Session) Answer(ctx context.Context, question, option int) error {
	cmd := answerCmd{question: question, option: option, reply: make(chan error, 1)}

	select {
	case s.answers <- cmd:
	case <-s.done:
		return ErrNotActive
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) publish() Snapshot {
	snap := s.machine.Snapshot()
	snap.SessionID = s.id
	snap.QuizID = s.quizID

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	return snap
}

func (s *Session) emit(t EventType) {
	snap := s.publish()
	if s.observer != nil {
		s.observer(Event{Type: t, Snapshot: snap})
	}
}
