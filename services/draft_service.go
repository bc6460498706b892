package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"cbtportal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultTimeLimitSeconds = 60
	DefaultOptionCount      = 4
)

var (
	ErrDraftNotFound    = errors.New("draft not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrOptionNotFound   = errors.New("option not found")
)

// DraftView is a draft together with its current publishability.
type DraftView struct {
	Draft
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems"`
}

type QuestionPatch struct {
	QuestionText     *string        `json:"questionText"`
	TimeLimitSeconds *int           `json:"timeLimitSeconds"`
	OptionTexts      map[int]string `json:"optionTexts"`
}

type draftEntry struct {
	draft   *Draft
	version int
}

// DraftService holds quizzes being authored. Drafts live in memory only and
// expire after ttl without edits.
type DraftService struct {
	mu      sync.Mutex
	drafts  map[string]*draftEntry
	quizzes *QuizService
	ttl     time.Duration
	log     *zap.Logger
	newID   func() string
	now     func() time.Time
}

func NewDraftService(quizzes *QuizService, ttl time.Duration, log *zap.Logger) *DraftService {
	return &DraftService{
		drafts:  make(map[string]*draftEntry),
		quizzes: quizzes,
		ttl:     ttl,
		log:     log,
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

func view(d *Draft) *DraftView {
	problems := ValidateDraft(d)
	if problems == nil {
		problems = []string{}
	}
	return &DraftView{Draft: *d.clone(), Valid: len(problems) == 0, Problems: problems}
}

func (s *DraftService) Create(createdBy string) *DraftView {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := &Draft{
		ID:        s.newID(),
		Questions: []models.Question{},
		CreatedBy: createdBy,
		UpdatedAt: s.now(),
	}
	s.drafts[d.ID] = &draftEntry{draft: d}
	return view(d)
}

func (s *DraftService) Get(id string) (*DraftView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.drafts[id]
	if !ok {
		return nil, ErrDraftNotFound
	}
	return view(e.draft), nil
}

// edit applies fn to the draft under the lock and bumps its version.
func (s *DraftService) edit(id string, fn func(d *Draft) error) (*DraftView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.drafts[id]
	if !ok {
		return nil, ErrDraftNotFound
	}
	if err := fn(e.draft); err != nil {
		return nil, err
	}
	e.version++
	e.draft.UpdatedAt = s.now()
	return view(e.draft), nil
}

func (s *DraftService) UpdateDetails(id string, title, description *string) (*DraftView, error) {
	return s.edit(id, func(d *Draft) error {
		if title != nil {
			d.Title = *title
		}
		if description != nil {
			d.Description = *description
		}
		return nil
	})
}

// AddQuestion appends a blank question: default time limit and four empty
// options with the first one marked correct.
func (s *DraftService) AddQuestion(id string) (*DraftView, error) {
	return s.edit(id, func(d *Draft) error {
		q := models.Question{
			ID:               s.newID(),
			TimeLimitSeconds: DefaultTimeLimitSeconds,
			AnswerOptions:    make([]models.Option, DefaultOptionCount),
		}
		q.AnswerOptions[0].IsCorrect = true
		d.Questions = append(d.Questions, q)
		return nil
	})
}

func findQuestion(d *Draft, questionID string) (*models.Question, error) {
	for i := range d.Questions {
		if d.Questions[i].ID == questionID {
			return &d.Questions[i], nil
		}
	}
	return nil, ErrQuestionNotFound
}

func (s *DraftService) UpdateQuestion(id, questionID string, patch *QuestionPatch) (*DraftView, error) {
	return s.edit(id, func(d *Draft) error {
		q, err := findQuestion(d, questionID)
		if err != nil {
			return err
		}
		for idx := range patch.OptionTexts {
			if idx < 0 || idx >= len(q.AnswerOptions) {
				return ErrOptionNotFound
			}
		}

		if patch.QuestionText != nil {
			q.QuestionText = *patch.QuestionText
		}
		if patch.TimeLimitSeconds != nil {
			q.TimeLimitSeconds = *patch.TimeLimitSeconds
		}
		for idx, text := range patch.OptionTexts {
			q.AnswerOptions[idx].Text = text
		}
		return nil
	})
}

// MarkCorrect makes option the only correct answer of the question.
func (s *DraftService) MarkCorrect(id, questionID string, option int) (*DraftView, error) {
	return s.edit(id, func(d *Draft) error {
		q, err := findQuestion(d, questionID)
		if err != nil {
			return err
		}
		if option < 0 || option >= len(q.AnswerOptions) {
			return ErrOptionNotFound
		}
		for i := range q.AnswerOptions {
			q.AnswerOptions[i].IsCorrect = i == option
		}
		return nil
	})
}

func (s *DraftService) RemoveQuestion(id, questionID string) (*DraftView, error) {
	return s.edit(id, func(d *Draft) error {
		for i := range d.Questions {
			if d.Questions[i].ID == questionID {
				d.Questions = append(d.Questions[:i], d.Questions[i+1:]...)
				return nil
			}
		}
		return ErrQuestionNotFound
	})
}

// Publish publishes the draft's current content. A published draft is
// discarded unless it was edited while the store write was in flight; a failed
// publish leaves the draft as it was.
func (s *DraftService) Publish(ctx context.Context, id string) (*models.Quiz, error) {
	s.mu.Lock()
	e, ok := s.drafts[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrDraftNotFound
	}
	snapshot := e.draft.clone()
	version := e.version
	s.mu.Unlock()

	quiz, err := s.quizzes.Publish(ctx, snapshot)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if cur, ok := s.drafts[id]; ok && cur.version == version {
		delete(s.drafts, id)
	}
	s.mu.Unlock()

	s.log.Debug("draft published", zap.String("draft_id", id), zap.String("quiz_id", quiz.ID))
	return quiz, nil
}

// Sweep drops drafts not edited within the ttl and returns how many it removed.
func (s *DraftService) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for id, e := range s.drafts {
		if e.draft.UpdatedAt.Before(cutoff) {
			delete(s.drafts, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired drafts every interval until ctx is done.
func (s *DraftService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.log.Info("expired drafts removed", zap.Int("count", n))
			}
		}
	}
}
