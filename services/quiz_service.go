package services

import (
	"context"
	"fmt"
	"time"

	"cbtportal/models"
	"cbtportal/monitoring"
	"cbtportal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultAuthor is stamped on quizzes published without an author.
const DefaultAuthor = "StaffUser"

// Draft is a quiz under construction. It has the quiz shape but is never
// written to the store until published.
type Draft struct {
	ID          string            `json:"id,omitempty"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Questions   []models.Question `json:"questions"`
	CreatedBy   string            `json:"createdBy,omitempty"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

func (d *Draft) clone() *Draft {
	c := *d
	c.Questions = cloneQuestions(d.Questions)
	return &c
}

func cloneQuestions(qs []models.Question) []models.Question {
	if qs == nil {
		return nil
	}
	out := make([]models.Question, len(qs))
	for i, q := range qs {
		out[i] = q
		out[i].AnswerOptions = append([]models.Option(nil), q.AnswerOptions...)
	}
	return out
}

type QuizService struct {
	store store.Store
	log   *zap.Logger
	newID func() string
	now   func() time.Time
}

func NewQuizService(s store.Store, log *zap.Logger) *QuizService {
	return &QuizService{
		store: s,
		log:   log,
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// ShareLink is the path learners open to take a quiz.
func ShareLink(quizID string) string {
	return "/quiz/take/" + quizID
}

// Publish validates the draft, gives it a fresh id and writes it to the store.
// The draft itself is never modified.
func (s *QuizService) Publish(ctx context.Context, draft *Draft) (*models.Quiz, error) {
	if problems := ValidateDraft(draft); len(problems) > 0 {
		monitoring.PublishFailures.WithLabelValues("invalid").Inc()
		return nil, &ValidationError{Problems: problems}
	}

	quiz := &models.Quiz{
		ID:          s.newID(),
		Title:       draft.Title,
		Description: draft.Description,
		Questions:   cloneQuestions(draft.Questions),
		CreatedBy:   draft.CreatedBy,
		CreatedAt:   s.now().UnixMilli(),
	}
	if quiz.CreatedBy == "" {
		quiz.CreatedBy = DefaultAuthor
	}
	s.assignQuestionIDs(quiz)

	if err := s.store.Put(ctx, quiz); err != nil {
		monitoring.PublishFailures.WithLabelValues("storage").Inc()
		s.log.Error("failed to store quiz", zap.String("quiz_id", quiz.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to publish quiz: %w", err)
	}

	monitoring.QuizzesPublished.Inc()
	s.log.Info("quiz published",
		zap.String("quiz_id", quiz.ID),
		zap.String("created_by", quiz.CreatedBy),
		zap.Time("created_at", quiz.CreatedTime()),
		zap.Int("questions", quiz.TotalQuestions()),
	)
	return quiz, nil
}

// assignQuestionIDs fills blank ids and replaces duplicates so ids are unique
// within the quiz.
func (s *QuizService) assignQuestionIDs(quiz *models.Quiz) {
	seen := make(map[string]bool, len(quiz.Questions))
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		if q.ID == "" || seen[q.ID] {
			q.ID = s.newID()
		}
		seen[q.ID] = true
	}
}

func (s *QuizService) GetQuiz(ctx context.Context, id string) (*models.Quiz, error) {
	quiz, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return quiz, nil
}
