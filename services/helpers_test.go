package services

import (
	"context"
	"sync"

	"cbtportal/models"
	"cbtportal/store"
)

func validDraft() *Draft {
	return &Draft{
		Title:       "Data Structures Midterm",
		Description: "Lists, stacks and queues",
		Questions: []models.Question{
			{
				QuestionText:     "Which structure is LIFO?",
				TimeLimitSeconds: 30,
				AnswerOptions: []models.Option{
					{Text: "Queue"},
					{Text: "Stack", IsCorrect: true},
				},
			},
			{
				QuestionText:     "Which structure is FIFO?",
				TimeLimitSeconds: 20,
				AnswerOptions: []models.Option{
					{Text: "Queue", IsCorrect: true},
					{Text: "Stack"},
				},
			},
		},
	}
}

// recordingStore wraps a memory store, counts writes and can be told to fail.
type recordingStore struct {
	mu    sync.Mutex
	inner *store.MemoryStore
	puts  int
	err   error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{inner: store.NewMemoryStore()}
}

func (s *recordingStore) Put(ctx context.Context, quiz *models.Quiz) error {
	s.mu.Lock()
	s.puts++
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.inner.Put(ctx, quiz)
}

func (s *recordingStore) Get(ctx context.Context, id string) (*models.Quiz, error) {
	return s.inner.Get(ctx, id)
}

func (s *recordingStore) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *recordingStore) putCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}
