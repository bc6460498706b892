package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"cbtportal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func newTestQuizService(st store.Store) *QuizService {
	svc := NewQuizService(st, zap.NewNop())
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return svc
}

func TestPublish_StoresQuiz(t *testing.T) {
	st := newRecordingStore()
	svc := newTestQuizService(st)
	ctx := context.Background()

	quiz, err := svc.Publish(ctx, validDraft())
	require.NoError(t, err)

	assert.NotEmpty(t, quiz.ID)
	assert.Equal(t, "Data Structures Midterm", quiz.Title)
	assert.Equal(t, int64(1700000000000), quiz.CreatedAt)
	assert.Equal(t, DefaultAuthor, quiz.CreatedBy)
	require.Len(t, quiz.Questions, 2)
	assert.NotEmpty(t, quiz.Questions[0].ID)
	assert.NotEqual(t, quiz.Questions[0].ID, quiz.Questions[1].ID)

	got, err := svc.GetQuiz(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, quiz, got)
	assert.Equal(t, "/quiz/take/"+quiz.ID, ShareLink(quiz.ID))
}

func TestPublish_KeepsAuthor(t *testing.T) {
	svc := newTestQuizService(newRecordingStore())

	d := validDraft()
	d.CreatedBy = "dr.okafor"
	quiz, err := svc.Publish(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, "dr.okafor", quiz.CreatedBy)
}

func TestPublish_ReplacesDuplicateQuestionIDs(t *testing.T) {
	svc := newTestQuizService(newRecordingStore())
	svc.newID = sequentialIDs("id")

	d := validDraft()
	d.Questions[0].ID = "q"
	d.Questions[1].ID = "q"

	quiz, err := svc.Publish(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, "id-1", quiz.ID)
	assert.Equal(t, "q", quiz.Questions[0].ID)
	assert.Equal(t, "id-2", quiz.Questions[1].ID)
}

func TestPublish_SameContentTwiceGetsDistinctIDs(t *testing.T) {
	st := newRecordingStore()
	svc := newTestQuizService(st)
	ctx := context.Background()

	first, err := svc.Publish(ctx, validDraft())
	require.NoError(t, err)
	second, err := svc.Publish(ctx, validDraft())
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)

	_, err = svc.GetQuiz(ctx, first.ID)
	assert.NoError(t, err)
	_, err = svc.GetQuiz(ctx, second.ID)
	assert.NoError(t, err)
}

func TestPublish_StorageFailure(t *testing.T) {
	st := newRecordingStore()
	st.fail(fmt.Errorf("redis down: %w", store.ErrStorageUnavailable))
	svc := newTestQuizService(st)

	d := validDraft()
	before := *d.clone()

	quiz, err := svc.Publish(context.Background(), d)
	assert.Nil(t, quiz)
	assert.ErrorIs(t, err, store.ErrStorageUnavailable)
	assert.Equal(t, 1, st.putCount())
	assert.Equal(t, before, *d)
}

func TestGetQuiz_Missing(t *testing.T) {
	svc := newTestQuizService(newRecordingStore())

	_, err := svc.GetQuiz(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
