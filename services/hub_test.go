package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cbtportal/models"
	"cbtportal/session"
	"cbtportal/store"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seededStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	st := store.NewMemoryStore()
	d := validDraft()
	require.NoError(t, st.Put(context.Background(), &models.Quiz{
		ID:          "quiz-1",
		Title:       d.Title,
		Description: d.Description,
		Questions:   d.Questions,
		CreatedBy:   DefaultAuthor,
		CreatedAt:   1700000000000,
	}))
	return st
}

// newIdleHub never ticks, so tests drive sessions with answers only.
func newIdleHub(t *testing.T) *SessionHub {
	t.Helper()
	h := NewSessionHub(seededStore(t), time.Minute, zap.NewNop(), session.WithTickInterval(time.Hour))
	t.Cleanup(h.Stop)
	return h
}

func waitDone(t *testing.T, s *session.Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end")
	}
}

func TestHub_StartAndAnswer(t *testing.T) {
	h := newIdleHub(t)
	ctx := context.Background()

	s, err := h.Start(ctx, "quiz-1", nil)
	require.NoError(t, err)
	snap := s.Snapshot()
	assert.Equal(t, session.StateActive, snap.State)
	assert.Equal(t, 30, snap.TimeLeft)
	assert.Equal(t, 1, h.ActiveCount())

	got, err := h.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, h.Answer(ctx, s.ID(), 0, 1))
	assert.ErrorIs(t, h.Answer(ctx, s.ID(), 0, 0), session.ErrStaleAnswer)
	require.NoError(t, h.Answer(ctx, s.ID(), 1, 1))

	waitDone(t, s)
	snap = s.Snapshot()
	assert.Equal(t, session.StateFinished, snap.State)
	require.NotNil(t, snap.Percent)
	assert.Equal(t, 50, *snap.Percent)
	assert.Equal(t, 0, h.ActiveCount())

	// still readable after it ended
	_, err = h.Get(s.ID())
	assert.NoError(t, err)
	assert.ErrorIs(t, h.Answer(ctx, s.ID(), 1, 0), session.ErrNotActive)
}

func TestHub_MissingQuizErrors(t *testing.T) {
	h := newIdleHub(t)

	var events []session.Event
	s, err := h.Start(context.Background(), "does-not-exist", func(e session.Event) {
		events = append(events, e)
	})
	require.NoError(t, err)
	waitDone(t, s)

	assert.Equal(t, session.StateError, s.Snapshot().State)
	require.Len(t, events, 1)
	assert.Equal(t, session.EventError, events[0].Type)
}

func TestHub_CloseStopsSession(t *testing.T) {
	h := newIdleHub(t)

	s, err := h.Start(context.Background(), "quiz-1", nil)
	require.NoError(t, err)

	require.NoError(t, h.Close(s.ID()))
	waitDone(t, s)

	_, err = h.Get(s.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, h.Close(s.ID()), ErrSessionNotFound)
	assert.ErrorIs(t, h.Answer(context.Background(), s.ID(), 0, 1), ErrSessionNotFound)
}

func TestHub_SweepRemovesEndedSessions(t *testing.T) {
	h := newIdleHub(t)

	ended, err := h.Start(context.Background(), "missing", nil)
	require.NoError(t, err)
	waitDone(t, ended)
	running, err := h.Start(context.Background(), "quiz-1", nil)
	require.NoError(t, err)

	assert.Zero(t, h.Sweep())

	// endedAt is stamped just after Done closes
	h.ttl = -time.Minute
	require.Eventually(t, func() bool { return h.Sweep() == 1 }, time.Second, 10*time.Millisecond)

	_, err = h.Get(ended.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = h.Get(running.ID())
	assert.NoError(t, err)
}

func TestHub_StopEndsAllSessions(t *testing.T) {
	h := NewSessionHub(seededStore(t), time.Minute, zap.NewNop(), session.WithTickInterval(time.Hour))

	a, err := h.Start(context.Background(), "quiz-1", nil)
	require.NoError(t, err)
	b, err := h.Start(context.Background(), "quiz-1", nil)
	require.NoError(t, err)

	h.Stop()
	waitDone(t, a)
	waitDone(t, b)
	assert.Zero(t, h.ActiveCount())
}

func dialHub(t *testing.T, h *SessionHub, quizID string) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_, _ = h.Attach(r.Context(), conn, quizID)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type wireMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readMessage(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg wireMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func readSnapshot(t *testing.T, msg wireMessage) session.Snapshot {
	t.Helper()
	var snap session.Snapshot
	require.NoError(t, json.Unmarshal(msg.Payload, &snap))
	return snap
}

func TestClient_TakeQuizOverWebSocket(t *testing.T) {
	h := newIdleHub(t)
	conn := dialHub(t, h, "quiz-1")

	msg := readMessage(t, conn)
	require.Equal(t, "question_start", msg.Type)
	snap := readSnapshot(t, msg)
	assert.Equal(t, 0, snap.CurrentQuestionIndex)
	require.NotNil(t, snap.Question)
	assert.Equal(t, []string{"Queue", "Stack"}, snap.Question.Options)
	assert.NotContains(t, string(msg.Payload), "isCorrect")

	require.NoError(t, conn.WriteJSON(Message{Type: "ping"}))
	assert.Equal(t, "pong", readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(Message{Type: "answer", Payload: AnswerPayload{QuestionIndex: 0, OptionIndex: 0}}))
	msg = readMessage(t, conn)
	require.Equal(t, "question_start", msg.Type)
	assert.Equal(t, 1, readSnapshot(t, msg).CurrentQuestionIndex)

	require.NoError(t, conn.WriteJSON(Message{Type: "answer", Payload: AnswerPayload{QuestionIndex: 0, OptionIndex: 1}}))
	assert.Equal(t, "answer_rejected", readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(Message{Type: "answer", Payload: AnswerPayload{QuestionIndex: 1, OptionIndex: 0}}))
	msg = readMessage(t, conn)
	require.Equal(t, "quiz_finished", msg.Type)
	snap = readSnapshot(t, msg)
	require.NotNil(t, snap.Percent)
	assert.Equal(t, 50, *snap.Percent)
}

func TestClient_UnknownQuizSendsError(t *testing.T) {
	h := newIdleHub(t)
	conn := dialHub(t, h, "nope")

	msg := readMessage(t, conn)
	assert.Equal(t, "quiz_error", msg.Type)
	assert.Equal(t, session.StateError, readSnapshot(t, msg).State)
}

func TestClient_DisconnectClosesSession(t *testing.T) {
	h := newIdleHub(t)
	conn := dialHub(t, h, "quiz-1")
	require.Equal(t, "question_start", readMessage(t, conn).Type)
	require.Equal(t, 1, h.ActiveCount())

	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return h.ActiveCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
