package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"cbtportal/monitoring"
	"cbtportal/session"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("session not found")

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

type hubEntry struct {
	session *session.Session
	cancel  context.CancelFunc
	endedAt time.Time
}

// SessionHub keeps every running quiz attempt. Each attempt runs on its own
// goroutine under a context derived from the hub, so Stop tears them all down.
type SessionHub struct {
	mutex    sync.RWMutex
	sessions map[string]*hubEntry
	loader   session.Loader
	log      *zap.Logger
	ttl      time.Duration
	opts     []session.Option

	base  context.Context
	stop  context.CancelFunc
	wg    sync.WaitGroup
	newID func() string
	now   func() time.Time
}

// NewSessionHub builds a hub whose sessions read quizzes through loader. Ended
// sessions stay readable for ttl. opts are applied to every session.
func NewSessionHub(loader session.Loader, ttl time.Duration, log *zap.Logger, opts ...session.Option) *SessionHub {
	base, stop := context.WithCancel(context.Background())
	return &SessionHub{
		sessions: make(map[string]*hubEntry),
		loader:   loader,
		log:      log,
		ttl:      ttl,
		opts:     opts,
		base:     base,
		stop:     stop,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Start begins an attempt at quizID and returns once it has left the loading
// state. observer, if not nil, receives every event of the attempt. ctx bounds
// only the wait; the attempt itself lives until it ends or is closed.
func (h *SessionHub) Start(ctx context.Context, quizID string, observer func(session.Event)) (*session.Session, error) {
	opts := append([]session.Option{session.WithLogger(h.log)}, h.opts...)
	if observer != nil {
		opts = append(opts, session.WithObserver(observer))
	}

	id := h.newID()
	s := session.New(id, quizID, h.loader, opts...)
	sctx, cancel := context.WithCancel(h.base)

	h.mutex.Lock()
	h.sessions[id] = &hubEntry{session: s, cancel: cancel}
	h.mutex.Unlock()

	h.wg.Add(1)
	go h.run(sctx, s)

	select {
	case <-s.Ready():
		return s, nil
	case <-ctx.Done():
		h.Close(id)
		return nil, ctx.Err()
	}
}

func (h *SessionHub) run(ctx context.Context, s *session.Session) {
	defer h.wg.Done()

	monitoring.SessionsActive.Inc()
	err := s.Run(ctx)
	monitoring.SessionsActive.Dec()

	outcome := s.Snapshot().State.String()
	if err != nil {
		outcome = "abandoned"
	}
	monitoring.SessionsEnded.WithLabelValues(outcome).Inc()

	h.mutex.Lock()
	if e, ok := h.sessions[s.ID()]; ok {
		e.endedAt = h.now()
	}
	h.mutex.Unlock()

	h.log.Info("session ended",
		zap.String("session_id", s.ID()),
		zap.String("quiz_id", s.QuizID()),
		zap.String("outcome", outcome),
	)
}

func (h *SessionHub) Get(id string) (*session.Session, error) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	e, ok := h.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e.session, nil
}

func (h *SessionHub) Answer(ctx context.Context, id string, question, option int) error {
	s, err := h.Get(id)
	if err != nil {
		return err
	}
	return s.Answer(ctx, question, option)
}

// Close stops the attempt's countdown and forgets it.
func (h *SessionHub) Close(id string) error {
	h.mutex.Lock()
	e, ok := h.sessions[id]
	if ok {
		delete(h.sessions, id)
	}
	h.mutex.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	e.cancel()
	return nil
}

// ActiveCount is the number of attempts still running.
func (h *SessionHub) ActiveCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	n := 0
	for _, e := range h.sessions {
		select {
		case <-e.session.Done():
		default:
			n++
		}
	}
	return n
}

// Sweep forgets attempts that ended more than ttl ago.
func (h *SessionHub) Sweep() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	cutoff := h.now().Add(-h.ttl)
	removed := 0
	for id, e := range h.sessions {
		if !e.endedAt.IsZero() && e.endedAt.Before(cutoff) {
			e.cancel()
			delete(h.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps ended sessions every interval until ctx is done.
func (h *SessionHub) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := h.Sweep(); n > 0 {
				h.log.Debug("ended sessions removed", zap.Int("count", n))
			}
		}
	}
}

// Stop cancels every running attempt and waits for their goroutines.
func (h *SessionHub) Stop() {
	h.stop()
	h.wg.Wait()
}

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type incomingMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type AnswerPayload struct {
	QuestionIndex int `json:"question_index"`
	OptionIndex   int `json:"option_index"`
}

// Client is one learner's WebSocket taking one quiz attempt.
type Client struct {
	hub       *SessionHub
	sessionID string
	socket    *websocket.Conn
	send      chan []byte
	quit      chan struct{}
	closeOnce sync.Once
	log       *zap.Logger
}

// Attach starts an attempt at quizID whose events are pushed to conn, and
// serves the learner's messages until the connection drops. Dropping the
// connection closes the attempt.
func (h *SessionHub) Attach(ctx context.Context, conn *websocket.Conn, quizID string) (*Client, error) {
	c := &Client{
		hub:    h,
		socket: conn,
		send:   make(chan []byte, sendBufferSize),
		quit:   make(chan struct{}),
		log:    h.log,
	}

	s, err := h.Start(ctx, quizID, c.deliver)
	if err != nil {
		conn.Close()
		return nil, err
	}
	c.sessionID = s.ID()

	go c.writePump()
	go c.readPump()
	return c, nil
}

func (c *Client) SessionID() string { return c.sessionID }

func (c *Client) deliver(ev session.Event) {
	c.sendMessage(string(ev.Type), ev.Snapshot)
}

// sendMessage queues a message without blocking; it is dropped once the client
// is gone or its buffer is full.
func (c *Client) sendMessage(msgType string, payload interface{}) {
	data, err := json.Marshal(Message{Type: msgType, Payload: payload})
	if err != nil {
		c.log.Error("failed to marshal message", zap.String("type", msgType), zap.Error(err))
		return
	}

	select {
	case <-c.quit:
	case c.send <- data:
	default:
		c.log.Warn("send buffer full, dropping message", zap.String("type", msgType))
	}
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.quit)
		if err := c.hub.Close(c.sessionID); err != nil && !errors.Is(err, ErrSessionNotFound) {
			c.log.Warn("failed to close session", zap.Error(err))
		}
	})
}

func (c *Client) readPump() {
	defer func() {
		c.shutdown()
		c.socket.Close()
	}()

	c.socket.SetReadLimit(maxMessageSize)
	c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read error", zap.String("session_id", c.sessionID), zap.Error(err))
			}
			return
		}

		var msg incomingMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendMessage("error", errorPayload("invalid message"))
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.socket.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.quit:
			c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			c.socket.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) handleMessage(msg incomingMessage) {
	switch msg.Type {
	case "ping":
		c.sendMessage("pong", "pong")

	case "state":
		s, err := c.hub.Get(c.sessionID)
		if err != nil {
			c.sendMessage("error", errorPayload(err.Error()))
			return
		}
		c.sendMessage("state", s.Snapshot())

	case "answer":
		var p AnswerPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.sendMessage("answer_rejected", errorPayload("invalid answer payload"))
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		err := c.hub.Answer(ctx, c.sessionID, p.QuestionIndex, p.OptionIndex)
		cancel()
		if err != nil {
			c.log.Debug("answer rejected", zap.String("session_id", c.sessionID), zap.Int("question_index", p.QuestionIndex), zap.Error(err))
			c.sendMessage("answer_rejected", errorPayload(err.Error()))
		}

	default:
		c.log.Debug("unknown message type", zap.String("type", msg.Type))
	}
}

func errorPayload(msg string) map[string]string {
	return map[string]string{"error": msg}
}
