package handlers

import (
	"net/http"

	"cbtportal/services"
	"cbtportal/session"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type SessionHandler struct {
	hub      *services.SessionHub
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewSessionHandler accepts WebSocket connections from allowedOrigins; "*"
// accepts any origin.
func NewSessionHandler(hub *services.SessionHub, allowedOrigins []string, log *zap.Logger) *SessionHandler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}

	return &SessionHandler{
		hub: hub,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins["*"] || origins[origin]
			},
		},
	}
}

type answerRequest struct {
	QuestionIndex *int `json:"question_index" binding:"required"`
	OptionIndex   *int `json:"option_index" binding:"required"`
}

// StartSession begins an attempt. A quiz that cannot be loaded yields the
// error-state snapshot with 404.
func (h *SessionHandler) StartSession(c *gin.Context) {
	s, err := h.hub.Start(c.Request.Context(), c.Param("id"), nil)
	if err != nil {
		respondError(c, err)
		return
	}

	snap := s.Snapshot()
	if snap.State == session.StateError {
		c.JSON(http.StatusNotFound, snap)
		return
	}
	c.JSON(http.StatusCreated, snap)
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	s, err := h.hub.Get(c.Param("sid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sid := c.Param("sid")
	if err := h.hub.Answer(c.Request.Context(), sid, *req.QuestionIndex, *req.OptionIndex); err != nil {
		respondError(c, err)
		return
	}

	s, err := h.hub.Get(sid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if err := h.hub.Close(c.Param("sid")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TakeQuiz upgrades to a WebSocket that streams one attempt at the quiz.
func (h *SessionHandler) TakeQuiz(c *gin.Context) {
	quizID := c.Param("id")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.String("quiz_id", quizID), zap.Error(err))
		return
	}

	client, err := h.hub.Attach(c.Request.Context(), conn, quizID)
	if err != nil {
		h.log.Warn("failed to start session", zap.String("quiz_id", quizID), zap.Error(err))
		return
	}
	h.log.Debug("websocket session started", zap.String("quiz_id", quizID), zap.String("session_id", client.SessionID()))
}
